package devapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/me/storefront/pkg/model"
)

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	respondOK(w, s.catalog.List(q.Get("category"), q.Get("q")))
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	p, found := s.catalog.Get(id)
	if !found {
		respondFail(w, model.CodeNotFound, fmt.Sprintf("product %d not found", id))
		return
	}
	respondOK(w, p)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p Product
	if err := decodeJSON(w, r, &p); err != nil {
		respondFail(w, model.CodeBadRequest, "invalid JSON body")
		return
	}
	if err := p.Validate(); err != nil {
		respondFail(w, model.CodeBadRequest, err.Error())
		return
	}
	created := s.catalog.Add(p)
	s.logger.Info("product created", "id", created.ID, "by", UserFromContext(r.Context()).Username)
	respondOK(w, created)
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	respondOK(w, s.catalog.Cart(UserFromContext(r.Context()).ID))
}

type cartUpdate struct {
	Quantity int `json:"quantity"`
}

func (s *Server) handlePutCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var body cartUpdate
	if err := decodeJSON(w, r, &body); err != nil {
		respondFail(w, model.CodeBadRequest, "invalid JSON body")
		return
	}
	if err := validation.Validate(body.Quantity, validation.Min(0), validation.Max(99)); err != nil {
		respondFail(w, model.CodeBadRequest, "quantity: "+err.Error())
		return
	}
	s.setCartItem(w, r, id, body.Quantity)
}

func (s *Server) handleDeleteCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	s.setCartItem(w, r, id, 0)
}

func (s *Server) setCartItem(w http.ResponseWriter, r *http.Request, productID, qty int) {
	user := UserFromContext(r.Context())
	if !s.catalog.SetQuantity(user.ID, productID, qty) {
		respondFail(w, model.CodeNotFound, fmt.Sprintf("product %d not found", productID))
		return
	}
	respondOK(w, s.catalog.Cart(user.ID))
}

func productID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		respondFail(w, model.CodeBadRequest, "invalid product id")
		return 0, false
	}
	return id, true
}
