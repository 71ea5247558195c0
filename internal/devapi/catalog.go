package devapi

import (
	"sort"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Product is a catalog entry. Prices are in cents.
type Product struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    int    `json:"price"`
	Stock    int    `json:"stock"`
}

// Validate checks the fields an admin may set.
func (p Product) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&p.Category, validation.Required, validation.Length(1, 64)),
		validation.Field(&p.Price, validation.Required, validation.Min(1)),
		validation.Field(&p.Stock, validation.Min(0)),
	)
}

// CartItem is one line of a user's cart.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Catalog holds products and per-user carts in memory.
type Catalog struct {
	mu       sync.RWMutex
	products map[int]Product
	nextID   int
	carts    map[string]map[int]int
}

// NewCatalog returns a catalog seeded with products.
func NewCatalog(seed []Product) *Catalog {
	c := &Catalog{
		products: make(map[int]Product, len(seed)),
		carts:    make(map[string]map[int]int),
		nextID:   1,
	}
	for _, p := range seed {
		c.products[p.ID] = p
		if p.ID >= c.nextID {
			c.nextID = p.ID + 1
		}
	}
	return c
}

// DefaultProducts is the sample catalog served by the development backend.
func DefaultProducts() []Product {
	return []Product{
		{ID: 1, Name: "Espresso beans 1kg", Category: "coffee", Price: 2490, Stock: 40},
		{ID: 2, Name: "Filter papers", Category: "coffee", Price: 390, Stock: 200},
		{ID: 3, Name: "Ceramic mug", Category: "kitchen", Price: 1200, Stock: 25},
		{ID: 4, Name: "Hand grinder", Category: "kitchen", Price: 5900, Stock: 8},
		{ID: 5, Name: "Green tea 250g", Category: "tea", Price: 1450, Stock: 0},
	}
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

// List returns products ordered by id, filtered by category and a
// case-insensitive name query when given.
func (c *Catalog) List(category, query string) []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	query = strings.ToLower(query)
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		if category != "" && p.Category != category {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the product with the given id.
func (c *Catalog) Get(id int) (Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	return p, ok
}

// Add stores a new product and assigns its id.
func (c *Catalog) Add(p Product) Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	p.ID = c.nextID
	c.nextID++
	c.products[p.ID] = p
	return p
}

// Cart returns the user's cart ordered by product id.
func (c *Catalog) Cart(userID string) []CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items := make([]CartItem, 0, len(c.carts[userID]))
	for id, qty := range c.carts[userID] {
		items = append(items, CartItem{Product: c.products[id], Quantity: qty})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Product.ID < items[j].Product.ID })
	return items
}

// SetQuantity sets the quantity of a product in the user's cart. Zero
// removes the line. It reports false when the product does not exist.
func (c *Catalog) SetQuantity(userID string, productID, qty int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[productID]; !ok {
		return false
	}
	cart := c.carts[userID]
	if qty <= 0 {
		delete(cart, productID)
		return true
	}
	if cart == nil {
		cart = make(map[int]int)
		c.carts[userID] = cart
	}
	cart[productID] = qty
	return true
}
