package guard

import (
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/me/storefront/pkg/model"
)

//go:embed routes.yaml
var defaultRoutes []byte

// maxRedirects bounds redirect chains in the route table.
const maxRedirects = 8

// Meta is the auth metadata declared on a route.
type Meta struct {
	RequiresAuth bool `yaml:"requires_auth"`
	PublicOnly   bool `yaml:"public_only"`
}

// Route is one record of the route tree.
type Route struct {
	Path     string  `yaml:"path"`
	Name     string  `yaml:"name"`
	Redirect string  `yaml:"redirect"`
	Meta     Meta    `yaml:"meta"`
	Children []Route `yaml:"children"`
}

// Target is a resolved location.
type Target struct {
	Path    string                  // requested path after redirects
	Name    string                  // name of the leaf route, empty when unmatched or unnamed
	Pattern string                  // full pattern of the leaf route
	Params  map[string]string       // path parameters, e.g. {"id": "42"}
	Matched []model.RouteDescriptor // matched records, outermost first
}

// Found reports whether the path matched a route.
func (t Target) Found() bool {
	return len(t.Matched) > 0
}

// RequiresAuth reports whether any matched record requires a session.
func (t Target) RequiresAuth() bool {
	for _, r := range t.Matched {
		if r.RequiresAuth {
			return true
		}
	}
	return false
}

// PublicOnly reports whether any matched record is reserved for visitors without a session.
func (t Target) PublicOnly() bool {
	for _, r := range t.Matched {
		if r.PublicOnly {
			return true
		}
	}
	return false
}

// leaf is a matchable route with the chain of records leading to it.
type leaf struct {
	pattern  string
	name     string
	redirect string
	matched  []model.RouteDescriptor
}

// Table is an immutable, resolved route table.
type Table struct {
	routes []Route
	leaves map[string]*leaf // chi pattern -> leaf
	order  []string
	names  map[string]string
	mux    *chi.Mux
}

// DefaultTable returns the built-in storefront route table.
func DefaultTable() *Table {
	t, err := ParseTable(defaultRoutes)
	if err != nil {
		panic(fmt.Sprintf("embedded route table: %v", err))
	}
	return t
}

// LoadTable reads a YAML route table from path.
func LoadTable(filename string) (*Table, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open route table: %w", err)
	}
	defer f.Close()
	return ReadTable(f)
}

// ReadTable reads a YAML route table.
func ReadTable(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read route table: %w", err)
	}
	return ParseTable(data)
}

// ParseTable parses a YAML route table.
func ParseTable(data []byte) (*Table, error) {
	var routes []Route
	if err := yaml.Unmarshal(data, &routes); err != nil {
		return nil, fmt.Errorf("parse route table: %w", err)
	}
	return NewTable(routes)
}

// NewTable builds a table from a route tree. When two routes share a
// pattern the first one declared wins.
func NewTable(routes []Route) (*Table, error) {
	t := &Table{
		routes: routes,
		leaves: make(map[string]*leaf),
		names:  make(map[string]string),
		mux:    chi.NewRouter(),
	}
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	register := func(pattern, name, redirect string, matched []model.RouteDescriptor) {
		if _, exists := t.leaves[pattern]; exists {
			return
		}
		t.leaves[pattern] = &leaf{pattern: pattern, name: name, redirect: redirect, matched: matched}
		t.order = append(t.order, pattern)
		t.mux.Handle(pattern, noop)
	}
	var walk func(rs []Route, prefix string, chain []model.RouteDescriptor) error
	walk = func(rs []Route, prefix string, chain []model.RouteDescriptor) error {
		for _, r := range rs {
			full := joinPath(prefix, r.Path)
			rec := model.RouteDescriptor{
				Name:         r.Name,
				Path:         full,
				RequiresAuth: r.Meta.RequiresAuth,
				PublicOnly:   r.Meta.PublicOnly,
			}
			next := append(append([]model.RouteDescriptor(nil), chain...), rec)
			if r.Name != "" {
				if _, dup := t.names[r.Name]; dup {
					return fmt.Errorf("duplicate route name %q", r.Name)
				}
				t.names[r.Name] = full
			}
			if len(r.Children) > 0 {
				if r.Redirect != "" {
					return fmt.Errorf("route %q: redirect and children are exclusive", full)
				}
				if err := walk(r.Children, full, next); err != nil {
					return err
				}
			}
			// A parent matches its own path unless an earlier record or an
			// empty-path child already claimed it.
			register(chiPattern(full), r.Name, r.Redirect, next)
		}
		return nil
	}
	if err := walk(routes, "/", nil); err != nil {
		return nil, err
	}
	return t, nil
}

// Routes returns the route tree the table was built from.
func (t *Table) Routes() []Route {
	return t.routes
}

// Entry describes one matchable route of the table.
type Entry struct {
	Pattern      string `json:"pattern"`
	Name         string `json:"name,omitempty"`
	Redirect     string `json:"redirect,omitempty"`
	RequiresAuth bool   `json:"requires_auth"`
	PublicOnly   bool   `json:"public_only"`
}

// Entries lists the matchable routes in declaration order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.order))
	for _, p := range t.order {
		lf := t.leaves[p]
		tg := Target{Matched: lf.matched}
		out = append(out, Entry{
			Pattern:      lf.pattern,
			Name:         lf.name,
			Redirect:     lf.redirect,
			RequiresAuth: tg.RequiresAuth(),
			PublicOnly:   tg.PublicOnly(),
		})
	}
	return out
}

// PathOf returns the full path pattern of a named route.
func (t *Table) PathOf(name string) (string, bool) {
	p, ok := t.names[name]
	return p, ok
}

// Resolve matches p against the table, following redirects. An unmatched
// path yields a Target with no matched records.
func (t *Table) Resolve(p string) Target {
	p = cleanPath(p)
	for i := 0; i <= maxRedirects; i++ {
		rctx := chi.NewRouteContext()
		pattern := t.mux.Find(rctx, http.MethodGet, p)
		lf, ok := t.leaves[pattern]
		if pattern == "" || !ok {
			return Target{Path: p}
		}
		if lf.redirect != "" {
			p = cleanPath(lf.redirect)
			continue
		}
		params := make(map[string]string, len(rctx.URLParams.Keys))
		for k, key := range rctx.URLParams.Keys {
			params[key] = rctx.URLParams.Values[k]
		}
		return Target{
			Path:    p,
			Name:    lf.name,
			Pattern: lf.pattern,
			Params:  params,
			Matched: lf.matched,
		}
	}
	return Target{Path: p}
}

func joinPath(prefix, p string) string {
	if strings.HasPrefix(p, "/") {
		return cleanPath(p)
	}
	return cleanPath(path.Join(prefix, p))
}

func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

var paramSegment = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

// chiPattern converts "/product/:id" into "/product/{id}".
func chiPattern(p string) string {
	return paramSegment.ReplaceAllString(p, "{$1}")
}
