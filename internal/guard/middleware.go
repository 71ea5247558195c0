package guard

import (
	"context"
	"net/http"
)

type contextKey string

const targetContextKey contextKey = "target"

// TargetFromContext returns the resolved target stored by Middleware.
func TargetFromContext(ctx context.Context) (Target, bool) {
	t, ok := ctx.Value(targetContextKey).(Target)
	return t, ok
}

// Middleware resolves every GET/HEAD request against the table, applies the
// guard and either redirects or passes the request on with its Target in the
// context. The Referer, when it is a path of this site, is the "from" target.
func Middleware(g *Guard, table *Table) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			to := table.Resolve(r.URL.Path)
			var from Target
			if ref := r.Referer(); ref != "" {
				if u, err := r.URL.Parse(ref); err == nil && u.Host == r.Host {
					from = table.Resolve(u.Path)
				}
			}

			d := g.Decide(r.Context(), to, from)
			if d.Action != Allow {
				http.Redirect(w, r, d.Location, http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), targetContextKey, to)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
