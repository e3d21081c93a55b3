// Package http integrates ikebana with net/http. The middleware gives
// each request its own injector, so singleton rules behave as per-request
// instances and overrides can be installed per request before handlers
// resolve anything.
package http

import (
	"context"
	"net/http"

	"github.com/ikebana-di/ikebana"
)

type injectorContextKey struct{}

// Middleware returns middleware that creates a fresh injector from the
// module tree for every request, attaches it to the request context, and
// closes it (disposing constructed singletons) when the handler returns.
func Middleware(module *ikebana.Module, opts ...ikebana.InjectorOption) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inj, err := ikebana.New(module, opts...)
			if err != nil {
				http.Error(w, "injector setup failed", http.StatusInternalServerError)
				return
			}
			defer inj.Close(r.Context())

			ctx := context.WithValue(r.Context(), injectorContextKey{}, inj)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the injector attached by Middleware, or nil when
// the context carries none.
func FromContext(ctx context.Context) *ikebana.Injector {
	inj, _ := ctx.Value(injectorContextKey{}).(*ikebana.Injector)
	return inj
}

// Resolve resolves T from the request's injector. It fails with
// ErrNoInjector when the request did not pass through Middleware.
func Resolve[T any](r *http.Request) (T, error) {
	inj := FromContext(r.Context())
	if inj == nil {
		var zero T
		return zero, ErrNoInjector
	}
	return ikebana.Resolve[T](inj)
}
