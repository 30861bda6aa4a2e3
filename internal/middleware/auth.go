package middleware

import (
	"net/http"
	"strings"

	"github.com/kestrelhouse/chorekeep/internal/auth"
)

// RequireParent validates the Authorization bearer token and populates the
// request context with the parent's identity. Kid-facing routes (claiming,
// redeeming) do not pass through this; approvals and definition edits do.
func RequireParent(tokens *auth.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ac, err := tokens.Verify(token)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
