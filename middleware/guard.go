package middleware

import (
	"context"
	"net/http"
	"strings"

	authcore "github.com/raymandgroup/authcore"
)

type accountContextKey struct{}

// AccountFromContext returns the account resolved by Guard for the
// current request, if any.
func AccountFromContext(ctx context.Context) (*authcore.Account, bool) {
	acct, ok := ctx.Value(accountContextKey{}).(*authcore.Account)
	return acct, ok
}

// Guard wraps a handler with bearer-token authentication. A missing or
// malformed Authorization header, a bad signature or expiry, and a
// token whose account no longer exists all reject with 401; the
// resolved account is placed on the request context for the handler.
func Guard(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			acct, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), accountContextKey{}, acct)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
