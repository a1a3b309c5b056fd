package auth

import (
	"net/http"
	"strings"

	"github.com/anchorage-labs/anchorage/internal/platform/httpx"
	"github.com/anchorage-labs/anchorage/internal/shared"
)

// Middleware authenticates requests with a bearer token and attaches the
// verified claims to the request context.
type Middleware struct {
	Tokens *TokenManager
}

// Authenticate rejects requests without a valid token. Missing header,
// malformed token, expired token and revoked token all yield the same
// response.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httpx.RespondError(w, shared.ErrInvalidCredentials)
			return
		}
		claims, err := m.Tokens.Validate(r.Context(), token)
		if err != nil {
			httpx.RespondError(w, shared.ErrInvalidCredentials)
			return
		}
		ctx := shared.ContextWithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
