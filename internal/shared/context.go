package shared

import "context"

// Claims is the decoded payload of a validated token.
type Claims struct {
	PrincipalID string
	ExpiresAt   int64
}

type claimsContextKey struct{}

// ContextWithClaims stores validated token claims in context.
func ContextWithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext extracts claims from context. The boolean is false when
// no authenticated principal is attached to the request.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(Claims)
	return claims, ok
}
