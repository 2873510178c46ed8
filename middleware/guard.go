package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/goFactor/jwt"
)

// TokenVerifier is satisfied by *goFactor.Engine.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token, serviceName string) (*jwt.ServiceClaims, error)
}

type claimsContextKey struct{}

// ClaimsFromContext returns the claims stored by RequireServiceToken.
func ClaimsFromContext(ctx context.Context) (*jwt.ServiceClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*jwt.ServiceClaims)
	return claims, ok
}

// RequireServiceToken admits requests carrying a valid token for service.
// When factors are given, the token's amr must list every one of them.
func RequireServiceToken(verifier TokenVerifier, service string, factors ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				unauthorized(w)
				return
			}
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}
			claims, err := verifier.VerifyToken(r.Context(), token, service)
			if err != nil || claims == nil || !hasAll(claims.Methods, factors) {
				unauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="gofactor"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func hasAll(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if strings.EqualFold(h, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}
	token := strings.TrimSpace(value[len(bearer):])
	return token, token != ""
}
