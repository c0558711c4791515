package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTValidator validates bearer tokens and extracts claims.
type JWTValidator struct {
	secret []byte
}

// CanopyClaims are the JWT claims expected by the Canopy API.
type CanopyClaims struct {
	jwt.RegisteredClaims
	FacilityID string   `json:"facility_id"`
	Roles      []string `json:"roles"`
}

// NewJWTValidator creates a validator over an HMAC signing secret.
func NewJWTValidator(secret []byte) *JWTValidator {
	if len(secret) == 0 {
		return nil
	}
	return &JWTValidator{secret: secret}
}

// Validate parses and validates a JWT token string.
func (v *JWTValidator) Validate(tokenStr string) (*CanopyClaims, error) {
	claims := &CanopyClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// publicPaths are endpoints that do not require authentication.
var publicPaths = []string{
	"/health",
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// NewMiddleware creates JWT auth middleware. If validator is nil, all
// non-public requests are rejected (fail closed).
func NewMiddleware(validator *JWTValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, "missing Authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeUnauthorized(w, "invalid Authorization header format (expected 'Bearer <token>')")
				return
			}

			if validator == nil {
				writeUnauthorized(w, "authentication not configured")
				return
			}

			claims, err := validator.Validate(parts[1])
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}
			if claims.Subject == "" {
				writeUnauthorized(w, "token subject is required")
				return
			}

			principal := &BasePrincipal{
				ID:         claims.Subject,
				FacilityID: claims.FacilityID,
				Roles:      claims.Roles,
			}

			ctx := WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeUnauthorized renders a 401 in the invariant response envelope.
// Duplicated from pkg/api to keep auth free of an import cycle.
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"data":    nil,
		"error":   map[string]string{"code": "UNAUTHORIZED", "message": message},
	})
}
