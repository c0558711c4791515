package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-signing-secret")

func signToken(t *testing.T, claims CanopyClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func validClaims() CanopyClaims {
	return CanopyClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		FacilityID: "fac-1",
		Roles:      []string{"grower"},
	}
}

func protectedHandler(sawPrincipal *Principal) http.Handler {
	return NewMiddleware(NewJWTValidator(testSecret))(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if p, err := GetPrincipal(r.Context()); err == nil {
				*sawPrincipal = p
			}
			w.WriteHeader(http.StatusOK)
		}))
}

func TestMiddlewareValidToken(t *testing.T) {
	var principal Principal
	handler := protectedHandler(&principal)

	req := httptest.NewRequest(http.MethodPost, "/api/facilities/fac-1/ai/call", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, principal)
	assert.Equal(t, "user-1", principal.GetID())
	assert.Equal(t, "fac-1", principal.GetFacilityID())
	assert.Equal(t, []string{"grower"}, principal.GetRoles())
}

func TestMiddlewareRejections(t *testing.T) {
	var principal Principal
	handler := protectedHandler(&principal)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	noSubject := validClaims()
	noSubject.Subject = ""

	wrongKey := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims())
	wrongKeyToken, err := wrongKey.SignedString([]byte("some-other-secret"))
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"malformed header", "Token abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong signing key", "Bearer " + wrongKeyToken},
		{"expired token", "Bearer " + signToken(t, expired)},
		{"missing subject", "Bearer " + signToken(t, noSubject)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/facilities/fac-1/ai/call", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			var env struct {
				Success bool `json:"success"`
				Error   struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.False(t, env.Success)
			assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
		})
	}
}

func TestMiddlewareHealthIsPublic(t *testing.T) {
	var principal Principal
	handler := protectedHandler(&principal)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, principal)
}

func TestMiddlewareNilValidatorFailsClosed(t *testing.T) {
	handler := NewMiddleware(nil)(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	req := httptest.NewRequest(http.MethodPost, "/api/facilities/fac-1/ai/call", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNewJWTValidatorEmptySecret(t *testing.T) {
	assert.Nil(t, NewJWTValidator(nil))
	assert.Nil(t, NewJWTValidator([]byte{}))
}

func TestValidateRejectsUnexpectedAlg(t *testing.T) {
	v := NewJWTValidator(testSecret)

	// alg=none style token is never accepted.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims())
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Validate(unsigned)
	assert.Error(t, err)
}
