// ABOUTME: Tests for JWT generation, verification, and the HTTP middleware.

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signClaims builds a token outside Generate, for shapes Generate refuses
// to produce.
func signClaims(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestGenerateAndVerify(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret"))

	token, err := v.Generate("frontend", time.Hour)
	require.NoError(t, err)

	principal, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "frontend", principal)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTVerifier([]byte("secret-a")).Generate("frontend", time.Hour)
	require.NoError(t, err)

	_, err = NewJWTVerifier([]byte("secret-b")).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	token := signClaims(t, "test-secret", jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   "frontend",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})

	_, err := NewJWTVerifier([]byte("test-secret")).Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret"))

	for _, issuer := range []string{"", "some-other-service"} {
		token := signClaims(t, "test-secret", jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "frontend",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		_, err := v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "issuer %q", issuer)
	}
}

func TestVerifyRequiresExpiry(t *testing.T) {
	token := signClaims(t, "test-secret", jwt.RegisteredClaims{
		Issuer:  Issuer,
		Subject: "frontend",
	})

	_, err := NewJWTVerifier([]byte("test-secret")).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateDefaultTTLAndEmptyPrincipal(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret"))

	token, err := v.Generate("frontend", 0)
	require.NoError(t, err)
	var claims jwt.RegisteredClaims
	_, _, err = jwt.NewParser().ParseUnverified(token, &claims)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultTTL), claims.ExpiresAt.Time, time.Minute)

	_, err = v.Generate("", time.Hour)
	assert.ErrorIs(t, err, ErrMissingClaim)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewJWTVerifier([]byte("test-secret")).Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddlewareAllowsValidToken(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret"))
	token, err := v.Generate("frontend", time.Hour)
	require.NoError(t, err)

	var gotPrincipal string
	h := Middleware(v, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrincipal = r.Header.Get("X-Principal")
	}))

	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "frontend", gotPrincipal)
}

func TestMiddlewareRejectsMissingAndBadTokens(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret"))
	h := Middleware(v, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, header := range []string{"", "Bearer ", "Bearer bogus", "Basic dXNlcg=="} {
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestMiddlewarePassesPreflight(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret"))
	called := false
	h := Middleware(v, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, called, "OPTIONS must reach the CORS handler unauthenticated")
}

func TestNilVerifierDisablesAuth(t *testing.T) {
	called := false
	h := Middleware(nil, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, called)
}
