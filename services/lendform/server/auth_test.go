package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const authTestSecret = "lendformd-test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(scope interface{}) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"sub":   "operator",
		"iss":   "corefi",
		"aud":   "lendformd",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Minute).Unix(),
		"scope": scope,
	}
}

func runMiddleware(auth *Authenticator, header string) (*httptest.ResponseRecorder, bool) {
	reached := false
	handler := auth.Middleware(ScopeSubmit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, reached
}

func TestAuthDisabledPassesThrough(t *testing.T) {
	var nilAuth *Authenticator
	require.False(t, nilAuth.Enabled())
	rec, reached := runMiddleware(nilAuth, "")
	require.True(t, reached)
	require.Equal(t, http.StatusTeapot, rec.Code)

	rec, reached = runMiddleware(NewAuthenticator(AuthConfig{}, nil), "")
	require.True(t, reached)
	require.Equal(t, http.StatusTeapot, rec.Code)
}

func TestAuthAcceptsScopedToken(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{HMACSecret: authTestSecret, Issuer: "corefi", Audience: "lendformd"}, nil)

	rec, reached := runMiddleware(auth, "Bearer "+signToken(t, authTestSecret, validClaims("lend:read lend:submit")))
	require.True(t, reached)
	require.Equal(t, http.StatusTeapot, rec.Code)

	rec, reached = runMiddleware(auth, "bearer "+signToken(t, authTestSecret, validClaims([]interface{}{"lend:submit"})))
	require.True(t, reached)
	require.Equal(t, http.StatusTeapot, rec.Code)
}

func TestAuthRejections(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{HMACSecret: authTestSecret, Issuer: "corefi", Audience: "lendformd", ClockSkew: time.Second}, nil)

	expired := validClaims(ScopeSubmit)
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	wrongIssuer := validClaims(ScopeSubmit)
	wrongIssuer["iss"] = "someone-else"

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", validClaims(ScopeSubmit)), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, authTestSecret, expired), http.StatusUnauthorized},
		{"issuer", "Bearer " + signToken(t, authTestSecret, wrongIssuer), http.StatusUnauthorized},
		{"scope", "Bearer " + signToken(t, authTestSecret, validClaims("lend:read")), http.StatusForbidden},
	}
	for _, tc := range cases {
		rec, reached := runMiddleware(auth, tc.header)
		require.False(t, reached, tc.name)
		require.Equal(t, tc.status, rec.Code, tc.name)
	}
}

func TestAuthRejectsNoneAlgorithm(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{HMACSecret: authTestSecret}, nil)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims(ScopeSubmit)).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	rec, reached := runMiddleware(auth, "Bearer "+unsigned)
	require.False(t, reached)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServerProtectsSubmit(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{HMACSecret: authTestSecret}, nil)
	f := newFixture(t, auth, nil)

	rec := f.do(t, http.MethodPost, "/v1/lend/submit", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/lend/form", "")
	require.Equal(t, http.StatusOK, rec.Code)

	token := signToken(t, authTestSecret, validClaims(ScopeSubmit))
	rec = f.do(t, http.MethodPost, "/v1/wallet/connect", "", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
}
