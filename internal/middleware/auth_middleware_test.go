package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func signTestToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func baseClaims(sub string) jwt.MapClaims {
	return jwt.MapClaims{
		"iss": TokenIssuer,
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
		"jti": uuid.NewString(),
	}
}

func TestAuthMiddleware(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	userID := uuid.New()
	var seen uuid.UUID
	handler := AuthMiddleware(&key.PublicKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		require.True(t, ok)
		seen = id
		w.WriteHeader(http.StatusNoContent)
	}))

	webClaims := baseClaims(userID.String())
	webClaims["ip"] = "203.0.113.7"

	mobileClaims := baseClaims(userID.String())
	mobileClaims["device_id"] = "device-1"

	expired := baseClaims(userID.String())
	expired["ip"] = "203.0.113.7"
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	wrongIssuer := baseClaims(userID.String())
	wrongIssuer["ip"] = "203.0.113.7"
	wrongIssuer["iss"] = "someone-else"

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		code   string
	}{
		{
			name: "web cookie",
			setup: func(r *http.Request) {
				r.Header.Set("X-Forwarded-For", "203.0.113.7")
				r.AddCookie(&http.Cookie{Name: AccessTokenCookieName, Value: signTestToken(t, key, webClaims)})
			},
			status: http.StatusNoContent,
		},
		{
			name: "mobile bearer",
			setup: func(r *http.Request) {
				r.Header.Set("X-Platform", "android")
				r.Header.Set("X-Device-ID", "device-1")
				r.Header.Set("Authorization", "Bearer "+signTestToken(t, key, mobileClaims))
			},
			status: http.StatusNoContent,
		},
		{
			name:   "missing cookie",
			setup:  func(r *http.Request) {},
			status: http.StatusUnauthorized,
			code:   "unauthorized",
		},
		{
			name: "missing bearer",
			setup: func(r *http.Request) {
				r.Header.Set("X-Platform", "ios")
			},
			status: http.StatusUnauthorized,
			code:   "unauthorized",
		},
		{
			name: "ip mismatch",
			setup: func(r *http.Request) {
				r.Header.Set("X-Forwarded-For", "198.51.100.1")
				r.AddCookie(&http.Cookie{Name: AccessTokenCookieName, Value: signTestToken(t, key, webClaims)})
			},
			status: http.StatusUnauthorized,
			code:   "unauthorized",
		},
		{
			name: "expired",
			setup: func(r *http.Request) {
				r.Header.Set("X-Forwarded-For", "203.0.113.7")
				r.AddCookie(&http.Cookie{Name: AccessTokenCookieName, Value: signTestToken(t, key, expired)})
			},
			status: http.StatusUnauthorized,
			code:   "token_expired",
		},
		{
			name: "foreign key",
			setup: func(r *http.Request) {
				r.Header.Set("X-Forwarded-For", "203.0.113.7")
				r.AddCookie(&http.Cookie{Name: AccessTokenCookieName, Value: signTestToken(t, other, webClaims)})
			},
			status: http.StatusUnauthorized,
			code:   "unauthorized",
		},
		{
			name: "wrong issuer",
			setup: func(r *http.Request) {
				r.Header.Set("X-Forwarded-For", "203.0.113.7")
				r.AddCookie(&http.Cookie{Name: AccessTokenCookieName, Value: signTestToken(t, key, wrongIssuer)})
			},
			status: http.StatusUnauthorized,
			code:   "unauthorized",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = uuid.Nil
			req := httptest.NewRequest(http.MethodGet, "/auth/v1/otp/secret", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusNoContent {
				require.Equal(t, userID, seen)
				return
			}
			require.Equal(t, uuid.Nil, seen)
			require.Contains(t, rec.Body.String(), `"code":"`+tc.code+`"`)
		})
	}
}

func TestUserIDFromContextRejectsGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := UserIDFromContext(req.Context())
	require.False(t, ok)
}
