package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := UserIDFromContext(r.Context())
		_, _ = w.Write([]byte(id))
	})
}

func TestJWTMiddleware(t *testing.T) {
	verify := func(token string) (string, error) {
		if token == "good" {
			return "u1", nil
		}
		return "", errors.New("bad")
	}
	h := JWTMiddleware(verify)(echoUser())

	cases := map[string]int{"": http.StatusUnauthorized, "Bearer bad": http.StatusUnauthorized, "Token good": http.StatusUnauthorized, "Bearer good": http.StatusOK}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, header)
		if want == http.StatusOK {
			assert.Equal(t, "u1", rec.Body.String())
		}
	}
}

func TestUserRateLimiterIsPerUser(t *testing.T) {
	l := NewUserRateLimiter(0, 2)
	h := l.Middleware(echoUser())

	do := func(userID string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(WithUserID(req.Context(), userID))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("u1"))
	assert.Equal(t, http.StatusOK, do("u1"))
	assert.Equal(t, http.StatusTooManyRequests, do("u1"))
	assert.Equal(t, http.StatusOK, do("u2"))
}
