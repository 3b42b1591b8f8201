package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"auctions/internal/auctionerrors"
	"auctions/internal/models"
	"auctions/services/auction/handler"
	"auctions/services/auction/helpers"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubAuthenticator map[string]models.Actor

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (models.Actor, error) {
	if token == "broken-store" {
		return models.Actor{}, errors.New("database is locked")
	}
	if a, ok := s[token]; ok {
		return a, nil
	}
	return models.Actor{}, fmt.Errorf("bad token: %w", auctionerrors.ErrUnauthenticated)
}

func newMiddlewareRouter(parser Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware, RequestLoggerMiddleware, AuthMiddleware(parser))
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, helpers.ActorFrom(c))
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	alice := models.Actor{UserID: 1, Username: "alice"}
	router := newMiddlewareRouter(stubAuthenticator{"good": alice})

	tests := []struct {
		name     string
		setup    func(r *http.Request)
		expected string
	}{
		{name: "anonymous", setup: func(r *http.Request) {}, expected: `{"user_id":0,"username":""}`},
		{name: "bearer", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, expected: `{"user_id":1,"username":"alice"}`},
		{name: "lowercase_bearer", setup: func(r *http.Request) { r.Header.Set("Authorization", "bearer good") }, expected: `{"user_id":1,"username":"alice"}`},
		{
			name:     "cookie",
			setup:    func(r *http.Request) { r.AddCookie(&http.Cookie{Name: handler.SessionCookie, Value: "good"}) },
			expected: `{"user_id":1,"username":"alice"}`,
		},
		{name: "invalid_token", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer bad") }, expected: `{"user_id":0,"username":""}`},
		{name: "basic_scheme", setup: func(r *http.Request) { r.Header.Set("Authorization", "Basic good") }, expected: `{"user_id":0,"username":""}`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			require.JSONEq(t, tc.expected, w.Body.String())
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	t.Parallel()

	router := newMiddlewareRouter(stubAuthenticator{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	_, err := uuid.Parse(w.Header().Get(requestIDHeader))
	require.NoError(t, err)

	given := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(requestIDHeader, given)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, given, w.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(requestIDHeader, "<script>")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.NotEqual(t, "<script>", w.Header().Get(requestIDHeader))
}

func TestAuthMiddlewareStoreFailure(t *testing.T) {
	t.Parallel()

	router := newMiddlewareRouter(stubAuthenticator{})
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer broken-store")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "database is locked")
}
