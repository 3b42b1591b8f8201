package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	auction "auctions/internal/auctionService"
	auth "auctions/internal/authService"
	"auctions/internal/repository"
	"auctions/internal/server"
	"auctions/web"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const testSecret = "integration-test-secret"

// SetupTestRouter initializes the full router on a fresh in-memory SQLite database.
func SetupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo, err := repository.Open(context.Background(), repository.DriverSQLite, ":memory:", 1)
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(context.Background()))
	t.Cleanup(func() { repo.Close() })

	templates, err := web.Templates()
	require.NoError(t, err)

	authSvc := auth.NewAuthService(repo, testSecret, time.Hour)
	return server.SetupRouter(server.Dependencies{
		Auctions:  auction.NewAuctionService(repo),
		Auth:      authSvc,
		Tokens:    authSvc,
		Store:     repo,
		Templates: templates,
		TokenTTL:  time.Hour,
	})
}

// ExecuteRequestAndParse executes a JSON request on the router as the holder of token and parses the envelope
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url, token string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		var err error
		reqBody, err = json.Marshal(v)
		require.NoError(t, err, "failed to marshal body")
	}

	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(w.Body.Bytes()), []byte("{")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "failed to unmarshal response")
	}
	return resp, w
}

// RegisterUser creates an account through the API and returns its session token
func RegisterUser(t *testing.T, router *gin.Engine, username string) string {
	t.Helper()

	resp, w := ExecuteRequestAndParse(t, router, http.MethodPost, "/register", "", map[string]string{
		"username":     username,
		"password":     username + "-pw",
		"confirmation": username + "-pw",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	token, _ := resp["data"].(map[string]any)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// CreateListing creates a listing through the API and returns its id
func CreateListing(t *testing.T, router *gin.Engine, token string, body map[string]any) int64 {
	t.Helper()

	resp, w := ExecuteRequestAndParse(t, router, http.MethodPost, "/create", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return int64(resp["data"].(map[string]any)["id"].(float64))
}
