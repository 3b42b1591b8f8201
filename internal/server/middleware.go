package server

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"auctions/internal/auctionerrors"
	"auctions/internal/metrics"
	"auctions/internal/models"
	"auctions/services/auction/handler"
	"auctions/services/auction/helpers"
	"auctions/utils"

	"github.com/gin-gonic/gin"
)

const requestIDHeader = "X-Request-ID"

// Authenticator resolves a session token into an actor known to the store
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Actor, error)
}

// RequestIDMiddleware propagates the caller's request id or assigns a new one
func RequestIDMiddleware(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if !utils.ValidID(id) {
		id = utils.GenerateID()
	}
	c.Set(utils.RequestIDKey, id)
	c.Header(requestIDHeader, id)
	c.Next()
}

// RequestLoggerMiddleware logs incoming requests with timing and records request metrics
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	latency := time.Since(start)

	metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(latency.Seconds())

	utils.Info("HTTP Request", map[string]any{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"route":      route,
		"status":     c.Writer.Status(),
		"latency":    latency.String(),
		"request_id": c.GetString(utils.RequestIDKey),
	})
}

// AuthMiddleware attaches the actor named by the session cookie or bearer token.
// Requests without a valid token continue anonymously.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token, _ = c.Cookie(handler.SessionCookie)
		}
		if token == "" {
			c.Next()
			return
		}

		actor, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil && !errors.Is(err, auctionerrors.ErrUnauthenticated) {
			utils.Error("AuthMiddleware: failed to resolve session", map[string]any{
				"request_id": c.GetString(utils.RequestIDKey),
				"error":      err.Error(),
			})
			helpers.RespondError(c, err)
			c.Abort()
			return
		}
		if err != nil {
			utils.Debug("AuthMiddleware: ignoring invalid session token", map[string]any{
				"request_id": c.GetString(utils.RequestIDKey),
				"error":      err.Error(),
			})
			c.Next()
			return
		}

		helpers.SetActor(c, actor)
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
