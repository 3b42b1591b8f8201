package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"auctions/internal/auctionerrors"
	"auctions/internal/models"
	"auctions/utils"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// SetActor attaches the authenticated identity to the request
func SetActor(c *gin.Context, actor models.Actor) {
	c.Set(actorKey, actor)
}

// ActorFrom returns the request identity; anonymous when none was attached
func ActorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Actor{}
}

// ParseID reads a positive integer path parameter. Malformed ids are reported as not found.
func ParseID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s %q: %w", name, c.Param(name), auctionerrors.ErrNotFound)
	}
	return id, nil
}

// HandleBindError sends a standardized error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	if WantsHTML(c) {
		renderError(c, http.StatusBadRequest, "invalid request payload")
	} else {
		utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	}
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrValidation):
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, auctionerrors.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, auctionerrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid username and/or password"
	case errors.Is(err, auctionerrors.ErrAuthorization):
		return http.StatusForbidden, "not allowed"
	case errors.Is(err, auctionerrors.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "bid must be greater than the current price"
	case errors.Is(err, auctionerrors.ErrInvalidState):
		return http.StatusConflict, "auction is closed"
	case errors.Is(err, auctionerrors.ErrUsernameTaken):
		return http.StatusConflict, "username already taken"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
