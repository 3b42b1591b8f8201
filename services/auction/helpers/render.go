package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"auctions/internal/auctionerrors"
	"auctions/internal/models"
	"auctions/utils"

	"github.com/gin-gonic/gin"
)

// Page is the data every HTML template receives
type Page struct {
	Actor   models.Actor
	Message string
	Data    any
}

// WantsHTML reports whether the client asked for a rendered page
func WantsHTML(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML
}

// Respond renders page for browsers and the JSON envelope for everyone else
func Respond(c *gin.Context, status int, page string, data any, message string) {
	if WantsHTML(c) {
		c.HTML(status, page, Page{Actor: ActorFrom(c), Message: TakeFlash(c), Data: data})
		return
	}
	utils.JSONResponse(c, status, data, message)
}

// FlashCookie carries a one-shot message across a redirect
const FlashCookie = "flash"

// SetFlash stores message for the next rendered page
func SetFlash(c *gin.Context, message string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(FlashCookie, message, 60, "/", "", false, true)
}

// TakeFlash returns the pending flash message and clears it
func TakeFlash(c *gin.Context) string {
	message, err := c.Cookie(FlashCookie)
	if err != nil || message == "" {
		return ""
	}
	c.SetCookie(FlashCookie, "", -1, "/", "", false, true)
	return message
}

// RespondForm re-renders a form page with a message for browsers; API clients get the JSON error
func RespondForm(c *gin.Context, page string, data any, err error) {
	status, message := MapErrorToHTTP(err)
	if WantsHTML(c) {
		c.HTML(status, page, Page{Actor: ActorFrom(c), Message: userMessage(err, message), Data: data})
		return
	}
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
}

// Redirect sends browsers to location after a successful form post; API clients get the JSON envelope
func Redirect(c *gin.Context, location string, status int, data any, message string) {
	if WantsHTML(c) {
		c.Redirect(http.StatusSeeOther, location)
		return
	}
	utils.JSONResponse(c, status, data, message)
}

// RespondError maps err onto a status and writes it. Anonymous browsers are sent to the login page.
func RespondError(c *gin.Context, err error) {
	status, message := MapErrorToHTTP(err)
	if WantsHTML(c) {
		if errors.Is(err, auctionerrors.ErrUnauthenticated) {
			c.Redirect(http.StatusSeeOther, "/login")
			return
		}
		renderError(c, status, userMessage(err, message))
		return
	}
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
}

// RespondErrorAt sends browsers back to location with the error as a flash message.
// Missing resources, anonymous users and server faults go through RespondError.
func RespondErrorAt(c *gin.Context, location string, err error) {
	status, message := MapErrorToHTTP(err)
	if !WantsHTML(c) || status >= http.StatusInternalServerError ||
		errors.Is(err, auctionerrors.ErrUnauthenticated) || errors.Is(err, auctionerrors.ErrNotFound) {
		RespondError(c, err)
		return
	}
	SetFlash(c, userMessage(err, message))
	c.Redirect(http.StatusSeeOther, location)
}

func renderError(c *gin.Context, status int, message string) {
	c.HTML(status, "error.html", Page{Actor: ActorFrom(c), Message: message, Data: status})
}

// userMessage picks the message shown on a page; internal errors never leak details
func userMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, auctionerrors.ErrPasswordMismatch):
		return "Passwords must match."
	case errors.Is(err, auctionerrors.ErrUsernameTaken):
		return "Username already taken."
	case errors.Is(err, auctionerrors.ErrInvalidCredentials):
		return "Invalid username and/or password."
	case errors.Is(err, auctionerrors.ErrValidation):
		return fmt.Sprintf("Invalid input: %v", err)
	}
	return fallback
}
