package auctionerrors

import (
	"errors"
	"fmt"
)

// Repository-level errors
var (
	ErrNotFound = errors.New("not found")
	ErrNoBids   = errors.New("no bids found for listing")
)

// business logic errors
var (
	ErrValidation    = errors.New("invalid input")
	ErrAuthorization = errors.New("not authorized")
	ErrInvalidState  = errors.New("invalid state for operation")
	ErrBidTooLow     = errors.New("bid amount too low")
)

// ErrUnauthenticated is an authorization failure caused by a missing identity.
var ErrUnauthenticated = fmt.Errorf("%w: authentication required", ErrAuthorization)

// account errors
var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username and/or password")
	ErrPasswordMismatch   = fmt.Errorf("%w: passwords must match", ErrValidation)
)
