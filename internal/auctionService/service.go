package auction

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"auctions/internal/auctionerrors"
	"auctions/internal/models"
	"auctions/internal/repository"

	"github.com/go-playground/validator/v10"
)

// MaxAmount is the largest starting bid or bid accepted: ten digits, two of them fractional
const MaxAmount models.Money = 99_999_999_99

// Service implements the auction workflows: listings, bids, comments and watchlists.
// Every method runs in exactly one store transaction.
type Service struct {
	repo     repository.AuctionDB
	validate *validator.Validate
	now      func() time.Time
}

// NewAuctionService creates a new Service instance
func NewAuctionService(repo repository.AuctionDB) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// requireActor rejects anonymous actors
func requireActor(actor models.Actor) error {
	if !actor.Authenticated() {
		return fmt.Errorf("service: %w", auctionerrors.ErrUnauthenticated)
	}
	return nil
}

// validateStruct runs the struct tags and folds field errors into one ErrValidation
func (s *Service) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("service: %w - %v", auctionerrors.ErrValidation, err)
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	return fmt.Errorf("service: %w - %s", auctionerrors.ErrValidation, strings.Join(msgs, "; "))
}

// fieldError converts a single validation failure into a readable message
func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "url":
		return field + " must be a valid URL"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

// parseAmount parses a decimal amount and bounds it to [min, MaxAmount]
func parseAmount(field, raw string, min models.Money) (models.Money, error) {
	amount, err := models.ParseMoney(raw)
	if err != nil {
		return 0, fmt.Errorf("service: %w - %s: %v", auctionerrors.ErrValidation, field, err)
	}
	if amount < min {
		if min > 0 {
			return 0, fmt.Errorf("service: %w - %s must be positive", auctionerrors.ErrValidation, field)
		}
		return 0, fmt.Errorf("service: %w - %s must not be negative", auctionerrors.ErrValidation, field)
	}
	if amount > MaxAmount {
		return 0, fmt.Errorf("service: %w - %s must not exceed %s", auctionerrors.ErrValidation, field, MaxAmount)
	}
	return amount, nil
}
