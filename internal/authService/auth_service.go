package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"auctions/internal/auctionerrors"
	"auctions/internal/models"
	"auctions/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Claims are the session token claims. Subject carries the user id.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// RegisterInput is the raw registration form
type RegisterInput struct {
	Username     string `json:"username" form:"username" validate:"required,max=150"`
	Email        string `json:"email" form:"email" validate:"omitempty,email,max=254"`
	Password     string `json:"password" form:"password" validate:"required"`
	Confirmation string `json:"confirmation" form:"confirmation"`
}

// AuthService implements registration, login and session token verification.
type AuthService struct {
	repo      repository.AuctionDB
	jwtSecret []byte
	tokenTTL  time.Duration
	cost      int
	validate  *validator.Validate
}

func NewAuthService(repo repository.AuctionDB, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		cost:      bcrypt.DefaultCost,
		validate:  validator.New(),
	}
}

// Register creates a user with a bcrypt-hashed password
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)

	if err := s.validate.Struct(input); err != nil {
		return models.User{}, fmt.Errorf("auth: %w - %v", auctionerrors.ErrValidation, err)
	}
	if input.Password != input.Confirmation {
		return models.User{}, fmt.Errorf("auth: %w", auctionerrors.ErrPasswordMismatch)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("auth: hash password: %w", err)
	}

	user := models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	err = s.repo.Update(ctx, func(q repository.Querier) error {
		_, err := q.GetUserByUsername(ctx, user.Username)
		if err == nil {
			return auctionerrors.ErrUsernameTaken
		}
		if !errors.Is(err, auctionerrors.ErrNotFound) {
			return err
		}
		return q.CreateUser(ctx, &user)
	})
	if err != nil {
		return models.User{}, fmt.Errorf("auth: failed to register %s: %w", user.Username, err)
	}
	return user, nil
}

// Login verifies credentials and issues a signed session token.
// Unknown users and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", models.User{}, auctionerrors.ErrInvalidCredentials
	}

	var user models.User
	err := s.repo.View(ctx, func(q repository.Querier) error {
		var err error
		user, err = q.GetUserByUsername(ctx, username)
		return err
	})
	if errors.Is(err, auctionerrors.ErrNotFound) {
		return "", models.User{}, auctionerrors.ErrInvalidCredentials
	}
	if err != nil {
		return "", models.User{}, fmt.Errorf("auth: failed to load user %s: %w", username, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", models.User{}, auctionerrors.ErrInvalidCredentials
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return "", models.User{}, err
	}
	return token, user, nil
}

// IssueToken signs an HS256 session token for the user
func (s *AuthService) IssueToken(user models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a session token and returns the actor it identifies
func (s *AuthService) ParseToken(token string) (models.Actor, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tkn.Valid {
		return models.Actor{}, fmt.Errorf("auth: %w - invalid token", auctionerrors.ErrUnauthenticated)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return models.Actor{}, fmt.Errorf("auth: %w - invalid subject", auctionerrors.ErrUnauthenticated)
	}
	return models.Actor{UserID: id, Username: claims.Username}, nil
}

// Authenticate parses the token and confirms its user still exists.
// A token for a user the store does not know is rejected as unauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.Actor, error) {
	actor, err := s.ParseToken(token)
	if err != nil {
		return models.Actor{}, err
	}

	var user models.User
	err = s.repo.View(ctx, func(q repository.Querier) error {
		var err error
		user, err = q.GetUserByID(ctx, actor.UserID)
		return err
	})
	if errors.Is(err, auctionerrors.ErrNotFound) {
		return models.Actor{}, fmt.Errorf("auth: %w - unknown user %d", auctionerrors.ErrUnauthenticated, actor.UserID)
	}
	if err != nil {
		return models.Actor{}, fmt.Errorf("auth: failed to load user %d: %w", actor.UserID, err)
	}
	return models.Actor{UserID: user.ID, Username: user.Username}, nil
}
