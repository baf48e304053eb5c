package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bestreads/bestreads-server/internal/auth"
	"github.com/bestreads/bestreads-server/internal/domain"
	domainerrors "github.com/bestreads/bestreads-server/internal/errors"
	"github.com/bestreads/bestreads-server/internal/id"
	"github.com/bestreads/bestreads-server/internal/store"
)

// RegisterRequest contains the data for a new account.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Username    string `json:"username" validate:"required,username"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string `json:"display_name,omitempty" validate:"max=100"`
}

// LoginRequest contains user credentials. Login accepts an email or a username.
type LoginRequest struct {
	Login    string `json:"login" validate:"nonblank"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse contains the access token and the user it belongs to.
type AuthResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// AuthService handles registration, login and token verification.
type AuthService struct {
	store        *store.Store
	tokenService *auth.TokenService
	logger       *slog.Logger
	now          func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(store *store.Store, tokenService *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:        store,
		tokenService: tokenService,
		logger:       logger,
		now:          time.Now,
	}
}

// Register creates an account with the default shelves "To Read",
// "Currently Reading" and "Read", and logs it in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:              userID,
		Email:           strings.TrimSpace(req.Email),
		Username:        strings.TrimSpace(req.Username),
		DisplayName:     strings.TrimSpace(req.DisplayName),
		PasswordHash:    passwordHash,
		Bookshelves:     []domain.Bookshelf{},
		ReadingProgress: []domain.Progress{},
		Followers:       []string{},
		Following:       []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, name := range domain.DefaultShelfNames {
		shelfID, err := id.Generate(id.PrefixShelf)
		if err != nil {
			return nil, fmt.Errorf("generate shelf ID: %w", err)
		}
		user.AddShelf(shelfID, name)
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, translate(err)
	}

	s.logger.Info("user registered", "user_id", userID, "username", user.Username)
	return s.issue(user)
}

// Login verifies credentials and returns a fresh access token. Unknown users
// and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	login := strings.TrimSpace(req.Login)
	var (
		user *domain.User
		err  error
	)
	if strings.Contains(login, "@") {
		user, err = s.store.GetUserByEmail(ctx, login)
	} else {
		user, err = s.store.GetUserByUsername(ctx, login)
	}
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domainerrors.InvalidCredentials("invalid login or password")
		}
		return nil, translate(err)
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, domainerrors.InvalidCredentials("invalid login or password")
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*AuthResponse, error) {
	token, expires, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &AuthResponse{
		User:        user,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expires,
	}, nil
}

// VerifyAccessToken validates a token and returns the associated user.
// Used by authentication middleware.
func (s *AuthService) VerifyAccessToken(ctx context.Context, tokenString string) (*domain.User, *auth.AccessClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, nil, domainerrors.Unauthorized("invalid or expired token")
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, nil, domainerrors.Unauthorized("user no longer exists")
		}
		return nil, nil, translate(err)
	}
	return user, claims, nil
}
