package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bestreads/bestreads-server/internal/domain"
	"github.com/bestreads/bestreads-server/internal/store"
)

// UpdateProfileRequest carries the profile fields to change.
type UpdateProfileRequest struct {
	DisplayName    *string `json:"display_name,omitempty" validate:"omitempty,max=100"`
	Bio            *string `json:"bio,omitempty" validate:"omitempty,max=2000"`
	ProfilePicture *string `json:"profile_picture,omitempty" validate:"omitempty,url"`
}

// Profile is the public view of a user.
type Profile struct {
	UserSummary
	Bio            string    `json:"bio,omitempty"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	ShelvesCount   int       `json:"shelves_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewProfile projects u.
func NewProfile(u *domain.User) *Profile {
	return &Profile{
		UserSummary:    NewUserSummary(u),
		Bio:            u.Bio,
		FollowersCount: len(u.Followers),
		FollowingCount: len(u.Following),
		ShelvesCount:   len(u.Bookshelves),
		CreatedAt:      u.CreatedAt,
	}
}

// UserService reads and edits user profiles.
type UserService struct {
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewUserService creates a new user service.
func NewUserService(store *store.Store, logger *slog.Logger) *UserService {
	return &UserService{store: store, logger: logger, now: time.Now}
}

// GetUser returns the full user document.
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

// GetProfile returns the public profile of a user.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewProfile(u), nil
}

// UpdateProfile edits display name, bio and picture.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*domain.User, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	var updated *domain.User
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		var err error
		updated, err = tx.ModifyUser(userID, func(u *domain.User) error {
			if req.DisplayName != nil {
				u.DisplayName = strings.TrimSpace(*req.DisplayName)
			}
			if req.Bio != nil {
				u.Bio = strings.TrimSpace(*req.Bio)
			}
			if req.ProfilePicture != nil {
				u.ProfilePicture = *req.ProfilePicture
			}
			u.Touch(s.now())
			return nil
		})
		return err
	})
	if err != nil {
		return nil, translate(err)
	}

	s.logger.Info("profile updated", "user_id", userID)
	return updated, nil
}
