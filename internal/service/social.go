package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/bestreads/bestreads-server/internal/domain"
	domainerrors "github.com/bestreads/bestreads-server/internal/errors"
	"github.com/bestreads/bestreads-server/internal/store"
)

// UserSummary is the public view of a user in follower lists.
type UserSummary struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// NewUserSummary projects u.
func NewUserSummary(u *domain.User) UserSummary {
	return UserSummary{
		ID:             u.ID,
		Username:       u.Username,
		DisplayName:    u.Name(),
		ProfilePicture: u.ProfilePicture,
	}
}

// SocialService maintains the follow graph. Both sides of an edge are written
// in one transaction, so Following and Followers never disagree.
type SocialService struct {
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewSocialService creates a new social service.
func NewSocialService(store *store.Store, logger *slog.Logger) *SocialService {
	return &SocialService{store: store, logger: logger, now: time.Now}
}

// Follow makes userID follow targetID. Following someone twice is a no-op.
func (s *SocialService) Follow(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return domainerrors.Validation("cannot follow yourself")
	}

	var changed bool
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		changed = false
		u, target, err := loadPair(tx, userID, targetID)
		if err != nil {
			return err
		}

		addedFollowing := u.AddFollowing(targetID)
		addedFollower := target.AddFollower(userID)
		if !addedFollowing && !addedFollower {
			return nil
		}
		changed = true
		return putPair(tx, u, target, s.now())
	})
	if err != nil {
		return translate(err)
	}

	if changed {
		s.logger.Info("user followed", "user_id", userID, "target_id", targetID)
	}
	return nil
}

// Unfollow removes the edge. Unfollowing someone you do not follow is a no-op.
func (s *SocialService) Unfollow(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return domainerrors.Validation("cannot unfollow yourself")
	}

	var changed bool
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		changed = false
		u, target, err := loadPair(tx, userID, targetID)
		if err != nil {
			return err
		}

		removedFollowing := u.RemoveFollowing(targetID)
		removedFollower := target.RemoveFollower(userID)
		if !removedFollowing && !removedFollower {
			return nil
		}
		changed = true
		return putPair(tx, u, target, s.now())
	})
	if err != nil {
		return translate(err)
	}

	if changed {
		s.logger.Info("user unfollowed", "user_id", userID, "target_id", targetID)
	}
	return nil
}

func loadPair(tx *store.Tx, userID, targetID string) (*domain.User, *domain.User, error) {
	u, err := tx.GetUser(userID)
	if err != nil {
		return nil, nil, err
	}
	target, err := tx.GetUser(targetID)
	if err != nil {
		return nil, nil, err
	}
	return u, target, nil
}

func putPair(tx *store.Tx, u, target *domain.User, at time.Time) error {
	u.Touch(at)
	target.Touch(at)
	if err := tx.PutUser(u); err != nil {
		return err
	}
	return tx.PutUser(target)
}

// IsFollowing reports whether userID follows targetID.
func (s *SocialService) IsFollowing(ctx context.Context, userID, targetID string) (bool, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return false, translate(err)
	}
	return u.IsFollowing(targetID), nil
}

// ListFollowers returns summaries of the users following userID.
func (s *SocialService) ListFollowers(ctx context.Context, userID string) ([]UserSummary, error) {
	return s.listEdges(ctx, userID, func(u *domain.User) []string { return u.Followers })
}

// ListFollowing returns summaries of the users userID follows.
func (s *SocialService) ListFollowing(ctx context.Context, userID string) ([]UserSummary, error) {
	return s.listEdges(ctx, userID, func(u *domain.User) []string { return u.Following })
}

func (s *SocialService) listEdges(ctx context.Context, userID string, edges func(*domain.User) []string) ([]UserSummary, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}

	users, err := s.store.GetUsersByIDs(ctx, edges(u))
	if err != nil {
		return nil, translate(err)
	}

	summaries := make([]UserSummary, 0, len(users))
	for _, other := range users {
		summaries = append(summaries, NewUserSummary(other))
	}
	return summaries, nil
}
