package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bestreads/bestreads-server/internal/domain"
	domainerrors "github.com/bestreads/bestreads-server/internal/errors"
	"github.com/bestreads/bestreads-server/internal/id"
	"github.com/bestreads/bestreads-server/internal/normalize"
	"github.com/bestreads/bestreads-server/internal/sse"
	"github.com/bestreads/bestreads-server/internal/store"
)

// FeedLimits bounds feed page sizes.
type FeedLimits struct {
	Default int
	Max     int
}

// recorded is an activity written by a transaction attempt, waiting for the
// commit before it is published.
type recorded struct {
	activity *domain.Activity
	updated  bool
}

// ActivityService persists feed activities and fans them out after commit.
type ActivityService struct {
	store       *store.Store
	broadcaster Broadcaster
	metrics     Metrics
	limits      FeedLimits
	logger      *slog.Logger
	now         func() time.Time
}

// NewActivityService creates a new activity service. Nil broadcaster or
// metrics are replaced by no-ops.
func NewActivityService(st *store.Store, broadcaster Broadcaster, metrics Metrics, limits FeedLimits, logger *slog.Logger) *ActivityService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if limits.Max <= 0 {
		limits.Max = store.MaxLimit
	}
	if limits.Default <= 0 || limits.Default > limits.Max {
		limits.Default = min(store.DefaultLimit, limits.Max)
	}
	return &ActivityService{
		store:       st,
		broadcaster: broadcaster,
		metrics:     metrics,
		limits:      limits,
		logger:      logger,
		now:         time.Now,
	}
}

// record writes an activity inside tx. When the payload is an update, the
// user's latest activity of the same type for the book is overwritten in
// place; if there is none a new one is created.
func (s *ActivityService) record(tx *store.Tx, userID, bookID string, t domain.ActivityType, payload domain.ActivityPayload) (*recorded, error) {
	if err := payload.Validate(t); err != nil {
		return nil, domainerrors.Validation(err.Error())
	}
	now := s.now()

	if payload.IsUpdate() && bookID != "" {
		latest, err := tx.LatestActivity(userID, bookID, t)
		switch {
		case err == nil:
			latest.ReplacePayload(payload, now)
			if err := tx.PutActivity(latest); err != nil {
				return nil, err
			}
			return &recorded{activity: latest, updated: true}, nil
		case !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
	}

	activityID, err := id.Generate(id.PrefixActivity)
	if err != nil {
		return nil, fmt.Errorf("generate activity ID: %w", err)
	}

	a := &domain.Activity{
		ID:        activityID,
		UserID:    userID,
		Type:      t,
		BookID:    bookID,
		Payload:   payload,
		Likes:     []string{},
		Comments:  []domain.Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.CreateActivity(a); err != nil {
		return nil, err
	}
	return &recorded{activity: a}, nil
}

// publish broadcasts a committed activity exactly once.
func (s *ActivityService) publish(r *recorded) {
	if r == nil {
		return
	}
	s.metrics.ActivityRecorded(string(r.activity.Type), r.updated)
	s.broadcaster.Emit(sse.NewActivityEvent(r.activity))

	s.logger.Info("activity recorded",
		"activity_id", r.activity.ID,
		"type", r.activity.Type,
		"user_id", r.activity.UserID,
		"book_id", r.activity.BookID,
		"updated", r.updated,
	)
}

// RecordShelfTransition persists an AddedBookToShelf activity. With IsUpdate
// set it edits the latest one for the book in place.
func (s *ActivityService) RecordShelfTransition(ctx context.Context, userID, bookID string, payload domain.ShelfTransitionPayload) (*domain.Activity, error) {
	return s.recordStandalone(ctx, userID, bookID, domain.ActivityAddedBookToShelf, domain.ShelfTransition(payload))
}

// RecordRating persists a RatedBook activity. With IsUpdate set it edits the
// latest one for the book in place.
func (s *ActivityService) RecordRating(ctx context.Context, userID, bookID string, payload domain.RatingPayload) (*domain.Activity, error) {
	return s.recordStandalone(ctx, userID, bookID, domain.ActivityRatedBook, domain.Rating(payload))
}

func (s *ActivityService) recordStandalone(ctx context.Context, userID, bookID string, t domain.ActivityType, payload domain.ActivityPayload) (*domain.Activity, error) {
	var rec *recorded
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		rec = nil
		if _, err := tx.GetUser(userID); err != nil {
			return err
		}
		var err error
		rec, err = s.record(tx, userID, bookID, t, payload)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}

	s.publish(rec)
	return rec.activity, nil
}

// UpdateInPlace overwrites the payload of the user's most recent activity of
// type t for bookID. It never creates an activity.
func (s *ActivityService) UpdateInPlace(ctx context.Context, userID, bookID string, t domain.ActivityType, payload domain.ActivityPayload) (*domain.Activity, error) {
	if err := payload.Validate(t); err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	var updated *domain.Activity
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		latest, err := tx.LatestActivity(userID, bookID, t)
		if err != nil {
			return err
		}
		latest.ReplacePayload(payload, s.now())
		if err := tx.PutActivity(latest); err != nil {
			return err
		}
		updated = latest
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrActivityNotFound) {
			return nil, domainerrors.NotFoundf("no %s activity for book %s", t, bookID)
		}
		return nil, translate(err)
	}

	s.publish(&recorded{activity: updated, updated: true})
	return updated, nil
}

// GetActivity returns one activity.
func (s *ActivityService) GetActivity(ctx context.Context, activityID string) (*domain.Activity, error) {
	a, err := s.store.GetActivity(ctx, activityID)
	if err != nil {
		return nil, translate(err)
	}
	return a, nil
}

// pagination applies the feed limits: zero or negative means the default,
// anything above the maximum is capped.
func (s *ActivityService) pagination(skip, limit int) store.PaginationParams {
	if limit <= 0 {
		limit = s.limits.Default
	}
	return store.PaginationParams{Skip: min(max(skip, 0), store.MaxSkip), Limit: min(limit, s.limits.Max)}
}

// GetFeed returns activities by the viewer and everyone they follow, newest first.
func (s *ActivityService) GetFeed(ctx context.Context, viewerID string, skip, limit int) ([]*domain.Activity, error) {
	viewer, err := s.store.GetUser(ctx, viewerID)
	if err != nil {
		return nil, translate(err)
	}

	activities, err := s.store.ListFeed(ctx, viewer.FeedAuthors(), s.pagination(skip, limit))
	if err != nil {
		return nil, translate(err)
	}
	return activities, nil
}

// ListUserActivity returns one user's activities, newest first.
func (s *ActivityService) ListUserActivity(ctx context.Context, userID string, skip, limit int) ([]*domain.Activity, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, translate(err)
	}

	activities, err := s.store.ListUserActivities(ctx, userID, s.pagination(skip, limit))
	if err != nil {
		return nil, translate(err)
	}
	return activities, nil
}

// Like adds userID to the activity's likes. Liking twice is a no-op.
func (s *ActivityService) Like(ctx context.Context, userID, activityID string) (*domain.Activity, error) {
	return s.react(ctx, userID, activityID, func(a *domain.Activity) bool { return a.Like(userID) })
}

// Unlike removes userID from the activity's likes. Unliking twice is a no-op.
func (s *ActivityService) Unlike(ctx context.Context, userID, activityID string) (*domain.Activity, error) {
	return s.react(ctx, userID, activityID, func(a *domain.Activity) bool { return a.Unlike(userID) })
}

// AddComment appends a comment to an activity.
func (s *ActivityService) AddComment(ctx context.Context, userID, activityID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domainerrors.Validation("comment cannot be empty")
	}
	if normalize.RuneLen(content) > domain.MaxCommentLength {
		return nil, domainerrors.Validationf("comment exceeds %d characters", domain.MaxCommentLength)
	}

	commentID, err := id.Generate(id.PrefixComment)
	if err != nil {
		return nil, fmt.Errorf("generate comment ID: %w", err)
	}

	var comment domain.Comment
	a, err := s.react(ctx, userID, activityID, func(a *domain.Activity) bool {
		comment = domain.Comment{
			ID:        commentID,
			UserID:    userID,
			Content:   content,
			CreatedAt: s.now(),
		}
		a.AddComment(comment)
		return true
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("comment added",
		"activity_id", a.ID,
		"comment_id", comment.ID,
		"user_id", userID,
	)
	return &comment, nil
}

// react applies a like, unlike or comment. The ActivityReacted event is sent
// only when fn reports a change.
func (s *ActivityService) react(ctx context.Context, userID, activityID string, fn func(a *domain.Activity) bool) (*domain.Activity, error) {
	var (
		result  *domain.Activity
		changed bool
	)
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		changed = false
		if _, err := tx.GetUser(userID); err != nil {
			return err
		}
		a, err := tx.GetActivity(activityID)
		if err != nil {
			return err
		}
		if changed = fn(a); changed {
			if err := tx.PutActivity(a); err != nil {
				return err
			}
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	if changed {
		s.broadcaster.Emit(sse.NewActivityReactedEvent(result))
	}
	return result, nil
}
