package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/bestreads/bestreads-server/internal/domain"
)

// activityRef is an index entry: inverted timestamp plus id.
type activityRef struct {
	ts string
	id string
}

func compareRefs(a, b activityRef) int {
	if c := cmp.Compare(a.ts, b.ts); c != 0 {
		return c
	}
	return cmp.Compare(a.id, b.id)
}

// CreateActivity stores a new activity together with its time, user and
// user+book index keys.
func (tx *Tx) CreateActivity(a *domain.Activity) error {
	if err := a.Payload.Validate(a.Type); err != nil {
		return fmt.Errorf("activity %s: %w", a.ID, err)
	}

	if err := tx.store.activities.create(tx.txn, a); err != nil {
		return err
	}

	ts := invertedTimestamp(a.CreatedAt)

	// Index keys are key-only; the value lives under activity:{id}.
	if err := tx.txn.Set(activityTimeKey(ts, a.ID), []byte{}); err != nil {
		return fmt.Errorf("setting time index: %w", err)
	}
	if err := tx.txn.Set(activityUserKey(a.UserID, ts, a.ID), []byte{}); err != nil {
		return fmt.Errorf("setting user index: %w", err)
	}
	if a.BookID != "" {
		key := []byte(activityUserBookPrefix(a.UserID, a.BookID, string(a.Type)) + ts + ":" + a.ID)
		if err := tx.txn.Set(key, []byte{}); err != nil {
			return fmt.Errorf("setting user-book index: %w", err)
		}
	}
	return nil
}

// GetActivity loads an activity document.
func (tx *Tx) GetActivity(id string) (*domain.Activity, error) {
	a, err := tx.store.activities.get(tx.txn, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", id, ErrActivityNotFound)
	}
	return a, err
}

// PutActivity overwrites an existing activity. CreatedAt must not change, so
// the index keys stay valid.
func (tx *Tx) PutActivity(a *domain.Activity) error {
	if err := a.Payload.Validate(a.Type); err != nil {
		return fmt.Errorf("activity %s: %w", a.ID, err)
	}
	err := tx.store.activities.put(tx.txn, a)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", a.ID, ErrActivityNotFound)
	}
	return err
}

// ModifyActivity loads an activity, applies fn and writes the after document.
func (tx *Tx) ModifyActivity(id string, fn func(a *domain.Activity) error) (*domain.Activity, error) {
	a, err := tx.GetActivity(id)
	if err != nil {
		return nil, err
	}
	if err := fn(a); err != nil {
		return nil, err
	}
	if err := tx.PutActivity(a); err != nil {
		return nil, err
	}
	return a, nil
}

// LatestActivity returns the most recent activity of type t by userID about
// bookID, or ErrActivityNotFound.
func (tx *Tx) LatestActivity(userID, bookID string, t domain.ActivityType) (*domain.Activity, error) {
	prefix := activityUserBookPrefix(userID, bookID, string(t))

	var latestID string
	func() {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)

		it := tx.txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if _, id, ok := splitIndexTail(string(it.Item().Key()), prefix); ok {
				latestID = id
				return
			}
		}
	}()

	if latestID == "" {
		return nil, fmt.Errorf("%s/%s/%s: %w", userID, bookID, t, ErrActivityNotFound)
	}
	return tx.GetActivity(latestID)
}

// scanRefs collects up to limit index refs under prefix, newest first.
func (tx *Tx) scanRefs(prefix string, limit int) []activityRef {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefix)

	it := tx.txn.NewIterator(opts)
	defer it.Close()

	var refs []activityRef
	for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		if len(refs) >= limit {
			break
		}
		ts, id, ok := splitIndexTail(string(it.Item().Key()), prefix)
		if !ok {
			continue
		}
		refs = append(refs, activityRef{ts: ts, id: id})
	}
	return refs
}

// loadRefs resolves refs to documents, skipping any that vanished.
func (tx *Tx) loadRefs(refs []activityRef) ([]*domain.Activity, error) {
	activities := make([]*domain.Activity, 0, len(refs))
	for _, ref := range refs {
		a, err := tx.store.activities.get(tx.txn, ref.id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, nil
}

// GetActivity loads an activity outside of an explicit transaction.
func (s *Store) GetActivity(ctx context.Context, id string) (*domain.Activity, error) {
	var a *domain.Activity
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		a, err = tx.GetActivity(id)
		return err
	})
	return a, err
}

// ListFeed returns activities authored by any of authorIDs, newest first by
// CreatedAt, after skipping params.Skip entries.
//
// Each author's index is scanned for at most Skip+Limit refs, the refs are
// merged, and only the requested page is loaded. Skip is capped at MaxSkip.
func (s *Store) ListFeed(ctx context.Context, authorIDs []string, params PaginationParams) ([]*domain.Activity, error) {
	params.Validate()
	want := params.Skip + params.Limit

	var activities []*domain.Activity
	err := s.View(ctx, func(tx *Tx) error {
		var refs []activityRef
		seen := make(map[string]bool, len(authorIDs))
		for _, authorID := range authorIDs {
			if seen[authorID] {
				continue
			}
			seen[authorID] = true

			if err := ctx.Err(); err != nil {
				return err
			}
			refs = append(refs, tx.scanRefs(activityIdxUserPrefix+authorID+":", want)...)
		}

		slices.SortFunc(refs, compareRefs)

		start := min(params.Skip, len(refs))
		end := max(min(want, len(refs)), start)

		var err error
		activities, err = tx.loadRefs(refs[start:end])
		return err
	})
	return activities, err
}

// ListUserActivities returns one author's activities, newest first.
func (s *Store) ListUserActivities(ctx context.Context, userID string, params PaginationParams) ([]*domain.Activity, error) {
	return s.ListFeed(ctx, []string{userID}, params)
}

// ListRecentActivities returns the global activity stream, newest first.
func (s *Store) ListRecentActivities(ctx context.Context, params PaginationParams) ([]*domain.Activity, error) {
	params.Validate()

	var activities []*domain.Activity
	err := s.View(ctx, func(tx *Tx) error {
		refs := tx.scanRefs(activityIdxTimePrefix, params.Skip+params.Limit)
		start := min(params.Skip, len(refs))

		var err error
		activities, err = tx.loadRefs(refs[start:])
		return err
	})
	return activities, err
}

// CountActivities returns the number of stored activities.
func (s *Store) CountActivities(ctx context.Context) (int, error) {
	count := 0
	err := s.View(ctx, func(tx *Tx) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(activityIdxTimePrefix)
		opts.Prefix = prefix

		it := tx.txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
