package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/bestreads/bestreads-server/internal/domain"
)

// GetUser loads a user document.
func (tx *Tx) GetUser(id string) (*domain.User, error) {
	u, err := tx.store.users.get(tx.txn, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", id, ErrUserNotFound)
	}
	return u, err
}

// CreateUser stores a new user. Email and username must be unused.
func (tx *Tx) CreateUser(u *domain.User) error {
	if _, err := tx.store.users.getByIndex(tx.txn, "email", normalizeEmail(u.Email)); err == nil {
		return ErrEmailExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if _, err := tx.store.users.getByIndex(tx.txn, "username", normalizeUsername(u.Username)); err == nil {
		return ErrUsernameExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	return tx.store.users.create(tx.txn, u)
}

// PutUser overwrites an existing user document.
func (tx *Tx) PutUser(u *domain.User) error {
	err := tx.store.users.put(tx.txn, u)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", u.ID, ErrUserNotFound)
	}
	return err
}

// ModifyUser is find-and-modify: it loads the user, applies fn, writes the
// result and returns the after document. If fn returns an error nothing is
// written.
func (tx *Tx) ModifyUser(id string, fn func(u *domain.User) error) (*domain.User, error) {
	u, err := tx.GetUser(id)
	if err != nil {
		return nil, err
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	if err := tx.PutUser(u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser loads a user outside of an explicit transaction.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u *domain.User
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		u, err = tx.GetUser(id)
		return err
	})
	return u, err
}

// GetUserByEmail looks a user up case-insensitively by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u *domain.User
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		u, err = s.users.getByIndex(tx.txn, "email", normalizeEmail(email))
		if errors.Is(err, ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	})
	return u, err
}

// GetUserByUsername looks a user up case-insensitively by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u *domain.User
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		u, err = s.users.getByIndex(tx.txn, "username", normalizeUsername(username))
		if errors.Is(err, ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	})
	return u, err
}

// GetUsersByIDs loads several users in one read transaction, preserving the
// order of ids. Missing ids are skipped.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	users := make([]*domain.User, 0, len(ids))
	err := s.View(ctx, func(tx *Tx) error {
		for _, id := range ids {
			u, err := s.users.get(tx.txn, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			users = append(users, u)
		}
		return nil
	})
	return users, err
}

// CreateUser stores a new user in its own transaction.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	return s.Update(ctx, func(tx *Tx) error {
		return tx.CreateUser(u)
	})
}

// ListUsers returns every user.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	err := s.View(ctx, func(tx *Tx) error {
		for u, err := range s.users.list(tx.txn) {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			users = append(users, u)
		}
		return nil
	})
	return users, err
}
