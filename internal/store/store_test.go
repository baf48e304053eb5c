package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bestreads/bestreads-server/internal/domain"
	domainerrors "github.com/bestreads/bestreads-server/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "bestreads-test-*")
	require.NoError(t, err)

	store, err := New(filepath.Join(tmpDir, "test.db"), nil)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}
	return store, cleanup
}

func newTestUser(id, email, username string) *domain.User {
	now := time.Now()
	return &domain.User{
		ID:        id,
		Email:     email,
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

type countingObserver struct {
	committed atomic.Int32
	retried   atomic.Int32
	aborted   atomic.Int32
}

func (o *countingObserver) TxCommitted(time.Duration) { o.committed.Add(1) }
func (o *countingObserver) TxRetried()                { o.retried.Add(1) }
func (o *countingObserver) TxAborted()                { o.aborted.Add(1) }

func TestUpdate_ErrorRollsBack(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, newTestUser("user_1", "a@example.com", "alice")))

	boom := errors.New("boom")
	err := store.Update(ctx, func(tx *Tx) error {
		_, err := tx.ModifyUser("user_1", func(u *domain.User) error {
			u.DisplayName = "changed"
			return nil
		})
		require.NoError(t, err)
		return boom
	})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeInternal, domainerrors.CodeOf(err))

	u, err := store.GetUser(ctx, "user_1")
	require.NoError(t, err)
	assert.Empty(t, u.DisplayName)
}

func TestUpdate_DomainErrorPassesThrough(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.Update(context.Background(), func(tx *Tx) error {
		return domainerrors.Validation("bad input")
	})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestUpdate_CancelledContextAppliesNothing(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	err := store.Update(ctx, func(tx *Tx) error {
		if err := tx.CreateUser(newTestUser("user_1", "a@example.com", "alice")); err != nil {
			return err
		}
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.GetUser(context.Background(), "user_1")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdate_RetriesOnceOnConflict(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	obs := &countingObserver{}
	store.SetObserver(obs)

	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, newTestUser("user_1", "a@example.com", "alice")))

	attempts := 0
	err := store.Update(ctx, func(tx *Tx) error {
		attempts++
		u, err := tx.GetUser("user_1")
		if err != nil {
			return err
		}

		if attempts == 1 {
			// A competing writer commits after our read.
			require.NoError(t, store.Update(ctx, func(other *Tx) error {
				_, err := other.ModifyUser("user_1", func(u *domain.User) error {
					u.Bio = "competing"
					return nil
				})
				return err
			}))
		}

		u.DisplayName = "mine"
		return tx.PutUser(u)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, int32(1), obs.retried.Load())

	u, err := store.GetUser(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "mine", u.DisplayName)
	assert.Equal(t, "competing", u.Bio)
}

func TestUpdate_AbortsAfterSecondConflict(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	obs := &countingObserver{}
	store.SetObserver(obs)

	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, newTestUser("user_1", "a@example.com", "alice")))

	attempts := 0
	err := store.Update(ctx, func(tx *Tx) error {
		attempts++
		u, err := tx.GetUser("user_1")
		if err != nil {
			return err
		}

		require.NoError(t, store.Update(ctx, func(other *Tx) error {
			_, err := other.ModifyUser("user_1", func(u *domain.User) error {
				u.Bio = u.Bio + "x"
				return nil
			})
			return err
		}))

		u.DisplayName = "never"
		return tx.PutUser(u)
	})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrTransactionAborted))
	assert.Equal(t, maxTxnAttempts, attempts)
	assert.Equal(t, int32(1), obs.aborted.Load())

	u, err := store.GetUser(ctx, "user_1")
	require.NoError(t, err)
	assert.Empty(t, u.DisplayName)
}

func TestCreateUser_UniqueEmailAndUsername(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, newTestUser("user_1", "Alice@Example.com", "alice")))

	err := store.CreateUser(ctx, newTestUser("user_2", "alice@example.com", "other"))
	assert.ErrorIs(t, err, ErrEmailExists)

	err = store.CreateUser(ctx, newTestUser("user_3", "b@example.com", "ALICE"))
	assert.ErrorIs(t, err, ErrUsernameExists)

	err = store.CreateUser(ctx, newTestUser("user_1", "c@example.com", "carol"))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	found, err := store.GetUserByEmail(ctx, " ALICE@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "user_1", found.ID)
}

func TestPutUser_MovesIndexes(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, newTestUser("user_1", "a@example.com", "alice")))

	err := store.Update(ctx, func(tx *Tx) error {
		_, err := tx.ModifyUser("user_1", func(u *domain.User) error {
			u.Username = "alicia"
			return nil
		})
		return err
	})
	require.NoError(t, err)

	_, err = store.GetUserByUsername(ctx, "alice")
	assert.ErrorIs(t, err, ErrUserNotFound)

	u, err := store.GetUserByUsername(ctx, "alicia")
	require.NoError(t, err)
	assert.Equal(t, "user_1", u.ID)

	// The old username is free again.
	require.NoError(t, store.CreateUser(ctx, newTestUser("user_2", "b@example.com", "alice")))
}

func TestGetUsersByIDs_PreservesOrderAndSkipsMissing(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, newTestUser("user_1", "a@example.com", "alice")))
	require.NoError(t, store.CreateUser(ctx, newTestUser("user_2", "b@example.com", "bob")))

	users, err := store.GetUsersByIDs(ctx, []string{"user_2", "user_missing", "user_1"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "user_2", users[0].ID)
	assert.Equal(t, "user_1", users[1].ID)
}

func TestPing(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	assert.NoError(t, store.Ping(context.Background()))
}
