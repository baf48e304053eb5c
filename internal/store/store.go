// Package store persists BestReads aggregates as JSON documents in Badger.
//
// Every aggregate (User, Book, Activity) is one document. Multi-document
// changes run inside Update, which wraps a Badger optimistic transaction and
// retries once on a commit conflict.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/bestreads/bestreads-server/internal/domain"
	domainerrors "github.com/bestreads/bestreads-server/internal/errors"
)

// maxTxnAttempts bounds Update: the first attempt plus one retry on conflict.
const maxTxnAttempts = 2

// TxObserver receives transaction outcomes. The metrics collector implements it.
type TxObserver interface {
	TxCommitted(duration time.Duration)
	TxRetried()
	TxAborted()
}

// NoopTxObserver discards transaction outcomes.
type NoopTxObserver struct{}

// TxCommitted is a no-op.
func (NoopTxObserver) TxCommitted(time.Duration) {}

// TxRetried is a no-op.
func (NoopTxObserver) TxRetried() {}

// TxAborted is a no-op.
func (NoopTxObserver) TxAborted() {}

// Store wraps a Badger database instance.
type Store struct {
	db       *badger.DB
	logger   *slog.Logger
	observer TxObserver

	users      *Entity[domain.User]
	books      *Entity[domain.Book]
	activities *Entity[domain.Activity]
}

// New opens (or creates) the database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Badger's internal logging is too chatty
	opts.SyncWrites = true       // Sync writes so a crash never loses a committed move
	opts.CompactL0OnClose = true // Faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:       db,
		logger:   logger,
		observer: NoopTxObserver{},
	}
	s.initEntities()

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return s, nil
}

// SetObserver installs a transaction observer. Set after construction so the
// metrics collector can be built independently.
func (s *Store) SetObserver(o TxObserver) {
	if o == nil {
		o = NoopTxObserver{}
	}
	s.observer = o
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// Ping checks that the database answers a read.
func (s *Store) Ping(ctx context.Context) error {
	return s.View(ctx, func(tx *Tx) error {
		_, err := tx.txn.Get([]byte("ping"))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// Update runs fn inside a read-write transaction and commits it.
//
// Reads made through tx are tracked; if another writer commits a change to any
// of them first, Badger rejects the commit with ErrConflict and fn is run once
// more on a fresh transaction. A second conflict returns TRANSACTION_ABORTED.
// The context is checked before each attempt and again just before commit,
// so cancellation leaves nothing applied.
//
// Errors returned by fn abort the transaction. Domain errors pass through
// unchanged; anything else surfaces as INTERNAL.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	start := time.Now()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.attempt(ctx, fn)
		if err == nil {
			s.observer.TxCommitted(time.Since(start))
			return nil
		}

		if !errors.Is(err, badger.ErrConflict) {
			return s.classify(err)
		}

		if attempt >= maxTxnAttempts {
			s.observer.TxAborted()
			if s.logger != nil {
				s.logger.Warn("transaction aborted after retry", "attempts", attempt)
			}
			return domainerrors.TransactionAborted("concurrent update, please retry", err)
		}

		s.observer.TxRetried()
		if s.logger != nil {
			s.logger.Debug("transaction conflict, retrying", "attempt", attempt)
		}
	}
}

// attempt runs fn once. The transaction is always discarded; after a
// successful Commit the discard is a no-op.
func (s *Store) attempt(ctx context.Context, fn func(tx *Tx) error) error {
	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	if err := fn(&Tx{txn: txn, store: s}); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return txn.Commit()
}

// View runs fn inside a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		return fn(&Tx{txn: txn, store: s})
	})
	if err != nil {
		return s.classify(err)
	}
	return nil
}

// classify leaves domain, store and context errors as they are and wraps the rest.
func (s *Store) classify(err error) error {
	var domainErr *domainerrors.Error
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAlreadyExists):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		if s.logger != nil {
			s.logger.Error("store failure", "error", err)
		}
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "store failure")
	}
}

func (s *Store) initEntities() {
	s.users = NewEntity[domain.User](userPrefix, func(u *domain.User) string { return u.ID }).
		WithIndex("email", func(u *domain.User) []string {
			return []string{normalizeEmail(u.Email)}
		}).
		WithIndex("username", func(u *domain.User) []string {
			return []string{normalizeUsername(u.Username)}
		})

	s.books = NewEntity[domain.Book](bookPrefix, func(b *domain.Book) string { return b.ID }).
		WithIndex("isbn", func(b *domain.Book) []string {
			if b.ISBN == "" {
				return nil
			}
			return []string{b.ISBN}
		})

	// Activity indexes carry timestamps and are maintained explicitly in activity.go.
	s.activities = NewEntity[domain.Activity](activityPrefix, func(a *domain.Activity) string { return a.ID })
}
