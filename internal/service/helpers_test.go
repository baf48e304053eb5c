package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bestreads/bestreads-server/internal/domain"
	"github.com/bestreads/bestreads-server/internal/id"
	"github.com/bestreads/bestreads-server/internal/logger"
	"github.com/bestreads/bestreads-server/internal/search"
	"github.com/bestreads/bestreads-server/internal/sse"
	"github.com/bestreads/bestreads-server/internal/store"
)

// recordingBroadcaster keeps every emitted event for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []sse.Event
}

func (b *recordingBroadcaster) Emit(event any) {
	evt, ok := event.(sse.Event)
	if !ok {
		return
	}
	b.mu.Lock()
	b.events = append(b.events, evt)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) ofType(t sse.EventType) []*domain.Activity {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []*domain.Activity
	for _, evt := range b.events {
		if evt.Type != t {
			continue
		}
		if data, ok := evt.Data.(sse.ActivityEventData); ok {
			out = append(out, data.Activity)
		}
	}
	return out
}

type countingMetrics struct {
	mu          sync.Mutex
	created     int
	updated     int
	transitions int
}

func (m *countingMetrics) ActivityRecorded(_ string, updated bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if updated {
		m.updated++
	} else {
		m.created++
	}
}

func (m *countingMetrics) CompletionTransition() {
	m.mu.Lock()
	m.transitions++
	m.mu.Unlock()
}

type testEnv struct {
	store       *store.Store
	broadcaster *recordingBroadcaster
	metrics     *countingMetrics
	activities  *ActivityService
	shelves     *ShelfService
	progress    *ProgressService
	social      *SocialService
	search      *SearchService
	books       *BookService
	reviews     *ReviewService
	users       *UserService
}

// setupTestEnv wires every service against a temporary store and index.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	index, _, err := search.NewSearchIndex(search.Options{DataPath: filepath.Join(dir, "search")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	log := logger.Discard()
	env := &testEnv{
		store:       st,
		broadcaster: &recordingBroadcaster{},
		metrics:     &countingMetrics{},
	}

	env.activities = NewActivityService(st, env.broadcaster, env.metrics, FeedLimits{Default: 20, Max: 100}, log)
	env.shelves = NewShelfService(st, env.activities, log)
	env.progress = NewProgressService(st, env.activities, env.metrics, log)
	env.social = NewSocialService(st, log)
	env.search = NewSearchService(index, st, log)
	env.books = NewBookService(st, env.search, log)
	env.reviews = NewReviewService(st, env.activities, env.search, log)
	env.users = NewUserService(st, log)
	return env
}

// createTestUser stores a user with the three default shelves.
func createTestUser(t *testing.T, env *testEnv, username string) *domain.User {
	t.Helper()

	now := time.Now()
	u := &domain.User{
		ID:        id.MustGenerate(id.PrefixUser),
		Email:     username + "@example.com",
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, name := range domain.DefaultShelfNames {
		u.AddShelf(id.MustGenerate(id.PrefixShelf), name)
	}
	require.NoError(t, env.store.CreateUser(context.Background(), u))
	return u
}

func createTestBook(t *testing.T, env *testEnv, title string, pages int) *domain.Book {
	t.Helper()

	now := time.Now()
	b := &domain.Book{
		ID:            id.MustGenerate(id.PrefixBook),
		Title:         title,
		Author:        "Test Author",
		NumberOfPages: pages,
		Reviews:       []domain.Review{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, env.store.CreateBook(context.Background(), b))
	return b
}

// shelfNamed reloads the user and returns the named shelf.
func shelfNamed(t *testing.T, env *testEnv, userID, name string) domain.Bookshelf {
	t.Helper()

	shelves, err := env.shelves.GetAllBookshelves(context.Background(), userID)
	require.NoError(t, err)
	for _, s := range shelves {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("shelf %q not found", name)
	return domain.Bookshelf{}
}
