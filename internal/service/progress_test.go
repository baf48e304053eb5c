package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bestreads/bestreads-server/internal/domain"
	domainerrors "github.com/bestreads/bestreads-server/internal/errors"
	"github.com/bestreads/bestreads-server/internal/sse"
)

// startReading puts book on "Currently Reading" and returns its progress.
func startReading(t *testing.T, env *testEnv, u *domain.User, book *domain.Book) domain.Progress {
	t.Helper()
	ctx := context.Background()

	reading := shelfNamed(t, env, u.ID, domain.ShelfCurrentlyReading)
	_, err := env.shelves.AddBook(ctx, u.ID, reading.ID, book.ID)
	require.NoError(t, err)

	progress, err := env.progress.ListProgress(ctx, u.ID)
	require.NoError(t, err)
	for _, p := range progress {
		if p.BookID == book.ID {
			return p
		}
	}
	t.Fatalf("no progress for %s", book.ID)
	return domain.Progress{}
}

func TestProgressService_FinishingMovesBookToRead(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Two Hundred Pages", 200)

	p := startReading(t, env, u, book)
	assert.Equal(t, 0, p.CurrentPage)
	assert.Equal(t, 200, p.TotalPages)

	updated, err := env.progress.UpdateProgress(ctx, u.ID, p.ID, 200)
	require.NoError(t, err)
	assert.Equal(t, 200, updated.CurrentPage)

	reading := shelfNamed(t, env, u.ID, domain.ShelfCurrentlyReading)
	assert.NotContains(t, reading.BookIDs(), book.ID)
	read := shelfNamed(t, env, u.ID, domain.ShelfRead)
	assert.Equal(t, []string{book.ID}, read.BookIDs())

	activities, err := env.activities.ListUserActivity(ctx, u.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, activities, 1, "the transition edits the add activity")
	payload := activities[0].Payload.ShelfTransition
	require.NotNil(t, payload)
	assert.Equal(t, domain.ShelfCurrentlyReading, payload.SourceShelfName)
	assert.Equal(t, domain.ShelfRead, payload.TargetShelfName)
	assert.Equal(t, "Two Hundred Pages", payload.BookTitle)
	assert.True(t, payload.IsUpdate)

	assert.Equal(t, 1, env.metrics.transitions)
	assert.Len(t, env.broadcaster.ofType(sse.EventReceiveActivity), 2)
}

func TestProgressService_CompletionIsIdempotent(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Dune", 200)
	p := startReading(t, env, u, book)

	_, err := env.progress.UpdateProgress(ctx, u.ID, p.ID, 200)
	require.NoError(t, err)
	_, err = env.progress.UpdateProgress(ctx, u.ID, p.ID, 200)
	require.NoError(t, err)

	read := shelfNamed(t, env, u.ID, domain.ShelfRead)
	assert.Equal(t, []string{book.ID}, read.BookIDs())
	assert.Empty(t, shelfNamed(t, env, u.ID, domain.ShelfCurrentlyReading).Books)
	assert.Equal(t, 1, env.metrics.transitions)
	assert.Len(t, env.broadcaster.ofType(sse.EventReceiveActivity), 2)
}

func TestProgressService_PartialProgressStaysOnShelf(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Dune", 200)
	p := startReading(t, env, u, book)

	updated, err := env.progress.UpdateProgress(ctx, u.ID, p.ID, 120)
	require.NoError(t, err)
	assert.Equal(t, 120, updated.CurrentPage)
	assert.InDelta(t, 60.0, updated.Percent(), 0.001)

	reading := shelfNamed(t, env, u.ID, domain.ShelfCurrentlyReading)
	assert.Equal(t, []string{book.ID}, reading.BookIDs())
	assert.Equal(t, 0, env.metrics.transitions)
}

func TestProgressService_UpdateProgress_Invalid(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Dune", 200)
	p := startReading(t, env, u, book)

	_, err := env.progress.UpdateProgress(ctx, u.ID, p.ID, -1)
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))

	_, err = env.progress.UpdateProgress(ctx, u.ID, p.ID, 201)
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))

	_, err = env.progress.UpdateProgress(ctx, u.ID, "prog-missing", 10)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))

	got, err := env.progress.GetProgress(ctx, u.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentPage)
}

func TestProgressService_ZeroPageBookNeverCompletes(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Pamphlet", 0)
	p := startReading(t, env, u, book)

	_, err := env.progress.UpdateProgress(ctx, u.ID, p.ID, 0)
	require.NoError(t, err)

	reading := shelfNamed(t, env, u.ID, domain.ShelfCurrentlyReading)
	assert.Equal(t, []string{book.ID}, reading.BookIDs())
}

func TestProgressService_CompletionWithoutReadShelf(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Dune", 50)
	p := startReading(t, env, u, book)

	read := shelfNamed(t, env, u.ID, domain.ShelfRead)
	require.NoError(t, env.shelves.DeleteShelf(ctx, u.ID, read.ID))

	updated, err := env.progress.UpdateProgress(ctx, u.ID, p.ID, 50)
	require.NoError(t, err)
	assert.True(t, updated.IsComplete())

	reading := shelfNamed(t, env, u.ID, domain.ShelfCurrentlyReading)
	assert.Equal(t, []string{book.ID}, reading.BookIDs())
	assert.Equal(t, 0, env.metrics.transitions)
}

func TestProgressService_AddProgressIsUniquePerBook(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Dune", 412)

	p, err := env.progress.AddProgress(ctx, u.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 412, p.TotalPages)

	_, err = env.progress.AddProgress(ctx, u.ID, book.ID)
	assert.Equal(t, domainerrors.CodeAlreadyExists, domainerrors.CodeOf(err))

	// Shelving it on "Currently Reading" reuses the existing entry.
	startReading(t, env, u, book)
	progress, err := env.progress.ListProgress(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, progress, 1)

	_, err = env.progress.AddProgress(ctx, u.ID, "book-missing")
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}

func TestProgressService_DeleteProgress(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Dune", 412)
	p := startReading(t, env, u, book)

	require.NoError(t, env.progress.DeleteProgress(ctx, u.ID, p.ID))

	_, err := env.progress.GetProgress(ctx, u.ID, p.ID)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(env.progress.DeleteProgress(ctx, u.ID, p.ID)))

	reading := shelfNamed(t, env, u.ID, domain.ShelfCurrentlyReading)
	assert.Equal(t, []string{book.ID}, reading.BookIDs(), "shelves are untouched")
}
