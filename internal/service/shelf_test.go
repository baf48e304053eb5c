package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bestreads/bestreads-server/internal/domain"
	domainerrors "github.com/bestreads/bestreads-server/internal/errors"
	"github.com/bestreads/bestreads-server/internal/sse"
)

func TestShelfService_CreateShelf(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")

	shelf, err := env.shelves.CreateShelf(ctx, u.ID, "  Favourites  ")
	require.NoError(t, err)
	assert.Equal(t, "Favourites", shelf.Name)
	assert.Empty(t, shelf.Books)

	shelves, err := env.shelves.GetAllBookshelves(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, shelves, 4)
	assert.Equal(t, "Favourites", shelves[3].Name)
}

func TestShelfService_CreateShelf_Invalid(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")

	tests := []struct {
		name      string
		shelfName string
		code      domainerrors.Code
	}{
		{"empty", "   ", domainerrors.CodeValidation},
		{"too long", strings.Repeat("x", domain.MaxShelfNameLength+1), domainerrors.CodeValidation},
		{"duplicate", domain.ShelfRead, domainerrors.CodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.shelves.CreateShelf(ctx, u.ID, tt.shelfName)
			require.Error(t, err)
			assert.Equal(t, tt.code, domainerrors.CodeOf(err))
		})
	}

	_, err := env.shelves.CreateShelf(ctx, "user-missing", "Mine")
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}

func TestShelfService_RenameAndDelete(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")

	shelf, err := env.shelves.CreateShelf(ctx, u.ID, "Later")
	require.NoError(t, err)

	renamed, err := env.shelves.RenameShelf(ctx, u.ID, shelf.ID, "Someday")
	require.NoError(t, err)
	assert.Equal(t, "Someday", renamed.Name)

	_, err = env.shelves.RenameShelf(ctx, u.ID, shelf.ID, domain.ShelfToRead)
	assert.Equal(t, domainerrors.CodeConflict, domainerrors.CodeOf(err))

	_, err = env.shelves.RenameShelf(ctx, u.ID, "shelf-missing", "Other")
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))

	require.NoError(t, env.shelves.DeleteShelf(ctx, u.ID, shelf.ID))
	_, err = env.shelves.GetBookshelf(ctx, u.ID, shelf.ID)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))

	err = env.shelves.DeleteShelf(ctx, u.ID, shelf.ID)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}

func TestShelfService_AddBook_RecordsActivity(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Dune", 412)
	toRead := shelfNamed(t, env, u.ID, domain.ShelfToRead)

	shelf, err := env.shelves.AddBook(ctx, u.ID, toRead.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{book.ID}, shelf.BookIDs())

	activities, err := env.activities.ListUserActivity(ctx, u.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, activities, 1)

	a := activities[0]
	assert.Equal(t, domain.ActivityAddedBookToShelf, a.Type)
	assert.Equal(t, book.ID, a.BookID)
	require.NotNil(t, a.Payload.ShelfTransition)
	assert.Equal(t, "Dune", a.Payload.ShelfTransition.BookTitle)
	assert.Equal(t, domain.ShelfToRead, a.Payload.ShelfTransition.TargetShelfName)
	assert.Empty(t, a.Payload.ShelfTransition.SourceShelfName)
	assert.False(t, a.Payload.ShelfTransition.IsUpdate)

	published := env.broadcaster.ofType(sse.EventReceiveActivity)
	require.Len(t, published, 1)
	assert.Equal(t, a.ID, published[0].ID)

	// No progress outside "Currently Reading".
	progress, err := env.progress.ListProgress(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, progress)
}

func TestShelfService_AddBook_NeverDuplicates(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Dune", 412)
	toRead := shelfNamed(t, env, u.ID, domain.ShelfToRead)

	_, err := env.shelves.AddBook(ctx, u.ID, toRead.ID, book.ID)
	require.NoError(t, err)

	_, err = env.shelves.AddBook(ctx, u.ID, toRead.ID, book.ID)
	assert.Equal(t, domainerrors.CodeAlreadyExists, domainerrors.CodeOf(err))

	got := shelfNamed(t, env, u.ID, domain.ShelfToRead)
	assert.Equal(t, []string{book.ID}, got.BookIDs())
	assert.Len(t, env.broadcaster.ofType(sse.EventReceiveActivity), 1, "failed add must not publish")
}

func TestShelfService_AddBook_NotFound(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Dune", 412)
	toRead := shelfNamed(t, env, u.ID, domain.ShelfToRead)

	_, err := env.shelves.AddBook(ctx, u.ID, toRead.ID, "book-missing")
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))

	_, err = env.shelves.AddBook(ctx, u.ID, "shelf-missing", book.ID)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))

	_, err = env.shelves.AddBook(ctx, "user-missing", toRead.ID, book.ID)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}

func TestShelfService_AddBook_CurrentlyReadingCreatesProgress(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Dune", 412)
	reading := shelfNamed(t, env, u.ID, domain.ShelfCurrentlyReading)

	_, err := env.shelves.AddBook(ctx, u.ID, reading.ID, book.ID)
	require.NoError(t, err)

	progress, err := env.progress.ListProgress(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.Equal(t, book.ID, progress[0].BookID)
	assert.Equal(t, 0, progress[0].CurrentPage)
	assert.Equal(t, 412, progress[0].TotalPages)
}

func TestShelfService_DeleteShelf_KeepsProgress(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Dune", 412)
	reading := shelfNamed(t, env, u.ID, domain.ShelfCurrentlyReading)

	_, err := env.shelves.AddBook(ctx, u.ID, reading.ID, book.ID)
	require.NoError(t, err)
	before, err := env.progress.ListProgress(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, before, 1)

	require.NoError(t, env.shelves.DeleteShelf(ctx, u.ID, reading.ID))

	after, err := env.progress.ListProgress(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestShelfService_RemoveBook(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Dune", 412)
	toRead := shelfNamed(t, env, u.ID, domain.ShelfToRead)

	_, err := env.shelves.AddBook(ctx, u.ID, toRead.ID, book.ID)
	require.NoError(t, err)

	require.NoError(t, env.shelves.RemoveBook(ctx, u.ID, toRead.ID, book.ID))
	assert.Empty(t, shelfNamed(t, env, u.ID, domain.ShelfToRead).Books)
	assert.Len(t, env.broadcaster.ofType(sse.EventReceiveActivity), 1, "remove is silent")

	err = env.shelves.RemoveBook(ctx, u.ID, toRead.ID, book.ID)
	assert.Equal(t, domainerrors.CodeConflict, domainerrors.CodeOf(err))
}

func TestShelfService_MoveBook(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Dune", 412)
	toRead := shelfNamed(t, env, u.ID, domain.ShelfToRead)
	reading := shelfNamed(t, env, u.ID, domain.ShelfCurrentlyReading)

	_, err := env.shelves.AddBook(ctx, u.ID, toRead.ID, book.ID)
	require.NoError(t, err)

	target, err := env.shelves.MoveBook(ctx, u.ID, toRead.ID, book.ID, reading.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{book.ID}, target.BookIDs())
	assert.Empty(t, shelfNamed(t, env, u.ID, domain.ShelfToRead).Books)

	// The move edits the add activity instead of adding a second one.
	activities, err := env.activities.ListUserActivity(ctx, u.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	p := activities[0].Payload.ShelfTransition
	require.NotNil(t, p)
	assert.Equal(t, domain.ShelfToRead, p.SourceShelfName)
	assert.Equal(t, domain.ShelfCurrentlyReading, p.TargetShelfName)
	assert.True(t, p.IsUpdate)

	published := env.broadcaster.ofType(sse.EventReceiveActivity)
	require.Len(t, published, 2)
	assert.Equal(t, published[0].ID, published[1].ID)

	progress, err := env.progress.ListProgress(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, progress, 1)
}

func TestShelfService_MoveBook_FailureLeavesShelvesUnchanged(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	dune := createTestBook(t, env, "Dune", 412)
	hobbit := createTestBook(t, env, "The Hobbit", 310)
	toRead := shelfNamed(t, env, u.ID, domain.ShelfToRead)
	read := shelfNamed(t, env, u.ID, domain.ShelfRead)

	_, err := env.shelves.AddBook(ctx, u.ID, toRead.ID, dune.ID)
	require.NoError(t, err)
	_, err = env.shelves.AddBook(ctx, u.ID, read.ID, dune.ID)
	require.NoError(t, err)

	before, err := env.shelves.GetAllBookshelves(ctx, u.ID)
	require.NoError(t, err)

	tests := []struct {
		name         string
		from, bookID string
		to           string
		code         domainerrors.Code
	}{
		{"absent from source", toRead.ID, hobbit.ID, read.ID, domainerrors.CodeConflict},
		{"already on target", toRead.ID, dune.ID, read.ID, domainerrors.CodeConflict},
		{"missing target", toRead.ID, dune.ID, "shelf-missing", domainerrors.CodeNotFound},
		{"missing source", "shelf-missing", dune.ID, read.ID, domainerrors.CodeNotFound},
		{"missing book", toRead.ID, "book-missing", read.ID, domainerrors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.shelves.MoveBook(ctx, u.ID, tt.from, tt.bookID, tt.to)
			require.Error(t, err)
			assert.Equal(t, tt.code, domainerrors.CodeOf(err))

			after, err := env.shelves.GetAllBookshelves(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}
