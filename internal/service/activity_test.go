package service

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bestreads/bestreads-server/internal/domain"
	domainerrors "github.com/bestreads/bestreads-server/internal/errors"
	"github.com/bestreads/bestreads-server/internal/logger"
	"github.com/bestreads/bestreads-server/internal/sse"
	"github.com/bestreads/bestreads-server/internal/store"
)

func TestActivityService_RecordShelfTransition(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Dune", 412)

	first, err := env.activities.RecordShelfTransition(ctx, u.ID, book.ID, domain.ShelfTransitionPayload{
		BookTitle:       book.Title,
		TargetShelfName: domain.ShelfToRead,
	})
	require.NoError(t, err)
	assert.Empty(t, first.Likes)
	assert.Empty(t, first.Comments)

	edited, err := env.activities.RecordShelfTransition(ctx, u.ID, book.ID, domain.ShelfTransitionPayload{
		BookTitle:       book.Title,
		SourceShelfName: domain.ShelfToRead,
		TargetShelfName: domain.ShelfRead,
		IsUpdate:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, edited.ID)
	assert.Equal(t, first.CreatedAt.Unix(), edited.CreatedAt.Unix())
	assert.Equal(t, domain.ShelfRead, edited.Payload.ShelfTransition.TargetShelfName)

	assert.Equal(t, 1, env.metrics.created)
	assert.Equal(t, 1, env.metrics.updated)
}

func TestActivityService_UpdateWithoutPriorActivityCreates(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Dune", 412)

	a, err := env.activities.RecordRating(ctx, u.ID, book.ID, domain.RatingPayload{
		BookTitle: book.Title,
		Rating:    4,
		IsUpdate:  true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)

	activities, err := env.activities.ListUserActivity(ctx, u.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, activities, 1)
}

func TestActivityService_UpdateInPlace(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Dune", 412)

	_, err := env.activities.UpdateInPlace(ctx, u.ID, book.ID, domain.ActivityRatedBook,
		domain.Rating(domain.RatingPayload{Rating: 3, IsUpdate: true}))
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))

	created, err := env.activities.RecordRating(ctx, u.ID, book.ID, domain.RatingPayload{BookTitle: book.Title, Rating: 2})
	require.NoError(t, err)

	updated, err := env.activities.UpdateInPlace(ctx, u.ID, book.ID, domain.ActivityRatedBook,
		domain.Rating(domain.RatingPayload{BookTitle: book.Title, Rating: 5, IsUpdate: true}))
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 5, updated.Payload.Rating.Rating)
}

func TestActivityService_PayloadMustMatchType(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Dune", 412)

	_, err := env.activities.UpdateInPlace(ctx, u.ID, book.ID, domain.ActivityRatedBook,
		domain.ShelfTransition(domain.ShelfTransitionPayload{TargetShelfName: domain.ShelfRead}))
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))

	_, err = env.activities.RecordRating(ctx, "user-missing", book.ID, domain.RatingPayload{Rating: 3})
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}

func TestActivityService_FeedIncludesFollowedUsers(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env, "alice")
	bob := createTestUser(t, env, "bob")
	carol := createTestUser(t, env, "carol")
	book := createTestBook(t, env, "Dune", 412)

	for _, u := range []*domain.User{alice, bob, carol} {
		toRead := shelfNamed(t, env, u.ID, domain.ShelfToRead)
		_, err := env.shelves.AddBook(ctx, u.ID, toRead.ID, book.ID)
		require.NoError(t, err)
	}
	require.NoError(t, env.social.Follow(ctx, alice.ID, bob.ID))

	feed, err := env.activities.GetFeed(ctx, alice.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, feed, 2)

	// Newest first.
	assert.Equal(t, bob.ID, feed[0].UserID)
	assert.Equal(t, alice.ID, feed[1].UserID)

	page, err := env.activities.GetFeed(ctx, alice.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, alice.ID, page[0].UserID)

	_, err = env.activities.GetFeed(ctx, "user-missing", 0, 0)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}

func TestActivityService_FeedSkipPastEnd(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := createTestUser(t, env, "alice")
	book := createTestBook(t, env, "Dune", 412)
	_, err := env.shelves.AddBook(ctx, u.ID, shelfNamed(t, env, u.ID, domain.ShelfToRead).ID, book.ID)
	require.NoError(t, err)

	for _, skip := range []int{1, store.MaxSkip + 1, math.MaxInt} {
		var feed []*domain.Activity
		require.NotPanics(t, func() {
			feed, err = env.activities.GetFeed(ctx, u.ID, skip, 20)
		})
		require.NoError(t, err)
		assert.Empty(t, feed, "skip %d", skip)
	}
}

func TestActivityService_PaginationLimits(t *testing.T) {
	env := setupTestEnv(t)
	s := NewActivityService(env.store, nil, nil, FeedLimits{Default: 10, Max: 50}, logger.Discard())

	assert.Equal(t, 10, s.pagination(0, 0).Limit)
	assert.Equal(t, 10, s.pagination(0, -3).Limit)
	assert.Equal(t, 50, s.pagination(0, 500).Limit)
	assert.Equal(t, 0, s.pagination(-5, 5).Skip)
	assert.Equal(t, store.MaxSkip, s.pagination(math.MaxInt, 5).Skip)

	defaults := NewActivityService(env.store, nil, nil, FeedLimits{}, logger.Discard())
	assert.Equal(t, 20, defaults.limits.Default)
	assert.Equal(t, 100, defaults.limits.Max)
}

func TestActivityService_LikeAndUnlike(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env, "alice")
	bob := createTestUser(t, env, "bob")
	book := createTestBook(t, env, "Dune", 412)

	a, err := env.activities.RecordRating(ctx, alice.ID, book.ID, domain.RatingPayload{BookTitle: book.Title, Rating: 4})
	require.NoError(t, err)

	liked, err := env.activities.Like(ctx, bob.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, liked.Likes)

	again, err := env.activities.Like(ctx, bob.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, again.Likes)
	assert.Len(t, env.broadcaster.ofType(sse.EventActivityReacted), 1, "repeat like is silent")

	unliked, err := env.activities.Unlike(ctx, bob.ID, a.ID)
	require.NoError(t, err)
	assert.Empty(t, unliked.Likes)
	assert.Len(t, env.broadcaster.ofType(sse.EventActivityReacted), 2)

	_, err = env.activities.Like(ctx, bob.ID, "act-missing")
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}

func TestActivityService_AddComment(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env, "alice")
	bob := createTestUser(t, env, "bob")
	book := createTestBook(t, env, "Dune", 412)

	a, err := env.activities.RecordRating(ctx, alice.ID, book.ID, domain.RatingPayload{BookTitle: book.Title, Rating: 4})
	require.NoError(t, err)

	comment, err := env.activities.AddComment(ctx, bob.ID, a.ID, "  Great pick!  ")
	require.NoError(t, err)
	assert.Equal(t, "Great pick!", comment.Content)
	assert.Equal(t, bob.ID, comment.UserID)

	got, err := env.activities.GetActivity(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, comment.ID, got.Comments[0].ID)

	_, err = env.activities.AddComment(ctx, bob.ID, a.ID, "   ")
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))

	_, err = env.activities.AddComment(ctx, bob.ID, a.ID, strings.Repeat("é", domain.MaxCommentLength+1))
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))

	_, err = env.activities.AddComment(ctx, bob.ID, a.ID, strings.Repeat("é", domain.MaxCommentLength))
	assert.NoError(t, err)
}
