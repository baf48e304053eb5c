package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/bestreads/bestreads-server/internal/errors"
)

func TestSocialService_Follow(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env, "alice")
	bob := createTestUser(t, env, "bob")

	require.NoError(t, env.social.Follow(ctx, alice.ID, bob.ID))

	following, err := env.social.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	reverse, err := env.social.IsFollowing(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, reverse)

	followers, err := env.social.ListFollowers(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, alice.ID, followers[0].ID)
	assert.Equal(t, "alice", followers[0].Username)

	list, err := env.social.ListFollowing(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, bob.ID, list[0].ID)
}

func TestSocialService_DoubleFollowKeepsSingleEntries(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env, "alice")
	bob := createTestUser(t, env, "bob")

	require.NoError(t, env.social.Follow(ctx, alice.ID, bob.ID))
	require.NoError(t, env.social.Follow(ctx, alice.ID, bob.ID))

	a, err := env.store.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	b, err := env.store.GetUser(ctx, bob.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{bob.ID}, a.Following)
	assert.Equal(t, []string{alice.ID}, b.Followers)
}

func TestSocialService_FollowThenUnfollowRestoresBoth(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env, "alice")
	bob := createTestUser(t, env, "bob")

	require.NoError(t, env.social.Follow(ctx, alice.ID, bob.ID))
	require.NoError(t, env.social.Unfollow(ctx, alice.ID, bob.ID))

	a, err := env.store.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	b, err := env.store.GetUser(ctx, bob.ID)
	require.NoError(t, err)

	assert.Empty(t, a.Following)
	assert.Empty(t, a.Followers)
	assert.Empty(t, b.Following)
	assert.Empty(t, b.Followers)

	// Unfollowing again is a no-op.
	require.NoError(t, env.social.Unfollow(ctx, alice.ID, bob.ID))
}

func TestSocialService_Errors(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env, "alice")

	err := env.social.Follow(ctx, alice.ID, alice.ID)
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))

	err = env.social.Unfollow(ctx, alice.ID, alice.ID)
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))

	err = env.social.Follow(ctx, alice.ID, "user-missing")
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))

	err = env.social.Follow(ctx, "user-missing", alice.ID)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))

	err = env.social.Unfollow(ctx, alice.ID, "user-missing")
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))

	err = env.social.Unfollow(ctx, "user-missing", alice.ID)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))

	_, err = env.social.ListFollowers(ctx, "user-missing")
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}

func TestSocialService_CanceledContext(t *testing.T) {
	env := setupTestEnv(t)
	alice := createTestUser(t, env, "alice")
	bob := createTestUser(t, env, "bob")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := env.social.Follow(ctx, alice.ID, bob.ID)
	assert.Equal(t, domainerrors.CodeCanceled, domainerrors.CodeOf(err))
	assert.ErrorIs(t, err, context.Canceled)

	deadline, stop := context.WithTimeout(context.Background(), -time.Second)
	defer stop()
	_, err = env.social.ListFollowers(deadline, alice.ID)
	assert.Equal(t, domainerrors.CodeCanceled, domainerrors.CodeOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	following, err := env.social.ListFollowing(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Empty(t, following)
}
