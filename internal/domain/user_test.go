package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUser_FollowSets(t *testing.T) {
	a := &User{ID: "user-a"}

	assert.True(t, a.AddFollowing("user-b"))
	assert.False(t, a.AddFollowing("user-b"))
	assert.Equal(t, []string{"user-b"}, a.Following)
	assert.True(t, a.IsFollowing("user-b"))

	assert.True(t, a.RemoveFollowing("user-b"))
	assert.False(t, a.RemoveFollowing("user-b"))
	assert.Empty(t, a.Following)
}

func TestUser_FollowerSets(t *testing.T) {
	b := &User{ID: "user-b"}

	assert.True(t, b.AddFollower("user-a"))
	assert.False(t, b.AddFollower("user-a"))
	assert.True(t, b.RemoveFollower("user-a"))
	assert.Empty(t, b.Followers)
}

func TestUser_FeedAuthors_AlwaysIncludesSelf(t *testing.T) {
	u := &User{ID: "user-a", Following: []string{"user-b", "user-a"}}

	assert.Equal(t, []string{"user-a", "user-b"}, u.FeedAuthors())
	assert.Equal(t, []string{"user-z"}, (&User{ID: "user-z"}).FeedAuthors())
}

func TestUser_Progress(t *testing.T) {
	u := &User{ID: "user-a"}
	now := time.Now()
	u.AddProgress("prog-1", "book-1", 200, now)

	p := u.ProgressByID("prog-1")
	assert.NotNil(t, p)
	assert.Equal(t, 0, p.CurrentPage)
	assert.Same(t, p, u.ProgressForBook("book-1"))

	assert.True(t, u.RemoveProgress("prog-1"))
	assert.Nil(t, u.ProgressByID("prog-1"))
}

func TestProgress_Bounds(t *testing.T) {
	p := &Progress{TotalPages: 200}

	assert.True(t, p.ValidPage(0))
	assert.True(t, p.ValidPage(200))
	assert.False(t, p.ValidPage(-1))
	assert.False(t, p.ValidPage(201))

	p.SetPage(200, time.Now())
	assert.True(t, p.IsComplete())
	assert.InDelta(t, 100.0, p.Percent(), 0.001)
}

func TestProgress_ZeroPagesNeverComplete(t *testing.T) {
	p := &Progress{TotalPages: 0}
	assert.False(t, p.IsComplete())
	assert.Zero(t, p.Percent())
}

func TestUser_Name(t *testing.T) {
	assert.Equal(t, "Ada", (&User{Username: "ada", DisplayName: "Ada"}).Name())
	assert.Equal(t, "ada", (&User{Username: "ada"}).Name())
}
