package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bestreads/bestreads-server/internal/domain"
)

// shelveBook puts a new book on the user's "To Read" shelf and returns the
// resulting activity ID.
func shelveBook(t *testing.T, ts *testServer, token, userID, title string) string {
	t.Helper()

	book := createBook(t, ts, token, title, 100)
	toRead := shelfByName(t, ts, token, domain.ShelfToRead)
	resp := ts.api.Post("/api/v1/shelves/"+toRead.ID+"/books", bearer(token), map[string]any{"book_id": book.ID})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	list := decode[ActivityListResponse](t, ts.api.Get("/api/v1/users/"+userID+"/activities", bearer(token)))
	require.NotEmpty(t, list.Activities)
	return list.Activities[0].ID
}

func getFeed(t *testing.T, ts *testServer, token string) []*domain.Activity {
	t.Helper()

	resp := ts.api.Get("/api/v1/feed", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	return decode[ActivityListResponse](t, resp).Activities
}

func TestFeed_FollowingControlsVisibility(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	adaToken, adaID := registerUser(t, ts, "ada")
	bobToken, bobID := registerUser(t, ts, "bob")

	shelveBook(t, ts, bobToken, bobID, "Dune")
	assert.Empty(t, getFeed(t, ts, adaToken))

	resp := ts.api.Post("/api/v1/users/"+bobID+"/follow", bearer(adaToken))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	feed := getFeed(t, ts, adaToken)
	require.Len(t, feed, 1)
	assert.Equal(t, bobID, feed[0].UserID)

	// The reader's own activity is part of their feed, newest first.
	shelveBook(t, ts, adaToken, adaID, "Emma")
	feed = getFeed(t, ts, adaToken)
	require.Len(t, feed, 2)
	assert.Equal(t, adaID, feed[0].UserID)

	resp = ts.api.Delete("/api/v1/users/"+bobID+"/follow", bearer(adaToken))
	require.Equal(t, http.StatusOK, resp.Code)

	feed = getFeed(t, ts, adaToken)
	require.Len(t, feed, 1)
	assert.Equal(t, adaID, feed[0].UserID)
}

func TestFollow_CountsAndLists(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	adaToken, adaID := registerUser(t, ts, "ada")
	_, bobID := registerUser(t, ts, "bob")

	for range 2 {
		resp := ts.api.Post("/api/v1/users/"+bobID+"/follow", bearer(adaToken))
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	}

	self := ts.api.Post("/api/v1/users/"+adaID+"/follow", bearer(adaToken))
	assert.Equal(t, http.StatusBadRequest, self.Code)

	profile := decode[struct {
		FollowersCount int `json:"followers_count"`
	}](t, ts.api.Get("/api/v1/users/"+bobID, bearer(adaToken)))
	assert.Equal(t, 1, profile.FollowersCount)

	followers := decode[UserListResponse](t, ts.api.Get("/api/v1/users/"+bobID+"/followers", bearer(adaToken)))
	require.Len(t, followers.Users, 1)
	assert.Equal(t, "ada", followers.Users[0].Username)

	following := decode[UserListResponse](t, ts.api.Get("/api/v1/users/"+adaID+"/following", bearer(adaToken)))
	require.Len(t, following.Users, 1)
	assert.Equal(t, bobID, following.Users[0].ID)

	missing := ts.api.Post("/api/v1/users/user-missing/follow", bearer(adaToken))
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestActivity_LikeAndComment(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	adaToken, adaID := registerUser(t, ts, "ada")
	bobToken, _ := registerUser(t, ts, "bob")
	activityID := shelveBook(t, ts, adaToken, adaID, "Dune")

	for range 2 {
		resp := ts.api.Post("/api/v1/activities/"+activityID+"/like", bearer(bobToken))
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	}

	resp := ts.api.Post("/api/v1/activities/"+activityID+"/comments", bearer(bobToken), map[string]any{"content": "  Great pick  "})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	comment := decode[domain.Comment](t, resp)
	assert.Equal(t, "Great pick", comment.Content)

	empty := ts.api.Post("/api/v1/activities/"+activityID+"/comments", bearer(bobToken), map[string]any{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, empty.Code)

	got := decode[domain.Activity](t, ts.api.Get("/api/v1/activities/"+activityID, bearer(adaToken)))
	assert.Len(t, got.Likes, 1)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, comment.ID, got.Comments[0].ID)

	resp = ts.api.Delete("/api/v1/activities/"+activityID+"/like", bearer(bobToken))
	require.Equal(t, http.StatusOK, resp.Code)
	got = decode[domain.Activity](t, ts.api.Get("/api/v1/activities/"+activityID, bearer(adaToken)))
	assert.Empty(t, got.Likes)
}

func TestActivity_NotFound(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, _ := registerUser(t, ts, "ada")

	resp := ts.api.Get("/api/v1/activities/act-missing", bearer(token))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decode[apiError](t, resp).Code)
}

func TestActivityStream_RequiresToken(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	w := httptest.NewRecorder()
	ts.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/activities/stream", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActivityStream_DeliversNewActivities(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, userID := registerUser(t, ts, "ada")

	srv := httptest.NewServer(ts.Server)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/activities/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool { return ts.sseManager.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	activityID := shelveBook(t, ts, token, userID, "Dune")

	var event string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			event = name
			continue
		}
		if strings.HasPrefix(line, "data: ") && strings.Contains(line, activityID) {
			assert.Equal(t, "ReceiveActivity", event)
			return
		}
	}
	t.Fatalf("stream ended without activity %s: %v", activityID, scanner.Err())
}

func TestFeed_SkipBounds(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, userID := registerUser(t, ts, "ada")
	shelveBook(t, ts, token, userID, "Dune")

	past := ts.api.Get("/api/v1/feed?skip=10000", bearer(token))
	require.Equal(t, http.StatusOK, past.Code, past.Body.String())
	assert.Empty(t, decode[ActivityListResponse](t, past).Activities)

	huge := ts.api.Get("/api/v1/feed?skip=9223372036854775807", bearer(token))
	assert.Equal(t, http.StatusUnprocessableEntity, huge.Code)
}
