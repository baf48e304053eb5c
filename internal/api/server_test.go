package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/bestreads/bestreads-server/internal/auth"
	"github.com/bestreads/bestreads-server/internal/domain"
	"github.com/bestreads/bestreads-server/internal/logger"
	"github.com/bestreads/bestreads-server/internal/search"
	"github.com/bestreads/bestreads-server/internal/service"
	"github.com/bestreads/bestreads-server/internal/sse"
	"github.com/bestreads/bestreads-server/internal/store"
)

type testServer struct {
	*Server
	api        humatest.TestAPI
	cleanup    func()
	sseManager *sse.Manager
}

// setupTestServer builds a server over a temporary Badger store and bleve index.
func setupTestServer(t *testing.T) *testServer {
	return setupTestServerWithOptions(t, Options{})
}

func setupTestServerWithOptions(t *testing.T, opts Options) *testServer {
	t.Helper()

	tmpDir := t.TempDir()
	log := logger.Discard()

	st, err := store.New(filepath.Join(tmpDir, "db"), log)
	require.NoError(t, err)

	index, _, err := search.NewSearchIndex(search.Options{DataPath: filepath.Join(tmpDir, "search")})
	require.NoError(t, err)

	key, err := auth.LoadOrGenerateKey(filepath.Join(tmpDir, "auth.key"))
	require.NoError(t, err)
	tokenService, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)

	sseManager := sse.NewManager(log, sse.Options{HeartbeatInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	go sseManager.Start(ctx)

	searchService := service.NewSearchService(index, st, log)
	activities := service.NewActivityService(st, sseManager, nil, service.FeedLimits{Default: 20, Max: 100}, log)
	services := &Services{
		Auth:     service.NewAuthService(st, tokenService, log),
		User:     service.NewUserService(st, log),
		Shelf:    service.NewShelfService(st, activities, log),
		Progress: service.NewProgressService(st, activities, nil, log),
		Social:   service.NewSocialService(st, log),
		Activity: activities,
		Book:     service.NewBookService(st, searchService, log),
		Review:   service.NewReviewService(st, activities, searchService, log),
		Search:   searchService,
	}

	s := NewServer(st, services, sseManager, opts, log)

	cleanup := func() {
		cancel()
		_ = index.Close()
		_ = st.Close()
	}

	return &testServer{
		Server:     s,
		api:        humatest.Wrap(t, s.api),
		cleanup:    cleanup,
		sseManager: sseManager,
	}
}

func bearer(token string) string {
	return "Authorization: Bearer " + token
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return out
}

// registerUser creates an account and returns its token and ID.
func registerUser(t *testing.T, ts *testServer, username string) (token, userID string) {
	t.Helper()

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    username + "@example.com",
		"username": username,
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	body := decode[AuthResponse](t, resp)
	return body.AccessToken, body.User.ID
}

func createBook(t *testing.T, ts *testServer, token, title string, pages int) BookResponse {
	t.Helper()

	resp := ts.api.Post("/api/v1/books", bearer(token), map[string]any{
		"title":           title,
		"author":          "Test Author",
		"number_of_pages": pages,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[BookResponse](t, resp)
}

func shelfByName(t *testing.T, ts *testServer, token, name string) domain.Bookshelf {
	t.Helper()

	resp := ts.api.Get("/api/v1/shelves", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	list := decode[ShelfListResponse](t, resp)
	for _, sh := range list.Shelves {
		if sh.Name == name {
			return sh
		}
	}
	t.Fatalf("shelf %q not found", name)
	return domain.Bookshelf{}
}

// apiError mirrors the error body returned by every endpoint.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
