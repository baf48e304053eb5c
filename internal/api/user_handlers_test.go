package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateCurrentUser(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, _ := registerUser(t, ts, "ada")

	resp := ts.api.Patch("/api/v1/users/me", bearer(token), map[string]any{
		"display_name": "Ada L.",
		"bio":          "Mostly science fiction.",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	me := decode[UserResponse](t, ts.api.Get("/api/v1/users/me", bearer(token)))
	assert.Equal(t, "Ada L.", me.DisplayName)
	assert.Equal(t, "Mostly science fiction.", me.Bio)
	assert.Equal(t, "ada@example.com", me.Email)

	bad := ts.api.Patch("/api/v1/users/me", bearer(token), map[string]any{"profile_picture": "not a url"})
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, "VALIDATION", decode[apiError](t, bad).Code)
}

func TestGetUserProfile_HidesPrivateFields(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	_, adaID := registerUser(t, ts, "ada")
	bobToken, _ := registerUser(t, ts, "bob")

	resp := ts.api.Get("/api/v1/users/"+adaID, bearer(bobToken))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.NotContains(t, resp.Body.String(), "ada@example.com")
	assert.NotContains(t, resp.Body.String(), "password")

	missing := ts.api.Get("/api/v1/users/user-missing", bearer(bobToken))
	assert.Equal(t, http.StatusNotFound, missing.Code)
}
