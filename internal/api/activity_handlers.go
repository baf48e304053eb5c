package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bestreads/bestreads-server/internal/domain"
)

func (s *Server) registerActivityRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getFeed",
		Method:      http.MethodGet,
		Path:        "/api/v1/feed",
		Summary:     "Get activity feed",
		Description: "Returns activities by the caller and everyone they follow, newest first",
		Tags:        []string{"Activity"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetFeed)

	huma.Register(s.api, huma.Operation{
		OperationID: "getActivity",
		Method:      http.MethodGet,
		Path:        "/api/v1/activities/{id}",
		Summary:     "Get activity",
		Tags:        []string{"Activity"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetActivity)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUserActivities",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/activities",
		Summary:     "List a user's activity",
		Tags:        []string{"Activity"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListUserActivities)

	huma.Register(s.api, huma.Operation{
		OperationID: "likeActivity",
		Method:      http.MethodPost,
		Path:        "/api/v1/activities/{id}/like",
		Summary:     "Like activity",
		Description: "Likes an activity. Liking twice is a no-op.",
		Tags:        []string{"Activity"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleLikeActivity)

	huma.Register(s.api, huma.Operation{
		OperationID: "unlikeActivity",
		Method:      http.MethodDelete,
		Path:        "/api/v1/activities/{id}/like",
		Summary:     "Unlike activity",
		Tags:        []string{"Activity"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUnlikeActivity)

	huma.Register(s.api, huma.Operation{
		OperationID:   "commentOnActivity",
		Method:        http.MethodPost,
		Path:          "/api/v1/activities/{id}/comments",
		Summary:       "Comment on activity",
		Tags:          []string{"Activity"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleCommentOnActivity)
}

// === DTOs ===

// FeedInput contains feed paging parameters. Limits above the configured
// maximum are capped rather than rejected.
type FeedInput struct {
	Authorization string `header:"Authorization"`
	Skip          int    `query:"skip" minimum:"0" maximum:"10000" doc:"Activities to skip"`
	Limit         int    `query:"limit" minimum:"0" doc:"Page size, 0 for the default"`
}

// UserActivitiesInput pages one user's activities.
type UserActivitiesInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"User ID"`
	Skip          int    `query:"skip" minimum:"0" maximum:"10000" doc:"Activities to skip"`
	Limit         int    `query:"limit" minimum:"0" doc:"Page size, 0 for the default"`
}

// ActivityIDInput selects an activity by path.
type ActivityIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Activity ID"`
}

// CommentRequest is the request body for a comment.
type CommentRequest struct {
	Content string `json:"content" doc:"Comment text"`
}

// CommentInput wraps the comment for Huma.
type CommentInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Activity ID"`
	Body          CommentRequest
}

// ActivityListResponse lists activities.
type ActivityListResponse struct {
	Activities []*domain.Activity `json:"activities" doc:"Activities, newest first"`
	Skip       int                `json:"skip" doc:"Activities skipped"`
}

// ActivityListOutput wraps an activity list for Huma.
type ActivityListOutput struct {
	Body ActivityListResponse
}

// ActivityOutput wraps an activity for Huma.
type ActivityOutput struct {
	Body *domain.Activity
}

// CommentOutput wraps a comment for Huma.
type CommentOutput struct {
	Body *domain.Comment
}

// === Handlers ===

func (s *Server) handleGetFeed(ctx context.Context, input *FeedInput) (*ActivityListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	activities, err := s.services.Activity.GetFeed(ctx, userID, input.Skip, input.Limit)
	if err != nil {
		return nil, err
	}
	return &ActivityListOutput{Body: ActivityListResponse{Activities: activities, Skip: input.Skip}}, nil
}

func (s *Server) handleGetActivity(ctx context.Context, input *ActivityIDInput) (*ActivityOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}

	activity, err := s.services.Activity.GetActivity(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ActivityOutput{Body: activity}, nil
}

func (s *Server) handleListUserActivities(ctx context.Context, input *UserActivitiesInput) (*ActivityListOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}

	activities, err := s.services.Activity.ListUserActivity(ctx, input.ID, input.Skip, input.Limit)
	if err != nil {
		return nil, err
	}
	return &ActivityListOutput{Body: ActivityListResponse{Activities: activities, Skip: input.Skip}}, nil
}

func (s *Server) handleLikeActivity(ctx context.Context, input *ActivityIDInput) (*ActivityOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	activity, err := s.services.Activity.Like(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &ActivityOutput{Body: activity}, nil
}

func (s *Server) handleUnlikeActivity(ctx context.Context, input *ActivityIDInput) (*ActivityOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	activity, err := s.services.Activity.Unlike(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &ActivityOutput{Body: activity}, nil
}

func (s *Server) handleCommentOnActivity(ctx context.Context, input *CommentInput) (*CommentOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	comment, err := s.services.Activity.AddComment(ctx, userID, input.ID, input.Body.Content)
	if err != nil {
		return nil, err
	}
	return &CommentOutput{Body: comment}, nil
}
