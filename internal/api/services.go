package api

import "github.com/bestreads/bestreads-server/internal/service"

// Services groups the business logic services used by the API server.
type Services struct {
	Auth     *service.AuthService
	User     *service.UserService
	Shelf    *service.ShelfService
	Progress *service.ProgressService
	Social   *service.SocialService
	Activity *service.ActivityService
	Book     *service.BookService
	Review   *service.ReviewService
	Search   *service.SearchService
}
