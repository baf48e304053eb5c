package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bestreads/bestreads-server/internal/domain"
	"github.com/bestreads/bestreads-server/internal/search"
	"github.com/bestreads/bestreads-server/internal/service"
	"github.com/bestreads/bestreads-server/internal/store"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns the catalog in creation order with skip/limit paging",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Create book",
		Description:   "Adds a book to the catalog. ISBNs are unique once normalized.",
		Tags:          []string{"Books"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/search",
		Summary:     "Search books",
		Description: "Full-text search over title, author, description and genres",
		Tags:        []string{"Books", "Search"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearchBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a book with its public reviews and the caller's own",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Updates catalog fields. Omitted fields are unchanged.",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateBook)
}

// === DTOs ===

// BookIDInput selects a book by path.
type BookIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Book ID"`
}

// ListBooksInput contains paging parameters.
type ListBooksInput struct {
	Authorization string `header:"Authorization"`
	Skip          int    `query:"skip" minimum:"0" maximum:"10000" doc:"Items to skip"`
	Limit         int    `query:"limit" minimum:"0" maximum:"100" doc:"Items per page (default 20)"`
}

// CreateBookRequest is the request body for adding a book.
type CreateBookRequest struct {
	Title         string   `json:"title" doc:"Book title"`
	Author        string   `json:"author" doc:"Author name"`
	ISBN          string   `json:"isbn,omitempty" doc:"ISBN-10 or ISBN-13, hyphens allowed"`
	CoverImage    string   `json:"cover_image,omitempty" doc:"Cover image URL"`
	Description   string   `json:"description,omitempty" doc:"Synopsis"`
	Genres        []string `json:"genres,omitempty" doc:"Genre names"`
	NumberOfPages int      `json:"number_of_pages" doc:"Page count"`
}

// CreateBookInput wraps the create request for Huma.
type CreateBookInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateBookRequest
}

// UpdateBookRequest contains the book fields to change. Nil fields are left
// as they are.
type UpdateBookRequest struct {
	Title         *string   `json:"title,omitempty" doc:"New title"`
	Author        *string   `json:"author,omitempty" doc:"New author"`
	CoverImage    *string   `json:"cover_image,omitempty" doc:"New cover image URL"`
	Description   *string   `json:"description,omitempty" doc:"New synopsis"`
	Genres        *[]string `json:"genres,omitempty" doc:"Replacement genre list"`
	NumberOfPages *int      `json:"number_of_pages,omitempty" doc:"New page count"`
}

// UpdateBookInput wraps the update request for Huma.
type UpdateBookInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Book ID"`
	Body          UpdateBookRequest
}

// SearchBooksInput contains search parameters.
type SearchBooksInput struct {
	Authorization string   `header:"Authorization"`
	Query         string   `query:"q" doc:"Search query, empty matches everything"`
	Genres        []string `query:"genre" doc:"Restrict to any of these genres"`
	MinRating     float64  `query:"min_rating" doc:"Minimum average rating"`
	Sort          string   `query:"sort" enum:"relevance,title,rating,recent" default:"relevance" doc:"Sort order"`
	Facets        bool     `query:"facets" doc:"Include genre facet counts"`
	Skip          int      `query:"skip" minimum:"0" maximum:"10000" doc:"Results to skip"`
	Limit         int      `query:"limit" minimum:"0" maximum:"100" doc:"Max results (default 20)"`
}

// BookResponse is a catalog entry.
type BookResponse struct {
	ID            string          `json:"id" doc:"Book ID"`
	Title         string          `json:"title" doc:"Title"`
	Author        string          `json:"author" doc:"Author"`
	ISBN          string          `json:"isbn,omitempty" doc:"Normalized ISBN"`
	CoverImage    string          `json:"cover_image,omitempty" doc:"Cover image URL"`
	Description   string          `json:"description,omitempty" doc:"Synopsis"`
	Genres        []string        `json:"genres,omitempty" doc:"Genres"`
	NumberOfPages int             `json:"number_of_pages" doc:"Page count"`
	AverageRating float64         `json:"average_rating" doc:"Mean of all ratings"`
	RatingsCount  int             `json:"ratings_count" doc:"Number of ratings"`
	Reviews       []domain.Review `json:"reviews" doc:"Reviews visible to the caller"`
	CreatedAt     time.Time       `json:"created_at" doc:"Creation time"`
	UpdatedAt     time.Time       `json:"updated_at" doc:"Last change"`
}

// BookOutput wraps a book for Huma.
type BookOutput struct {
	Body BookResponse
}

// BookListResponse is one page of the catalog.
type BookListResponse struct {
	Books   []BookResponse `json:"books" doc:"Books on this page"`
	Skip    int            `json:"skip" doc:"Items skipped"`
	Limit   int            `json:"limit" doc:"Page size"`
	Total   int            `json:"total" doc:"Catalog size"`
	HasMore bool           `json:"has_more" doc:"Whether more pages follow"`
}

// BookListOutput wraps the book list for Huma.
type BookListOutput struct {
	Body BookListResponse
}

// SearchBooksOutput wraps search results for Huma.
type SearchBooksOutput struct {
	Body *search.SearchResult
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*BookListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	page, err := s.services.Book.ListBooks(ctx, store.PaginationParams{Skip: input.Skip, Limit: input.Limit})
	if err != nil {
		return nil, err
	}

	books := make([]BookResponse, 0, len(page.Items))
	for _, b := range page.Items {
		books = append(books, mapBookResponse(b, userID))
	}
	return &BookListOutput{Body: BookListResponse{
		Books:   books,
		Skip:    page.Skip,
		Limit:   page.Limit,
		Total:   page.Total,
		HasMore: page.HasMore,
	}}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Book.CreateBook(ctx, service.CreateBookRequest{
		Title:         input.Body.Title,
		Author:        input.Body.Author,
		ISBN:          input.Body.ISBN,
		CoverImage:    input.Body.CoverImage,
		Description:   input.Body.Description,
		Genres:        input.Body.Genres,
		NumberOfPages: input.Body.NumberOfPages,
	})
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: mapBookResponse(book, userID)}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Book.GetBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: mapBookResponse(book, userID)}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Book.UpdateBook(ctx, input.ID, service.UpdateBookRequest{
		Title:         input.Body.Title,
		Author:        input.Body.Author,
		CoverImage:    input.Body.CoverImage,
		Description:   input.Body.Description,
		Genres:        input.Body.Genres,
		NumberOfPages: input.Body.NumberOfPages,
	})
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: mapBookResponse(book, userID)}, nil
}

func (s *Server) handleSearchBooks(ctx context.Context, input *SearchBooksInput) (*SearchBooksOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}
	if s.services.Search == nil {
		return nil, huma.Error503ServiceUnavailable("Search is not available")
	}

	result, err := s.services.Search.Search(ctx, search.SearchParams{
		Query:         input.Query,
		Genres:        input.Genres,
		MinRating:     input.MinRating,
		SortBy:        input.Sort,
		IncludeFacets: input.Facets,
		Offset:        input.Skip,
		Limit:         input.Limit,
	})
	if err != nil {
		return nil, err
	}
	return &SearchBooksOutput{Body: result}, nil
}

// mapBookResponse hides other readers' private reviews.
func mapBookResponse(b *domain.Book, viewerID string) BookResponse {
	reviews := make([]domain.Review, 0, len(b.Reviews))
	for _, r := range b.Reviews {
		if r.IsPublic || r.UserID == viewerID {
			reviews = append(reviews, r)
		}
	}

	return BookResponse{
		ID:            b.ID,
		Title:         b.Title,
		Author:        b.Author,
		ISBN:          b.ISBN,
		CoverImage:    b.CoverImage,
		Description:   b.Description,
		Genres:        b.Genres,
		NumberOfPages: b.NumberOfPages,
		AverageRating: b.AverageRating,
		RatingsCount:  b.RatingsCount,
		Reviews:       reviews,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}
