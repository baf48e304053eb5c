package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bestreads/bestreads-server/internal/domain"
)

func (s *Server) registerShelfRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listShelves",
		Method:      http.MethodGet,
		Path:        "/api/v1/shelves",
		Summary:     "List shelves",
		Description: "Returns all of the authenticated user's bookshelves",
		Tags:        []string{"Shelves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListShelves)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createShelf",
		Method:        http.MethodPost,
		Path:          "/api/v1/shelves",
		Summary:       "Create shelf",
		Description:   "Creates an empty shelf. Names are unique per user.",
		Tags:          []string{"Shelves"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "getShelf",
		Method:      http.MethodGet,
		Path:        "/api/v1/shelves/{id}",
		Summary:     "Get shelf",
		Tags:        []string{"Shelves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "renameShelf",
		Method:      http.MethodPatch,
		Path:        "/api/v1/shelves/{id}",
		Summary:     "Rename shelf",
		Tags:        []string{"Shelves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRenameShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteShelf",
		Method:      http.MethodDelete,
		Path:        "/api/v1/shelves/{id}",
		Summary:     "Delete shelf",
		Tags:        []string{"Shelves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "addBookToShelf",
		Method:      http.MethodPost,
		Path:        "/api/v1/shelves/{id}/books",
		Summary:     "Add book to shelf",
		Description: "Adds a book and posts an activity. Adding to Currently Reading also starts progress tracking.",
		Tags:        []string{"Shelves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAddBookToShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeBookFromShelf",
		Method:      http.MethodDelete,
		Path:        "/api/v1/shelves/{id}/books/{bookId}",
		Summary:     "Remove book from shelf",
		Tags:        []string{"Shelves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRemoveBookFromShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "moveBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/shelves/{id}/books/{bookId}/move",
		Summary:     "Move book between shelves",
		Description: "Moves a book atomically and updates the latest shelf activity for it in place",
		Tags:        []string{"Shelves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMoveBook)
}

// === DTOs ===

// ShelfIDInput selects one of the caller's shelves.
type ShelfIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Shelf ID"`
}

// ShelfBookInput selects a book on one of the caller's shelves.
type ShelfBookInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Shelf ID"`
	BookID        string `path:"bookId" doc:"Book ID"`
}

// ShelfNameRequest names a shelf.
type ShelfNameRequest struct {
	Name string `json:"name" doc:"Shelf name"`
}

// CreateShelfInput wraps the create shelf request for Huma.
type CreateShelfInput struct {
	Authorization string `header:"Authorization"`
	Body          ShelfNameRequest
}

// RenameShelfInput wraps the rename shelf request for Huma.
type RenameShelfInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Shelf ID"`
	Body          ShelfNameRequest
}

// AddBookRequest is the request body for adding a book to a shelf.
type AddBookRequest struct {
	BookID string `json:"book_id" doc:"Book ID"`
}

// AddBookInput wraps the add book request for Huma.
type AddBookInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Shelf ID"`
	Body          AddBookRequest
}

// MoveBookRequest is the request body for moving a book.
type MoveBookRequest struct {
	TargetShelfID string `json:"target_shelf_id" doc:"Destination shelf ID"`
}

// MoveBookInput wraps the move request for Huma.
type MoveBookInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Source shelf ID"`
	BookID        string `path:"bookId" doc:"Book ID"`
	Body          MoveBookRequest
}

// ShelfOutput wraps a shelf for Huma.
type ShelfOutput struct {
	Body *domain.Bookshelf
}

// ShelfListResponse lists shelves.
type ShelfListResponse struct {
	Shelves []domain.Bookshelf `json:"shelves" doc:"Bookshelves in display order"`
}

// ShelfListOutput wraps a shelf list for Huma.
type ShelfListOutput struct {
	Body ShelfListResponse
}

// === Handlers ===

func (s *Server) handleListShelves(ctx context.Context, _ *AuthenticatedInput) (*ShelfListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	shelves, err := s.services.Shelf.GetAllBookshelves(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ShelfListOutput{Body: ShelfListResponse{Shelves: shelves}}, nil
}

func (s *Server) handleCreateShelf(ctx context.Context, input *CreateShelfInput) (*ShelfOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	shelf, err := s.services.Shelf.CreateShelf(ctx, userID, input.Body.Name)
	if err != nil {
		return nil, err
	}
	return &ShelfOutput{Body: shelf}, nil
}

func (s *Server) handleGetShelf(ctx context.Context, input *ShelfIDInput) (*ShelfOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	shelf, err := s.services.Shelf.GetBookshelf(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &ShelfOutput{Body: shelf}, nil
}

func (s *Server) handleRenameShelf(ctx context.Context, input *RenameShelfInput) (*ShelfOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	shelf, err := s.services.Shelf.RenameShelf(ctx, userID, input.ID, input.Body.Name)
	if err != nil {
		return nil, err
	}
	return &ShelfOutput{Body: shelf}, nil
}

func (s *Server) handleDeleteShelf(ctx context.Context, input *ShelfIDInput) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Shelf.DeleteShelf(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Shelf deleted"}}, nil
}

func (s *Server) handleAddBookToShelf(ctx context.Context, input *AddBookInput) (*ShelfOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	shelf, err := s.services.Shelf.AddBook(ctx, userID, input.ID, input.Body.BookID)
	if err != nil {
		return nil, err
	}
	return &ShelfOutput{Body: shelf}, nil
}

func (s *Server) handleRemoveBookFromShelf(ctx context.Context, input *ShelfBookInput) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Shelf.RemoveBook(ctx, userID, input.ID, input.BookID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Book removed from shelf"}}, nil
}

func (s *Server) handleMoveBook(ctx context.Context, input *MoveBookInput) (*ShelfOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	shelf, err := s.services.Shelf.MoveBook(ctx, userID, input.ID, input.BookID, input.Body.TargetShelfID)
	if err != nil {
		return nil, err
	}
	return &ShelfOutput{Body: shelf}, nil
}
