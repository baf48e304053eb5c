package store

import (
	"errors"
	"fmt"
)

// Sentinel errors. Entity-specific errors wrap the generic ones so callers can
// match either.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrBookNotFound     = fmt.Errorf("book %w", ErrNotFound)
	ErrActivityNotFound = fmt.Errorf("activity %w", ErrNotFound)

	ErrEmailExists    = fmt.Errorf("email %w", ErrAlreadyExists)
	ErrUsernameExists = fmt.Errorf("username %w", ErrAlreadyExists)
	ErrISBNExists     = fmt.Errorf("isbn %w", ErrAlreadyExists)
)
