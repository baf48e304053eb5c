package domain

import (
	"slices"
	"time"
	"unicode/utf8"
)

// Well-known shelf names. Matching is exact and case-sensitive.
const (
	ShelfToRead           = "To Read"
	ShelfCurrentlyReading = "Currently Reading"
	ShelfRead             = "Read"
)

// MaxShelfNameLength is the longest shelf name accepted, in characters.
const MaxShelfNameLength = 50

// ValidShelfName reports whether an already normalized name is non-empty and
// within MaxShelfNameLength characters.
func ValidShelfName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n > 0 && n <= MaxShelfNameLength
}

// DefaultShelfNames are created for every new account.
var DefaultShelfNames = []string{ShelfToRead, ShelfCurrentlyReading, ShelfRead}

// Bookshelf is a named, ordered list of book references owned by one user.
type Bookshelf struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Books []ShelfBook `json:"books"`
}

// ShelfBook is one entry on a shelf.
type ShelfBook struct {
	BookID  string    `json:"book_id"`
	AddedAt time.Time `json:"added_at"`
}

// ContainsBook checks if a book is on this shelf.
func (s *Bookshelf) ContainsBook(bookID string) bool {
	return slices.ContainsFunc(s.Books, func(b ShelfBook) bool { return b.BookID == bookID })
}

// AddBook appends a book. Returns false without change if it is already present,
// so a book never appears twice on one shelf.
func (s *Bookshelf) AddBook(bookID string, at time.Time) bool {
	if s.ContainsBook(bookID) {
		return false
	}
	s.Books = append(s.Books, ShelfBook{BookID: bookID, AddedAt: at})
	return true
}

// RemoveBook removes a book. Returns false if it was not present.
func (s *Bookshelf) RemoveBook(bookID string) bool {
	idx := slices.IndexFunc(s.Books, func(b ShelfBook) bool { return b.BookID == bookID })
	if idx < 0 {
		return false
	}
	s.Books = slices.Delete(s.Books, idx, idx+1)
	return true
}

// BookIDs returns the shelf's book ids in order.
func (s *Bookshelf) BookIDs() []string {
	ids := make([]string, len(s.Books))
	for i, b := range s.Books {
		ids[i] = b.BookID
	}
	return ids
}

// IsCurrentlyReading reports whether this is the reserved "Currently Reading" shelf.
func (s *Bookshelf) IsCurrentlyReading() bool {
	return s.Name == ShelfCurrentlyReading
}
