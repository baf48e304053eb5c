// Package domain contains the BestReads aggregates and the invariant-preserving
// mutations on them. Services load an aggregate inside a store transaction, call
// these methods, and write the aggregate back.
package domain

import (
	"slices"
	"time"
)

// User is the root aggregate for a reader. Shelves, progress and the follow
// graph are embedded so a single document write keeps them consistent.
type User struct {
	ID              string      `json:"id"`
	Email           string      `json:"email"`
	Username        string      `json:"username"`
	DisplayName     string      `json:"display_name"`
	Bio             string      `json:"bio,omitempty"`
	ProfilePicture  string      `json:"profile_picture,omitempty"`
	PasswordHash    string      `json:"password_hash,omitempty"` // Never returned by the API
	Bookshelves     []Bookshelf `json:"bookshelves"`
	ReadingProgress []Progress  `json:"reading_progress"`
	Followers       []string    `json:"followers"`
	Following       []string    `json:"following"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// ShelfByID returns a pointer into Bookshelves, or nil.
func (u *User) ShelfByID(shelfID string) *Bookshelf {
	for i := range u.Bookshelves {
		if u.Bookshelves[i].ID == shelfID {
			return &u.Bookshelves[i]
		}
	}
	return nil
}

// ShelfByName returns the shelf with exactly this name, or nil.
func (u *User) ShelfByName(name string) *Bookshelf {
	for i := range u.Bookshelves {
		if u.Bookshelves[i].Name == name {
			return &u.Bookshelves[i]
		}
	}
	return nil
}

// ShelfNameTaken reports whether a shelf other than exceptID already uses name.
func (u *User) ShelfNameTaken(name, exceptID string) bool {
	for _, s := range u.Bookshelves {
		if s.Name == name && s.ID != exceptID {
			return true
		}
	}
	return false
}

// AddShelf appends an empty shelf.
func (u *User) AddShelf(shelfID, name string) *Bookshelf {
	u.Bookshelves = append(u.Bookshelves, Bookshelf{
		ID:    shelfID,
		Name:  name,
		Books: []ShelfBook{},
	})
	return &u.Bookshelves[len(u.Bookshelves)-1]
}

// RemoveShelf deletes a shelf and detaches its books. Progress is untouched.
func (u *User) RemoveShelf(shelfID string) bool {
	idx := slices.IndexFunc(u.Bookshelves, func(s Bookshelf) bool { return s.ID == shelfID })
	if idx < 0 {
		return false
	}
	u.Bookshelves = slices.Delete(u.Bookshelves, idx, idx+1)
	return true
}

// ProgressByID returns a pointer into ReadingProgress, or nil.
func (u *User) ProgressByID(progressID string) *Progress {
	for i := range u.ReadingProgress {
		if u.ReadingProgress[i].ID == progressID {
			return &u.ReadingProgress[i]
		}
	}
	return nil
}

// ProgressForBook returns the progress entry for a book, or nil.
func (u *User) ProgressForBook(bookID string) *Progress {
	for i := range u.ReadingProgress {
		if u.ReadingProgress[i].BookID == bookID {
			return &u.ReadingProgress[i]
		}
	}
	return nil
}

// AddProgress appends a progress entry at page zero.
func (u *User) AddProgress(progressID, bookID string, totalPages int, at time.Time) *Progress {
	u.ReadingProgress = append(u.ReadingProgress, Progress{
		ID:          progressID,
		BookID:      bookID,
		CurrentPage: 0,
		TotalPages:  totalPages,
		UpdatedAt:   at,
	})
	return &u.ReadingProgress[len(u.ReadingProgress)-1]
}

// RemoveProgress deletes a progress entry.
func (u *User) RemoveProgress(progressID string) bool {
	idx := slices.IndexFunc(u.ReadingProgress, func(p Progress) bool { return p.ID == progressID })
	if idx < 0 {
		return false
	}
	u.ReadingProgress = slices.Delete(u.ReadingProgress, idx, idx+1)
	return true
}

// IsFollowing reports whether u follows targetID.
func (u *User) IsFollowing(targetID string) bool {
	return slices.Contains(u.Following, targetID)
}

// AddFollowing adds targetID to Following. Returns false if already present.
func (u *User) AddFollowing(targetID string) bool {
	return addToSet(&u.Following, targetID)
}

// RemoveFollowing removes targetID from Following. Returns false if absent.
func (u *User) RemoveFollowing(targetID string) bool {
	return removeFromSet(&u.Following, targetID)
}

// AddFollower adds followerID to Followers. Returns false if already present.
func (u *User) AddFollower(followerID string) bool {
	return addToSet(&u.Followers, followerID)
}

// RemoveFollower removes followerID from Followers. Returns false if absent.
func (u *User) RemoveFollower(followerID string) bool {
	return removeFromSet(&u.Followers, followerID)
}

// FeedAuthors returns the user's own id followed by everyone they follow.
func (u *User) FeedAuthors() []string {
	authors := make([]string, 0, len(u.Following)+1)
	authors = append(authors, u.ID)
	for _, id := range u.Following {
		if id != u.ID {
			authors = append(authors, id)
		}
	}
	return authors
}

// Touch bumps UpdatedAt.
func (u *User) Touch(at time.Time) {
	u.UpdatedAt = at
}

func addToSet(set *[]string, v string) bool {
	if slices.Contains(*set, v) {
		return false
	}
	*set = append(*set, v)
	return true
}

func removeFromSet(set *[]string, v string) bool {
	idx := slices.Index(*set, v)
	if idx < 0 {
		return false
	}
	*set = slices.Delete(*set, idx, idx+1)
	return true
}
