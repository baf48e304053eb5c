package domain

import (
	"errors"
	"slices"
	"time"
)

// ActivityType discriminates the activity payload.
type ActivityType string

const (
	// ActivityAddedBookToShelf is recorded when a book is added to or moved between shelves.
	ActivityAddedBookToShelf ActivityType = "added_book_to_shelf"
	// ActivityRatedBook is recorded when a public review is posted or edited.
	ActivityRatedBook ActivityType = "rated_book"
)

// MaxCommentLength is the longest comment accepted, in characters.
const MaxCommentLength = 1000

// Payload errors.
var (
	ErrPayloadMissing  = errors.New("activity payload missing for type")
	ErrPayloadMismatch = errors.New("activity payload does not match type")
	ErrUnknownActivity = errors.New("unknown activity type")
)

// ShelfTransitionPayload narrates a book landing on a shelf.
// SourceShelfName is empty for a plain add.
type ShelfTransitionPayload struct {
	BookTitle       string `json:"book_title"`
	CoverImage      string `json:"cover_image,omitempty"`
	SourceShelfName string `json:"source_shelf_name,omitempty"`
	TargetShelfName string `json:"target_shelf_name"`
	IsUpdate        bool   `json:"is_update"`
}

// RatingPayload narrates a review.
type RatingPayload struct {
	BookTitle  string `json:"book_title"`
	CoverImage string `json:"cover_image,omitempty"`
	Rating     int    `json:"rating"`
	ReviewText string `json:"review_text,omitempty"`
	IsUpdate   bool   `json:"is_update"`
}

// ActivityPayload is a tagged union selected by Activity.Type.
// Exactly one field is set.
type ActivityPayload struct {
	ShelfTransition *ShelfTransitionPayload `json:"shelf_transition,omitempty"`
	Rating          *RatingPayload          `json:"rating,omitempty"`
}

// ShelfTransition wraps p as a payload.
func ShelfTransition(p ShelfTransitionPayload) ActivityPayload {
	return ActivityPayload{ShelfTransition: &p}
}

// Rating wraps p as a payload.
func Rating(p RatingPayload) ActivityPayload {
	return ActivityPayload{Rating: &p}
}

// Validate checks the payload variant against the discriminator.
func (p ActivityPayload) Validate(t ActivityType) error {
	switch t {
	case ActivityAddedBookToShelf:
		if p.ShelfTransition == nil {
			return ErrPayloadMissing
		}
		if p.Rating != nil {
			return ErrPayloadMismatch
		}
	case ActivityRatedBook:
		if p.Rating == nil {
			return ErrPayloadMissing
		}
		if p.ShelfTransition != nil {
			return ErrPayloadMismatch
		}
	default:
		return ErrUnknownActivity
	}
	return nil
}

// IsUpdate reports whether the wrapped action is an edit of an earlier one.
func (p ActivityPayload) IsUpdate() bool {
	switch {
	case p.ShelfTransition != nil:
		return p.ShelfTransition.IsUpdate
	case p.Rating != nil:
		return p.Rating.IsUpdate
	default:
		return false
	}
}

// Activity is a feed entry. It is immutable except for in-place payload edits,
// likes and comments.
type Activity struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Type      ActivityType    `json:"type"`
	BookID    string          `json:"book_id,omitempty"`
	Payload   ActivityPayload `json:"payload"`
	Likes     []string        `json:"likes"`
	Comments  []Comment       `json:"comments"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Comment is an append-only remark on an activity.
type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Like adds userID to the like set. Returns false if already liked.
func (a *Activity) Like(userID string) bool {
	return addToSet(&a.Likes, userID)
}

// Unlike removes userID from the like set. Returns false if not liked.
func (a *Activity) Unlike(userID string) bool {
	return removeFromSet(&a.Likes, userID)
}

// LikedBy reports whether userID has liked the activity.
func (a *Activity) LikedBy(userID string) bool {
	return slices.Contains(a.Likes, userID)
}

// AddComment appends c.
func (a *Activity) AddComment(c Comment) {
	a.Comments = append(a.Comments, c)
}

// ReplacePayload overwrites the payload in place for an edited action.
func (a *Activity) ReplacePayload(p ActivityPayload, at time.Time) {
	a.Payload = p
	a.UpdatedAt = at
}
