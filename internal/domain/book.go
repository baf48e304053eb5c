package domain

import (
	"math"
	"slices"
	"time"
)

// Rating bounds for reviews.
const (
	MinRating = 1
	MaxRating = 5
)

// Book is a catalog entry. Reviews are embedded and AverageRating is derived
// from them.
type Book struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	ISBN          string    `json:"isbn,omitempty"`
	CoverImage    string    `json:"cover_image,omitempty"`
	Description   string    `json:"description,omitempty"`
	Genres        []string  `json:"genres,omitempty"`
	NumberOfPages int       `json:"number_of_pages"`
	AverageRating float64   `json:"average_rating"`
	RatingsCount  int       `json:"ratings_count"`
	Reviews       []Review  `json:"reviews"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Review is one user's rating of a book.
type Review struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Rating     int       `json:"rating"`
	ReviewText string    `json:"review_text,omitempty"`
	IsPublic   bool      `json:"is_public"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ValidRating reports whether r is within [MinRating, MaxRating].
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// ReviewByID returns a pointer into Reviews, or nil.
func (b *Book) ReviewByID(reviewID string) *Review {
	for i := range b.Reviews {
		if b.Reviews[i].ID == reviewID {
			return &b.Reviews[i]
		}
	}
	return nil
}

// ReviewByUser returns the user's review, or nil.
func (b *Book) ReviewByUser(userID string) *Review {
	for i := range b.Reviews {
		if b.Reviews[i].UserID == userID {
			return &b.Reviews[i]
		}
	}
	return nil
}

// AddReview appends r and refreshes the aggregate.
func (b *Book) AddReview(r Review) {
	b.Reviews = append(b.Reviews, r)
	b.RecomputeRating()
}

// RemoveReview deletes a review and refreshes the aggregate.
func (b *Book) RemoveReview(reviewID string) bool {
	idx := slices.IndexFunc(b.Reviews, func(r Review) bool { return r.ID == reviewID })
	if idx < 0 {
		return false
	}
	b.Reviews = slices.Delete(b.Reviews, idx, idx+1)
	b.RecomputeRating()
	return true
}

// RecomputeRating refreshes AverageRating (two decimals) and RatingsCount.
func (b *Book) RecomputeRating() {
	b.RatingsCount = len(b.Reviews)
	if b.RatingsCount == 0 {
		b.AverageRating = 0
		return
	}
	sum := 0
	for _, r := range b.Reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(b.RatingsCount)
	b.AverageRating = math.Round(avg*100) / 100
}
