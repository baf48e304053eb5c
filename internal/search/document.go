// Package search provides full-text book search using Bleve.
package search

import (
	"strings"

	"github.com/bestreads/bestreads-server/internal/domain"
	"github.com/bestreads/bestreads-server/internal/normalize"
)

// BookDocument is the indexed projection of a domain.Book.
type BookDocument struct {
	ID            string
	Title         string
	Author        string
	ISBN          string
	Description   string
	Genres        []string
	Pages         int
	AverageRating float64
	RatingsCount  int
	CreatedAt     int64 // Unix millis
}

// NewBookDocument projects b for indexing.
func NewBookDocument(b *domain.Book) *BookDocument {
	genres := make([]string, 0, len(b.Genres))
	for _, g := range b.Genres {
		if g = strings.ToLower(strings.TrimSpace(g)); g != "" {
			genres = append(genres, g)
		}
	}

	return &BookDocument{
		ID:            b.ID,
		Title:         b.Title,
		Author:        b.Author,
		ISBN:          b.ISBN,
		Description:   b.Description,
		Genres:        genres,
		Pages:         b.NumberOfPages,
		AverageRating: b.AverageRating,
		RatingsCount:  b.RatingsCount,
		CreatedAt:     b.CreatedAt.UnixMilli(),
	}
}

// ToMap converts the document to the field names used by the mapping.
// Bleve would otherwise index the capitalized Go field names.
func (d *BookDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":             d.ID,
		"title":          d.Title,
		"title_folded":   normalize.Fold(d.Title),
		"author":         d.Author,
		"author_folded":  normalize.Fold(d.Author),
		"pages":          d.Pages,
		"average_rating": d.AverageRating,
		"ratings_count":  d.RatingsCount,
		"created_at":     d.CreatedAt,
	}
	if d.ISBN != "" {
		m["isbn"] = strings.ReplaceAll(d.ISBN, "-", "")
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if len(d.Genres) > 0 {
		m["genres"] = d.Genres
	}
	return m
}
