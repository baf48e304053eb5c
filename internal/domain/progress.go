package domain

import "time"

// Progress tracks how far a user is through one book.
// Invariant: 0 <= CurrentPage <= TotalPages.
type Progress struct {
	ID          string    `json:"id"`
	BookID      string    `json:"book_id"`
	CurrentPage int       `json:"current_page"`
	TotalPages  int       `json:"total_pages"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidPage reports whether page is within [0, TotalPages].
func (p *Progress) ValidPage(page int) bool {
	return page >= 0 && page <= p.TotalPages
}

// SetPage moves the bookmark. Callers validate with ValidPage first.
func (p *Progress) SetPage(page int, at time.Time) {
	p.CurrentPage = page
	p.UpdatedAt = at
}

// IsComplete reports whether the last page has been reached. A book with
// zero pages is never complete.
func (p *Progress) IsComplete() bool {
	return p.TotalPages > 0 && p.CurrentPage == p.TotalPages
}

// Percent returns completion as 0-100.
func (p *Progress) Percent() float64 {
	if p.TotalPages == 0 {
		return 0
	}
	return float64(p.CurrentPage) / float64(p.TotalPages) * 100
}
