package store

// Pagination defaults.
const (
	DefaultLimit = 20
	MaxLimit     = 100
	MaxSkip      = 10000
)

// PaginationParams contains offset pagination parameters.
type PaginationParams struct {
	Skip  int // Items to skip from the start, capped at MaxSkip
	Limit int // Page size (defaults to DefaultLimit, capped at MaxLimit)
}

// PaginatedResult contains one page of items and paging metadata.
type PaginatedResult[T any] struct {
	Items   []T  `json:"items"`
	Skip    int  `json:"skip"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// Validate clamps the parameters into range.
func (p *PaginationParams) Validate() {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Skip > MaxSkip {
		p.Skip = MaxSkip
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}

// paginate slices items according to already-validated params.
func paginate[T any](items []T, params PaginationParams) *PaginatedResult[T] {
	total := len(items)
	start := min(params.Skip, total)
	end := min(start+params.Limit, total)

	page := make([]T, end-start)
	copy(page, items[start:end])

	return &PaginatedResult[T]{
		Items:   page,
		Skip:    params.Skip,
		Limit:   params.Limit,
		Total:   total,
		HasMore: end < total,
	}
}
