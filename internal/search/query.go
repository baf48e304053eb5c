package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/bestreads/bestreads-server/internal/normalize"
)

// Sort orders accepted by SearchParams.SortBy.
const (
	SortRelevance = "relevance"
	SortTitle     = "title"
	SortRating    = "rating"
	SortRecent    = "recent"
)

// SearchParams configures a book search.
type SearchParams struct {
	Query     string
	Genres    []string // OR across genres
	MinRating float64

	Limit  int
	Offset int

	SortBy        string
	IncludeFacets bool
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:         20,
		SortBy:        SortRelevance,
		IncludeFacets: true,
	}
}

// SearchResult holds one page of hits.
type SearchResult struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []SearchHit  `json:"hits"`
	Genres []FacetCount `json:"genres,omitempty"`
}

// SearchHit is one matching book.
type SearchHit struct {
	ID            string            `json:"id"`
	Score         float64           `json:"score"`
	Title         string            `json:"title"`
	Author        string            `json:"author,omitempty"`
	ISBN          string            `json:"isbn,omitempty"`
	AverageRating float64           `json:"average_rating"`
	Highlights    map[string]string `json:"highlights,omitempty"`
}

// FacetCount is a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search runs params against the index.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultSearchParams().Limit
	}

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	addSorting(req, params.SortBy)

	if params.IncludeFacets {
		req.AddFacet("genres", bleve.NewFacetRequest("genres", 20))
	}
	if params.Query != "" {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("title")
		req.Highlight.AddField("author")
	}
	req.Fields = []string{"id", "title", "author", "isbn", "average_rating"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(res.Hits)),
	}

	for _, hit := range res.Hits {
		h := SearchHit{ID: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields["title"].(string); ok {
			h.Title = v
		}
		if v, ok := hit.Fields["author"].(string); ok {
			h.Author = v
		}
		if v, ok := hit.Fields["isbn"].(string); ok {
			h.ISBN = v
		}
		if v, ok := hit.Fields["average_rating"].(float64); ok {
			h.AverageRating = v
		}
		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string, len(hit.Fragments))
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, h)
	}

	if facet, ok := res.Facets["genres"]; ok && facet.Terms != nil {
		for _, term := range facet.Terms.Terms() {
			result.Genres = append(result.Genres, FacetCount{Value: term.Term, Count: term.Count})
		}
	}
	return result, nil
}

// buildSearchQuery matches the text against title, author and ISBN and then
// ANDs in the filters.
func buildSearchQuery(params SearchParams) query.Query {
	var must []query.Query

	if q := strings.TrimSpace(params.Query); q != "" {
		title := bleve.NewMatchQuery(q)
		title.SetField("title")
		title.SetBoost(3.0)

		author := bleve.NewMatchQuery(q)
		author.SetField("author")
		author.SetBoost(2.0)

		// Typo tolerance on the title.
		fuzzy := bleve.NewMatchQuery(q)
		fuzzy.SetField("title")
		fuzzy.SetFuzziness(1)
		fuzzy.SetBoost(0.8)

		isbn := bleve.NewTermQuery(strings.ReplaceAll(q, "-", ""))
		isbn.SetField("isbn")
		isbn.SetBoost(5.0)

		text := []query.Query{title, author, fuzzy, isbn}

		// Prefix on the folded fields for autocomplete, minimum 2 chars.
		if folded := normalize.Fold(q); len(folded) >= 2 && !strings.Contains(folded, " ") {
			for _, field := range []string{"title_folded", "author_folded"} {
				p := bleve.NewPrefixQuery(folded)
				p.SetField(field)
				p.SetBoost(0.5)
				text = append(text, p)
			}
		}

		must = append(must, bleve.NewDisjunctionQuery(text...))
	}

	if len(params.Genres) > 0 {
		genres := make([]query.Query, 0, len(params.Genres))
		for _, g := range params.Genres {
			tq := bleve.NewTermQuery(strings.ToLower(strings.TrimSpace(g)))
			tq.SetField("genres")
			genres = append(genres, tq)
		}
		must = append(must, bleve.NewDisjunctionQuery(genres...))
	}

	if params.MinRating > 0 {
		lo := params.MinRating
		inclusive := true
		rq := bleve.NewNumericRangeInclusiveQuery(&lo, nil, &inclusive, nil)
		rq.SetField("average_rating")
		must = append(must, rq)
	}

	switch len(must) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return must[0]
	default:
		return bleve.NewConjunctionQuery(must...)
	}
}

func addSorting(req *bleve.SearchRequest, sortBy string) {
	switch sortBy {
	case SortTitle:
		req.SortBy([]string{"title", "id"})
	case SortRating:
		req.SortBy([]string{"-average_rating", "-_score"})
	case SortRecent:
		req.SortBy([]string{"-created_at"})
	default:
		req.SortBy([]string{"-_score"})
	}
}
