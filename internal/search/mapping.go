package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the mapping for book documents.
//
// Title and author use English stemming. title_folded holds the
// diacritic-stripped title under the simple analyzer so that "bronte" finds
// "Brontë" by prefix. ISBN and genres are exact keywords.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	doc := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = en.AnalyzerName
	title.Store = true
	title.IncludeTermVectors = true // For highlighting
	doc.AddFieldMappingsAt("title", title)

	folded := bleve.NewTextFieldMapping()
	folded.Analyzer = simple.Name
	folded.Store = false
	doc.AddFieldMappingsAt("title_folded", folded)

	author := bleve.NewTextFieldMapping()
	author.Analyzer = en.AnalyzerName
	author.Store = true
	author.IncludeTermVectors = true
	doc.AddFieldMappingsAt("author", author)

	authorFolded := bleve.NewTextFieldMapping()
	authorFolded.Analyzer = simple.Name
	authorFolded.Store = false
	doc.AddFieldMappingsAt("author_folded", authorFolded)

	// Searchable but not stored (too large).
	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = en.AnalyzerName
	desc.Store = false
	doc.AddFieldMappingsAt("description", desc)

	for _, name := range []string{"id", "isbn"} {
		kw := bleve.NewTextFieldMapping()
		kw.Analyzer = keyword.Name
		kw.Store = true
		doc.AddFieldMappingsAt(name, kw)
	}

	genres := bleve.NewTextFieldMapping()
	genres.Analyzer = keyword.Name
	genres.Store = true
	genres.IncludeTermVectors = true // For faceting
	doc.AddFieldMappingsAt("genres", genres)

	for _, name := range []string{"pages", "average_rating", "ratings_count", "created_at"} {
		num := bleve.NewNumericFieldMapping()
		num.Store = true
		doc.AddFieldMappingsAt(name, num)
	}

	indexMapping.AddDocumentMapping("_default", doc)
	return indexMapping
}
