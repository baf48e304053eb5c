package genre

// aliases maps common spellings to canonical slugs. A combined label may
// expand to more than one genre.
var aliases = map[string][]string{
	"sci-fi":                  {"science-fiction"},
	"scifi":                   {"science-fiction"},
	"sf":                      {"science-fiction"},
	"science-fiction-fantasy": {"science-fiction", "fantasy"},
	"sci-fi-fantasy":          {"science-fiction", "fantasy"},

	"literature-fiction": {"fiction"},
	"literary-fiction":   {"fiction"},
	"general-fiction":    {"fiction"},

	"ya":                {"young-adult"},
	"teen":              {"young-adult"},
	"teens-young-adult": {"young-adult"},

	"mystery-thriller":          {"mystery", "thriller"},
	"mystery-thriller-suspense": {"mystery", "thriller"},
	"suspense":                  {"thriller"},
	"crime-fiction":             {"crime"},

	"selfhelp":             {"self-help"},
	"personal-development": {"self-help"},

	"biographies-memoirs": {"biography", "memoir"},
	"biography-memoir":    {"biography", "memoir"},
	"autobiography":       {"biography"},

	"romantic-fantasy": {"romantasy"},
	"fantasy-romance":  {"fantasy", "romance"},
	"pnr":              {"paranormal-romance"},

	"historical":    {"historical-fiction"},
	"scary":         {"horror"},
	"non-fiction":   {"nonfiction"},
	"comics":        {"graphic-novels"},
	"graphic-novel": {"graphic-novels"},
}

// Canonical returns the canonical slugs for one raw label. Unknown labels
// map to their own slug; blank labels map to nothing.
func Canonical(raw string) []string {
	slug := Slugify(raw)
	if slug == "" {
		return nil
	}
	if canonical, ok := aliases[slug]; ok {
		return canonical
	}
	return []string{slug}
}

// Normalize canonicalizes labels, dropping blanks and duplicates while
// keeping first-seen order. It returns nil for an empty result.
func Normalize(labels []string) []string {
	var (
		out  []string
		seen = make(map[string]struct{}, len(labels))
	)
	for _, raw := range labels {
		for _, slug := range Canonical(raw) {
			if _, dup := seen[slug]; dup {
				continue
			}
			seen[slug] = struct{}{}
			out = append(out, slug)
		}
	}
	return out
}
