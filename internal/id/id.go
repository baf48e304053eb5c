// Package id generates prefixed NanoID identifiers for BestReads entities.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Entity prefixes.
const (
	PrefixUser     = "user"
	PrefixBook     = "book"
	PrefixShelf    = "shelf"
	PrefixProgress = "prog"
	PrefixActivity = "act"
	PrefixComment  = "cmt"
	PrefixReview   = "rev"
	PrefixToken    = "token"
	PrefixClient   = "sse"
)

// Generate creates a prefixed unique ID, e.g. "shelf-V1StGXR8_Z5jdHi6B-myT".
// Returns an error if the system has insufficient entropy.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
