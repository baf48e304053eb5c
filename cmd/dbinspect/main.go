// Package main prints a summary of a BestReads database.
//
// Usage:
//
//	DB_PATH=~/bestreads/db go run ./cmd/dbinspect
package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/bestreads/bestreads-server/internal/domain"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/bestreads/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	err = db.View(func(txn *badger.Txn) error {
		if err := inspectUsers(txn); err != nil {
			return err
		}
		if err := inspectBooks(txn); err != nil {
			return err
		}
		return inspectActivities(txn)
	})
	if err != nil {
		log.Fatalf("Failed to read database: %v", err)
	}
}

// eachDocument decodes every document under prefix, skipping secondary index keys.
func eachDocument[T any](txn *badger.Txn, prefix string, fn func(*T)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		key := string(it.Item().Key())
		if strings.HasPrefix(key[len(prefix):], "idx:") {
			continue
		}

		var doc T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		}); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		fn(&doc)
	}
	return nil
}

func inspectUsers(txn *badger.Txn) error {
	fmt.Println("--- Users ---")
	count := 0
	err := eachDocument(txn, "user:", func(u *domain.User) {
		count++
		fmt.Printf("%s  @%s  followers=%d following=%d progress=%d\n",
			u.ID, u.Username, len(u.Followers), len(u.Following), len(u.ReadingProgress))
		for _, sh := range u.Bookshelves {
			fmt.Printf("    [%s] %d books\n", sh.Name, len(sh.Books))
		}
	})
	fmt.Printf("Total users: %d\n\n", count)
	return err
}

func inspectBooks(txn *badger.Txn) error {
	fmt.Println("--- Books ---")
	count, reviews := 0, 0
	err := eachDocument(txn, "book:", func(b *domain.Book) {
		count++
		reviews += len(b.Reviews)
		fmt.Printf("%s  %q by %s  pages=%d rating=%.2f (%d)\n",
			b.ID, b.Title, b.Author, b.NumberOfPages, b.AverageRating, b.RatingsCount)
	})
	fmt.Printf("Total books: %d, reviews: %d\n\n", count, reviews)
	return err
}

func inspectActivities(txn *badger.Txn) error {
	fmt.Println("--- Activities ---")
	byType := make(map[domain.ActivityType]int)
	likes, comments := 0, 0
	err := eachDocument(txn, "activity:", func(a *domain.Activity) {
		byType[a.Type]++
		likes += len(a.Likes)
		comments += len(a.Comments)
	})
	for t, n := range byType {
		fmt.Printf("%-20s %d\n", t, n)
	}
	fmt.Printf("Likes: %d, comments: %d\n", likes, comments)
	return err
}
