// Package main provides a tool to seed the database with demo readers, books
// and activity.
//
// It drives the same services the API uses, so every shelf move, finished
// book and review produces the activities a real client would see.
//
// Usage:
//
//	DATA_PATH=~/bestreads go run ./cmd/seed
//	DATA_PATH=~/bestreads go run ./cmd/seed --password=secret123
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/bestreads/bestreads-server/internal/auth"
	"github.com/bestreads/bestreads-server/internal/domain"
	domainerrors "github.com/bestreads/bestreads-server/internal/errors"
	"github.com/bestreads/bestreads-server/internal/logger"
	"github.com/bestreads/bestreads-server/internal/search"
	"github.com/bestreads/bestreads-server/internal/service"
	"github.com/bestreads/bestreads-server/internal/store"
)

var (
	password = flag.String("password", "bestreads-demo", "Password for every seeded account")
	seed     = flag.Uint64("seed", 1, "Random seed for reading choices")
)

var readers = []service.RegisterRequest{
	{Email: "ada@example.com", Username: "ada", DisplayName: "Ada"},
	{Email: "grace@example.com", Username: "grace", DisplayName: "Grace"},
	{Email: "linus@example.com", Username: "linus", DisplayName: "Linus"},
	{Email: "margaret@example.com", Username: "margaret", DisplayName: "Margaret"},
}

var books = []service.CreateBookRequest{
	{Title: "Dune", Author: "Frank Herbert", ISBN: "978-0-441-17271-9", Genres: []string{"Science Fiction"}, NumberOfPages: 412},
	{Title: "The Left Hand of Darkness", Author: "Ursula K. Le Guin", Genres: []string{"Science Fiction"}, NumberOfPages: 304},
	{Title: "Middlemarch", Author: "George Eliot", Genres: []string{"Classics"}, NumberOfPages: 880},
	{Title: "The Name of the Rose", Author: "Umberto Eco", Genres: []string{"Mystery", "Historical"}, NumberOfPages: 536},
	{Title: "Piranesi", Author: "Susanna Clarke", Genres: []string{"Fantasy"}, NumberOfPages: 272},
	{Title: "The Remains of the Day", Author: "Kazuo Ishiguro", Genres: []string{"Literary Fiction"}, NumberOfPages: 258},
}

type services struct {
	auth     *service.AuthService
	shelves  *service.ShelfService
	progress *service.ProgressService
	social   *service.SocialService
	books    *service.BookService
	reviews  *service.ReviewService
}

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/bestreads")
	}
	fmt.Printf("Seeding data under: %s\n", dataPath)

	quiet := logger.Discard()

	s, err := store.New(filepath.Join(dataPath, "db"), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	index, _, err := search.NewSearchIndex(search.Options{DataPath: filepath.Join(dataPath, "search")})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open search index: %v\n", err)
		return
	}
	defer index.Close()

	key, err := auth.LoadOrGenerateKey(filepath.Join(dataPath, "auth.key"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load token key: %v\n", err)
		return
	}
	tokens, err := auth.NewTokenService(key, time.Hour)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create token service: %v\n", err)
		return
	}

	searchService := service.NewSearchService(index, s, quiet)
	activities := service.NewActivityService(s, nil, nil, service.FeedLimits{}, quiet)
	svc := &services{
		auth:     service.NewAuthService(s, tokens, quiet),
		shelves:  service.NewShelfService(s, activities, quiet),
		progress: service.NewProgressService(s, activities, nil, quiet),
		social:   service.NewSocialService(s, quiet),
		books:    service.NewBookService(s, searchService, quiet),
		reviews:  service.NewReviewService(s, activities, searchService, quiet),
	}

	ctx := context.Background()
	rng := rand.New(rand.NewPCG(*seed, *seed))

	users := seedUsers(ctx, svc, s)
	catalog := seedBooks(ctx, svc, s)
	if len(users) == 0 || len(catalog) == 0 {
		fmt.Fprintln(os.Stderr, "Nothing to seed")
		return
	}

	seedFollows(ctx, svc, users)
	for _, u := range users {
		seedReading(ctx, svc, rng, u, catalog)
	}

	count, err := s.CountActivities(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to count activities: %v\n", err)
		return
	}
	fmt.Printf("\nDone: %d readers, %d books, %d activities\n", len(users), len(catalog), count)
}

// seedUsers registers the demo readers, reusing accounts from earlier runs.
func seedUsers(ctx context.Context, svc *services, s *store.Store) []*domain.User {
	users := make([]*domain.User, 0, len(readers))
	for _, req := range readers {
		req.Password = *password
		resp, err := svc.auth.Register(ctx, req)
		switch {
		case err == nil:
			fmt.Printf("Created reader %s (%s)\n", resp.User.Username, resp.User.ID)
			users = append(users, resp.User)
		case domainerrors.CodeOf(err) == domainerrors.CodeAlreadyExists:
			u, err := s.GetUserByUsername(ctx, req.Username)
			if err != nil {
				log.Printf("Failed to load existing reader %s: %v", req.Username, err)
				continue
			}
			fmt.Printf("Reader %s already exists\n", u.Username)
			users = append(users, u)
		default:
			log.Printf("Failed to register %s: %v", req.Username, err)
		}
	}
	return users
}

// seedBooks adds the demo catalog. Books with an ISBN are looked up on rerun.
func seedBooks(ctx context.Context, svc *services, s *store.Store) []*domain.Book {
	catalog := make([]*domain.Book, 0, len(books))
	for _, req := range books {
		b, err := svc.books.CreateBook(ctx, req)
		if err == nil {
			fmt.Printf("Added book %q (%s)\n", b.Title, b.ID)
			catalog = append(catalog, b)
			continue
		}
		if domainerrors.CodeOf(err) == domainerrors.CodeAlreadyExists && req.ISBN != "" {
			if existing, err := s.GetBookByISBN(ctx, req.ISBN); err == nil {
				catalog = append(catalog, existing)
				continue
			}
		}
		log.Printf("Failed to add %q: %v", req.Title, err)
	}
	return catalog
}

// seedFollows makes everyone follow the next reader in the list.
func seedFollows(ctx context.Context, svc *services, users []*domain.User) {
	for i, u := range users {
		target := users[(i+1)%len(users)]
		if target.ID == u.ID {
			continue
		}
		if err := svc.social.Follow(ctx, u.ID, target.ID); err != nil {
			log.Printf("Failed to follow %s -> %s: %v", u.Username, target.Username, err)
		}
	}
}

// seedReading walks one reader through the lifecycle of a few books: queued,
// started, read to the end and reviewed.
func seedReading(ctx context.Context, svc *services, rng *rand.Rand, u *domain.User, catalog []*domain.Book) {
	fmt.Printf("\nSeeding shelves for %s\n", u.Username)

	shelves, err := svc.shelves.GetAllBookshelves(ctx, u.ID)
	if err != nil {
		log.Printf("Failed to load shelves for %s: %v", u.Username, err)
		return
	}
	byName := make(map[string]domain.Bookshelf, len(shelves))
	for _, sh := range shelves {
		byName[sh.Name] = sh
	}
	toRead, reading := byName[domain.ShelfToRead], byName[domain.ShelfCurrentlyReading]

	picks := rng.Perm(len(catalog))[:min(3, len(catalog))]
	for n, idx := range picks {
		book := catalog[idx]

		if _, err := svc.shelves.AddBook(ctx, u.ID, toRead.ID, book.ID); err != nil {
			if domainerrors.CodeOf(err) != domainerrors.CodeAlreadyExists {
				log.Printf("  add %q: %v", book.Title, err)
			}
			continue
		}
		fmt.Printf("  queued %q\n", book.Title)
		if n == 0 {
			continue
		}

		if _, err := svc.shelves.MoveBook(ctx, u.ID, toRead.ID, book.ID, reading.ID); err != nil {
			log.Printf("  start %q: %v", book.Title, err)
			continue
		}
		p := progressFor(ctx, svc, u.ID, book.ID)
		if p == nil {
			continue
		}

		page := book.NumberOfPages / 2
		if n == 2 {
			page = book.NumberOfPages
		}
		if _, err := svc.progress.UpdateProgress(ctx, u.ID, p.ID, page); err != nil {
			log.Printf("  progress %q: %v", book.Title, err)
			continue
		}
		fmt.Printf("  read %q to page %d of %d\n", book.Title, page, book.NumberOfPages)

		if page == book.NumberOfPages {
			_, err := svc.reviews.PostReview(ctx, u.ID, book.ID, service.PostReviewRequest{
				Rating:     3 + rng.IntN(3),
				ReviewText: "Finished it in a week.",
				IsPublic:   true,
			})
			if err != nil {
				log.Printf("  review %q: %v", book.Title, err)
			}
		}
	}
}

func progressFor(ctx context.Context, svc *services, userID, bookID string) *domain.Progress {
	entries, err := svc.progress.ListProgress(ctx, userID)
	if err != nil {
		log.Printf("  list progress: %v", err)
		return nil
	}
	for i := range entries {
		if entries[i].BookID == bookID {
			return &entries[i]
		}
	}
	return nil
}
