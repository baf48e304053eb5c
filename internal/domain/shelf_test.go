package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookshelf_AddBook_AppendsInOrder(t *testing.T) {
	shelf := &Bookshelf{ID: "shelf-1", Name: ShelfToRead}
	now := time.Now()

	assert.True(t, shelf.AddBook("book-1", now))
	assert.True(t, shelf.AddBook("book-2", now))

	assert.Equal(t, []string{"book-1", "book-2"}, shelf.BookIDs())
}

func TestBookshelf_AddBook_IgnoresDuplicates(t *testing.T) {
	shelf := &Bookshelf{ID: "shelf-1", Name: ShelfToRead}
	now := time.Now()
	shelf.AddBook("book-1", now)

	added := shelf.AddBook("book-1", now.Add(time.Minute))

	assert.False(t, added)
	assert.Len(t, shelf.Books, 1)
	assert.Equal(t, now, shelf.Books[0].AddedAt)
}

func TestBookshelf_RemoveBook(t *testing.T) {
	shelf := &Bookshelf{ID: "shelf-1", Name: ShelfRead}
	now := time.Now()
	shelf.AddBook("book-1", now)
	shelf.AddBook("book-2", now)

	assert.True(t, shelf.RemoveBook("book-1"))
	assert.False(t, shelf.RemoveBook("book-1"))
	assert.Equal(t, []string{"book-2"}, shelf.BookIDs())
}

func TestBookshelf_IsCurrentlyReading_CaseSensitive(t *testing.T) {
	assert.True(t, (&Bookshelf{Name: "Currently Reading"}).IsCurrentlyReading())
	assert.False(t, (&Bookshelf{Name: "currently reading"}).IsCurrentlyReading())
}

func TestUser_ShelfLookups(t *testing.T) {
	u := &User{ID: "user-1"}
	u.AddShelf("shelf-1", ShelfToRead)
	u.AddShelf("shelf-2", ShelfRead)

	assert.Equal(t, "shelf-2", u.ShelfByName(ShelfRead).ID)
	assert.Nil(t, u.ShelfByName("read"))
	assert.Equal(t, ShelfToRead, u.ShelfByID("shelf-1").Name)
	assert.True(t, u.ShelfNameTaken(ShelfRead, "shelf-1"))
	assert.False(t, u.ShelfNameTaken(ShelfRead, "shelf-2"))
}

func TestUser_ShelfByID_ReturnsPointerIntoDocument(t *testing.T) {
	u := &User{ID: "user-1"}
	u.AddShelf("shelf-1", ShelfToRead)

	u.ShelfByID("shelf-1").AddBook("book-1", time.Now())

	assert.True(t, u.Bookshelves[0].ContainsBook("book-1"))
}

func TestUser_RemoveShelf_KeepsProgress(t *testing.T) {
	u := &User{ID: "user-1"}
	u.AddShelf("shelf-1", ShelfCurrentlyReading).AddBook("book-1", time.Now())
	u.AddProgress("prog-1", "book-1", 200, time.Now())

	assert.True(t, u.RemoveShelf("shelf-1"))
	assert.False(t, u.RemoveShelf("shelf-1"))
	assert.Empty(t, u.Bookshelves)
	assert.NotNil(t, u.ProgressForBook("book-1"))
}
