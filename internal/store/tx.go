package store

import (
	"github.com/dgraph-io/badger/v4"
)

// Tx is a store transaction handed to Update and View callbacks. Its typed
// helpers read and write documents; within Update, every read participates in
// conflict detection at commit.
type Tx struct {
	txn   *badger.Txn
	store *Store
}
