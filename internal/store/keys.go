package store

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/bestreads/bestreads-server/internal/normalize"
)

// Document key prefixes.
const (
	userPrefix     = "user:"
	bookPrefix     = "book:"
	activityPrefix = "activity:"
)

// Activity index prefixes. Keys end in {inverted_ts}:{id} so a forward scan
// yields newest first.
const (
	activityIdxTimePrefix     = "activity:idx:time:"
	activityIdxUserPrefix     = "activity:idx:user:"
	activityIdxUserBookPrefix = "activity:idx:ub:"
)

// keyPool provides reusable byte slices for read-path keys.
var keyPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 128)
	},
}

// buildKey constructs a key from prefix and suffix using a pooled buffer.
// Only use it for Get lookups; keys handed to txn.Set must outlive the commit.
// Callers must call releaseKey when done.
func buildKey(prefix, suffix string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, prefix...)
	buf = append(buf, suffix...)
	return buf
}

// releaseKey returns a key buffer to the pool.
func releaseKey(key []byte) {
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}

// invertedTimestamp returns a fixed-width string that sorts newest first.
func invertedTimestamp(t time.Time) string {
	return fmt.Sprintf("%019d", math.MaxInt64-t.UnixNano())
}

// activityUserKey is activity:idx:user:{userID}:{inverted_ts}:{id}.
func activityUserKey(userID, ts, activityID string) []byte {
	return []byte(activityIdxUserPrefix + userID + ":" + ts + ":" + activityID)
}

// activityTimeKey is activity:idx:time:{inverted_ts}:{id}.
func activityTimeKey(ts, activityID string) []byte {
	return []byte(activityIdxTimePrefix + ts + ":" + activityID)
}

// activityUserBookPrefix is activity:idx:ub:{userID}:{bookID}:{type}: .
func activityUserBookPrefix(userID, bookID, activityType string) string {
	return activityIdxUserBookPrefix + userID + ":" + bookID + ":" + activityType + ":"
}

// splitIndexTail extracts {inverted_ts} and {id} from the tail of an index key.
func splitIndexTail(key, prefix string) (ts, id string, ok bool) {
	if !strings.HasPrefix(key, prefix) {
		return "", "", false
	}
	ts, id, ok = strings.Cut(key[len(prefix):], ":")
	if !ok || len(ts) != 19 || id == "" {
		return "", "", false
	}
	return ts, id, true
}

func normalizeEmail(email string) string {
	return normalize.Email(email)
}

func normalizeUsername(username string) string {
	return normalize.Username(username)
}
