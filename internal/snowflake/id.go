// Package snowflake provides time ordered row identifiers.
package snowflake

import (
	"math/rand"
	"strconv"
	"sync"
	"time"
)

// ID is a 64 bit time ordered identifier.
// The top 48 bits are milliseconds since the epoch, the bottom 16 bits are random.
type ID uint64

var (
	mu   sync.Mutex
	last ID
)

// Now returns a new ID for the current time. IDs returned by Now are
// strictly increasing within a process.
func Now() ID {
	id := TimeToID(time.Now())
	mu.Lock()
	defer mu.Unlock()
	if id <= last {
		id = last + 1
	}
	last = id
	return id
}

// TimeToID converts a time.Time to an ID.
func TimeToID(ts time.Time) ID {
	return ID(uint64(ts.UnixMilli())<<16 | uint64(rand.Intn(1<<16)))
}

// ToTime returns the time component of the ID.
func (id ID) ToTime() time.Time {
	return time.UnixMilli(int64(id >> 16))
}

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
