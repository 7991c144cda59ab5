// Package ids issues the ULIDs carried by sessions and journal rows. The
// timestamp half of an id is the moment it was issued for, so ids sort by
// creation even when issued from a fake clock.
package ids

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator issues ids from one monotonic entropy source. It is safe for
// concurrent use.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewGenerator draws entropy from src, or from crypto/rand when src is nil.
func NewGenerator(src io.Reader) *Generator {
	if src == nil {
		src = rand.Reader
	}
	return &Generator{entropy: ulid.Monotonic(src, 0)}
}

// At returns an id stamped with t. Ids issued within one millisecond keep
// increasing.
func (g *Generator) At(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}

var std = NewGenerator(nil)

func New() string { return std.At(time.Now()) }

func At(t time.Time) string { return std.At(t) }

// Time returns the issue time encoded in id, truncated to the millisecond.
func Time(id string) (time.Time, error) {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse id %q: %w", id, err)
	}
	return ulid.Time(u.Time()).UTC(), nil
}
