package ids

import (
	"bytes"
	"testing"
	"time"
)

func TestNewIsMonotonic(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		if next <= prev {
			t.Fatalf("id %s not after %s", next, prev)
		}
		prev = next
	}
	if len(prev) != 26 {
		t.Fatalf("len = %d, want 26", len(prev))
	}
}

func TestAtRoundTripsTime(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 123_456_789, time.UTC)
	id := At(at)
	got, err := Time(id)
	if err != nil {
		t.Fatalf("Time(%q): %v", id, err)
	}
	if want := at.Truncate(time.Millisecond); !got.Equal(want) {
		t.Fatalf("Time = %v, want %v", got, want)
	}
}

func TestAtSortsByTime(t *testing.T) {
	g := NewGenerator(bytes.NewReader(bytes.Repeat([]byte{0xff}, 64)))
	early := g.At(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	late := g.At(time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC))
	if late <= early {
		t.Fatalf("id %s not after %s", late, early)
	}
}

func TestTimeRejectsMalformedIDs(t *testing.T) {
	for _, id := range []string{"", "not-a-ulid", "01ARZ3NDEKTSV4RRFFQ69G5FA"} {
		if _, err := Time(id); err == nil {
			t.Fatalf("Time(%q) succeeded, want error", id)
		}
	}
}
