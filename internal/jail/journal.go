package jail

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type EventKind string

const (
	EventImprisoned          EventKind = "imprisoned"
	EventReleased            EventKind = "released"
	EventExpired             EventKind = "expired"
	EventLateRelease         EventKind = "late_release"
	EventLateReleaseComplete EventKind = "late_release_complete"
	EventFacilityRemoved     EventKind = "facility_removed"
)

// Event is one journal entry describing a confinement transition.
type Event struct {
	ID        string    `json:"id,omitempty"`
	Kind      EventKind `json:"kind"`
	UserID    uuid.UUID `json:"user_id"`
	Owner     string    `json:"owner"`
	Facility  string    `json:"facility"`
	SessionID string    `json:"session_id,omitempty"`
	At        time.Time `json:"at"`
	Detail    string    `json:"detail,omitempty"`
}

// Journal receives confinement events. Record is called off the main loop.
type Journal interface {
	Record(ctx context.Context, e Event) error
}

const journalBuffer = 256

// journalWriter feeds events to a Journal from a single goroutine so the main
// loop never waits on storage. Events are dropped when the buffer is full.
type journalWriter struct {
	sink   Journal
	ch     chan Event
	done   chan struct{}
	closed bool
}

func newJournalWriter(sink Journal) *journalWriter {
	if sink == nil {
		return nil
	}
	w := &journalWriter{
		sink: sink,
		ch:   make(chan Event, journalBuffer),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *journalWriter) loop() {
	defer close(w.done)
	for e := range w.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := w.sink.Record(ctx, e); err != nil {
			log.Warn().Err(err).Str("kind", string(e.Kind)).Str("user_id", e.UserID.String()).Msg("journal record failed")
		}
		cancel()
	}
}

func (w *journalWriter) record(e Event) {
	if w == nil || w.closed {
		return
	}
	select {
	case w.ch <- e:
	default:
		metricJournalDroppedTotal.Add(1)
	}
}

// close drains buffered events and stops the worker.
func (w *journalWriter) close() {
	if w == nil || w.closed {
		return
	}
	w.closed = true
	close(w.ch)
	<-w.done
}
