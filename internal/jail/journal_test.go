package jail

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

type blockingJournal struct {
	release chan struct{}
	got     chan Event
}

func (j *blockingJournal) Record(_ context.Context, e Event) error {
	<-j.release
	j.got <- e
	return nil
}

func TestJournalWriterDropsWhenFull(t *testing.T) {
	sink := &blockingJournal{release: make(chan struct{}), got: make(chan Event, 2*journalBuffer)}
	w := newJournalWriter(sink)
	before := metricJournalDroppedTotal.Value()

	for i := 0; i < journalBuffer+2; i++ {
		w.record(Event{Kind: EventImprisoned, UserID: uuid.New()})
	}
	if metricJournalDroppedTotal.Value() <= before {
		t.Fatal("expected dropped events when the buffer is full")
	}

	close(sink.release)
	w.close()
	w.record(Event{Kind: EventReleased})
	if n := len(sink.got); n == 0 || n > journalBuffer+1 {
		t.Fatalf("recorded = %d", n)
	}
}

func TestNilJournalWriter(t *testing.T) {
	w := newJournalWriter(nil)
	w.record(Event{Kind: EventReleased})
	w.close()
}
