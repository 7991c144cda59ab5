package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"stockade/internal/jail"
	"stockade/internal/store"
	"stockade/internal/testutil"
	"stockade/internal/tree"
	"stockade/internal/world"
)

func TestStoreBootstrapPing(t *testing.T) {
	st := testutil.OpenTestStore(t)
	if err := st.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	st := testutil.OpenTestStore(t)
	ctx := context.Background()

	doc, err := st.Load(ctx, "stockade")
	if err != nil || doc != nil {
		t.Fatalf("Load missing = %v, %v; want nil, nil", doc, err)
	}

	trees := tree.NewStore(st)
	root, err := trees.Namespace(ctx, "stockade")
	if err != nil {
		t.Fatalf("Namespace: %v", err)
	}
	c := world.Coordinate{World: "world", X: 1.5, Y: 64, Z: -3}
	root.SetCoordinate("jails.yard.teleport.p1", c)
	root.SetTime("prisoners.x.expires", time.UnixMilli(1_767_225_600_123))
	if err := root.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := tree.NewStore(st).Namespace(ctx, "stockade")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got, ok := reloaded.Coordinate("jails.yard.teleport.p1"); !ok || got != c {
		t.Fatalf("Coordinate = %v, %v; want %v", got, ok, c)
	}
	if got, _ := reloaded.Time("prisoners.x.expires"); got.UnixMilli() != 1_767_225_600_123 {
		t.Fatalf("Time = %v", got)
	}

	if err := st.DeleteDocument(ctx, "stockade"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if err := st.DeleteDocument(ctx, "stockade"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestRecordAndListEvents(t *testing.T) {
	st := testutil.OpenTestStore(t)
	ctx := context.Background()
	user := uuid.New()
	base := time.Now().Add(-time.Minute).Truncate(time.Millisecond)

	for i, kind := range []jail.EventKind{jail.EventImprisoned, jail.EventLateRelease, jail.EventLateReleaseComplete} {
		err := st.Record(ctx, jail.Event{
			Kind:      kind,
			UserID:    user,
			Owner:     "stockade",
			Facility:  "yard",
			SessionID: "s1",
			At:        base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Record %s: %v", kind, err)
		}
	}
	if err := st.Record(ctx, jail.Event{Kind: jail.EventImprisoned, UserID: uuid.New(), Owner: "stockade", Facility: "yard"}); err != nil {
		t.Fatalf("Record other: %v", err)
	}

	events, err := st.ListEvents(ctx, user, 2)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Kind != jail.EventLateReleaseComplete || events[1].Kind != jail.EventLateRelease {
		t.Fatalf("kinds = %s, %s", events[0].Kind, events[1].Kind)
	}
	if events[0].UserID != user || events[0].ID == "" {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}
