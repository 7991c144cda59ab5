package tree

import (
	"context"
	"reflect"
	"testing"
	"time"

	"stockade/internal/world"
)

func TestSetGetRemove(t *testing.T) {
	tr := NewDetached()
	tr.Set("jails.yard.teleport.p1", "x")
	if v, ok := tr.String("jails.yard.teleport.p1"); !ok || v != "x" {
		t.Fatalf("String() = %q, %v", v, ok)
	}
	if !tr.Remove("jails.yard.teleport.p1") {
		t.Fatal("Remove() = false, want true")
	}
	if tr.Has("jails.yard.teleport.p1") {
		t.Fatal("value still present after Remove")
	}
	if tr.Remove("jails.yard.teleport.p1") {
		t.Fatal("second Remove() = true, want false")
	}
}

func TestSubSharesStorage(t *testing.T) {
	tr := NewDetached()
	sub := tr.Sub("jails.yard")
	sub.Set("release-location.world", "world")
	if v, ok := tr.String("jails.yard.release-location.world"); !ok || v != "world" {
		t.Fatalf("parent view sees %q, %v", v, ok)
	}
	if got := tr.Keys("jails"); !reflect.DeepEqual(got, []string{"yard"}) {
		t.Fatalf("Keys() = %v", got)
	}
}

func TestSetOverwritesScalarWithSection(t *testing.T) {
	tr := NewDetached()
	tr.Set("a", 1)
	tr.Set("a.b", 2)
	if v, ok := tr.Int("a.b"); !ok || v != 2 {
		t.Fatalf("Int() = %d, %v", v, ok)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	tr := NewDetached()
	tr.Set("a.b", 1)
	v, _ := tr.Get("a")
	v.(map[string]any)["b"] = 99
	if n, _ := tr.Int("a.b"); n != 1 {
		t.Fatalf("mutation leaked into tree: %d", n)
	}
}

func TestTypedValues(t *testing.T) {
	tr := NewDetached()
	c := world.Coordinate{World: "world", X: 1.5, Y: 64, Z: -3, Yaw: 90}
	tr.SetCoordinate("loc", c)
	got, ok := tr.Coordinate("loc")
	if !ok || got != c {
		t.Fatalf("Coordinate() = %v, %v, want %v", got, ok, c)
	}

	box := world.Cuboid{World: "world", Min: world.Vec{X: 1, Y: 2, Z: 3}, Max: world.Vec{X: 4, Y: 5, Z: 6}}
	tr.SetCuboid("bounds", box)
	gotBox, ok := tr.Cuboid("bounds")
	if !ok || gotBox != box {
		t.Fatalf("Cuboid() = %v, %v", gotBox, ok)
	}

	now := time.UnixMilli(time.Now().UnixMilli())
	tr.SetTime("expires", now)
	if ts, ok := tr.Time("expires"); !ok || !ts.Equal(now) {
		t.Fatalf("Time() = %v, %v, want %v", ts, ok, now)
	}

	if _, ok := tr.Coordinate("missing"); ok {
		t.Fatal("expected missing coordinate")
	}
}

func TestStoreRoundTripThroughMemoryBackend(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	st := NewStore(backend)
	tr, err := st.Namespace(ctx, "Stockade")
	if err != nil {
		t.Fatalf("Namespace() error = %v", err)
	}
	tr.Set("late-release.abc.world", "world")
	tr.SaveAsync()
	tr.SaveAsync()
	st.Wait()
	if backend.Saves() != 2 {
		t.Fatalf("saves = %d, want 2", backend.Saves())
	}

	again, err := NewStore(backend).Namespace(ctx, "stockade")
	if err != nil {
		t.Fatalf("Namespace() error = %v", err)
	}
	if v, ok := again.String("late-release.abc.world"); !ok || v != "world" {
		t.Fatalf("reloaded value = %q, %v", v, ok)
	}
}

func TestStoreRejectsBadNamespace(t *testing.T) {
	st := NewStore(NewMemoryBackend())
	if _, err := st.Namespace(context.Background(), "../etc"); err == nil {
		t.Fatal("expected error for path-like namespace")
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	st := NewStore(backend)
	tr, err := st.Namespace(ctx, "stockade")
	if err != nil {
		t.Fatalf("Namespace() error = %v", err)
	}
	c := world.Coordinate{World: "world", X: 10, Y: 65, Z: 10}
	tr.SetCoordinate("jails.yard.teleport.p1", c)
	tr.SetTime("prisoners.u.expires", time.UnixMilli(1700000000000))
	if err := tr.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reloaded, err := NewStore(backend).Namespace(ctx, "stockade")
	if err != nil {
		t.Fatalf("Namespace() error = %v", err)
	}
	got, ok := reloaded.Coordinate("jails.yard.teleport.p1")
	if !ok || got != c {
		t.Fatalf("Coordinate() = %v, %v, want %v", got, ok, c)
	}
	if ts, ok := reloaded.Time("prisoners.u.expires"); !ok || ts.UnixMilli() != 1700000000000 {
		t.Fatalf("Time() = %v, %v", ts, ok)
	}
}

func TestFileBackendMissingNamespace(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	doc, err := backend.Load(context.Background(), "nothing")
	if err != nil || doc != nil {
		t.Fatalf("Load() = %v, %v, want nil, nil", doc, err)
	}
}
