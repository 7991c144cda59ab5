package jail

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"stockade/internal/scheduler"
	"stockade/internal/tree"
	"stockade/internal/world"
)

var (
	spawn     = world.Coordinate{World: "world", X: 0, Y: 64, Z: 0}
	yardBox   = world.Cuboid{World: "world", Min: world.Vec{X: 100, Y: 60, Z: 100}, Max: world.Vec{X: 120, Y: 80, Z: 120}}
	pointA    = world.Coordinate{World: "world", X: 105, Y: 64, Z: 105}
	pointB    = world.Coordinate{World: "world", X: 115, Y: 64, Z: 115}
	outside   = world.Coordinate{World: "world", X: 200, Y: 64, Z: 200}
	startTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type recordingConn struct {
	notices   []string
	positions []world.Coordinate
}

func (c *recordingConn) Notice(msg string)           { c.notices = append(c.notices, msg) }
func (c *recordingConn) Position(p world.Coordinate) { c.positions = append(c.positions, p) }

func (c *recordingConn) count(prefix string) int {
	n := 0
	for _, m := range c.notices {
		if strings.HasPrefix(m, prefix) {
			n++
		}
	}
	return n
}

type memJournal struct {
	mu     sync.Mutex
	events []Event
}

func (j *memJournal) Record(_ context.Context, e Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
	return nil
}

func (j *memJournal) kinds() []EventKind {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]EventKind, 0, len(j.events))
	for _, e := range j.events {
		out = append(out, e.Kind)
	}
	return out
}

type fixture struct {
	t       *testing.T
	world   *world.World
	sched   *scheduler.Scheduler
	backend *tree.MemoryBackend
	store   *tree.Store
	clock   *fakeClock
	journal *memJournal
	reg     *Registry
	opts    Options
}

// newFixture starts a registry whose warden is cancelled; tests run passes
// explicitly.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	return startFixture(t, tree.NewMemoryBackend())
}

// startFixture builds a started registry over backend, so tests can restart
// against the same storage.
func startFixture(t *testing.T, backend *tree.MemoryBackend) *fixture {
	t.Helper()
	f := buildFixture(t, backend)
	f.reg.warden.Cancel()
	return f
}

func buildFixture(t *testing.T, backend *tree.MemoryBackend) *fixture {
	t.Helper()
	f := &fixture{
		t:       t,
		world:   world.New("world", map[string]world.Coordinate{"world": spawn}),
		sched:   scheduler.New(),
		backend: backend,
		store:   tree.NewStore(backend),
		clock:   &fakeClock{now: startTime},
		journal: &memJournal{},
		opts: Options{
			RootNamespace:    "stockade",
			RootFacility:     "default",
			ReturnDelay:      5,
			LateReleaseDelay: 10,
			WardenPeriod:     20,
			Random:           func(int) int { return 0 },
		},
	}
	f.reg = NewRegistry(Deps{
		Storage:   f.store,
		World:     f.world,
		Notifier:  f.world,
		Scheduler: f.sched,
		Clock:     f.clock.Now,
		Journal:   f.journal,
	}, f.opts)
	f.world.SetHooks(f.reg.Hooks())
	if err := f.reg.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		f.reg.Stop()
		f.store.Wait()
	})
	return f
}

// yard creates stockade/yard with bounds and two placement points.
func (f *fixture) yard() *Facility {
	f.t.Helper()
	fac, err := f.reg.CreateFacility(context.Background(), "stockade", "Yard")
	if err != nil {
		f.t.Fatalf("CreateFacility: %v", err)
	}
	if err := fac.SetBounds(yardBox); err != nil {
		f.t.Fatalf("SetBounds: %v", err)
	}
	if err := fac.AddPlacementPoint("p1", pointA); err != nil {
		f.t.Fatalf("AddPlacementPoint p1: %v", err)
	}
	if err := fac.AddPlacementPoint("p2", pointB); err != nil {
		f.t.Fatalf("AddPlacementPoint p2: %v", err)
	}
	return fac
}

func (f *fixture) connect(id uuid.UUID) *recordingConn {
	conn := &recordingConn{}
	f.world.Connect(id, "player", conn)
	return conn
}

func (f *fixture) position(id uuid.UUID) world.Coordinate {
	f.t.Helper()
	p, ok := f.world.Player(id)
	if !ok {
		f.t.Fatalf("player %s unknown", id)
	}
	return p.Position
}
