package jail

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stockade/internal/scheduler"
	"stockade/internal/tree"
	"stockade/internal/world"
)

// World moves players and binds regions. *world.World satisfies it.
type World interface {
	MovePlayer(id uuid.UUID, to world.Coordinate) bool
	IsConnected(id uuid.UUID) bool
	Region(box world.Cuboid) world.Boundary
}

type Notifier interface {
	Notify(id uuid.UUID, msg string)
}

// Scheduler runs deferred callbacks on the main loop.
type Scheduler interface {
	RunAfter(delay scheduler.Ticks, fn func()) *scheduler.Task
	RunRepeating(initialDelay, period scheduler.Ticks, fn func()) *scheduler.Task
}

// Namespaces hands out durable trees. *tree.Store satisfies it.
type Namespaces interface {
	Namespace(ctx context.Context, name string) (*tree.Tree, error)
}

type Deps struct {
	Storage   Namespaces
	World     World
	Notifier  Notifier
	Scheduler Scheduler
	// Clock defaults to time.Now.
	Clock     func() time.Time
	Journal   Journal
}

type Options struct {
	RootNamespace    string
	RootFacility     string
	ReturnDelay      scheduler.Ticks
	LateReleaseDelay scheduler.Ticks
	WardenPeriod     scheduler.Ticks
	WardenJitter     scheduler.Ticks
	// Owners lists namespaces whose facilities are loaded at start.
	Owners           []string
	// Random picks placement points; defaults to math/rand/v2.
	Random           func(n int) int
}

func (o *Options) setDefaults() {
	if o.RootNamespace == "" {
		o.RootNamespace = "stockade"
	}
	if o.RootFacility == "" {
		o.RootFacility = "default"
	}
	if o.ReturnDelay <= 0 {
		o.ReturnDelay = 5
	}
	if o.LateReleaseDelay <= 0 {
		o.LateReleaseDelay = 10
	}
	if o.WardenPeriod <= 0 {
		o.WardenPeriod = 20
	}
	if o.WardenJitter < 0 {
		o.WardenJitter = 0
	}
}

// FacilityKey identifies a facility: owner namespace plus lower-cased name.
type FacilityKey struct {
	Owner string
	Name  string
}
