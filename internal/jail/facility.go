package jail

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"stockade/internal/tree"
	"stockade/internal/world"
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

const (
	pathTeleport = "teleport"
	pathRelease  = "release-location"
	pathBounds   = "bounds"
)

// Facility is a named confinement area: placement points, an optional
// release coordinate and a guarded region.
type Facility struct {
	registry *Registry
	key      FacilityKey
	name     string
	owner    *tree.Tree
	node     *tree.Tree

	points    map[string]world.Coordinate
	releaseAt *world.Coordinate
	region    world.Boundary
	hasBounds bool
	unguard   func()
	disposed  bool

	// returning holds users with a deferred re-placement queued.
	returning map[uuid.UUID]bool
}

// newFacility binds a facility to jails.<name> of the owner namespace and
// loads whatever was persisted there.
func newFacility(r *Registry, owner *tree.Tree, name string) *Facility {
	lname := strings.ToLower(name)
	f := &Facility{
		registry:  r,
		key:       FacilityKey{Owner: owner.Namespace(), Name: lname},
		name:      name,
		owner:     owner,
		node:      owner.Sub("jails." + lname),
		points:    map[string]world.Coordinate{},
		returning: map[uuid.UUID]bool{},
	}
	for _, k := range f.node.Keys(pathTeleport) {
		if c, ok := f.node.Coordinate(pathTeleport + "." + k); ok {
			f.points[strings.ToLower(k)] = c
		}
	}
	if c, ok := f.node.Coordinate(pathRelease); ok {
		f.releaseAt = &c
	}
	box, ok := f.node.Cuboid(pathBounds)
	f.bind(box, ok)
	if stored, ok := f.node.String("name"); ok {
		f.name = stored
	} else {
		f.node.Set("name", name)
	}
	return f
}

func (f *Facility) bind(box world.Cuboid, guarded bool) {
	if f.unguard != nil {
		f.unguard()
		f.unguard = nil
	}
	f.region = f.registry.deps.World.Region(box)
	f.hasBounds = guarded
	if guarded {
		f.unguard = f.region.Guard(exitPolicy{f: f})
	}
}

func (f *Facility) Key() FacilityKey { return f.key }
func (f *Facility) Owner() string    { return f.key.Owner }
func (f *Facility) Name() string     { return f.name }
func (f *Facility) Disposed() bool   { return f.disposed }

// Root reports whether this is the facility that can never be removed.
func (f *Facility) Root() bool { return f == f.registry.root }

func (f *Facility) Region() world.Boundary { return f.region }

// Bounds returns the guarded box, false when none was configured.
func (f *Facility) Bounds() (world.Cuboid, bool) {
	return f.region.Bounds(), f.hasBounds
}

func (f *Facility) String() string {
	return f.key.Owner + "/" + f.name
}

// Imprison confines a user here until expiration.
func (f *Facility) Imprison(id uuid.UUID, expiration time.Time) (*Session, error) {
	if f.disposed {
		return nil, ErrFacilityDisposed
	}
	at, ok := f.placement()
	if !ok {
		return nil, ErrNoPlacement
	}
	return f.registry.admit(f, id, expiration, at), nil
}

func (f *Facility) IsPrisoner(id uuid.UUID) bool {
	s := f.registry.sessions[id]
	return s != nil && !s.Released() && s.facility == f
}

// Sessions lists the live sessions confined here.
func (f *Facility) Sessions() []*Session {
	var out []*Session
	for _, s := range f.registry.Sessions() {
		if s.facility == f {
			out = append(out, s)
		}
	}
	return out
}

func (f *Facility) AddPlacementPoint(name string, c world.Coordinate) error {
	if f.disposed {
		return ErrFacilityDisposed
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: point %q", ErrInvalidName, name)
	}
	key := strings.ToLower(name)
	if _, ok := f.points[key]; ok {
		return ErrPointExists
	}
	f.points[key] = c
	f.node.SetCoordinate(pathTeleport+"."+key, c)
	f.owner.SaveAsync()
	return nil
}

func (f *Facility) RemovePlacementPoint(name string) error {
	if f.disposed {
		return ErrFacilityDisposed
	}
	key := strings.ToLower(name)
	if _, ok := f.points[key]; !ok {
		return ErrPointNotFound
	}
	delete(f.points, key)
	f.node.Remove(pathTeleport + "." + key)
	f.owner.SaveAsync()
	return nil
}

// PlacementPoints returns a copy of the named points.
func (f *Facility) PlacementPoints() map[string]world.Coordinate {
	out := make(map[string]world.Coordinate, len(f.points))
	for k, v := range f.points {
		out[k] = v
	}
	return out
}

// RandomPlacementPoint picks uniformly among the named points.
func (f *Facility) RandomPlacementPoint() (world.Coordinate, bool) {
	if len(f.points) == 0 {
		return world.Coordinate{}, false
	}
	names := make([]string, 0, len(f.points))
	for k := range f.points {
		names = append(names, k)
	}
	sort.Strings(names)
	return f.points[names[f.registry.opts.Random(len(names))]], true
}

// placement falls back to the region center when no point is defined.
func (f *Facility) placement() (world.Coordinate, bool) {
	if c, ok := f.RandomPlacementPoint(); ok {
		return c, true
	}
	if f.hasBounds {
		return f.region.Center(), true
	}
	return world.Coordinate{}, false
}

// ReleaseCoordinate returns the explicit release coordinate, else the spawn of
// the region's world.
func (f *Facility) ReleaseCoordinate() (world.Coordinate, bool) {
	if f.releaseAt != nil {
		return *f.releaseAt, true
	}
	if !f.hasBounds {
		return world.Coordinate{}, false
	}
	return f.region.WorldSpawn()
}

// SetReleaseCoordinate sets the explicit release coordinate; nil clears it.
func (f *Facility) SetReleaseCoordinate(c *world.Coordinate) error {
	if f.disposed {
		return ErrFacilityDisposed
	}
	if c == nil {
		f.releaseAt = nil
		f.node.Remove(pathRelease)
	} else {
		cp := *c
		f.releaseAt = &cp
		f.node.SetCoordinate(pathRelease, cp)
	}
	f.owner.SaveAsync()
	return nil
}

// SetBounds replaces the guarded region.
func (f *Facility) SetBounds(box world.Cuboid) error {
	if f.disposed {
		return ErrFacilityDisposed
	}
	if box.World == "" {
		return fmt.Errorf("%w: bounds need a world", ErrInvalidName)
	}
	box = box.Normalize()
	f.bind(box, true)
	f.node.SetCuboid(pathBounds, box)
	f.owner.SaveAsync()
	return nil
}

// dispose drops the guard and the persisted node. Disposing the root facility
// is a programming error.
func (f *Facility) dispose() {
	if f.Root() {
		panic(ErrRootFacility)
	}
	if f.disposed {
		return
	}
	f.disposed = true
	if f.unguard != nil {
		f.unguard()
		f.unguard = nil
	}
	f.owner.Remove("jails." + f.key.Name)
	f.owner.SaveAsync()
}

// exitPolicy keeps prisoners inside the facility region.
type exitPolicy struct {
	f *Facility
}

func (p exitPolicy) CanLeave(id uuid.UUID, _ world.Coordinate) bool {
	return !p.f.IsPrisoner(id)
}

// OnDeniedLeave puts the user back on a placement point a few ticks later,
// once the world has finished resolving the current move.
func (p exitPolicy) OnDeniedLeave(id uuid.UUID) {
	f := p.f
	r := f.registry
	metricExitDeniedTotal.Add(1)
	r.notify(id, msgCannotLeave)
	if f.returning[id] {
		return
	}
	f.returning[id] = true
	r.deps.Scheduler.RunAfter(r.opts.ReturnDelay, func() {
		delete(f.returning, id)
		if f.disposed || !f.IsPrisoner(id) {
			return
		}
		at, ok := f.placement()
		if !ok {
			return
		}
		if !r.deps.World.MovePlayer(id, at) {
			log.Debug().Str("user_id", id.String()).Str("facility", f.String()).Msg("return to placement failed")
		}
	})
}
