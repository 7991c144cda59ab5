package world

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Conn delivers world output to a connected player. Implementations must not
// block: they are called from the main loop.
type Conn interface {
	Notice(msg string)
	Position(c Coordinate)
}

// ExitPolicy decides whether a player may leave a guarded region.
type ExitPolicy interface {
	CanLeave(id uuid.UUID, to Coordinate) bool
	OnDeniedLeave(id uuid.UUID)
}

// Boundary is a bounded area the world can test points against and guard.
type Boundary interface {
	Bounds() Cuboid
	Contains(c Coordinate) bool
	Center() Coordinate
	WorldSpawn() (Coordinate, bool)
	Guard(p ExitPolicy) (unguard func())
}

// Hooks are invoked on the main loop when players (re)enter the world.
type Hooks struct {
	Connect func(id uuid.UUID)
	// Respawn may override where a player respawns.
	Respawn func(id uuid.UUID) (Coordinate, bool)
}

type Player struct {
	ID        uuid.UUID
	Name      string
	Position  Coordinate
	Connected bool
}

type playerState struct {
	Player
	conn Conn
}

type guard struct {
	box    Cuboid
	policy ExitPolicy
}

type World struct {
	mu           sync.RWMutex
	defaultWorld string
	spawns       map[string]Coordinate
	players      map[uuid.UUID]*playerState
	guards       map[uint64]guard
	guardSeq     uint64
	hooks        Hooks
}

func New(defaultWorld string, spawns map[string]Coordinate) *World {
	w := &World{
		defaultWorld: strings.ToLower(defaultWorld),
		spawns:       map[string]Coordinate{},
		players:      map[uuid.UUID]*playerState{},
		guards:       map[uint64]guard{},
	}
	for name, c := range spawns {
		c.World = name
		w.spawns[strings.ToLower(name)] = c
	}
	return w
}

func (w *World) SetHooks(h Hooks) {
	w.mu.Lock()
	w.hooks = h
	w.mu.Unlock()
}

// Spawn returns the spawn point of a loaded world.
func (w *World) Spawn(name string) (Coordinate, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.spawns[strings.ToLower(name)]
	return c, ok
}

func (w *World) defaultSpawn() Coordinate {
	if c, ok := w.spawns[w.defaultWorld]; ok {
		return c
	}
	return Coordinate{World: w.defaultWorld}
}

// Connect attaches a player and returns where they stand. Returning players
// keep their last position.
func (w *World) Connect(id uuid.UUID, name string, conn Conn) Coordinate {
	w.mu.Lock()
	p := w.players[id]
	if p == nil {
		p = &playerState{Player: Player{ID: id, Position: w.defaultSpawn()}}
		w.players[id] = p
	}
	if name != "" {
		p.Name = name
	}
	p.Connected = true
	p.conn = conn
	hook := w.hooks.Connect
	w.mu.Unlock()

	log.Info().Str("user_id", id.String()).Str("name", name).Msg("player connected")
	if hook != nil {
		hook(id)
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.players[id].Position
}

func (w *World) Disconnect(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p := w.players[id]; p != nil {
		p.Connected = false
		p.conn = nil
		log.Info().Str("user_id", id.String()).Msg("player disconnected")
	}
}

func (w *World) IsConnected(id uuid.UUID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p := w.players[id]
	return p != nil && p.Connected
}

// Player returns a snapshot of a known player, connected or not.
func (w *World) Player(id uuid.UUID) (Player, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p := w.players[id]
	if p == nil {
		return Player{}, false
	}
	return p.Player, true
}

// MovePlayer moves a connected player, consulting the exit policy of every
// guarded region being left. It reports false when the player is offline or
// an exit was denied.
func (w *World) MovePlayer(id uuid.UUID, to Coordinate) bool {
	w.mu.RLock()
	p := w.players[id]
	if p == nil || !p.Connected {
		w.mu.RUnlock()
		return false
	}
	from := p.Position
	var leaving []ExitPolicy
	for _, g := range w.guards {
		if g.box.Contains(from) && !g.box.Contains(to) {
			leaving = append(leaving, g.policy)
		}
	}
	w.mu.RUnlock()

	for _, policy := range leaving {
		if !policy.CanLeave(id, to) {
			metricExitDeniedTotal.Add(1)
			policy.OnDeniedLeave(id)
			return false
		}
	}
	w.place(id, to)
	return true
}

// Respawn puts a player back at their world's spawn unless a hook overrides
// the location.
func (w *World) Respawn(id uuid.UUID) (Coordinate, bool) {
	w.mu.RLock()
	p := w.players[id]
	if p == nil || !p.Connected {
		w.mu.RUnlock()
		return Coordinate{}, false
	}
	target, ok := w.spawns[strings.ToLower(p.Position.World)]
	if !ok {
		target = w.defaultSpawn()
	}
	hook := w.hooks.Respawn
	w.mu.RUnlock()

	if hook != nil {
		if override, ok := hook(id); ok {
			target = override
		}
	}
	w.place(id, target)
	return target, true
}

func (w *World) place(id uuid.UUID, to Coordinate) {
	w.mu.Lock()
	p := w.players[id]
	if p == nil {
		w.mu.Unlock()
		return
	}
	p.Position = to
	conn := p.conn
	w.mu.Unlock()
	if conn != nil {
		conn.Position(to)
	}
}

// Notify sends a chat notice to a connected player and drops it otherwise.
func (w *World) Notify(id uuid.UUID, msg string) {
	w.mu.RLock()
	p := w.players[id]
	var conn Conn
	if p != nil && p.Connected {
		conn = p.conn
	}
	w.mu.RUnlock()
	if conn != nil {
		conn.Notice(msg)
	}
}

// Region binds a cuboid to this world.
func (w *World) Region(box Cuboid) Boundary {
	return &region{w: w, box: box.Normalize()}
}

type region struct {
	w   *World
	box Cuboid
}

func (r *region) Bounds() Cuboid { return r.box }

func (r *region) Contains(c Coordinate) bool { return r.box.Contains(c) }

func (r *region) Center() Coordinate { return r.box.Center() }

func (r *region) WorldSpawn() (Coordinate, bool) { return r.w.Spawn(r.box.World) }

func (r *region) Guard(p ExitPolicy) func() {
	r.w.mu.Lock()
	r.w.guardSeq++
	id := r.w.guardSeq
	r.w.guards[id] = guard{box: r.box, policy: p}
	r.w.mu.Unlock()
	return func() {
		r.w.mu.Lock()
		delete(r.w.guards, id)
		r.w.mu.Unlock()
	}
}
