package jail

import (
	"time"

	"github.com/google/uuid"

	"stockade/internal/world"
)

// State is the lifecycle of a confinement session.
type State int

const (
	StateActive State = iota
	// StateReleased is terminal: the session was released or disposed.
	StateReleased
	// StateFacilityDisposed means the owning facility was removed; the
	// session is expired regardless of its timestamp and waits for the
	// warden to move the user out.
	StateFacilityDisposed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateReleased:
		return "released"
	case StateFacilityDisposed:
		return "facility_disposed"
	default:
		return "unknown"
	}
}

// Session is one user's confinement in a facility. It is mutated only by the
// registry and the warden, on the main loop.
type Session struct {
	id        string
	userID    uuid.UUID
	facility  *Facility
	registry  *Registry
	createdAt time.Time
	expires   time.Time
	releaseAt *world.Coordinate
	state     State
	meta      map[string]any
}

func (s *Session) ID() string           { return s.id }
func (s *Session) UserID() uuid.UUID    { return s.userID }
func (s *Session) Facility() *Facility  { return s.facility }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// State reports the lifecycle state, moving an active session to
// StateFacilityDisposed once its facility is gone.
func (s *Session) State() State {
	if s.state == StateActive && s.facility.Disposed() {
		s.state = StateFacilityDisposed
	}
	return s.state
}

// Released reports whether the session reached its terminal state.
func (s *Session) Released() bool {
	return s.state == StateReleased
}

// Expiration returns when the session ends. It reports false once the
// session is no longer active, since the timestamp no longer applies.
func (s *Session) Expiration() (time.Time, bool) {
	if s.State() != StateActive || s.expires.IsZero() {
		return time.Time{}, false
	}
	return s.expires, true
}

func (s *Session) IsExpired() bool {
	exp, ok := s.Expiration()
	if !ok {
		return true
	}
	return !s.registry.now().Before(exp)
}

// Remaining is the time left at now, zero when expired.
func (s *Session) Remaining(now time.Time) time.Duration {
	exp, ok := s.Expiration()
	if !ok || !now.Before(exp) {
		return 0
	}
	return exp.Sub(now)
}

// ReleaseCoordinate returns the per-session release override, if any.
func (s *Session) ReleaseCoordinate() (world.Coordinate, bool) {
	if s.releaseAt == nil {
		return world.Coordinate{}, false
	}
	return *s.releaseAt, true
}

// SetReleaseCoordinate sets or, with nil, clears the override.
func (s *Session) SetReleaseCoordinate(c *world.Coordinate) {
	if c != nil {
		cp := *c
		c = &cp
	}
	s.releaseAt = c
	if !s.Released() {
		s.registry.persistSession(s)
	}
}

// Release disposes the session and asks the registry to forget it. It
// reports whether the registry was still tracking this session.
func (s *Session) Release() bool {
	s.Dispose()
	return s.registry.releaseSession(s)
}

// Dispose marks the session released. Calling it again has no effect.
func (s *Session) Dispose() {
	if s.state == StateReleased {
		return
	}
	s.state = StateReleased
	s.expires = time.Time{}
}

// MetaKey is a typed key into a session's metadata store.
type MetaKey[T any] struct {
	name string
}

func NewMetaKey[T any](name string) MetaKey[T] {
	return MetaKey[T]{name: name}
}

func GetMeta[T any](s *Session, k MetaKey[T]) (T, bool) {
	v, ok := s.meta[k.name].(T)
	return v, ok
}

func SetMeta[T any](s *Session, k MetaKey[T], v T) {
	if s.meta == nil {
		s.meta = map[string]any{}
	}
	s.meta[k.name] = v
}

func DeleteMeta[T any](s *Session, k MetaKey[T]) {
	delete(s.meta, k.name)
}
