package jail

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"stockade/internal/world"
)

// LateRelease is a release deferred until the user reconnects.
type LateRelease struct {
	UserID uuid.UUID        `json:"user_id"`
	At     world.Coordinate `json:"at"`
}

func latePath(id uuid.UUID) string {
	return pathLateRelease + "." + id.String()
}

// RegisterLateRelease records where id goes once they reconnect. Registering
// again replaces the coordinate.
func (r *Registry) RegisterLateRelease(id uuid.UUID, at world.Coordinate) {
	if prev, ok := r.rootTree.Coordinate(latePath(id)); ok && prev == at {
		return
	}
	r.rootTree.SetCoordinate(latePath(id), at)
	r.rootTree.SaveAsync()
	metricLateReleaseRegisteredTotal.Add(1)
	log.Info().Str("user_id", id.String()).Stringer("at", at).Msg("late release registered")
}

// UnregisterLateRelease removes and returns the pending coordinate.
func (r *Registry) UnregisterLateRelease(id uuid.UUID) (world.Coordinate, bool) {
	c, ok := r.rootTree.Coordinate(latePath(id))
	if !ok {
		return world.Coordinate{}, false
	}
	r.clearLateRelease(id)
	return c, true
}

func (r *Registry) clearLateRelease(id uuid.UUID) {
	if r.rootTree.Remove(latePath(id)) {
		r.rootTree.SaveAsync()
	}
}

func (r *Registry) IsLateRelease(id uuid.UUID) bool {
	return r.rootTree.Has(latePath(id))
}

// LateReleases lists every pending late release.
func (r *Registry) LateReleases() []LateRelease {
	var out []LateRelease
	for _, k := range r.rootTree.Keys(pathLateRelease) {
		id, err := uuid.Parse(k)
		if err != nil {
			continue
		}
		if c, ok := r.rootTree.Coordinate(pathLateRelease + "." + k); ok {
			out = append(out, LateRelease{UserID: id, At: c})
		}
	}
	return out
}

// completeLateRelease moves a reconnected user to their recorded coordinate.
// It does nothing if they went offline again before it ran.
func (r *Registry) completeLateRelease(id uuid.UUID) {
	if !r.deps.World.IsConnected(id) {
		return
	}
	at, ok := r.UnregisterLateRelease(id)
	if !ok {
		return
	}
	if s := r.sessions[id]; s != nil {
		r.forget(s)
		s.Dispose()
		r.record(EventLateReleaseComplete, s, at.String())
	}
	metricLateReleaseCompletedTotal.Add(1)
	r.deps.World.MovePlayer(id, at)
	r.notify(id, msgReleased)
	log.Info().Str("user_id", id.String()).Stringer("at", at).Msg("late release completed")
}
