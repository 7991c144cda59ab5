package jail

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"stockade/internal/world"
)

// HandleConnect runs when a user joins. Pending late releases complete a few
// ticks later; active prisoners are put back on a placement point.
func (r *Registry) HandleConnect(id uuid.UUID) {
	if !r.started {
		return
	}
	if r.IsLateRelease(id) {
		r.scheduleLateRelease(id)
		return
	}
	s := r.sessions[id]
	if s == nil || s.Released() || s.IsExpired() {
		return
	}
	at, ok := s.facility.placement()
	if !ok {
		return
	}
	if !r.deps.World.MovePlayer(id, at) {
		log.Debug().Str("user_id", id.String()).Msg("placing prisoner on connect failed")
		return
	}
	r.notify(id, msgImprisoned)
}

// HandleRespawn returns where a prisoner respawns. It reports false to keep
// the world's default.
func (r *Registry) HandleRespawn(id uuid.UUID) (world.Coordinate, bool) {
	if !r.started {
		return world.Coordinate{}, false
	}
	if r.IsLateRelease(id) {
		r.scheduleLateRelease(id)
		return world.Coordinate{}, false
	}
	s := r.sessions[id]
	if s == nil || s.Released() || s.IsExpired() {
		return world.Coordinate{}, false
	}
	return s.facility.placement()
}

func (r *Registry) scheduleLateRelease(id uuid.UUID) {
	r.deps.Scheduler.RunAfter(r.opts.LateReleaseDelay, func() {
		r.completeLateRelease(id)
	})
}

// Hooks returns world hooks bound to this registry.
func (r *Registry) Hooks() world.Hooks {
	return world.Hooks{Connect: r.HandleConnect, Respawn: r.HandleRespawn}
}
