package jail

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"stockade/internal/scheduler"
)

// PassOptions selects what a warden pass does.
type PassOptions struct {
	// Sweep also processes users with a pending late release.
	Sweep  bool
	// Silent suppresses expiry warnings.
	Silent bool
}

// PassReport counts what one warden pass did.
type PassReport struct {
	Checked    int `json:"checked"`
	Skipped    int `json:"skipped"`
	Released   int `json:"released"`
	Deferred   int `json:"deferred"`
	Warned     int `json:"warned"`
	Unresolved int `json:"unresolved"`
}

var lastWarnedKey = NewMetaKey[int]("last-warned-minutes")

func (r *Registry) startWarden() {
	initial := scheduler.Ticks(1)
	if r.opts.WardenJitter > 0 {
		initial += scheduler.Ticks(r.opts.Random(int(r.opts.WardenJitter) + 1))
	}
	r.warden = r.deps.Scheduler.RunRepeating(initial, r.opts.WardenPeriod, func() {
		r.wardenRuns++
		r.Pass(PassOptions{Sweep: r.wardenRuns == 1})
	})
}

// Pass reconciles every tracked session once: expired sessions are released
// or deferred as late releases, the rest may be warned.
func (r *Registry) Pass(opts PassOptions) PassReport {
	var rep PassReport
	if !r.started {
		return rep
	}
	metricWardenPassTotal.Add(1)
	now := r.now()
	for _, s := range r.Sessions() {
		if r.sessions[s.userID] != s {
			continue
		}
		rep.Checked++
		late := r.IsLateRelease(s.userID)
		if late && !opts.Sweep {
			rep.Skipped++
			continue
		}
		if late || s.IsExpired() {
			r.expire(s, &rep)
			continue
		}
		if !opts.Silent && r.warn(s, now) {
			rep.Warned++
		}
	}
	if rep.Released+rep.Deferred+rep.Warned+rep.Unresolved > 0 {
		log.Debug().
			Bool("sweep", opts.Sweep).
			Int("checked", rep.Checked).
			Int("released", rep.Released).
			Int("deferred", rep.Deferred).
			Int("warned", rep.Warned).
			Int("unresolved", rep.Unresolved).
			Msg("warden pass")
	}
	return rep
}

func (r *Registry) expire(s *Session, rep *PassReport) {
	id := s.userID
	at, ok := r.resolveRelease(s)
	if !ok {
		at, ok = r.rootTree.Coordinate(latePath(id))
	}
	if !ok {
		rep.Unresolved++
		metricWardenUnresolvedTotal.Add(1)
		log.Warn().
			Str("user_id", id.String()).
			Str("facility", s.facility.String()).
			Msg("no release coordinate, retrying next pass")
		return
	}
	if !r.deps.World.IsConnected(id) {
		if !r.IsLateRelease(id) {
			r.record(EventLateRelease, s, at.String())
		}
		r.RegisterLateRelease(id, at)
		rep.Deferred++
		return
	}
	r.forget(s)
	r.clearLateRelease(id)
	s.Dispose()
	r.record(EventExpired, s, at.String())
	metricReleaseTotal.Add(1)
	rep.Released++
	r.deps.World.MovePlayer(id, at)
	r.notify(id, msgReleased)
	log.Info().Str("user_id", id.String()).Stringer("at", at).Msg("sentence served")
}

// warn sends an expiry warning when the remaining whole minutes reach or
// cross a threshold not yet warned for.
func (r *Registry) warn(s *Session, now time.Time) bool {
	if !r.deps.World.IsConnected(s.userID) {
		return false
	}
	minutes := remainingMinutes(s.Remaining(now))
	prev, hasPrev := GetMeta(s, lastWarnedKey)
	if !shouldWarn(prev, hasPrev, minutes) {
		return false
	}
	SetMeta(s, lastWarnedKey, minutes)
	metricWarningsSentTotal.Add(1)
	r.notify(s.userID, warningMessage(minutes))
	return true
}

func remainingMinutes(d time.Duration) int {
	return int((d + time.Minute - 1) / time.Minute)
}

func warnThreshold(m int) bool {
	return m > 0 && (m <= 5 || m%10 == 0)
}

// shouldWarn reports whether cur deserves a warning after prev. A threshold
// skipped between two samples still warns, using the current value.
func shouldWarn(prev int, hasPrev bool, cur int) bool {
	if cur <= 0 || (hasPrev && prev == cur) {
		return false
	}
	if warnThreshold(cur) {
		return true
	}
	if !hasPrev {
		return false
	}
	for m := cur + 1; m < prev; m++ {
		if warnThreshold(m) {
			return true
		}
	}
	return false
}

func warningMessage(minutes int) string {
	if minutes == 1 {
		return "You will be released in 1 minute."
	}
	return fmt.Sprintf("You will be released in %d minutes.", minutes)
}
