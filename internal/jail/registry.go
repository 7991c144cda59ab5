// Package jail confines users to facilities for a limited time. Every method
// must be called from the main loop; the registry does no locking of its own.
package jail

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"stockade/internal/ids"
	"stockade/internal/scheduler"
	"stockade/internal/tree"
	"stockade/internal/world"
)

const (
	pathPrisoners   = "prisoners"
	pathLateRelease = "late-release"
	pathJails       = "jails"
	pathOwners      = "owners"
)

const (
	msgImprisoned  = "You have been imprisoned."
	msgReleased    = "You have been released."
	msgCannotLeave = "You cannot leave the prison."
)

// Registry owns every facility and active session.
type Registry struct {
	deps Deps
	opts Options
	now  func() time.Time

	root       *Facility
	rootTree   *tree.Tree
	facilities map[FacilityKey]*Facility
	sessions   map[uuid.UUID]*Session

	journal    *journalWriter
	warden     *scheduler.Task
	wardenRuns int
	started    bool
}

func NewRegistry(deps Deps, opts Options) *Registry {
	opts.setDefaults()
	if opts.Random == nil {
		opts.Random = rand.IntN
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	return &Registry{
		deps:       deps,
		opts:       opts,
		now:        now,
		facilities: map[FacilityKey]*Facility{},
		sessions:   map[uuid.UUID]*Session{},
	}
}

// Start loads facilities and sessions, runs the start-up sweep and schedules
// the warden.
func (r *Registry) Start(ctx context.Context) error {
	if r.started {
		return nil
	}
	root, err := r.deps.Storage.Namespace(ctx, r.opts.RootNamespace)
	if err != nil {
		return fmt.Errorf("load root namespace: %w", err)
	}
	r.rootTree = root
	r.root = r.loadFacility(root, r.opts.RootFacility)
	root.SaveAsync()

	for _, owner := range r.knownOwners() {
		t, err := r.deps.Storage.Namespace(ctx, owner)
		if err != nil {
			return fmt.Errorf("load owner %q: %w", owner, err)
		}
		for _, name := range t.Keys(pathJails) {
			r.loadFacility(t, name)
		}
	}
	r.journal = newJournalWriter(r.deps.Journal)
	r.restoreSessions()
	r.started = true

	r.Pass(PassOptions{Sweep: true, Silent: true})
	r.startWarden()
	log.Info().
		Int("facilities", len(r.facilities)).
		Int("sessions", len(r.sessions)).
		Int("late_releases", len(r.LateReleases())).
		Msg("jail registry started")
	return nil
}

// Stop cancels the warden and flushes the journal.
func (r *Registry) Stop() {
	if !r.started {
		return
	}
	r.warden.Cancel()
	r.journal.close()
	r.started = false
}

// knownOwners merges the configured owners with those recorded by
// CreateFacility, root first.
func (r *Registry) knownOwners() []string {
	seen := map[string]bool{}
	var out []string
	candidates := append([]string{r.opts.RootNamespace}, r.opts.Owners...)
	candidates = append(candidates, r.rootTree.Keys(pathOwners)...)
	for _, owner := range candidates {
		key := strings.ToLower(owner)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, owner)
	}
	return out
}

func (r *Registry) loadFacility(owner *tree.Tree, name string) *Facility {
	key := FacilityKey{Owner: owner.Namespace(), Name: strings.ToLower(name)}
	if f := r.facilities[key]; f != nil {
		return f
	}
	f := newFacility(r, owner, name)
	r.facilities[key] = f
	return f
}

// restoreSessions rebuilds sessions from the root tree. Records whose
// facility cannot be resolved stay in storage untouched.
func (r *Registry) restoreSessions() {
	t := r.rootTree
	for _, k := range t.Keys(pathPrisoners) {
		id, err := uuid.Parse(k)
		node := t.Sub(pathPrisoners + "." + k)
		owner, _ := node.String("owner")
		name, _ := node.String("facility")
		f := r.facilities[FacilityKey{Owner: strings.ToLower(owner), Name: strings.ToLower(name)}]
		if err != nil || f == nil {
			metricSessionsUnresolved.Add(1)
			log.Warn().Str("user_id", k).Str("owner", owner).Str("facility", name).Msg("keeping unresolved prisoner record")
			continue
		}
		s := &Session{
			userID:   id,
			facility: f,
			registry: r,
		}
		s.id, _ = node.String("session-id")
		s.expires, _ = node.Time("expires")
		s.createdAt, _ = node.Time("created")
		switch {
		case s.id == "":
			s.id = ids.At(r.now())
		case s.createdAt.IsZero():
			s.createdAt, _ = ids.Time(s.id)
		}
		if c, ok := node.Coordinate(pathRelease); ok {
			s.releaseAt = &c
		}
		r.sessions[id] = s
	}
	metricSessionsActive.Set(int64(len(r.sessions)))
}

// Root returns the facility that can never be removed.
func (r *Registry) Root() *Facility { return r.root }

// CreateFacility creates owner/name. It fails with ErrFacilityExists when the
// name is taken.
func (r *Registry) CreateFacility(ctx context.Context, owner, name string) (*Facility, error) {
	if !r.started {
		return nil, ErrNotStarted
	}
	if !namePattern.MatchString(owner) {
		return nil, fmt.Errorf("%w: owner %q", ErrInvalidName, owner)
	}
	if !namePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: facility %q", ErrInvalidName, name)
	}
	t, err := r.deps.Storage.Namespace(ctx, owner)
	if err != nil {
		return nil, err
	}
	key := FacilityKey{Owner: t.Namespace(), Name: strings.ToLower(name)}
	if r.facilities[key] != nil {
		return nil, ErrFacilityExists
	}
	f := r.loadFacility(t, name)
	t.SaveAsync()
	if owner := t.Namespace(); owner != r.rootTree.Namespace() && !r.rootTree.Has(pathOwners+"."+owner) {
		r.rootTree.Set(pathOwners+"."+owner, true)
		r.rootTree.SaveAsync()
	}
	log.Info().Str("facility", f.String()).Msg("facility created")
	return f, nil
}

func (r *Registry) Facility(owner, name string) (*Facility, bool) {
	f := r.facilities[FacilityKey{Owner: strings.ToLower(owner), Name: strings.ToLower(name)}]
	return f, f != nil
}

// Facilities lists every facility ordered by owner and name.
func (r *Registry) Facilities() []*Facility {
	out := make([]*Facility, 0, len(r.facilities))
	for _, f := range r.facilities {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].key.Owner != out[j].key.Owner {
			return out[i].key.Owner < out[j].key.Owner
		}
		return out[i].key.Name < out[j].key.Name
	})
	return out
}

// RemoveFacility disposes f. Its sessions expire and are released by the next
// warden pass.
func (r *Registry) RemoveFacility(f *Facility) error {
	if f == r.root {
		return ErrRootFacility
	}
	if f.disposed {
		return ErrFacilityDisposed
	}
	delete(r.facilities, f.key)
	f.dispose()
	for _, s := range r.sessions {
		if s.facility == f {
			s.State()
			r.record(EventFacilityRemoved, s, "")
		}
	}
	log.Info().Str("facility", f.String()).Msg("facility removed")
	return nil
}

func (r *Registry) Imprison(f *Facility, id uuid.UUID, expiration time.Time) (*Session, error) {
	return f.Imprison(id, expiration)
}

// admit stores a new session for id, replacing any previous one, and moves
// the user to at. Offline users are placed on their next connect.
func (r *Registry) admit(f *Facility, id uuid.UUID, expiration time.Time, at world.Coordinate) *Session {
	if prev := r.sessions[id]; prev != nil {
		log.Info().
			Str("user_id", id.String()).
			Str("from", prev.facility.String()).
			Str("to", f.String()).
			Msg("replacing existing session")
		prev.Dispose()
	}
	r.clearLateRelease(id)

	s := &Session{
		id:        ids.At(r.now()),
		userID:    id,
		facility:  f,
		registry:  r,
		createdAt: r.now(),
		expires:   expiration,
	}
	r.sessions[id] = s
	r.persistSession(s)
	metricImprisonTotal.Add(1)
	metricSessionsActive.Set(int64(len(r.sessions)))
	r.record(EventImprisoned, s, "")

	if r.deps.World.MovePlayer(id, at) {
		r.notify(id, msgImprisoned)
	} else {
		log.Debug().Str("user_id", id.String()).Msg("prisoner offline, placing on connect")
	}
	log.Info().
		Str("user_id", id.String()).
		Str("facility", f.String()).
		Time("expires", expiration).
		Msg("user imprisoned")
	return s
}

func (r *Registry) IsPrisoner(id uuid.UUID) bool {
	s := r.sessions[id]
	return s != nil && !s.Released()
}

func (r *Registry) Session(id uuid.UUID) (*Session, bool) {
	s := r.sessions[id]
	return s, s != nil
}

// Sessions lists tracked sessions ordered by creation.
func (r *Registry) Sessions() []*Session {
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].createdAt.Equal(out[j].createdAt) {
			return out[i].createdAt.Before(out[j].createdAt)
		}
		return out[i].userID.String() < out[j].userID.String()
	})
	return out
}

// Release ends the user's session and reports whether one was tracked.
func (r *Registry) Release(id uuid.UUID) bool {
	s := r.sessions[id]
	if s == nil {
		return false
	}
	return s.Release()
}

// releaseSession forgets s if it is still the tracked session, moves a
// connected user out and runs a sweep.
func (r *Registry) releaseSession(s *Session) bool {
	if r.sessions[s.userID] != s {
		return false
	}
	r.forget(s)
	metricReleaseTotal.Add(1)
	r.record(EventReleased, s, "")
	if r.deps.World.IsConnected(s.userID) {
		if at, ok := r.resolveRelease(s); ok {
			r.clearLateRelease(s.userID)
			r.deps.World.MovePlayer(s.userID, at)
		}
		r.notify(s.userID, msgReleased)
	}
	log.Info().Str("user_id", s.userID.String()).Str("facility", s.facility.String()).Msg("user released")
	r.Pass(PassOptions{Sweep: true, Silent: true})
	return true
}

// forget drops s from the active map and from storage.
func (r *Registry) forget(s *Session) {
	if r.sessions[s.userID] == s {
		delete(r.sessions, s.userID)
		r.rootTree.Remove(pathPrisoners + "." + s.userID.String())
		r.rootTree.SaveAsync()
	}
	metricSessionsActive.Set(int64(len(r.sessions)))
}

func (r *Registry) persistSession(s *Session) {
	if r.sessions[s.userID] != s {
		return
	}
	node := map[string]any{
		"session-id": s.id,
		"owner":      s.facility.key.Owner,
		"facility":   s.facility.key.Name,
		"expires":    s.expires.UnixMilli(),
		"created":    s.createdAt.UnixMilli(),
	}
	r.rootTree.Set(pathPrisoners+"."+s.userID.String(), node)
	if s.releaseAt != nil {
		r.rootTree.SetCoordinate(pathPrisoners+"."+s.userID.String()+"."+pathRelease, *s.releaseAt)
	}
	r.rootTree.SaveAsync()
}

// resolveRelease picks where s leaves to: the session override, then the
// facility release coordinate.
func (r *Registry) resolveRelease(s *Session) (world.Coordinate, bool) {
	if c, ok := s.ReleaseCoordinate(); ok {
		return c, true
	}
	return s.facility.ReleaseCoordinate()
}

func (r *Registry) notify(id uuid.UUID, msg string) {
	r.deps.Notifier.Notify(id, msg)
}

func (r *Registry) record(kind EventKind, s *Session, detail string) {
	r.journal.record(Event{
		Kind:      kind,
		UserID:    s.userID,
		Owner:     s.facility.key.Owner,
		Facility:  s.facility.key.Name,
		SessionID: s.id,
		At:        r.now(),
		Detail:    detail,
	})
}

type nopNotifier struct{}

func (nopNotifier) Notify(uuid.UUID, string) {}
