// Package admin is the operator-facing view of the jail registry shared by
// the HTTP API and the MCP tools. Every registry access is queued onto the
// main loop.
package admin

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"stockade/internal/jail"
	"stockade/internal/world"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500

	// MaxDurationSeconds is the longest sentence that still fits a
	// time.Duration.
	MaxDurationSeconds = math.MaxInt64 / int64(time.Second)
)

// Loop runs fn on the main loop and waits for it.
type Loop interface {
	Call(ctx context.Context, fn func()) error
}

// EventLister reads a user's confinement history.
type EventLister interface {
	ListEvents(ctx context.Context, userID uuid.UUID, limit int) ([]jail.Event, error)
}

type Service struct {
	reg    *jail.Registry
	loop   Loop
	events EventLister
	now    func() time.Time
}

// NewService builds the service. events may be nil when no journal is
// configured.
func NewService(reg *jail.Registry, loop Loop, events EventLister) *Service {
	return &Service{reg: reg, loop: loop, events: events, now: time.Now}
}

// call runs fn on the main loop and returns its error.
func (s *Service) call(ctx context.Context, fn func() error) error {
	var err error
	if cerr := s.loop.Call(ctx, func() { err = fn() }); cerr != nil {
		return cerr
	}
	return err
}

func (s *Service) Facilities(ctx context.Context) (*FacilitiesResponse, error) {
	var out []FacilityItem
	err := s.call(ctx, func() error {
		fs := s.reg.Facilities()
		out = make([]FacilityItem, 0, len(fs))
		for _, f := range fs {
			out = append(out, facilityItem(f))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &FacilitiesResponse{Items: out}, nil
}

func (s *Service) Facility(ctx context.Context, owner, name string) (*FacilityItem, error) {
	var out FacilityItem
	err := s.withFacility(ctx, owner, name, func(f *jail.Facility) error {
		out = facilityItem(f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) CreateFacility(ctx context.Context, owner, name string) (*FacilityItem, error) {
	owner, name = strings.TrimSpace(owner), strings.TrimSpace(name)
	if owner == "" || name == "" {
		return nil, fmt.Errorf("%w: owner and name are required", ErrInvalidRequest)
	}
	var out FacilityItem
	err := s.call(ctx, func() error {
		f, err := s.reg.CreateFacility(ctx, owner, name)
		if err != nil {
			return err
		}
		out = facilityItem(f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) RemoveFacility(ctx context.Context, owner, name string) error {
	return s.withFacility(ctx, owner, name, s.reg.RemoveFacility)
}

func (s *Service) SetBounds(ctx context.Context, owner, name string, box world.Cuboid) error {
	if box.World == "" {
		return fmt.Errorf("%w: bounds world is required", ErrInvalidRequest)
	}
	return s.withFacility(ctx, owner, name, func(f *jail.Facility) error {
		return f.SetBounds(box)
	})
}

// SetReleaseLocation sets the facility release coordinate, or clears it when
// c is nil.
func (s *Service) SetReleaseLocation(ctx context.Context, owner, name string, c *world.Coordinate) error {
	if c != nil && c.World == "" {
		return fmt.Errorf("%w: coordinate world is required", ErrInvalidRequest)
	}
	return s.withFacility(ctx, owner, name, func(f *jail.Facility) error {
		return f.SetReleaseCoordinate(c)
	})
}

func (s *Service) AddPoint(ctx context.Context, owner, name, point string, c world.Coordinate) error {
	if c.World == "" {
		return fmt.Errorf("%w: coordinate world is required", ErrInvalidRequest)
	}
	return s.withFacility(ctx, owner, name, func(f *jail.Facility) error {
		return f.AddPlacementPoint(point, c)
	})
}

func (s *Service) RemovePoint(ctx context.Context, owner, name, point string) error {
	return s.withFacility(ctx, owner, name, func(f *jail.Facility) error {
		return f.RemovePlacementPoint(point)
	})
}

func (s *Service) withFacility(ctx context.Context, owner, name string, fn func(*jail.Facility) error) error {
	return s.call(ctx, func() error {
		f, ok := s.reg.Facility(owner, name)
		if !ok {
			return fmt.Errorf("%w: %s/%s", ErrFacilityNotFound, owner, name)
		}
		return fn(f)
	})
}

func (s *Service) Prisoners(ctx context.Context) (*PrisonersResponse, error) {
	var out []PrisonerItem
	err := s.call(ctx, func() error {
		now := s.now()
		sessions := s.reg.Sessions()
		out = make([]PrisonerItem, 0, len(sessions))
		for _, sess := range sessions {
			out = append(out, s.prisonerItem(sess, now))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &PrisonersResponse{Items: out}, nil
}

func (s *Service) Prisoner(ctx context.Context, rawID string) (*PrisonerItem, error) {
	id, err := parseUserID(rawID)
	if err != nil {
		return nil, err
	}
	var out PrisonerItem
	err = s.call(ctx, func() error {
		sess, ok := s.reg.Session(id)
		if !ok {
			return ErrPrisonerNotFound
		}
		out = s.prisonerItem(sess, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Imprison confines the user for the requested duration. An existing
// session is replaced.
func (s *Service) Imprison(ctx context.Context, req ImprisonRequest) (*PrisonerItem, error) {
	id, err := parseUserID(req.UserID)
	if err != nil {
		return nil, err
	}
	if req.DurationSeconds <= 0 {
		return nil, fmt.Errorf("%w: duration_seconds must be positive", ErrInvalidRequest)
	}
	if req.DurationSeconds > MaxDurationSeconds {
		return nil, fmt.Errorf("%w: duration_seconds must not exceed %d", ErrInvalidRequest, MaxDurationSeconds)
	}
	var out PrisonerItem
	err = s.call(ctx, func() error {
		f := s.reg.Root()
		if req.Owner != "" || req.Facility != "" {
			var ok bool
			if f, ok = s.reg.Facility(req.Owner, req.Facility); !ok {
				return fmt.Errorf("%w: %s/%s", ErrFacilityNotFound, req.Owner, req.Facility)
			}
		}
		now := s.now()
		sess, err := s.reg.Imprison(f, id, now.Add(time.Duration(req.DurationSeconds)*time.Second))
		if err != nil {
			return err
		}
		out = s.prisonerItem(sess, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) Release(ctx context.Context, rawID string) error {
	id, err := parseUserID(rawID)
	if err != nil {
		return err
	}
	return s.call(ctx, func() error {
		if !s.reg.Release(id) {
			return jail.ErrNotPrisoner
		}
		return nil
	})
}

// SetPrisonerReleaseLocation overrides where this prisoner is released, or
// clears the override when c is nil.
func (s *Service) SetPrisonerReleaseLocation(ctx context.Context, rawID string, c *world.Coordinate) error {
	id, err := parseUserID(rawID)
	if err != nil {
		return err
	}
	if c != nil && c.World == "" {
		return fmt.Errorf("%w: coordinate world is required", ErrInvalidRequest)
	}
	return s.call(ctx, func() error {
		sess, ok := s.reg.Session(id)
		if !ok {
			return ErrPrisonerNotFound
		}
		sess.SetReleaseCoordinate(c)
		return nil
	})
}

func (s *Service) LateReleases(ctx context.Context) (*LateReleasesResponse, error) {
	var out []LateReleaseItem
	err := s.call(ctx, func() error {
		lr := s.reg.LateReleases()
		out = make([]LateReleaseItem, 0, len(lr))
		for _, l := range lr {
			out = append(out, LateReleaseItem{UserID: l.UserID.String(), At: l.At})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &LateReleasesResponse{Items: out}, nil
}

// Events returns the newest journal entries for a user. It does not touch
// the main loop.
func (s *Service) Events(ctx context.Context, rawID string, limit int) (*EventsResponse, error) {
	id, err := parseUserID(rawID)
	if err != nil {
		return nil, err
	}
	if s.events == nil {
		return nil, ErrJournalUnavailable
	}
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}
	items, err := s.events.ListEvents(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []jail.Event{}
	}
	return &EventsResponse{UserID: id.String(), Items: items, Limit: limit}, nil
}

// RunPass runs one warden pass immediately. It never processes late
// releases, which only the scheduled sweep handles.
func (s *Service) RunPass(ctx context.Context, silent bool) (*PassResponse, error) {
	var rep jail.PassReport
	err := s.call(ctx, func() error {
		rep = s.reg.Pass(jail.PassOptions{Silent: silent})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &PassResponse{Silent: silent, Report: rep}, nil
}

func (s *Service) prisonerItem(sess *jail.Session, now time.Time) PrisonerItem {
	f := sess.Facility()
	item := PrisonerItem{
		UserID:           sess.UserID().String(),
		SessionID:        sess.ID(),
		Owner:            f.Owner(),
		Facility:         f.Name(),
		State:            sess.State().String(),
		CreatedAt:        sess.CreatedAt(),
		RemainingSeconds: int64(sess.Remaining(now) / time.Second),
		LateRelease:      s.reg.IsLateRelease(sess.UserID()),
	}
	if exp, ok := sess.Expiration(); ok {
		item.ExpiresAt = &exp
	}
	if c, ok := sess.ReleaseCoordinate(); ok {
		item.ReleaseLocation = &c
	}
	return item
}

func facilityItem(f *jail.Facility) FacilityItem {
	item := FacilityItem{
		Owner:     f.Owner(),
		Name:      f.Name(),
		Root:      f.Root(),
		Prisoners: len(f.Sessions()),
		Points:    f.PlacementPoints(),
	}
	if c, ok := f.ReleaseCoordinate(); ok {
		item.ReleaseLocation = &c
	}
	if b, ok := f.Bounds(); ok {
		item.Bounds = &b
	}
	return item
}

func parseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: invalid user_id %q", ErrInvalidRequest, raw)
	}
	return id, nil
}
