package admin

import (
	"time"

	"stockade/internal/jail"
	"stockade/internal/world"
)

type FacilitiesResponse struct {
	Items []FacilityItem `json:"items"`
}

type FacilityItem struct {
	Owner           string                      `json:"owner"`
	Name            string                      `json:"name"`
	Root            bool                        `json:"root"`
	Prisoners       int                         `json:"prisoners"`
	Points          map[string]world.Coordinate `json:"points"`
	ReleaseLocation *world.Coordinate           `json:"release_location,omitempty"`
	Bounds          *world.Cuboid               `json:"bounds,omitempty"`
}

type PrisonersResponse struct {
	Items []PrisonerItem `json:"items"`
}

type PrisonerItem struct {
	UserID           string            `json:"user_id"`
	SessionID        string            `json:"session_id"`
	Owner            string            `json:"owner"`
	Facility         string            `json:"facility"`
	State            string            `json:"state"`
	CreatedAt        time.Time         `json:"created_at"`
	ExpiresAt        *time.Time        `json:"expires_at,omitempty"`
	RemainingSeconds int64             `json:"remaining_seconds"`
	ReleaseLocation  *world.Coordinate `json:"release_location,omitempty"`
	LateRelease      bool              `json:"late_release"`
}

type ImprisonRequest struct {
	UserID          string `json:"user_id"`
	Owner           string `json:"owner"`
	Facility        string `json:"facility"`
	DurationSeconds int64  `json:"duration_seconds"`
}

type LateReleasesResponse struct {
	Items []LateReleaseItem `json:"items"`
}

type LateReleaseItem struct {
	UserID string           `json:"user_id"`
	At     world.Coordinate `json:"at"`
}

type EventsResponse struct {
	UserID string       `json:"user_id"`
	Items  []jail.Event `json:"items"`
	Limit  int          `json:"limit"`
}

type PassResponse struct {
	Silent bool            `json:"silent"`
	Report jail.PassReport `json:"report"`
}
