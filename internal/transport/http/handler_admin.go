package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"stockade/internal/app/admin"
	"stockade/internal/world"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type AdminHandlers struct {
	svc     *admin.Service
	storage Pinger
}

// NewAdminHandlers builds the handlers. storage may be nil for backends
// without a health check.
func NewAdminHandlers(svc *admin.Service, storage Pinger) *AdminHandlers {
	return &AdminHandlers{svc: svc, storage: storage}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.storage != nil {
			if err := h.storage.Ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "storage": "down"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "storage": "up"})
	}
}

func (h *AdminHandlers) Facilities() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Facilities(r.Context())
		h.respond(w, http.StatusOK, resp, err)
	}
}

func (h *AdminHandlers) CreateFacility() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Owner string `json:"owner"`
			Name  string `json:"name"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		resp, err := h.svc.CreateFacility(r.Context(), body.Owner, body.Name)
		h.respond(w, http.StatusCreated, resp, err)
	}
}

func (h *AdminHandlers) Facility() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, name := facilityParams(r)
		resp, err := h.svc.Facility(r.Context(), owner, name)
		h.respond(w, http.StatusOK, resp, err)
	}
}

func (h *AdminHandlers) RemoveFacility() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, name := facilityParams(r)
		err := h.svc.RemoveFacility(r.Context(), owner, name)
		h.respond(w, http.StatusOK, map[string]any{"ok": true}, err)
	}
}

func (h *AdminHandlers) SetBounds() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var box world.Cuboid
		if !decodeBody(w, r, &box) {
			return
		}
		owner, name := facilityParams(r)
		err := h.svc.SetBounds(r.Context(), owner, name, box)
		h.respond(w, http.StatusOK, map[string]any{"ok": true}, err)
	}
}

// SetReleaseLocation handles PUT with a coordinate body and DELETE to clear.
func (h *AdminHandlers) SetReleaseLocation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := coordinateForMethod(w, r)
		if !ok {
			return
		}
		owner, name := facilityParams(r)
		err := h.svc.SetReleaseLocation(r.Context(), owner, name, c)
		h.respond(w, http.StatusOK, map[string]any{"ok": true}, err)
	}
}

func (h *AdminHandlers) AddPoint() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name string `json:"name"`
			world.Coordinate
		}
		if !decodeBody(w, r, &body) {
			return
		}
		owner, name := facilityParams(r)
		err := h.svc.AddPoint(r.Context(), owner, name, body.Name, body.Coordinate)
		h.respond(w, http.StatusCreated, map[string]any{"ok": true}, err)
	}
}

func (h *AdminHandlers) RemovePoint() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, name := facilityParams(r)
		err := h.svc.RemovePoint(r.Context(), owner, name, chi.URLParam(r, "point"))
		h.respond(w, http.StatusOK, map[string]any{"ok": true}, err)
	}
}

func (h *AdminHandlers) Prisoners() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Prisoners(r.Context())
		h.respond(w, http.StatusOK, resp, err)
	}
}

func (h *AdminHandlers) Imprison() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricImprisonRequestsTotal.Add(1)
		var req admin.ImprisonRequest
		if !decodeBody(w, r, &req) {
			return
		}
		resp, err := h.svc.Imprison(r.Context(), req)
		h.respond(w, http.StatusCreated, resp, err)
	}
}

func (h *AdminHandlers) Prisoner() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Prisoner(r.Context(), chi.URLParam(r, "user_id"))
		h.respond(w, http.StatusOK, resp, err)
	}
}

func (h *AdminHandlers) Release() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricReleaseRequestsTotal.Add(1)
		err := h.svc.Release(r.Context(), chi.URLParam(r, "user_id"))
		h.respond(w, http.StatusOK, map[string]any{"ok": true}, err)
	}
}

func (h *AdminHandlers) SetPrisonerReleaseLocation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := coordinateForMethod(w, r)
		if !ok {
			return
		}
		err := h.svc.SetPrisonerReleaseLocation(r.Context(), chi.URLParam(r, "user_id"), c)
		h.respond(w, http.StatusOK, map[string]any{"ok": true}, err)
	}
}

func (h *AdminHandlers) Events() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Events(r.Context(), chi.URLParam(r, "user_id"), ParseLimit(r))
		h.respond(w, http.StatusOK, resp, err)
	}
}

func (h *AdminHandlers) LateReleases() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.LateReleases(r.Context())
		h.respond(w, http.StatusOK, resp, err)
	}
}

func (h *AdminHandlers) WardenPass() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		silent := r.URL.Query().Get("silent") == "true"
		resp, err := h.svc.RunPass(r.Context(), silent)
		h.respond(w, http.StatusOK, resp, err)
	}
}

func (h *AdminHandlers) respond(w http.ResponseWriter, status int, v any, err error) {
	metricAdminRequestsTotal.Add(1)
	if err != nil {
		metricAdminErrorsTotal.Add(1)
		code := admin.ErrorCode(err)
		if code == "internal_error" {
			log.Error().Err(err).Msg("admin request failed")
		}
		WriteHTTPError(w, statusForCode(code, err), code)
		return
	}
	writeJSON(w, status, v)
}

func statusForCode(code string, err error) int {
	switch code {
	case "invalid_request":
		return http.StatusBadRequest
	case "facility_not_found", "prisoner_not_found", "point_not_found":
		return http.StatusNotFound
	case "facility_exists", "point_exists", "no_placement", "root_facility", "invalid_state":
		return http.StatusConflict
	case "journal_unavailable":
		return http.StatusNotImplemented
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func facilityParams(r *http.Request) (string, string) {
	return chi.URLParam(r, "owner"), chi.URLParam(r, "name")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
		return false
	}
	return true
}

// coordinateForMethod decodes the body for PUT and yields nil for DELETE.
func coordinateForMethod(w http.ResponseWriter, r *http.Request) (*world.Coordinate, bool) {
	if r.Method == http.MethodDelete {
		return nil, true
	}
	var c world.Coordinate
	if !decodeBody(w, r, &c) {
		return nil, false
	}
	return &c, true
}
