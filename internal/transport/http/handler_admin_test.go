package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"stockade/internal/app/admin"
	"stockade/internal/jail"
	"stockade/internal/scheduler"
	"stockade/internal/tree"
	"stockade/internal/world"
)

const testAdminKey = "admin-key"

type inlineLoop struct{}

func (inlineLoop) Call(_ context.Context, fn func()) error {
	fn()
	return nil
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("down") }

func newTestRouter(t *testing.T, storage Pinger) *chi.Mux {
	t.Helper()
	w := world.New("world", map[string]world.Coordinate{"world": {World: "world", Y: 64}})
	reg := jail.NewRegistry(jail.Deps{
		Storage:   tree.NewStore(tree.NewMemoryBackend()),
		World:     w,
		Notifier:  w,
		Scheduler: scheduler.New(),
	}, jail.Options{})
	if err := reg.Start(context.Background()); err != nil {
		t.Fatalf("start registry: %v", err)
	}
	t.Cleanup(reg.Stop)
	return NewRouter(RouterConfig{
		Admin:       admin.NewService(reg, inlineLoop{}, nil),
		AdminAPIKey: testAdminKey,
		Storage:     storage,
	})
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Admin-Key", testAdminKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return out.Error
}

func TestHealth(t *testing.T) {
	w := do(t, newTestRouter(t, nil), http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", w.Code)
	}
	w = do(t, newTestRouter(t, downPinger{}), http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("healthz with storage down = %d, want 503", w.Code)
	}
}

func TestAdminAuthRequired(t *testing.T) {
	router := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/facilities", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/facilities", nil)
	req.Header.Set("Authorization", "Bearer "+testAdminKey)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("bearer status = %d, want 200", w.Code)
	}
}

func TestFacilityEndpoints(t *testing.T) {
	router := newTestRouter(t, nil)

	w := do(t, router, http.MethodPost, "/api/facilities", map[string]string{"owner": "acme", "name": "yard"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodPost, "/api/facilities", map[string]string{"owner": "acme", "name": "yard"})
	if w.Code != http.StatusConflict || errorCode(t, w) != "facility_exists" {
		t.Fatalf("duplicate = %d %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodPost, "/api/facilities", map[string]string{"owner": "acme", "name": "bad name"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid name status = %d, want 400", w.Code)
	}

	box := world.Cuboid{World: "world", Min: world.Vec{X: 0, Y: 0, Z: 0}, Max: world.Vec{X: 10, Y: 10, Z: 10}}
	if w := do(t, router, http.MethodPut, "/api/facilities/acme/yard/bounds", box); w.Code != http.StatusOK {
		t.Fatalf("bounds status = %d body=%s", w.Code, w.Body.String())
	}
	point := map[string]any{"name": "cell1", "world": "world", "x": 2, "y": 1, "z": 2}
	if w := do(t, router, http.MethodPost, "/api/facilities/acme/yard/points", point); w.Code != http.StatusCreated {
		t.Fatalf("add point status = %d body=%s", w.Code, w.Body.String())
	}
	release := world.Coordinate{World: "world", X: 50, Y: 64}
	if w := do(t, router, http.MethodPut, "/api/facilities/acme/yard/release-location", release); w.Code != http.StatusOK {
		t.Fatalf("release status = %d body=%s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/api/facilities/acme/yard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var item admin.FacilityItem
	if err := json.Unmarshal(w.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if item.Bounds == nil || len(item.Points) != 1 || item.ReleaseLocation == nil || *item.ReleaseLocation != release {
		t.Fatalf("facility = %+v", item)
	}

	if w := do(t, router, http.MethodDelete, "/api/facilities/acme/yard/release-location", nil); w.Code != http.StatusOK {
		t.Fatalf("clear release status = %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/api/facilities/acme/yard/points/cell1", nil); w.Code != http.StatusOK {
		t.Fatalf("remove point status = %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/api/facilities/acme/yard", nil); w.Code != http.StatusOK {
		t.Fatalf("remove status = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/api/facilities/acme/yard", nil)
	if w.Code != http.StatusNotFound || errorCode(t, w) != "facility_not_found" {
		t.Fatalf("get removed = %d %s", w.Code, w.Body.String())
	}
}

func TestPrisonerEndpoints(t *testing.T) {
	router := newTestRouter(t, nil)
	do(t, router, http.MethodPost, "/api/facilities", map[string]string{"owner": "acme", "name": "yard"})
	do(t, router, http.MethodPost, "/api/facilities/acme/yard/points", map[string]any{"name": "cell1", "world": "world", "x": 2, "y": 1, "z": 2})

	user := uuid.NewString()
	w := do(t, router, http.MethodPost, "/api/prisoners", admin.ImprisonRequest{UserID: user, Owner: "acme", Facility: "yard", DurationSeconds: 600})
	if w.Code != http.StatusCreated {
		t.Fatalf("imprison status = %d body=%s", w.Code, w.Body.String())
	}
	var p admin.PrisonerItem
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.UserID != user || p.State != "active" || p.ExpiresAt == nil {
		t.Fatalf("prisoner = %+v", p)
	}
	if left := time.Until(*p.ExpiresAt); left <= 0 || left > 10*time.Minute {
		t.Fatalf("expires in %v, want within 10m", left)
	}

	w = do(t, router, http.MethodGet, "/api/prisoners", nil)
	var list admin.PrisonersResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("prisoners = %d, want 1", len(list.Items))
	}

	override := world.Coordinate{World: "world", X: 1, Y: 64, Z: 1}
	if w := do(t, router, http.MethodPut, "/api/prisoners/"+user+"/release-location", override); w.Code != http.StatusOK {
		t.Fatalf("override status = %d body=%s", w.Code, w.Body.String())
	}
	if w := do(t, router, http.MethodGet, "/api/prisoners/"+user, nil); w.Code != http.StatusOK {
		t.Fatalf("get prisoner status = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/api/prisoners/"+user+"/events", nil); w.Code != http.StatusNotImplemented {
		t.Fatalf("events without journal = %d, want 501", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/api/prisoners/"+user, nil); w.Code != http.StatusOK {
		t.Fatalf("release status = %d", w.Code)
	}
	w = do(t, router, http.MethodDelete, "/api/prisoners/"+user, nil)
	if w.Code != http.StatusNotFound || errorCode(t, w) != "prisoner_not_found" {
		t.Fatalf("second release = %d %s", w.Code, w.Body.String())
	}
	if w := do(t, router, http.MethodGet, "/api/prisoners/not-a-uuid", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/api/late-releases", nil); w.Code != http.StatusOK {
		t.Fatalf("late releases status = %d", w.Code)
	}
}

func TestWardenPassAndDebugVars(t *testing.T) {
	router := newTestRouter(t, nil)
	w := do(t, router, http.MethodPost, "/api/warden/pass?silent=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pass status = %d body=%s", w.Code, w.Body.String())
	}
	var resp admin.PassResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Silent || resp.Report.Checked != 0 {
		t.Fatalf("pass = %+v", resp)
	}

	w = do(t, router, http.MethodGet, "/api/debug/vars", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("admin_requests_total")) {
		t.Fatalf("debug vars = %d", w.Code)
	}
}

func TestInvalidJSON(t *testing.T) {
	router := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/prisoners", bytes.NewBufferString("{"))
	req.Header.Set("X-Admin-Key", testAdminKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "invalid_json" {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
}
