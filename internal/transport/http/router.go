package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"stockade/internal/app/admin"
)

type RouterConfig struct {
	Admin       *admin.Service
	AdminAPIKey string
	// Storage is pinged by /healthz when set.
	Storage     Pinger
	// MCP and WS are mounted at /mcp and /ws when set.
	MCP         http.Handler
	WS          http.Handler
}

func NewRouter(cfg RouterConfig) *chi.Mux {
	adminHandlers := NewAdminHandlers(cfg.Admin, cfg.Storage)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())

	if cfg.WS != nil {
		r.Handle("/ws", cfg.WS)
	}
	if cfg.MCP != nil {
		r.Group(func(r chi.Router) {
			r.Use(APILogMiddleware())
			r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
			r.MethodFunc(http.MethodOptions, "/mcp", func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Allow", "POST, GET, DELETE, OPTIONS")
				w.WriteHeader(http.StatusNoContent)
			})
			r.Method(http.MethodPost, "/mcp", cfg.MCP)
			r.Method(http.MethodGet, "/mcp", cfg.MCP)
			r.Method(http.MethodDelete, "/mcp", cfg.MCP)
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))

		r.Get("/facilities", adminHandlers.Facilities())
		r.Post("/facilities", adminHandlers.CreateFacility())
		r.Route("/facilities/{owner}/{name}", func(r chi.Router) {
			r.Get("/", adminHandlers.Facility())
			r.Delete("/", adminHandlers.RemoveFacility())
			r.Put("/bounds", adminHandlers.SetBounds())
			r.Put("/release-location", adminHandlers.SetReleaseLocation())
			r.Delete("/release-location", adminHandlers.SetReleaseLocation())
			r.Post("/points", adminHandlers.AddPoint())
			r.Delete("/points/{point}", adminHandlers.RemovePoint())
		})

		r.Get("/prisoners", adminHandlers.Prisoners())
		r.Post("/prisoners", adminHandlers.Imprison())
		r.Route("/prisoners/{user_id}", func(r chi.Router) {
			r.Get("/", adminHandlers.Prisoner())
			r.Delete("/", adminHandlers.Release())
			r.Put("/release-location", adminHandlers.SetPrisonerReleaseLocation())
			r.Delete("/release-location", adminHandlers.SetPrisonerReleaseLocation())
			r.Get("/events", adminHandlers.Events())
		})
		r.Get("/late-releases", adminHandlers.LateReleases())

		r.Route("/warden", func(r chi.Router) {
			r.Use(BodyCaptureMiddleware(4096))
			r.Post("/pass", adminHandlers.WardenPass())
		})
		r.Get("/debug/vars", expvar.Handler().ServeHTTP)
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 32)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
