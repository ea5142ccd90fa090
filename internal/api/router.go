package api

import (
	"cmp"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Route is one entry of the route index served at "/".
type Route struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// routeNames names the routes listed by the index.
var routeNames = map[string]string{
	"/":                                     "Root path",
	"/api/v1/health":                        "Health",
	"/api/v1/status":                        "System status",
	"/buildings":                            "Buildings",
	"/buildings/{building}":                 "Building",
	"/buildings/{building}/sensors":         "Building Sensors",
	"/buildings/{building}/sensors/{sensor}": "Sensor Data",
	"/buildings/{building}/slice":           "Building Slice",
	"/buildings/{building}/timestamps":      "Building Timeframe",
	"/dataset":                              "Dataset",
	"/imports":                              "Import runs",
	"/imports/{id}":                         "Import run",
	"/metrics":                              "Prometheus metrics",
}

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, routeIndex(r))
	})

	r.Get("/api/v1/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)

	r.Get("/buildings", s.handleListBuildings)
	r.Get("/buildings/{building}", s.handleGetBuilding)
	r.Get("/buildings/{building}/sensors", s.handleListSensors)
	r.Get("/buildings/{building}/sensors/{sensor}", s.handleSensorValues)
	r.Get("/buildings/{building}/slice", s.handleSlice)
	r.Get("/buildings/{building}/timestamps", s.handleTimestamps)
	r.Get("/dataset", s.handleDataset)

	r.Get("/imports", s.handleListImports)
	r.Post("/imports", s.handleStartImport)
	r.Get("/imports/{id}", s.handleGetImport)

	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	return r
}

// routeIndex lists the GET routes of r sorted by path.
func routeIndex(r chi.Routes) []Route {
	routes := []Route{}
	seen := make(map[string]bool)
	//nolint:errcheck // walkFn never returns an error
	chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		route = strings.TrimSuffix(route, "/*")
		if method != http.MethodGet || seen[route] {
			return nil
		}
		seen[route] = true
		routes = append(routes, Route{Path: route, Name: routeNames[route]})
		return nil
	})
	slices.SortFunc(routes, func(a, b Route) int { return cmp.Compare(a.Path, b.Path) })
	return routes
}

// handleHealth returns the server health and the size of the served dataset.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	d, runID := s.store.Load()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"buildings": len(d),
		"run_id":    runID,
	})
}
