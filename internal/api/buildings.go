package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/building-data/internal/dataset"
)

// Naive timestamps in slice queries are read as UTC.
var sliceTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	time.DateOnly,
}

// pathParam returns the decoded URL parameter. chi matches against RawPath
// when the request has one, and the parameter is still escaped then.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

// building resolves the {building} parameter, writing a 404 when unknown.
func (s *Server) building(w http.ResponseWriter, r *http.Request) (*dataset.Building, bool) {
	d, _ := s.store.Load()
	b, err := d.Get(pathParam(r, "building"))
	if err != nil {
		writeNotFound(w, "Building not found")
		return nil, false
	}
	return b, true
}

// handleListBuildings returns the sorted building names.
func (s *Server) handleListBuildings(w http.ResponseWriter, _ *http.Request) {
	d, _ := s.store.Load()
	writeJSON(w, http.StatusOK, map[string]any{"buildings": d.Names()})
}

// handleGetBuilding returns one building in canonical form.
func (s *Server) handleGetBuilding(w http.ResponseWriter, r *http.Request) {
	b, ok := s.building(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleListSensors returns the sensor descriptors of a building.
func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	b, ok := s.building(w, r)
	if !ok {
		return
	}
	sensors := b.Sensors
	if sensors == nil {
		sensors = []dataset.Sensor{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sensors": sensors})
}

// handleSensorValues returns the values of one sensor in timestamp order.
func (s *Server) handleSensorValues(w http.ResponseWriter, r *http.Request) {
	b, ok := s.building(w, r)
	if !ok {
		return
	}
	series, ok := b.Dataframe[pathParam(r, "sensor")]
	if !ok {
		writeNotFound(w, "Sensor not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sensor": series.Values()})
}

// handleTimestamps returns every timestamp present in any series of a building.
func (s *Server) handleTimestamps(w http.ResponseWriter, r *http.Request) {
	b, ok := s.building(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timestamps": b.Timestamps()})
}

// handleSlice returns the selected sensors restricted to [start, stop].
//
// Query parameters:
//   - start, stop: epoch milliseconds or an ISO 8601 timestamp
//   - sensors: sensor types separated by ";" (the parameter may repeat)
func (s *Server) handleSlice(w http.ResponseWriter, r *http.Request) {
	b, ok := s.building(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	start, err := parseSliceTime(q.Get("start"))
	if err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid start: %v", err))
		return
	}
	stop, err := parseSliceTime(q.Get("stop"))
	if err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid stop: %v", err))
		return
	}

	var types []string
	for _, v := range q["sensors"] {
		for typ := range strings.SplitSeq(v, ";") {
			if typ != "" {
				types = append(types, typ)
			}
		}
	}
	if len(types) == 0 {
		writeBadRequest(w, "sensors is required")
		return
	}

	first, last, _ := b.Bounds()
	if start > last || stop < first {
		writeNotFound(w, "Invalid time span")
		return
	}

	payload, err := b.Slice(types, start, stop)
	if errors.Is(err, dataset.ErrSensorNotFound) {
		writeNotFound(w, "Invalid sensor selection")
		return
	}
	if err != nil {
		writeInternalError(w, "slicing building data failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payload": payload})
}

// handleDataset streams the whole served dataset in canonical JSON.
func (s *Server) handleDataset(w http.ResponseWriter, _ *http.Request) {
	d, runID := s.store.Load()
	w.Header().Set("Content-Type", "application/json")
	if runID != "" {
		w.Header().Set("X-Import-Run", runID)
	}
	w.WriteHeader(http.StatusOK)
	if err := d.Encode(w); err != nil {
		s.logger.Warn("writing dataset response failed", "error", err)
	}
}

// parseSliceTime parses epoch milliseconds or an ISO 8601 timestamp.
func parseSliceTime(v string) (int64, error) {
	if v == "" {
		return 0, errors.New("missing value")
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return ms, nil
	}
	for _, layout := range sliceTimeLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("%q is neither epoch milliseconds nor ISO 8601", v)
}
