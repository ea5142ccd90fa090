package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemStatus is the response of the status endpoint.
type SystemStatus struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeStatus   `json:"runtime"`
	Dataset       DatasetStatus   `json:"dataset"`
	MQTT          SinkStatus      `json:"mqtt"`
	InfluxDB      SinkStatus      `json:"influxdb"`
	Database      *DatabaseStatus `json:"database,omitempty"`
}

// RuntimeStatus contains Go runtime statistics.
type RuntimeStatus struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// DatasetStatus describes the served dataset.
type DatasetStatus struct {
	Buildings int    `json:"buildings"`
	Sensors   int    `json:"sensors"`
	RunID     string `json:"run_id"`
	LoadedAt  string `json:"loaded_at,omitempty"`
}

// SinkStatus reports whether an optional hand-off sink is connected.
type SinkStatus struct {
	Configured bool `json:"configured"`
	Connected  bool `json:"connected"`
}

// DatabaseStatus contains history database pool statistics.
type DatabaseStatus struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleStatus returns runtime, dataset and sink status.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	d, runID := s.store.Load()
	sensors := 0
	for _, b := range d {
		sensors += len(b.Sensors)
	}

	status := SystemStatus{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeStatus{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Dataset: DatasetStatus{
			Buildings: len(d),
			Sensors:   sensors,
			RunID:     runID,
		},
		MQTT:     sinkStatus(s.mqtt),
		InfluxDB: sinkStatus(s.influx),
	}
	if loaded := s.store.LoadedAt(); !loaded.IsZero() {
		status.Dataset.LoadedAt = loaded.Format(time.RFC3339)
	}

	if s.db != nil {
		stats := s.db.Stats()
		status.Database = &DatabaseStatus{
			OpenConnections: stats.OpenConnections,
			InUse:           stats.InUse,
			Idle:            stats.Idle,
			WaitCount:       stats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, status)
}

func sinkStatus(c Connection) SinkStatus {
	if c == nil {
		return SinkStatus{}
	}
	return SinkStatus{Configured: true, Connected: c.IsConnected()}
}
