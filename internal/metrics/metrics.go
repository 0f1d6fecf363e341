package metrics

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Metrics holds process-wide counters for the pixel pipeline and HTTP surface
type Metrics struct {
	// Protocol metrics
	ArtNetPacketsTotal   int64 `json:"artnet_packets_total"`
	ArtNetPacketsDropped int64 `json:"artnet_packets_dropped"`
	SACNPacketsTotal     int64 `json:"sacn_packets_total"`
	SACNPacketsDropped   int64 `json:"sacn_packets_dropped"`
	DDPPacketsTotal      int64 `json:"ddp_packets_total"`
	PollRepliesSent      int64 `json:"poll_replies_sent"`

	// Pixel pipeline metrics
	UniversesActive  int64 `json:"universes_active"`
	FramesEncoded    int64 `json:"frames_encoded_total"`
	DMABusyRejects   int64 `json:"dma_busy_rejects_total"`
	SyncWatchdogTrips int64 `json:"sync_watchdog_trips_total"`

	// System metrics
	Uptime         int64   `json:"uptime_seconds"`
	MemoryUsed     uint64  `json:"memory_used_bytes"`
	MemoryTotal    uint64  `json:"memory_total_bytes"`
	GoroutineCount int     `json:"goroutine_count"`

	// API metrics
	TotalRequests   int64   `json:"total_requests"`
	TotalErrors     int64   `json:"total_errors"`
	AvgResponseTime float64 `json:"avg_response_time_ms"`

	mu        sync.RWMutex
	startTime time.Time
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

func (m *Metrics) IncrementArtNetPackets() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArtNetPacketsTotal++
}

func (m *Metrics) IncrementArtNetDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArtNetPacketsDropped++
}

func (m *Metrics) IncrementSACNPackets() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SACNPacketsTotal++
}

func (m *Metrics) IncrementSACNDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SACNPacketsDropped++
}

func (m *Metrics) IncrementDDPPackets() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DDPPacketsTotal++
}

func (m *Metrics) IncrementPollRepliesSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PollRepliesSent++
}

func (m *Metrics) SetUniversesActive(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UniversesActive = n
}

func (m *Metrics) IncrementFramesEncoded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FramesEncoded++
}

func (m *Metrics) IncrementDMABusyRejects() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DMABusyRejects++
}

func (m *Metrics) IncrementSyncWatchdogTrips() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SyncWatchdogTrips++
}

func (m *Metrics) IncrementRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalRequests++
}

func (m *Metrics) IncrementErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalErrors++
}

// RecordResponseTime folds a request duration into a moving average
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms := float64(duration.Milliseconds())
	if m.AvgResponseTime == 0 {
		m.AvgResponseTime = ms
	} else {
		m.AvgResponseTime = (m.AvgResponseTime * 0.9) + (ms * 0.1)
	}
}

// UpdateSystemMetrics refreshes uptime, memory and goroutine counters
func (m *Metrics) UpdateSystemMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Uptime = int64(time.Since(m.startTime).Seconds())

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	m.MemoryUsed = memStats.Alloc
	m.MemoryTotal = memStats.Sys

	m.GoroutineCount = runtime.NumGoroutine()
}

// MemoryUsage returns the most recently captured used/total memory, for
// internal/health's memory check. Call UpdateSystemMetrics periodically to
// keep it current.
func (m *Metrics) MemoryUsage() (used, total uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.MemoryUsed, m.MemoryTotal
}

// GoroutineCountNow samples the live goroutine count directly, independent
// of the periodic UpdateSystemMetrics snapshot.
func (m *Metrics) GoroutineCountNow() int {
	return runtime.NumGoroutine()
}

// GetMetrics returns a JSON-friendly snapshot
func (m *Metrics) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"protocol": map[string]interface{}{
			"artnet_packets_total":   m.ArtNetPacketsTotal,
			"artnet_packets_dropped": m.ArtNetPacketsDropped,
			"sacn_packets_total":     m.SACNPacketsTotal,
			"sacn_packets_dropped":   m.SACNPacketsDropped,
			"ddp_packets_total":      m.DDPPacketsTotal,
			"poll_replies_sent":      m.PollRepliesSent,
		},
		"pixel_pipeline": map[string]interface{}{
			"universes_active":          m.UniversesActive,
			"frames_encoded_total":      m.FramesEncoded,
			"dma_busy_rejects_total":    m.DMABusyRejects,
			"sync_watchdog_trips_total": m.SyncWatchdogTrips,
		},
		"system": map[string]interface{}{
			"uptime_seconds":     m.Uptime,
			"memory_used_bytes":  m.MemoryUsed,
			"memory_total_bytes": m.MemoryTotal,
			"memory_used_mb":     m.MemoryUsed / 1024 / 1024,
			"goroutines":         m.GoroutineCount,
		},
		"api": map[string]interface{}{
			"total_requests":       m.TotalRequests,
			"total_errors":         m.TotalErrors,
			"avg_response_time_ms": m.AvgResponseTime,
			"error_rate": func() float64 {
				if m.TotalRequests == 0 {
					return 0.0
				}
				return float64(m.TotalErrors) / float64(m.TotalRequests) * 100
			}(),
		},
	}
}

// PrometheusFormat renders the metrics in Prometheus exposition format
func (m *Metrics) PrometheusFormat() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return `# HELP lightkraken_artnet_packets_total Total Art-Net packets received
# TYPE lightkraken_artnet_packets_total counter
lightkraken_artnet_packets_total ` + formatInt64(m.ArtNetPacketsTotal) + `

# HELP lightkraken_sacn_packets_total Total sACN packets received
# TYPE lightkraken_sacn_packets_total counter
lightkraken_sacn_packets_total ` + formatInt64(m.SACNPacketsTotal) + `

# HELP lightkraken_frames_encoded_total Total strip frames encoded
# TYPE lightkraken_frames_encoded_total counter
lightkraken_frames_encoded_total ` + formatInt64(m.FramesEncoded) + `

# HELP lightkraken_universes_active Number of currently active universes
# TYPE lightkraken_universes_active gauge
lightkraken_universes_active ` + formatInt64(m.UniversesActive) + `

# HELP lightkraken_sync_watchdog_trips_total Number of sync-watchdog starve events
# TYPE lightkraken_sync_watchdog_trips_total counter
lightkraken_sync_watchdog_trips_total ` + formatInt64(m.SyncWatchdogTrips) + `

# HELP lightkraken_uptime_seconds Uptime in seconds
# TYPE lightkraken_uptime_seconds gauge
lightkraken_uptime_seconds ` + formatInt64(m.Uptime) + `

# HELP lightkraken_memory_used_bytes Memory used in bytes
# TYPE lightkraken_memory_used_bytes gauge
lightkraken_memory_used_bytes ` + formatUint64(m.MemoryUsed) + `

# HELP lightkraken_goroutines Number of goroutines
# TYPE lightkraken_goroutines gauge
lightkraken_goroutines ` + formatInt(m.GoroutineCount) + `

# HELP lightkraken_api_requests_total Total number of API requests
# TYPE lightkraken_api_requests_total counter
lightkraken_api_requests_total ` + formatInt64(m.TotalRequests) + `

# HELP lightkraken_api_response_time_ms Average API response time in milliseconds
# TYPE lightkraken_api_response_time_ms gauge
lightkraken_api_response_time_ms ` + formatFloat64(m.AvgResponseTime) + `
`
}

// MetricsMiddleware is fiber middleware that records request counts and timing
func MetricsMiddleware(m *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		m.IncrementRequests()

		err := c.Next()

		duration := time.Since(start)
		m.RecordResponseTime(duration)

		if c.Response().StatusCode() >= 400 {
			m.IncrementErrors()
		}

		return err
	}
}

func formatInt64(n int64) string  { return fmt.Sprintf("%d", n) }
func formatUint64(n uint64) string { return fmt.Sprintf("%d", n) }
func formatInt(n int) string      { return fmt.Sprintf("%d", n) }
func formatFloat64(n float64) string { return fmt.Sprintf("%.2f", n) }
