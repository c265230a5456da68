package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheck is the result of a single named check.
type HealthCheck struct {
	Name     string       `json:"name"`
	Status   HealthStatus `json:"status"`
	Message  string       `json:"message,omitempty"`
	Critical bool         `json:"critical"`
}

// HealthCheckFunc runs one check.
type HealthCheckFunc func(ctx context.Context) HealthCheck

// HealthReport is the body served by the health endpoint.
type HealthReport struct {
	Status    HealthStatus  `json:"status"`
	Version   string        `json:"version"`
	Uptime    string        `json:"uptime"`
	Timestamp time.Time     `json:"timestamp"`
	Checks    []HealthCheck `json:"checks"`
}

// HealthMonitor aggregates registered checks.
type HealthMonitor struct {
	version string
	started time.Time
	mu      sync.RWMutex
	checks  []HealthCheckFunc
}

// NewHealthMonitor creates a monitor that reports version.
func NewHealthMonitor(version string) *HealthMonitor {
	return &HealthMonitor{version: version, started: time.Now()}
}

// Register adds a check.
func (m *HealthMonitor) Register(check HealthCheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks = append(m.checks, check)
}

// Report runs every check. A failing critical check makes the report
// unhealthy, a failing non-critical check degrades it.
func (m *HealthMonitor) Report(ctx context.Context) HealthReport {
	m.mu.RLock()
	checks := make([]HealthCheckFunc, len(m.checks))
	copy(checks, m.checks)
	m.mu.RUnlock()

	report := HealthReport{
		Status:    HealthStatusHealthy,
		Version:   m.version,
		Uptime:    time.Since(m.started).Round(time.Second).String(),
		Timestamp: time.Now(),
		Checks:    make([]HealthCheck, 0, len(checks)),
	}

	for _, fn := range checks {
		result := fn(ctx)
		report.Checks = append(report.Checks, result)
		if result.Status == HealthStatusHealthy {
			continue
		}
		if result.Critical {
			report.Status = HealthStatusUnhealthy
		} else if report.Status == HealthStatusHealthy {
			report.Status = HealthStatusDegraded
		}
	}

	return report
}

// ServeHTTP writes the report as JSON. Unhealthy reports use 503.
func (m *HealthMonitor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := m.Report(r.Context())

	body, err := json.Marshal(report)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if report.Status == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
