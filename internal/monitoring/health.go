package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker tracks the state of long running sweeps for the /healthz
// endpoint served next to /metrics.
type HealthChecker struct {
	mu        sync.RWMutex
	lastRun   time.Time
	completed int
	total     int
	errors    []string
}

type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	LastRun   time.Time `json:"last_run"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Uptime    string    `json:"uptime"`
	Errors    []string  `json:"errors,omitempty"`
}

const maxHealthErrors = 20

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		errors: make([]string, 0),
	}
}

// SetTotal sets the number of runs expected.
func (h *HealthChecker) SetTotal(total int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.total = total
}

// RunFinished records a completed run and its error, if any.
func (h *HealthChecker) RunFinished(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastRun = time.Now()
	h.completed++
	if err != nil {
		h.errors = append(h.errors, err.Error())
		if len(h.errors) > maxHealthErrors {
			h.errors = h.errors[len(h.errors)-maxHealthErrors:]
		}
	}
}

// Status returns a snapshot.
func (h *HealthChecker) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if len(h.errors) > 0 {
		status = "degraded"
	}

	return HealthStatus{
		Status:    status,
		Timestamp: time.Now(),
		LastRun:   h.lastRun,
		Completed: h.completed,
		Total:     h.total,
		Uptime:    time.Since(startTime).String(),
		Errors:    append([]string(nil), h.errors...),
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health := h.Status()

	w.Header().Set("Content-Type", "application/json")
	if health.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}
