package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Service       string           `json:"service,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

type Checker interface {
	Check() Check
}

// Handler aggregates component checks for /healthz and /readyz.
type Handler struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	service   string
	startTime time.Time
}

func NewHandler(service string) *Handler {
	return &Handler{
		checkers:  make(map[string]Checker),
		service:   service,
		startTime: time.Now(),
	}
}

func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

func (h *Handler) runChecks() (map[string]Check, Status) {
	h.mu.RLock()
	checkers := make(map[string]Checker, len(h.checkers))
	for k, v := range h.checkers {
		checkers[k] = v
	}
	h.mu.RUnlock()

	checks := make(map[string]Check, len(checkers))
	overall := StatusHealthy
	for name, checker := range checkers {
		check := checker.Check()
		checks[name] = check

		if check.Status == StatusUnhealthy {
			overall = StatusUnhealthy
		} else if check.Status == StatusDegraded && overall == StatusHealthy {
			overall = StatusDegraded
		}
	}
	return checks, overall
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	checks, overall := h.runChecks()

	response := Response{
		Status:        overall,
		Timestamp:     time.Now(),
		Checks:        checks,
		Service:       h.service,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}

	statusCode := http.StatusOK
	if overall == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// ReadinessHandler answers 503 while any component is unhealthy.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	if _, overall := h.runChecks(); overall == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type SimpleChecker struct {
	name     string
	degraded bool
	checkFn  func() error
}

func NewSimpleChecker(name string, checkFn func() error) *SimpleChecker {
	return &SimpleChecker{name: name, checkFn: checkFn}
}

// NewOptionalChecker reports failures as degraded instead of unhealthy, for
// dependencies the API can run without such as the cache.
func NewOptionalChecker(name string, checkFn func() error) *SimpleChecker {
	return &SimpleChecker{name: name, degraded: true, checkFn: checkFn}
}

func (c *SimpleChecker) Check() Check {
	start := time.Now()
	err := c.checkFn()
	duration := time.Since(start)

	if err != nil {
		status := StatusUnhealthy
		if c.degraded {
			status = StatusDegraded
		}
		return Check{
			Name:       c.name,
			Status:     status,
			Message:    err.Error(),
			DurationMs: duration.Milliseconds(),
		}
	}

	return Check{
		Name:       c.name,
		Status:     StatusHealthy,
		DurationMs: duration.Milliseconds(),
	}
}
