package server

import (
	"net/http"
	"os"
	"time"
)

// HealthStatus represents operational status for the /health endpoint.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Upstream  string                 `json:"upstream"`
	TempDir   string                 `json:"tempDir"`
	PublicURL string                 `json:"publicUrl,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// handleHealthCheck returns liveness plus a temp dir writability check.
func (ms *RelayServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Upstream:  ms.upstreamURL,
		TempDir:   "ok",
		PublicURL: ms.ngrokService.GetPublicURL(),
		Details:   make(map[string]interface{}),
	}

	if err := ms.checkTempDirHealth(); err != nil {
		health.Status = "unhealthy"
		health.TempDir = "error"
		health.Details["temp_dir_error"] = err.Error()
	}

	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}

	ms.respondJSON(w, status, health)
}

// checkTempDirHealth verifies downloads can still be written.
func (ms *RelayServer) checkTempDirHealth() error {
	f, err := os.CreateTemp(ms.tempDir, ".health-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
