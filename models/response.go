package models

// ErrorResponse is the generic {success, error} envelope returned by
// middleware and any handler that fails before it has its own response
// shape to populate (spec §7's error taxonomy travels in ErrorDetail).
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser-instance pool (spec §4.5).
type PoolStats struct {
	MaxInstances    int `json:"max_instances"`
	ActiveInstances int `json:"active_instances"`
}
