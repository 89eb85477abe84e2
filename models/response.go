package models

// ScrapeResponse is the response for POST /api/v1/scrape.
type ScrapeResponse struct {
	// Success indicates whether the scrape and persist cycle completed.
	Success bool `json:"success"`

	// Record is the persisted trend record.
	Record *TrendRecord `json:"record,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TrendListResponse is the response for GET /api/v1/trends.
type TrendListResponse struct {
	Success bool           `json:"success"`
	Records []*TrendRecord `json:"records"`
	Error   *ErrorDetail   `json:"error,omitempty"`
}

// TrendResponse is the response for GET /api/v1/trends/:id.
type TrendResponse struct {
	Success bool         `json:"success"`
	Record  *TrendRecord `json:"record,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// ScrapeMs covers browser launch, login and extraction.
	ScrapeMs int64 `json:"scrape_ms"`

	// PersistMs is the time spent writing the record.
	PersistMs int64 `json:"persist_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status       string       `json:"status"` // "healthy" or "degraded"
	Uptime       string       `json:"uptime"`
	SessionStats SessionStats `json:"session_stats"`
	Version      string       `json:"version"`
}

// SessionStats reports browser session usage.
type SessionStats struct {
	MaxSessions    int   `json:"max_sessions"`
	ActiveSessions int   `json:"active_sessions"`
	Launched       int64 `json:"launched"`
	Released       int64 `json:"released"`
}
