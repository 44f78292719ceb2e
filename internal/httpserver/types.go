package httpserver

import (
	"time"

	"qiandao/internal/history"
	"qiandao/internal/runner"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// RunResponse is returned by POST /api/run.
type RunResponse struct {
	RunID  string `json:"runId"`
	Status string `json:"status"` // "accepted"
}

// ScheduleStatus describes the daily trigger.
type ScheduleStatus struct {
	Enabled  bool       `json:"enabled"`
	Time     string     `json:"time,omitempty"` // HH:MM
	Timezone string     `json:"timezone,omitempty"`
	Next     *time.Time `json:"next,omitempty"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	runner.Status
	Schedule *ScheduleStatus `json:"schedule,omitempty"`
}

// HistoryResponse is returned by GET /api/history.
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
}

// wsMessage is one frame on /ws/events.
type wsMessage struct {
	Type   string          `json:"type"` // "status" or "event"
	Status *StatusResponse `json:"status,omitempty"`
	Event  interface{}     `json:"event,omitempty"`
}
