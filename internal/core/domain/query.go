package domain

import (
	"encoding/json"
	"time"
)

// Phase is the stage of the current query's lifecycle.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseFetching Phase = "fetching"
	PhaseSuccess  Phase = "success"
	PhaseFailure  Phase = "failure"
)

// RequestToken identifies one started request. Tokens increase monotonically;
// zero is never minted and means "no request".
type RequestToken uint64

// QueryResult is the outcome a transport call resolves to.
type QueryResult struct {
	OK      bool            `json:"ok"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Succeeded wraps a payload as a successful result.
func Succeeded(payload json.RawMessage) QueryResult {
	return QueryResult{OK: true, Payload: payload}
}

// Failed wraps a message as a failed result.
func Failed(message string) QueryResult {
	if message == "" {
		message = "request failed"
	}
	return QueryResult{OK: false, Message: message}
}

// QueryState is the request lifecycle value owned by the interaction machine.
// Payload is set only in PhaseSuccess and ErrorMessage only in PhaseFailure.
type QueryState struct {
	Phase        Phase
	Token        RequestToken
	Endpoint     string
	Payload      json.RawMessage
	ErrorMessage string
	StartedAt    time.Time
}

// QueryLogEntry records one resolved (non-stale) query.
type QueryLogEntry struct {
	ID         int64     `json:"id"`
	Token      uint64    `json:"token"`
	Endpoint   string    `json:"endpoint"`
	Outcome    Phase     `json:"outcome"`
	AreaSqm    *float64  `json:"area_sqm,omitempty"`
	Message    string    `json:"message,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	ResolvedAt time.Time `json:"resolved_at"`
}
