package repository

import (
	"context"
	"time"
)

// Exchange outcomes recorded in the diagnostics log.
const (
	OutcomeOK             = "ok"
	OutcomeBackendError   = "backend_error"
	OutcomeTransportError = "transport_error"
	OutcomeCanceled       = "canceled"
)

// ExchangeRecord is one operator-facing diagnostic row per backend exchange.
// It never contains conversation content; it exists so operators can see
// status codes and latencies that are deliberately hidden from end users.
type ExchangeRecord struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Contract   string    `json:"contract"`
	Outcome    string    `json:"outcome"`
	StatusCode int       `json:"status_code"`
	LatencyMs  int64     `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository defines the interface for the diagnostics store.
type Repository interface {
	AddExchange(ctx context.Context, rec *ExchangeRecord) error
	GetExchange(ctx context.Context, id string) (*ExchangeRecord, error)
	ListExchanges(ctx context.Context, sessionID string) ([]ExchangeRecord, error)
}
