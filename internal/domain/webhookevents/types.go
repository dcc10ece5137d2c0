// Package webhookevents gives the MercadoPago webhook reconciler a
// dedup/revival ledger: one row per inbound notification, keyed on
// (provider, event_key), acquired under a SAVEPOINT so a uniqueness
// conflict never poisons the caller's outer transaction.
package webhookevents

import "time"

type Status string

const (
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

type WebhookEvent struct {
	ID        int64          `json:"id"`
	Provider  string         `json:"provider"`
	EventKey  string         `json:"event_key"`
	Status    Status         `json:"status"`
	Payload   map[string]any `json:"payload"`
	LastError *string        `json:"last_error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// maxErrorLen bounds the stored failure message per the reconciler's
// truncate-then-persist rule.
const maxErrorLen = 2000
