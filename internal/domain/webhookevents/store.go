package webhookevents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"salescore/internal/infra/dbx"
)

type Repository struct {
	q dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{q: q}
}

const eventColumns = `id, provider, event_key, status, payload, last_error, created_at, updated_at`

func scanEvent(row pgx.Row) (*WebhookEvent, error) {
	var e WebhookEvent
	var raw []byte
	if err := row.Scan(&e.ID, &e.Provider, &e.EventKey, &e.Status, &raw, &e.LastError, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &e.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal webhook payload: %w", err)
		}
	}
	return &e, nil
}

func (r *Repository) GetByProviderAndKey(ctx context.Context, provider, eventKey string) (*WebhookEvent, error) {
	row := r.q.QueryRow(ctx, `SELECT `+eventColumns+` FROM webhook_events WHERE provider = $1 AND event_key = $2 FOR UPDATE`, provider, eventKey)
	e, err := scanEvent(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook event: %w", err)
	}
	return e, nil
}

func (r *Repository) insert(ctx context.Context, provider, eventKey string, payload map[string]any) (*WebhookEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}
	row := r.q.QueryRow(ctx, `
INSERT INTO webhook_events (provider, event_key, status, payload)
VALUES ($1, $2, $3, $4)
ON CONFLICT DO NOTHING
RETURNING `+eventColumns,
		provider, eventKey, StatusProcessing, raw,
	)
	return scanEvent(row)
}

func (r *Repository) revive(ctx context.Context, id int64) (*WebhookEvent, error) {
	row := r.q.QueryRow(ctx, `
UPDATE webhook_events SET status = $2, last_error = NULL, updated_at = now()
WHERE id = $1
RETURNING `+eventColumns,
		id, StatusProcessing,
	)
	return scanEvent(row)
}

func (r *Repository) MarkProcessed(ctx context.Context, id int64) error {
	_, err := r.q.Exec(ctx, `UPDATE webhook_events SET status = $2, updated_at = now() WHERE id = $1`, id, StatusProcessed)
	if err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}
	return nil
}

func (r *Repository) MarkFailed(ctx context.Context, id int64, message string) error {
	if len(message) > maxErrorLen {
		message = message[:maxErrorLen]
	}
	_, err := r.q.Exec(ctx, `UPDATE webhook_events SET status = $2, last_error = $3, updated_at = now() WHERE id = $1`, id, StatusFailed, message)
	if err != nil {
		return fmt.Errorf("mark webhook event failed: %w", err)
	}
	return nil
}

// Acquire implements the dedup/revival race: it attempts to insert a new
// processing row inside sp (a SAVEPOINT the caller controls) with ON
// CONFLICT DO NOTHING, so a conflict leaves sp usable. If the conflict
// reveals an existing row, a failed row is revived to processing (retry
// allowed) while a processing/processed row reports false ("duplicate
// webhook event", a soft no-op). sp must be rolled back by the caller when
// this returns an error so the outer transaction is unaffected.
func Acquire(ctx context.Context, sp dbx.Querier, provider, eventKey string, payload map[string]any) (event *WebhookEvent, acquired bool, err error) {
	r := NewRepository(sp)
	e, err := r.insert(ctx, provider, eventKey, payload)
	if err == nil {
		return e, true, nil
	}
	if err != pgx.ErrNoRows && !dbx.UniqueViolation(err, "") {
		return nil, false, fmt.Errorf("insert webhook event: %w", err)
	}

	existing, getErr := r.GetByProviderAndKey(ctx, provider, eventKey)
	if getErr != nil {
		return nil, false, getErr
	}
	if existing == nil {
		return nil, false, fmt.Errorf("webhook event conflict but no existing row found for %s/%s", provider, eventKey)
	}
	if existing.Status != StatusFailed {
		return existing, false, nil
	}

	revived, err := r.revive(ctx, existing.ID)
	if err != nil {
		return nil, false, fmt.Errorf("revive webhook event: %w", err)
	}
	return revived, true, nil
}
