package postgres

import (
	"context"
	"fmt"

	"github.com/veilpay/veilpay-backend/internal/domain"
)

// eventRepository implements domain.EventRepository
type eventRepository struct {
	db executor
}

// NewEventRepository creates a new audit event repository
func NewEventRepository(db *DB) domain.EventRepository {
	return &eventRepository{db: db}
}

// Append stores one audit record. The table is append-only; records are
// consumed by off-protocol indexers and never read back by the engine.
func (r *eventRepository) Append(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO audit_events (
			id, event_type, actor, vault_owner, schedule_id, recipient,
			leaf_index, amount, available, reserved, paid_count, occurred_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		string(event.Type),
		event.Actor.String(),
		event.VaultOwner.String(),
		event.ScheduleID.String(),
		event.Recipient.String(),
		event.LeafIndex,
		event.Amount,
		event.Available,
		event.Reserved,
		event.PaidCount,
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}

	return nil
}
