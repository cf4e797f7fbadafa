package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/veilpay/veilpay-backend/internal/domain"
)

// delegationVenue implements domain.DelegationVenue by recording hand-offs in
// a buffer table the external venue's relay polls. The engine treats the venue
// as write-only; state flows back through the relay's own commits.
type delegationVenue struct {
	db executor
}

// Delegate records that the named account is now under venue authority
func (v *delegationVenue) Delegate(ctx context.Context, account domain.Address) error {
	query := `
		INSERT INTO venue_handoffs (account, state, updated_at)
		VALUES ($1, 'DELEGATED', $2)
		ON CONFLICT (account) DO UPDATE SET state = 'DELEGATED', updated_at = $2
	`

	if _, err := v.db.ExecContext(ctx, query, account.String(), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record delegation hand-off: %w", err)
	}

	return nil
}

// Undelegate records that the named account returned to the home ledger
func (v *delegationVenue) Undelegate(ctx context.Context, account domain.Address) error {
	query := `
		UPDATE venue_handoffs
		SET state = 'HOME', updated_at = $2
		WHERE account = $1
	`

	result, err := v.db.ExecContext(ctx, query, account.String(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record delegation hand-back: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotDelegated
	}

	return nil
}

// Commit asks the venue to flush the named account's state home
func (v *delegationVenue) Commit(ctx context.Context, account domain.Address) error {
	query := `
		UPDATE venue_handoffs
		SET committed_at = $2
		WHERE account = $1 AND state = 'DELEGATED'
	`

	result, err := v.db.ExecContext(ctx, query, account.String(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record venue commit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotDelegated
	}

	return nil
}
