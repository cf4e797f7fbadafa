package postgres

import (
	"context"
	"fmt"

	"github.com/veilpay/veilpay-backend/internal/domain"
)

// unitOfWork implements domain.UnitOfWork on a single *sql.Tx. Every
// repository handed to the callback shares that transaction, so a ledger
// transfer and the vault, schedule and audit rows it belongs with either all
// commit or all roll back.
type unitOfWork struct {
	db *DB
}

// NewUnitOfWork creates a Postgres-backed unit of work
func NewUnitOfWork(db *DB) domain.UnitOfWork {
	return &unitOfWork{db: db}
}

func (u *unitOfWork) Do(ctx context.Context, fn func(domain.RepositorySet) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	repos := domain.RepositorySet{
		Config:    &configRepository{db: tx},
		Vaults:    &vaultRepository{db: tx},
		Schedules: &scheduleRepository{db: tx},
		Events:    &eventRepository{db: tx},
		Ledger:    &tokenLedger{db: tx},
		Venue:     &delegationVenue{db: tx},
	}
	if err := fn(repos); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
