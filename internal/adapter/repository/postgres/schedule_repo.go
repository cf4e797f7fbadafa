package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/veilpay/veilpay-backend/internal/domain"
)

// scheduleRepository implements domain.ScheduleRepository
type scheduleRepository struct {
	db executor
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *DB) domain.ScheduleRepository {
	return &scheduleRepository{db: db}
}

const scheduleColumns = `
	id, employer, vault_owner, status, interval_seconds, next_execution_time,
	reserved_amount, per_cycle_amount, cycle_paid_amount, merkle_root,
	total_recipients, paid_count, paid_bitmap, last_executed_batch,
	external_job_id, venue
`

// GetByID retrieves a schedule by its ID
func (r *scheduleRepository) GetByID(ctx context.Context, id domain.Hash32) (*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`

	schedule, err := scanSchedule(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to get schedule by ID: %w", err)
	}

	return schedule, nil
}

// ListByVault retrieves every schedule drawing on one vault's reservation
func (r *scheduleRepository) ListByVault(ctx context.Context, owner domain.Address) ([]*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE vault_owner = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, owner.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*domain.Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedules: %w", err)
	}

	return schedules, nil
}

// Create creates a new schedule
func (r *scheduleRepository) Create(ctx context.Context, schedule *domain.Schedule) error {
	query := `
		INSERT INTO schedules (` + scheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.ExecContext(ctx, query,
		schedule.ID.String(),
		schedule.Employer.String(),
		schedule.VaultOwner.String(),
		string(schedule.Status),
		schedule.IntervalSeconds,
		schedule.NextExecutionTime,
		schedule.ReservedAmount,
		schedule.PerCycleAmount,
		schedule.CyclePaidAmount,
		schedule.MerkleRoot.String(),
		schedule.TotalRecipients,
		schedule.PaidCount,
		schedule.PaidBitmap[:],
		schedule.LastExecutedBatch,
		schedule.ExternalJobID.String(),
		string(schedule.Venue),
	)
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}

	return nil
}

// Update persists the schedule's status and cycle state
func (r *scheduleRepository) Update(ctx context.Context, schedule *domain.Schedule) error {
	query := `
		UPDATE schedules
		SET status = $2, next_execution_time = $3, reserved_amount = $4,
			per_cycle_amount = $5, cycle_paid_amount = $6, merkle_root = $7,
			total_recipients = $8, paid_count = $9, paid_bitmap = $10,
			last_executed_batch = $11, external_job_id = $12, venue = $13
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		schedule.ID.String(),
		string(schedule.Status),
		schedule.NextExecutionTime,
		schedule.ReservedAmount,
		schedule.PerCycleAmount,
		schedule.CyclePaidAmount,
		schedule.MerkleRoot.String(),
		schedule.TotalRecipients,
		schedule.PaidCount,
		schedule.PaidBitmap[:],
		schedule.LastExecutedBatch,
		schedule.ExternalJobID.String(),
		string(schedule.Venue),
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrScheduleNotFound
	}

	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var idStr, employerStr, vaultOwnerStr, rootStr, jobIDStr string
	var bitmap []byte
	var schedule domain.Schedule

	err := row.Scan(
		&idStr,
		&employerStr,
		&vaultOwnerStr,
		&schedule.Status,
		&schedule.IntervalSeconds,
		&schedule.NextExecutionTime,
		&schedule.ReservedAmount,
		&schedule.PerCycleAmount,
		&schedule.CyclePaidAmount,
		&rootStr,
		&schedule.TotalRecipients,
		&schedule.PaidCount,
		&bitmap,
		&schedule.LastExecutedBatch,
		&jobIDStr,
		&schedule.Venue,
	)
	if err != nil {
		return nil, err
	}

	if schedule.ID, err = domain.ParseHash32(idStr); err != nil {
		return nil, fmt.Errorf("failed to parse id: %w", err)
	}
	if schedule.Employer, err = domain.ParseAddress(employerStr); err != nil {
		return nil, fmt.Errorf("failed to parse employer: %w", err)
	}
	if schedule.VaultOwner, err = domain.ParseAddress(vaultOwnerStr); err != nil {
		return nil, fmt.Errorf("failed to parse vault_owner: %w", err)
	}
	if schedule.MerkleRoot, err = domain.ParseHash32(rootStr); err != nil {
		return nil, fmt.Errorf("failed to parse merkle_root: %w", err)
	}
	if schedule.ExternalJobID, err = domain.ParseHash32(jobIDStr); err != nil {
		return nil, fmt.Errorf("failed to parse external_job_id: %w", err)
	}
	if len(bitmap) != domain.PaidBitmapBytes {
		return nil, fmt.Errorf("paid_bitmap has %d bytes, expected %d", len(bitmap), domain.PaidBitmapBytes)
	}
	copy(schedule.PaidBitmap[:], bitmap)

	return &schedule, nil
}
