package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/veilpay/veilpay-backend/internal/domain"
)

// configRepository implements domain.ConfigRepository
type configRepository struct {
	db executor
}

// NewConfigRepository creates a new engine config repository
func NewConfigRepository(db *DB) domain.ConfigRepository {
	return &configRepository{db: db}
}

// Get retrieves the singleton engine configuration
func (r *configRepository) Get(ctx context.Context) (*domain.EngineConfig, error) {
	query := `
		SELECT governance, execution_authority, allowed_asset, paused, max_recipients, batch_timeout_seconds
		FROM engine_config
		WHERE singleton = TRUE
	`

	var governance, executionAuthority, allowedAsset string
	var config domain.EngineConfig

	err := r.db.QueryRowContext(ctx, query).Scan(
		&governance,
		&executionAuthority,
		&allowedAsset,
		&config.Paused,
		&config.MaxRecipients,
		&config.BatchTimeoutSeconds,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to get engine config: %w", err)
	}

	if config.Governance, err = domain.ParseAddress(governance); err != nil {
		return nil, fmt.Errorf("failed to parse governance: %w", err)
	}
	if config.ExecutionAuthority, err = domain.ParseAddress(executionAuthority); err != nil {
		return nil, fmt.Errorf("failed to parse execution_authority: %w", err)
	}
	if config.AllowedAsset, err = domain.ParseAddress(allowedAsset); err != nil {
		return nil, fmt.Errorf("failed to parse allowed_asset: %w", err)
	}

	return &config, nil
}

// Create stores the engine configuration; the singleton column rejects a second row
func (r *configRepository) Create(ctx context.Context, config *domain.EngineConfig) error {
	query := `
		INSERT INTO engine_config (singleton, governance, execution_authority, allowed_asset, paused, max_recipients, batch_timeout_seconds)
		VALUES (TRUE, $1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		config.Governance.String(),
		config.ExecutionAuthority.String(),
		config.AllowedAsset.String(),
		config.Paused,
		config.MaxRecipients,
		config.BatchTimeoutSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to create engine config: %w", err)
	}

	return nil
}

// Update persists changes to the engine configuration
func (r *configRepository) Update(ctx context.Context, config *domain.EngineConfig) error {
	query := `
		UPDATE engine_config
		SET governance = $1, execution_authority = $2, allowed_asset = $3, paused = $4, max_recipients = $5, batch_timeout_seconds = $6
		WHERE singleton = TRUE
	`

	result, err := r.db.ExecContext(ctx, query,
		config.Governance.String(),
		config.ExecutionAuthority.String(),
		config.AllowedAsset.String(),
		config.Paused,
		config.MaxRecipients,
		config.BatchTimeoutSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to update engine config: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrConfigNotFound
	}

	return nil
}
