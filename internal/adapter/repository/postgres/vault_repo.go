package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/veilpay/veilpay-backend/internal/domain"
)

// vaultRepository implements domain.VaultRepository
type vaultRepository struct {
	db executor
}

// NewVaultRepository creates a new vault repository
func NewVaultRepository(db *DB) domain.VaultRepository {
	return &vaultRepository{db: db}
}

// GetByOwner retrieves a vault by its owning employer
func (r *vaultRepository) GetByOwner(ctx context.Context, owner domain.Address) (*domain.Vault, error) {
	query := `
		SELECT owner, custodial_account, asset, available, reserved, venue
		FROM vaults
		WHERE owner = $1
	`

	var ownerStr, custodialStr, assetStr string
	var vault domain.Vault

	err := r.db.QueryRowContext(ctx, query, owner.String()).Scan(
		&ownerStr,
		&custodialStr,
		&assetStr,
		&vault.Available,
		&vault.Reserved,
		&vault.Venue,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVaultNotFound
		}
		return nil, fmt.Errorf("failed to get vault by owner: %w", err)
	}

	if vault.Owner, err = domain.ParseAddress(ownerStr); err != nil {
		return nil, fmt.Errorf("failed to parse owner: %w", err)
	}
	if vault.CustodialAccount, err = domain.ParseAddress(custodialStr); err != nil {
		return nil, fmt.Errorf("failed to parse custodial_account: %w", err)
	}
	if vault.Asset, err = domain.ParseAddress(assetStr); err != nil {
		return nil, fmt.Errorf("failed to parse asset: %w", err)
	}

	return &vault, nil
}

// Create creates a new vault
func (r *vaultRepository) Create(ctx context.Context, vault *domain.Vault) error {
	query := `
		INSERT INTO vaults (owner, custodial_account, asset, available, reserved, venue)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		vault.Owner.String(),
		vault.CustodialAccount.String(),
		vault.Asset.String(),
		vault.Available,
		vault.Reserved,
		string(vault.Venue),
	)
	if err != nil {
		return fmt.Errorf("failed to create vault: %w", err)
	}

	return nil
}

// Update persists the vault's balances and venue
func (r *vaultRepository) Update(ctx context.Context, vault *domain.Vault) error {
	query := `
		UPDATE vaults
		SET available = $2, reserved = $3, venue = $4
		WHERE owner = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		vault.Owner.String(),
		vault.Available,
		vault.Reserved,
		string(vault.Venue),
	)
	if err != nil {
		return fmt.Errorf("failed to update vault: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrVaultNotFound
	}

	return nil
}
