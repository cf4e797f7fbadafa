package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/veilpay/veilpay-backend/internal/domain"
)

// tokenLedger implements domain.TokenLedger on a Postgres balance table.
// It stands in for the real asset ledger. Transfer issues its statements on
// the caller's executor; atomicity comes from running it inside a unit of
// work, which is how every service invokes it.
type tokenLedger struct {
	db executor
}

// NewTokenLedger creates a new Postgres-backed token ledger
func NewTokenLedger(db *DB) domain.TokenLedger {
	return &tokenLedger{db: db}
}

// GetAccount retrieves a token account by address
func (l *tokenLedger) GetAccount(ctx context.Context, address domain.Address) (*domain.TokenAccount, error) {
	query := `
		SELECT address, owner, asset, balance
		FROM token_accounts
		WHERE address = $1
	`

	var addressStr, ownerStr, assetStr string
	var account domain.TokenAccount

	err := l.db.QueryRowContext(ctx, query, address.String()).Scan(
		&addressStr,
		&ownerStr,
		&assetStr,
		&account.Balance,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get token account: %w", err)
	}

	if account.Address, err = domain.ParseAddress(addressStr); err != nil {
		return nil, fmt.Errorf("failed to parse address: %w", err)
	}
	if account.Owner, err = domain.ParseAddress(ownerStr); err != nil {
		return nil, fmt.Errorf("failed to parse owner: %w", err)
	}
	if account.Asset, err = domain.ParseAddress(assetStr); err != nil {
		return nil, fmt.Errorf("failed to parse asset: %w", err)
	}

	return &account, nil
}

// CreateAccount stores a new token account
func (l *tokenLedger) CreateAccount(ctx context.Context, account *domain.TokenAccount) error {
	query := `
		INSERT INTO token_accounts (address, owner, asset, balance)
		VALUES ($1, $2, $3, $4)
	`

	_, err := l.db.ExecContext(ctx, query,
		account.Address.String(),
		account.Owner.String(),
		account.Asset.String(),
		account.Balance,
	)
	if err != nil {
		return fmt.Errorf("failed to create token account: %w", err)
	}

	return nil
}

// Balance returns the current balance of an account
func (l *tokenLedger) Balance(ctx context.Context, address domain.Address) (uint64, error) {
	query := `SELECT balance FROM token_accounts WHERE address = $1`

	var balance uint64
	err := l.db.QueryRowContext(ctx, query, address.String()).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrAccountNotFound
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	return balance, nil
}

// Transfer moves amount between accounts. The source row is locked for the
// rest of the enclosing transaction; the signer must be the source account's
// owner and the source must cover the amount.
func (l *tokenLedger) Transfer(ctx context.Context, from, to domain.Address, amount uint64, signer domain.Address) error {
	var ownerStr string
	var balance uint64
	err := l.db.QueryRowContext(ctx,
		`SELECT owner, balance FROM token_accounts WHERE address = $1 FOR UPDATE`,
		from.String(),
	).Scan(&ownerStr, &balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrAccountNotFound
		}
		return fmt.Errorf("failed to lock source account: %w", err)
	}

	owner, err := domain.ParseAddress(ownerStr)
	if err != nil {
		return fmt.Errorf("failed to parse owner: %w", err)
	}
	if owner != signer {
		return domain.ErrUnauthorized
	}
	if balance < amount {
		return domain.ErrInsufficientFunds
	}

	result, err := l.db.ExecContext(ctx,
		`UPDATE token_accounts SET balance = balance + $2 WHERE address = $1`,
		to.String(), amount,
	)
	if err != nil {
		return fmt.Errorf("failed to credit destination: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}

	_, err = l.db.ExecContext(ctx,
		`UPDATE token_accounts SET balance = balance - $2 WHERE address = $1`,
		from.String(), amount,
	)
	if err != nil {
		return fmt.Errorf("failed to debit source: %w", err)
	}

	return nil
}
