package domain

import "context"

// ConfigRepository defines the interface for engine config persistence
type ConfigRepository interface {
	// Get retrieves the engine config, ErrConfigNotFound if not initialized
	Get(ctx context.Context) (*EngineConfig, error)

	// Create stores the initial config, ErrConfigExists if already initialized
	Create(ctx context.Context, config *EngineConfig) error

	// Update replaces the stored config
	Update(ctx context.Context, config *EngineConfig) error
}

// VaultRepository defines the interface for vault persistence
type VaultRepository interface {
	// GetByOwner retrieves the vault of an employer, ErrVaultNotFound if absent
	GetByOwner(ctx context.Context, owner Address) (*Vault, error)

	// Create stores a new vault, ErrVaultExists if the employer already has one
	Create(ctx context.Context, vault *Vault) error

	// Update replaces the stored vault state
	Update(ctx context.Context, vault *Vault) error
}

// ScheduleRepository defines the interface for schedule persistence
type ScheduleRepository interface {
	// GetByID retrieves a schedule, ErrScheduleNotFound if absent
	GetByID(ctx context.Context, id Hash32) (*Schedule, error)

	// Create stores a new schedule, ErrScheduleExists on duplicate ID
	Create(ctx context.Context, schedule *Schedule) error

	// Update replaces the stored schedule state
	Update(ctx context.Context, schedule *Schedule) error

	// ListByVault retrieves all schedules funded by one vault
	ListByVault(ctx context.Context, vaultOwner Address) ([]*Schedule, error)
}

// EventRepository defines the interface for the append-only audit trail
type EventRepository interface {
	// Append stores one audit record
	Append(ctx context.Context, event *Event) error
}

// TokenAccount is one balance row on the asset ledger
type TokenAccount struct {
	Address Address
	Owner   Address // authority allowed to move funds out
	Asset   Address
	Balance uint64
}

// TokenLedger is the underlying asset-transfer primitive. Services invoke
// Transfer through a UnitOfWork so the balance movement and the engine's own
// bookkeeping land in one transaction.
type TokenLedger interface {
	// GetAccount retrieves a token account, ErrAccountNotFound if absent
	GetAccount(ctx context.Context, address Address) (*TokenAccount, error)

	// CreateAccount stores a new zero-balance token account
	CreateAccount(ctx context.Context, account *TokenAccount) error

	// Balance returns the current balance of an account
	Balance(ctx context.Context, address Address) (uint64, error)

	// Transfer moves amount from one account to another. The signer must be
	// the owner of the source account; ErrUnauthorized otherwise.
	Transfer(ctx context.Context, from, to Address, amount uint64, signer Address) error
}

// RepositorySet bundles the persistence ports that participate in one atomic
// operation. Implementations back every member with the same transaction.
type RepositorySet struct {
	Config    ConfigRepository
	Vaults    VaultRepository
	Schedules ScheduleRepository
	Events    EventRepository
	Ledger    TokenLedger
	Venue     DelegationVenue
}

// UnitOfWork runs fn against a RepositorySet whose writes commit together or
// not at all. A claim's ledger transfer, bitmap update and vault settlement
// must never be observable in isolation; the unit of work is what enforces
// that across repository boundaries.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos RepositorySet) error) error
}

// DelegationVenue is the boundary to the external low-latency execution venue.
// It accepts and returns authority over named accounts and periodically
// flushes delegated state back to the home ledger.
type DelegationVenue interface {
	// Delegate hands a named account over to the venue
	Delegate(ctx context.Context, account Address) error

	// Undelegate returns a named account, recording the buffer hand-off
	Undelegate(ctx context.Context, account Address) error

	// Commit flushes the venue's state for a delegated account without
	// changing authority
	Commit(ctx context.Context, account Address) error
}
