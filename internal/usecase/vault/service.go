package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/veilpay/veilpay-backend/internal/domain"
)

// InitializeVaultInput represents the input for creating an employer vault
type InitializeVaultInput struct {
	Employer domain.Address
	Asset    domain.Address
}

// DepositInput represents the input for funding a vault
type DepositInput struct {
	Employer domain.Address
	Source   domain.Address // employer-owned token account funds come from
	Amount   uint64
}

// WithdrawInput represents the input for withdrawing free funds
type WithdrawInput struct {
	Employer    domain.Address
	Destination domain.Address // employer-owned token account funds go to
	Amount      uint64
}

// VaultService handles escrow vault operations
type VaultService struct {
	ConfigRepo domain.ConfigRepository
	VaultRepo  domain.VaultRepository
	Ledger     domain.TokenLedger
	UoW        domain.UnitOfWork
	Clock      clockwork.Clock
}

// NewVaultService creates a new VaultService instance
func NewVaultService(
	configRepo domain.ConfigRepository,
	vaultRepo domain.VaultRepository,
	ledger domain.TokenLedger,
	uow domain.UnitOfWork,
	clock clockwork.Clock,
) *VaultService {
	return &VaultService{
		ConfigRepo: configRepo,
		VaultRepo:  vaultRepo,
		Ledger:     ledger,
		UoW:        uow,
		Clock:      clock,
	}
}

// Initialize creates the vault for an employer.
// Fails if a vault already exists; the custodial account is created empty,
// owned by the vault's derived authority.
func (s *VaultService) Initialize(ctx context.Context, input InitializeVaultInput) (*domain.Vault, error) {
	config, err := s.ConfigRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if config.Paused {
		return nil, domain.ErrPaused
	}
	if input.Asset != config.AllowedAsset {
		return nil, domain.ErrInvalidAsset
	}

	if _, err := s.VaultRepo.GetByOwner(ctx, input.Employer); err == nil {
		return nil, domain.ErrVaultExists
	} else if !errors.Is(err, domain.ErrVaultNotFound) {
		return nil, err
	}

	vault := domain.NewVault(input.Employer, input.Asset)

	custodial := &domain.TokenAccount{
		Address: vault.CustodialAccount,
		Owner:   vault.Authority(),
		Asset:   input.Asset,
	}
	err = s.UoW.Do(ctx, func(r domain.RepositorySet) error {
		if err := r.Ledger.CreateAccount(ctx, custodial); err != nil {
			return fmt.Errorf("failed to create custodial account: %w", err)
		}
		if err := r.Vaults.Create(ctx, vault); err != nil {
			return err
		}
		return r.Events.Append(ctx, s.vaultEvent(domain.EventVaultInitialized, input.Employer, vault, 0))
	})
	if err != nil {
		return nil, err
	}
	return vault, nil
}

// Deposit moves funds from an employer-owned account into custody.
// Logic:
//  1. Engine must not be paused; caller must own the vault
//  2. Source account must be owned by the employer and typed for the vault's asset
//  3. Transfer into the custodial account, signed by the employer
//  4. Credit available and re-assert the conservation invariant
//
// The transfer, the vault row and the audit record commit in one unit of
// work, so a bookkeeping failure also unwinds the balance movement.
func (s *VaultService) Deposit(ctx context.Context, input DepositInput) (*domain.Vault, error) {
	config, err := s.ConfigRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if config.Paused {
		return nil, domain.ErrPaused
	}
	if input.Amount == 0 {
		return nil, domain.ErrInvalidAmount
	}

	vault, err := s.VaultRepo.GetByOwner(ctx, input.Employer)
	if err != nil {
		return nil, err
	}
	if vault.Asset != config.AllowedAsset {
		return nil, domain.ErrInvalidAsset
	}

	source, err := s.Ledger.GetAccount(ctx, input.Source)
	if err != nil {
		return nil, err
	}
	if source.Owner != input.Employer {
		return nil, domain.ErrUnauthorized
	}
	if source.Asset != vault.Asset {
		return nil, domain.ErrInvalidAsset
	}

	err = s.UoW.Do(ctx, func(r domain.RepositorySet) error {
		if err := r.Ledger.Transfer(ctx, input.Source, vault.CustodialAccount, input.Amount, input.Employer); err != nil {
			return err
		}
		if err := vault.Credit(input.Amount); err != nil {
			return err
		}
		if err := recheckConservation(ctx, r.Ledger, vault); err != nil {
			return err
		}
		if err := r.Vaults.Update(ctx, vault); err != nil {
			return err
		}
		return r.Events.Append(ctx, s.vaultEvent(domain.EventVaultDeposited, input.Employer, vault, input.Amount))
	})
	if err != nil {
		return nil, err
	}
	return vault, nil
}

// Withdraw moves free funds out of custody back to an employer-owned account.
// The transfer is signed by the vault's derived authority.
func (s *VaultService) Withdraw(ctx context.Context, input WithdrawInput) (*domain.Vault, error) {
	config, err := s.ConfigRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if config.Paused {
		return nil, domain.ErrPaused
	}
	if input.Amount == 0 {
		return nil, domain.ErrInvalidAmount
	}

	vault, err := s.VaultRepo.GetByOwner(ctx, input.Employer)
	if err != nil {
		return nil, err
	}

	destination, err := s.Ledger.GetAccount(ctx, input.Destination)
	if err != nil {
		return nil, err
	}
	if destination.Owner != input.Employer {
		return nil, domain.ErrUnauthorized
	}
	if destination.Asset != vault.Asset {
		return nil, domain.ErrInvalidAsset
	}

	// Only free funds may leave; reserved funds belong to schedules
	if input.Amount > vault.Available {
		return nil, domain.ErrInsufficientFunds
	}

	err = s.UoW.Do(ctx, func(r domain.RepositorySet) error {
		if err := r.Ledger.Transfer(ctx, vault.CustodialAccount, input.Destination, input.Amount, vault.Authority()); err != nil {
			return err
		}
		if err := vault.Debit(input.Amount); err != nil {
			return err
		}
		if err := recheckConservation(ctx, r.Ledger, vault); err != nil {
			return err
		}
		if err := r.Vaults.Update(ctx, vault); err != nil {
			return err
		}
		return r.Events.Append(ctx, s.vaultEvent(domain.EventVaultWithdrawn, input.Employer, vault, input.Amount))
	})
	if err != nil {
		return nil, err
	}
	return vault, nil
}

// recheckConservation asserts available + reserved against the true custodial
// balance. Under a unit of work the balance read sees the uncommitted transfer.
func recheckConservation(ctx context.Context, ledger domain.TokenLedger, vault *domain.Vault) error {
	balance, err := ledger.Balance(ctx, vault.CustodialAccount)
	if err != nil {
		return err
	}
	if err := vault.CheckConservation(balance); err != nil {
		return fmt.Errorf("vault %s: %w", vault.Owner, err)
	}
	return nil
}

func (s *VaultService) vaultEvent(eventType domain.EventType, actor domain.Address, vault *domain.Vault, amount uint64) *domain.Event {
	event := domain.NewEvent(eventType, actor, s.Clock.Now().UTC())
	event.VaultOwner = vault.Owner
	event.Amount = amount
	event.Available = vault.Available
	event.Reserved = vault.Reserved
	return event
}
