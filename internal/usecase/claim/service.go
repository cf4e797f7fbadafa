package claim

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/veilpay/veilpay-backend/internal/domain"
)

// ClaimInput represents one recipient's claim against the current cycle
type ClaimInput struct {
	Caller      domain.Address // must be the configured execution authority
	ScheduleID  domain.Hash32
	Recipient   domain.Address
	Amount      uint64
	LeafIndex   uint16
	Proof       []domain.Hash32
	Destination domain.Address // recipient-owned token account paid into
}

// ClaimResult reports the observable effects of a successful claim
type ClaimResult struct {
	Schedule       *domain.Schedule
	Vault          *domain.Vault
	CycleCompleted bool
}

// ClaimService executes the merkle-proof-based batch claim protocol
type ClaimService struct {
	ConfigRepo   domain.ConfigRepository
	VaultRepo    domain.VaultRepository
	ScheduleRepo domain.ScheduleRepository
	Ledger       domain.TokenLedger
	UoW          domain.UnitOfWork
	Clock        clockwork.Clock
}

// NewClaimService creates a new ClaimService instance
func NewClaimService(
	configRepo domain.ConfigRepository,
	vaultRepo domain.VaultRepository,
	scheduleRepo domain.ScheduleRepository,
	ledger domain.TokenLedger,
	uow domain.UnitOfWork,
	clock clockwork.Clock,
) *ClaimService {
	return &ClaimService{
		ConfigRepo:   configRepo,
		VaultRepo:    vaultRepo,
		ScheduleRepo: scheduleRepo,
		Ledger:       ledger,
		UoW:          uow,
		Clock:        clock,
	}
}

// Claim pays one recipient their share of the current cycle.
// Preconditions are checked in a fixed order, first failure wins:
//  1. Caller must be the configured execution authority
//  2. Schedule must be Active
//  3. Current time must have reached the cycle's unlock time
//  4. Leaf index must be inside the recipient set
//  5. Destination must be owned by the recipient and typed for the vault's asset
//  6. Merkle proof must bind (recipient, amount, index) to the committed root
//  7. The leaf index must not have claimed this cycle
//  8. The amount must be positive and within the per-cycle total
//
// On success funds move from custody to the destination, the bitmap bit is
// set and the paid count advances. Completing the cycle settles the cycle
// amount out of the reservation and re-arms the schedule for the next cycle.
//
// The transfer and every row it obligates (schedule bitmap, vault partitions,
// audit record) commit in one unit of work. A retry after any failure finds
// the bitmap bit unset only because the transfer rolled back with it.
func (s *ClaimService) Claim(ctx context.Context, input ClaimInput) (*ClaimResult, error) {
	config, err := s.ConfigRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if config.Paused {
		return nil, domain.ErrPaused
	}

	// 1. Execution authority
	if input.Caller != config.ExecutionAuthority {
		return nil, domain.ErrUnauthorized
	}

	schedule, err := s.ScheduleRepo.GetByID(ctx, input.ScheduleID)
	if err != nil {
		return nil, err
	}

	// 2. Schedule status
	if schedule.Status != domain.ScheduleStatusActive {
		return nil, domain.ErrScheduleNotActive
	}

	// 3. Timing gate
	now := uint64(s.Clock.Now().Unix())
	if now < schedule.NextExecutionTime {
		return nil, domain.ErrExecutionTooEarly
	}

	// 4. Leaf index bound
	if input.LeafIndex >= schedule.TotalRecipients {
		return nil, domain.ErrInvalidLeafIndex
	}

	vault, err := s.VaultRepo.GetByOwner(ctx, schedule.VaultOwner)
	if err != nil {
		return nil, err
	}

	// 5. Destination account ownership and asset
	destination, err := s.Ledger.GetAccount(ctx, input.Destination)
	if err != nil {
		return nil, err
	}
	if destination.Owner != input.Recipient {
		return nil, domain.ErrUnauthorized
	}
	if destination.Asset != vault.Asset {
		return nil, domain.ErrInvalidAsset
	}

	// 6. Membership proof
	leaf := domain.HashLeaf(input.Recipient, input.Amount)
	if !domain.VerifyMerkleProof(leaf, input.Proof, input.LeafIndex, schedule.MerkleRoot) {
		return nil, domain.ErrInvalidMerkleProof
	}

	// 7. Replay bitmap
	paid, err := schedule.IsPaid(input.LeafIndex)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, domain.ErrAlreadyPaid
	}

	// 8. Amount bound. The cycle's running total may never exceed the
	// committed per-cycle amount; the reservation backing it is pooled with
	// other schedules in the vault.
	if input.Amount == 0 || input.Amount > schedule.PerCycleAmount-schedule.CyclePaidAmount {
		return nil, domain.ErrInsufficientFunds
	}

	var cycleCompleted bool
	err = s.UoW.Do(ctx, func(r domain.RepositorySet) error {
		// Move funds out of custody, signed by the vault authority
		if err := r.Ledger.Transfer(ctx, vault.CustodialAccount, input.Destination, input.Amount, vault.Authority()); err != nil {
			return err
		}

		if err := schedule.MarkPaid(input.LeafIndex); err != nil {
			return err
		}
		if err := schedule.RecordPayment(input.Amount); err != nil {
			return err
		}
		// The disbursed amount leaves the reserved partition immediately so
		// the conservation invariant holds between claims, not just at cycle
		// edges
		if err := vault.Settle(input.Amount); err != nil {
			return err
		}

		cycleCompleted = schedule.PaidCount >= schedule.TotalRecipients
		if cycleCompleted {
			residual, err := schedule.CompleteCycle(now)
			if err != nil {
				return err
			}
			// Whatever the cycle committed but did not disburse returns to
			// the vault's free funds; custody still holds it
			if residual > 0 {
				if err := vault.Release(residual); err != nil {
					return err
				}
			}
		}

		balance, err := r.Ledger.Balance(ctx, vault.CustodialAccount)
		if err != nil {
			return err
		}
		if err := vault.CheckConservation(balance); err != nil {
			return fmt.Errorf("vault %s after claim: %w", vault.Owner, err)
		}

		if err := r.Schedules.Update(ctx, schedule); err != nil {
			return err
		}
		if err := r.Vaults.Update(ctx, vault); err != nil {
			return err
		}

		event := domain.NewEvent(domain.EventPaymentClaimed, input.Caller, s.Clock.Now().UTC())
		event.VaultOwner = vault.Owner
		event.ScheduleID = schedule.ID
		event.Recipient = input.Recipient
		event.LeafIndex = input.LeafIndex
		event.Amount = input.Amount
		event.Available = vault.Available
		event.Reserved = vault.Reserved
		event.PaidCount = schedule.PaidCount
		return r.Events.Append(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	return &ClaimResult{
		Schedule:       schedule,
		Vault:          vault,
		CycleCompleted: cycleCompleted,
	}, nil
}
