package delegation

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/veilpay/veilpay-backend/internal/domain"
)

// VaultDelegationInput represents the input for a vault venue hand-off
type VaultDelegationInput struct {
	Caller domain.Address
	Owner  domain.Address // vault owner
}

// ScheduleDelegationInput represents the input for a schedule venue hand-off
type ScheduleDelegationInput struct {
	Caller     domain.Address
	ScheduleID domain.Hash32
}

// CommitInput represents the input for flushing delegated state home
type CommitInput struct {
	Caller domain.Address
	Owner  domain.Address // vault owner whose state is flushed
}

// DelegationService controls which execution venue holds authority over
// vaults and schedules. These operations never touch balances or schedule
// fields; they only flip the venue flag and notify the external venue. The
// flag and the hand-off record commit in one unit of work so the venue buffer
// never disagrees with the stored venue.
type DelegationService struct {
	ConfigRepo   domain.ConfigRepository
	VaultRepo    domain.VaultRepository
	ScheduleRepo domain.ScheduleRepository
	UoW          domain.UnitOfWork
	Clock        clockwork.Clock
}

// NewDelegationService creates a new DelegationService instance
func NewDelegationService(
	configRepo domain.ConfigRepository,
	vaultRepo domain.VaultRepository,
	scheduleRepo domain.ScheduleRepository,
	uow domain.UnitOfWork,
	clock clockwork.Clock,
) *DelegationService {
	return &DelegationService{
		ConfigRepo:   configRepo,
		VaultRepo:    vaultRepo,
		ScheduleRepo: scheduleRepo,
		UoW:          uow,
		Clock:        clock,
	}
}

// DelegateVault hands the vault's authority to the external venue
func (s *DelegationService) DelegateVault(ctx context.Context, input VaultDelegationInput) error {
	vault, err := s.loadVault(ctx, input.Owner)
	if err != nil {
		return err
	}
	if input.Caller != vault.Owner {
		return domain.ErrUnauthorized
	}

	if err := vault.Delegate(); err != nil {
		return err
	}
	return s.UoW.Do(ctx, func(r domain.RepositorySet) error {
		if err := r.Venue.Delegate(ctx, vault.CustodialAccount); err != nil {
			return fmt.Errorf("venue hand-off failed: %w", err)
		}
		if err := r.Vaults.Update(ctx, vault); err != nil {
			return err
		}
		return r.Events.Append(ctx, s.event(domain.EventVaultDelegated, input.Caller, vault.Owner, domain.Hash32{}))
	})
}

// UndelegateVault returns the vault's authority to the home ledger
func (s *DelegationService) UndelegateVault(ctx context.Context, input VaultDelegationInput) error {
	vault, err := s.loadVault(ctx, input.Owner)
	if err != nil {
		return err
	}
	if input.Caller != vault.Owner {
		return domain.ErrUnauthorized
	}

	if err := vault.Undelegate(); err != nil {
		return err
	}
	return s.UoW.Do(ctx, func(r domain.RepositorySet) error {
		if err := r.Venue.Undelegate(ctx, vault.CustodialAccount); err != nil {
			return fmt.Errorf("venue hand-back failed: %w", err)
		}
		if err := r.Vaults.Update(ctx, vault); err != nil {
			return err
		}
		return r.Events.Append(ctx, s.event(domain.EventVaultUndelegated, input.Caller, vault.Owner, domain.Hash32{}))
	})
}

// DelegateSchedule hands an active schedule's authority to the external venue
func (s *DelegationService) DelegateSchedule(ctx context.Context, input ScheduleDelegationInput) error {
	schedule, err := s.loadSchedule(ctx, input.ScheduleID)
	if err != nil {
		return err
	}
	if input.Caller != schedule.Employer {
		return domain.ErrUnauthorized
	}

	if err := schedule.Delegate(); err != nil {
		return err
	}
	return s.UoW.Do(ctx, func(r domain.RepositorySet) error {
		if err := r.Venue.Delegate(ctx, domain.Address(schedule.ID)); err != nil {
			return fmt.Errorf("venue hand-off failed: %w", err)
		}
		if err := r.Schedules.Update(ctx, schedule); err != nil {
			return err
		}
		return r.Events.Append(ctx, s.event(domain.EventScheduleDelegated, input.Caller, schedule.VaultOwner, schedule.ID))
	})
}

// UndelegateSchedule returns a schedule's authority to the home ledger
func (s *DelegationService) UndelegateSchedule(ctx context.Context, input ScheduleDelegationInput) error {
	schedule, err := s.loadSchedule(ctx, input.ScheduleID)
	if err != nil {
		return err
	}
	if input.Caller != schedule.Employer {
		return domain.ErrUnauthorized
	}

	if err := schedule.Undelegate(); err != nil {
		return err
	}
	return s.UoW.Do(ctx, func(r domain.RepositorySet) error {
		if err := r.Venue.Undelegate(ctx, domain.Address(schedule.ID)); err != nil {
			return fmt.Errorf("venue hand-back failed: %w", err)
		}
		if err := r.Schedules.Update(ctx, schedule); err != nil {
			return err
		}
		return r.Events.Append(ctx, s.event(domain.EventScheduleUndelegated, input.Caller, schedule.VaultOwner, schedule.ID))
	})
}

// Commit flushes a delegated vault's state back to the home ledger without
// changing which venue is authoritative
func (s *DelegationService) Commit(ctx context.Context, input CommitInput) error {
	vault, err := s.loadVault(ctx, input.Owner)
	if err != nil {
		return err
	}
	if input.Caller != vault.Owner {
		return domain.ErrUnauthorized
	}
	if vault.Venue != domain.VenueDelegated {
		return domain.ErrNotDelegated
	}

	return s.UoW.Do(ctx, func(r domain.RepositorySet) error {
		if err := r.Venue.Commit(ctx, vault.CustodialAccount); err != nil {
			return fmt.Errorf("venue commit failed: %w", err)
		}
		return r.Events.Append(ctx, s.event(domain.EventStateCommitted, input.Caller, vault.Owner, domain.Hash32{}))
	})
}

func (s *DelegationService) loadVault(ctx context.Context, owner domain.Address) (*domain.Vault, error) {
	config, err := s.ConfigRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if config.Paused {
		return nil, domain.ErrPaused
	}
	return s.VaultRepo.GetByOwner(ctx, owner)
}

func (s *DelegationService) loadSchedule(ctx context.Context, id domain.Hash32) (*domain.Schedule, error) {
	config, err := s.ConfigRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if config.Paused {
		return nil, domain.ErrPaused
	}
	return s.ScheduleRepo.GetByID(ctx, id)
}

func (s *DelegationService) event(eventType domain.EventType, actor, vaultOwner domain.Address, scheduleID domain.Hash32) *domain.Event {
	event := domain.NewEvent(eventType, actor, s.Clock.Now().UTC())
	event.VaultOwner = vaultOwner
	event.ScheduleID = scheduleID
	return event
}
