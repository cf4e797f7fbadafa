package schedule

import (
	"context"
	"errors"

	"github.com/jonboulle/clockwork"

	"github.com/veilpay/veilpay-backend/internal/domain"
)

// CreateScheduleInput represents the input for committing a payment schedule
type CreateScheduleInput struct {
	Employer        domain.Address
	ScheduleID      domain.Hash32
	IntervalSeconds uint64
	ReservedAmount  uint64
	PerCycleAmount  uint64
	MerkleRoot      domain.Hash32
	TotalRecipients uint16
	ExternalJobID   domain.Hash32
}

// PauseResumeInput represents the input for the employer pause toggle
type PauseResumeInput struct {
	Employer   domain.Address
	ScheduleID domain.Hash32
	Pause      bool
}

// CancelInput represents the input for terminating a schedule
type CancelInput struct {
	Employer   domain.Address
	ScheduleID domain.Hash32
}

// AdvanceCycleInput represents the input for installing the next cycle's
// payout commitment after the previous cycle fully settled
type AdvanceCycleInput struct {
	Employer        domain.Address
	ScheduleID      domain.Hash32
	Batch           uint64 // the cycle counter the caller believes is current
	MerkleRoot      domain.Hash32
	TotalRecipients uint16
	ExternalJobID   domain.Hash32
}

// ScheduleService handles the payment schedule state machine
type ScheduleService struct {
	ConfigRepo   domain.ConfigRepository
	VaultRepo    domain.VaultRepository
	ScheduleRepo domain.ScheduleRepository
	UoW          domain.UnitOfWork
	Clock        clockwork.Clock
}

// NewScheduleService creates a new ScheduleService instance
func NewScheduleService(
	configRepo domain.ConfigRepository,
	vaultRepo domain.VaultRepository,
	scheduleRepo domain.ScheduleRepository,
	uow domain.UnitOfWork,
	clock clockwork.Clock,
) *ScheduleService {
	return &ScheduleService{
		ConfigRepo:   configRepo,
		VaultRepo:    vaultRepo,
		ScheduleRepo: scheduleRepo,
		UoW:          uow,
		Clock:        clock,
	}
}

// Create commits a recurring disbursement schedule.
// Logic:
//  1. Engine must not be paused; caller must own a vault
//  2. Validate cycle parameters against the config bounds
//  3. Reserve the funds out of the vault's available partition
//  4. Cycle 1 opens at now + interval with a zero claim bitmap
func (s *ScheduleService) Create(ctx context.Context, input CreateScheduleInput) (*domain.Schedule, error) {
	config, err := s.ConfigRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if config.Paused {
		return nil, domain.ErrPaused
	}

	now := uint64(s.Clock.Now().Unix())
	if input.IntervalSeconds == 0 {
		return nil, domain.ErrInvalidInterval
	}
	// An interval that wraps the unlock time past uint64 would leave the
	// timing gate permanently open
	next, err := domain.NextExecutionAfter(now, input.IntervalSeconds)
	if err != nil {
		return nil, err
	}
	if input.ReservedAmount == 0 || input.PerCycleAmount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	if input.PerCycleAmount > input.ReservedAmount {
		return nil, domain.ErrInvalidAmount
	}
	if input.TotalRecipients == 0 || input.TotalRecipients > config.MaxRecipients {
		return nil, domain.ErrInvalidMaxRecipients
	}

	vault, err := s.VaultRepo.GetByOwner(ctx, input.Employer)
	if err != nil {
		return nil, err
	}

	if _, err := s.ScheduleRepo.GetByID(ctx, input.ScheduleID); err == nil {
		return nil, domain.ErrScheduleExists
	} else if !errors.Is(err, domain.ErrScheduleNotFound) {
		return nil, err
	}

	if input.ReservedAmount > vault.Available {
		return nil, domain.ErrInsufficientFunds
	}
	if err := vault.Reserve(input.ReservedAmount); err != nil {
		return nil, err
	}

	schedule := &domain.Schedule{
		ID:                input.ScheduleID,
		Employer:          input.Employer,
		VaultOwner:        vault.Owner,
		Status:            domain.ScheduleStatusActive,
		IntervalSeconds:   input.IntervalSeconds,
		NextExecutionTime: next,
		ReservedAmount:    input.ReservedAmount,
		PerCycleAmount:    input.PerCycleAmount,
		MerkleRoot:        input.MerkleRoot,
		TotalRecipients:   input.TotalRecipients,
		ExternalJobID:     input.ExternalJobID,
		Venue:             domain.VenueHome,
	}

	err = s.UoW.Do(ctx, func(r domain.RepositorySet) error {
		if err := r.Schedules.Create(ctx, schedule); err != nil {
			return err
		}
		if err := r.Vaults.Update(ctx, vault); err != nil {
			return err
		}

		event := domain.NewEvent(domain.EventScheduleCreated, input.Employer, s.Clock.Now().UTC())
		event.VaultOwner = vault.Owner
		event.ScheduleID = schedule.ID
		event.Amount = input.ReservedAmount
		event.Available = vault.Available
		event.Reserved = vault.Reserved
		return r.Events.Append(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	return schedule, nil
}

// PauseResume toggles a schedule between Active and Paused
func (s *ScheduleService) PauseResume(ctx context.Context, input PauseResumeInput) (*domain.Schedule, error) {
	config, err := s.ConfigRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if config.Paused {
		return nil, domain.ErrPaused
	}

	schedule, err := s.ScheduleRepo.GetByID(ctx, input.ScheduleID)
	if err != nil {
		return nil, err
	}
	if schedule.Employer != input.Employer {
		return nil, domain.ErrUnauthorized
	}

	eventType := domain.EventSchedulePaused
	if input.Pause {
		if err := schedule.Pause(); err != nil {
			return nil, err
		}
	} else {
		if err := schedule.Resume(); err != nil {
			return nil, err
		}
		eventType = domain.EventScheduleResumed
	}

	err = s.UoW.Do(ctx, func(r domain.RepositorySet) error {
		if err := r.Schedules.Update(ctx, schedule); err != nil {
			return err
		}

		event := domain.NewEvent(eventType, input.Employer, s.Clock.Now().UTC())
		event.VaultOwner = schedule.VaultOwner
		event.ScheduleID = schedule.ID
		return r.Events.Append(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	return schedule, nil
}

// Cancel terminates a schedule and returns its unspent reservation to the
// vault's available partition. Amounts already claimed this cycle stay paid.
func (s *ScheduleService) Cancel(ctx context.Context, input CancelInput) (*domain.Schedule, error) {
	config, err := s.ConfigRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if config.Paused {
		return nil, domain.ErrPaused
	}

	schedule, err := s.ScheduleRepo.GetByID(ctx, input.ScheduleID)
	if err != nil {
		return nil, err
	}
	if schedule.Employer != input.Employer {
		return nil, domain.ErrUnauthorized
	}

	vault, err := s.VaultRepo.GetByOwner(ctx, schedule.VaultOwner)
	if err != nil {
		return nil, err
	}

	returned, err := schedule.Cancel()
	if err != nil {
		return nil, err
	}
	if err := vault.Release(returned); err != nil {
		return nil, err
	}

	err = s.UoW.Do(ctx, func(r domain.RepositorySet) error {
		if err := r.Schedules.Update(ctx, schedule); err != nil {
			return err
		}
		if err := r.Vaults.Update(ctx, vault); err != nil {
			return err
		}

		event := domain.NewEvent(domain.EventScheduleCancelled, input.Employer, s.Clock.Now().UTC())
		event.VaultOwner = vault.Owner
		event.ScheduleID = schedule.ID
		event.Amount = returned
		event.Available = vault.Available
		event.Reserved = vault.Reserved
		return r.Events.Append(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	return schedule, nil
}

// AdvanceCycle installs the next cycle's payout commitment (root, recipient
// count, job correlation token) on a schedule whose previous cycle fully
// settled. The caller supplies the batch counter it believes is current;
// a mismatch means a stale replica is replaying an old install.
func (s *ScheduleService) AdvanceCycle(ctx context.Context, input AdvanceCycleInput) (*domain.Schedule, error) {
	config, err := s.ConfigRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if config.Paused {
		return nil, domain.ErrPaused
	}

	schedule, err := s.ScheduleRepo.GetByID(ctx, input.ScheduleID)
	if err != nil {
		return nil, err
	}
	if schedule.Employer != input.Employer {
		return nil, domain.ErrUnauthorized
	}
	if schedule.Status != domain.ScheduleStatusActive {
		return nil, domain.ErrScheduleNotActive
	}
	if schedule.PaidCount != 0 {
		// Mid-cycle root swaps would orphan already-verified claims
		return nil, domain.ErrReplayDetected
	}
	if input.Batch != schedule.LastExecutedBatch {
		return nil, domain.ErrReplayDetected
	}
	if input.TotalRecipients == 0 || input.TotalRecipients > config.MaxRecipients {
		return nil, domain.ErrInvalidMaxRecipients
	}

	schedule.MerkleRoot = input.MerkleRoot
	schedule.TotalRecipients = input.TotalRecipients
	schedule.ExternalJobID = input.ExternalJobID

	err = s.UoW.Do(ctx, func(r domain.RepositorySet) error {
		if err := r.Schedules.Update(ctx, schedule); err != nil {
			return err
		}

		event := domain.NewEvent(domain.EventCycleAdvanced, input.Employer, s.Clock.Now().UTC())
		event.VaultOwner = schedule.VaultOwner
		event.ScheduleID = schedule.ID
		return r.Events.Append(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	return schedule, nil
}
