package admin

import (
	"context"
	"errors"

	"github.com/jonboulle/clockwork"

	"github.com/veilpay/veilpay-backend/internal/domain"
)

// InitConfigInput represents the input for bootstrapping the engine config
type InitConfigInput struct {
	Governance          domain.Address
	ExecutionAuthority  domain.Address
	AllowedAsset        domain.Address
	MaxRecipients       uint16
	BatchTimeoutSeconds uint64
}

// SetExecutionAuthorityInput represents the input for rotating the claim executor
type SetExecutionAuthorityInput struct {
	Caller       domain.Address
	NewAuthority domain.Address
}

// PauseInput represents the input for the governance pause toggle
type PauseInput struct {
	Caller domain.Address
}

// AdminService handles governance operations on the engine config
type AdminService struct {
	ConfigRepo domain.ConfigRepository
	EventRepo  domain.EventRepository
	Clock      clockwork.Clock
}

// NewAdminService creates a new AdminService instance
func NewAdminService(configRepo domain.ConfigRepository, eventRepo domain.EventRepository, clock clockwork.Clock) *AdminService {
	return &AdminService{
		ConfigRepo: configRepo,
		EventRepo:  eventRepo,
		Clock:      clock,
	}
}

// InitConfig bootstraps the engine configuration exactly once
func (s *AdminService) InitConfig(ctx context.Context, input InitConfigInput) (*domain.EngineConfig, error) {
	if _, err := s.ConfigRepo.Get(ctx); err == nil {
		return nil, domain.ErrConfigExists
	} else if !errors.Is(err, domain.ErrConfigNotFound) {
		return nil, err
	}

	config := &domain.EngineConfig{
		Governance:          input.Governance,
		ExecutionAuthority:  input.ExecutionAuthority,
		AllowedAsset:        input.AllowedAsset,
		MaxRecipients:       input.MaxRecipients,
		BatchTimeoutSeconds: input.BatchTimeoutSeconds,
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := s.ConfigRepo.Create(ctx, config); err != nil {
		return nil, err
	}

	s.emit(ctx, domain.EventConfigInitialized, input.Governance)
	return config, nil
}

// SetExecutionAuthority rotates the authority allowed to execute claims
func (s *AdminService) SetExecutionAuthority(ctx context.Context, input SetExecutionAuthorityInput) (*domain.EngineConfig, error) {
	config, err := s.ConfigRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if input.Caller != config.Governance {
		return nil, domain.ErrUnauthorized
	}
	if input.NewAuthority.IsZero() {
		return nil, domain.ErrInvalidAuthority
	}

	config.ExecutionAuthority = input.NewAuthority
	if err := s.ConfigRepo.Update(ctx, config); err != nil {
		return nil, err
	}

	s.emit(ctx, domain.EventAuthorityRotated, input.Caller)
	return config, nil
}

// Pause halts every mutating operation on vaults and schedules.
// The pause authority can stop movement but never move funds itself.
func (s *AdminService) Pause(ctx context.Context, input PauseInput) error {
	config, err := s.ConfigRepo.Get(ctx)
	if err != nil {
		return err
	}
	if input.Caller != config.Governance {
		return domain.ErrUnauthorized
	}
	if config.Paused {
		return domain.ErrPaused
	}

	config.Paused = true
	if err := s.ConfigRepo.Update(ctx, config); err != nil {
		return err
	}

	s.emit(ctx, domain.EventEnginePaused, input.Caller)
	return nil
}

// Unpause lifts the emergency halt
func (s *AdminService) Unpause(ctx context.Context, input PauseInput) error {
	config, err := s.ConfigRepo.Get(ctx)
	if err != nil {
		return err
	}
	if input.Caller != config.Governance {
		return domain.ErrUnauthorized
	}
	if !config.Paused {
		return domain.ErrNotPaused
	}

	config.Paused = false
	if err := s.ConfigRepo.Update(ctx, config); err != nil {
		return err
	}

	s.emit(ctx, domain.EventEngineUnpaused, input.Caller)
	return nil
}

func (s *AdminService) emit(ctx context.Context, eventType domain.EventType, actor domain.Address) {
	_ = s.EventRepo.Append(ctx, domain.NewEvent(eventType, actor, s.Clock.Now().UTC()))
}
