package seeder

import (
	"context"
	"errors"

	"github.com/veilpay/veilpay-backend/internal/domain"
)

// Fixed development identities, used for any bootstrap field left unset.
// Deployments are expected to override these through the environment.
var (
	DevGovernance         = devAddress(0x01)
	DevExecutionAuthority = devAddress(0x02)
	DevAsset              = devAddress(0x03)
)

func devAddress(tag byte) domain.Address {
	var a domain.Address
	a[len(a)-1] = tag
	return a
}

// ConfigSeeder bootstraps the engine config singleton at startup
type ConfigSeeder struct {
	repo      domain.ConfigRepository
	bootstrap domain.EngineConfig
}

// NewConfigSeeder creates a new ConfigSeeder instance
func NewConfigSeeder(repo domain.ConfigRepository, bootstrap domain.EngineConfig) *ConfigSeeder {
	return &ConfigSeeder{
		repo:      repo,
		bootstrap: bootstrap,
	}
}

// Seed creates the config singleton if it does not exist yet.
// An already-initialized engine is left untouched, so rotations applied
// through governance survive restarts.
func (s *ConfigSeeder) Seed(ctx context.Context) error {
	_, err := s.repo.Get(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrConfigNotFound) {
		return err
	}

	config := s.bootstrap
	if config.Governance.IsZero() {
		config.Governance = DevGovernance
	}
	if config.ExecutionAuthority.IsZero() {
		config.ExecutionAuthority = DevExecutionAuthority
	}
	if config.AllowedAsset.IsZero() {
		config.AllowedAsset = DevAsset
	}
	if config.MaxRecipients == 0 {
		config.MaxRecipients = 64
	}
	if config.BatchTimeoutSeconds == 0 {
		config.BatchTimeoutSeconds = domain.MinBatchTimeoutSeconds
	}

	if err := config.Validate(); err != nil {
		return err
	}

	return s.repo.Create(ctx, &config)
}
