package seeder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/veilpay/veilpay-backend/internal/domain"
)

// MockConfigRepository is a mock implementation of ConfigRepository
type MockConfigRepository struct {
	mock.Mock
}

func (m *MockConfigRepository) Get(ctx context.Context) (*domain.EngineConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EngineConfig), args.Error(1)
}

func (m *MockConfigRepository) Create(ctx context.Context, config *domain.EngineConfig) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

func (m *MockConfigRepository) Update(ctx context.Context, config *domain.EngineConfig) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

func addr(b byte) domain.Address {
	var a domain.Address
	a[0] = b
	return a
}

func TestConfigSeeder_Seed_ConfigMissing(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockConfigRepository)
	s := NewConfigSeeder(mockRepo, domain.EngineConfig{
		Governance:          addr(0xA1),
		ExecutionAuthority:  addr(0xB2),
		AllowedAsset:        addr(0xC3),
		MaxRecipients:       32,
		BatchTimeoutSeconds: 86400,
	})

	mockRepo.On("Get", ctx).Return(nil, domain.ErrConfigNotFound)
	mockRepo.On("Create", ctx, mock.MatchedBy(func(config *domain.EngineConfig) bool {
		return config.Governance == addr(0xA1) &&
			config.ExecutionAuthority == addr(0xB2) &&
			config.AllowedAsset == addr(0xC3) &&
			config.MaxRecipients == 32 &&
			config.BatchTimeoutSeconds == 86400 &&
			!config.Paused
	})).Return(nil)

	err := s.Seed(ctx)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestConfigSeeder_Seed_DevDefaults(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockConfigRepository)
	s := NewConfigSeeder(mockRepo, domain.EngineConfig{})

	mockRepo.On("Get", ctx).Return(nil, domain.ErrConfigNotFound)
	mockRepo.On("Create", ctx, mock.MatchedBy(func(config *domain.EngineConfig) bool {
		return config.Governance == DevGovernance &&
			config.ExecutionAuthority == DevExecutionAuthority &&
			config.AllowedAsset == DevAsset &&
			config.MaxRecipients == 64 &&
			config.BatchTimeoutSeconds == domain.MinBatchTimeoutSeconds
	})).Return(nil)

	err := s.Seed(ctx)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestConfigSeeder_Seed_AlreadyInitialized(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockConfigRepository)
	s := NewConfigSeeder(mockRepo, domain.EngineConfig{})

	existing := &domain.EngineConfig{
		Governance:          addr(0xA1),
		ExecutionAuthority:  addr(0xB2),
		AllowedAsset:        addr(0xC3),
		MaxRecipients:       64,
		BatchTimeoutSeconds: 3600,
	}
	mockRepo.On("Get", ctx).Return(existing, nil)

	err := s.Seed(ctx)

	assert.NoError(t, err)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestConfigSeeder_Seed_InvalidBootstrap(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockConfigRepository)
	s := NewConfigSeeder(mockRepo, domain.EngineConfig{
		BatchTimeoutSeconds: domain.MaxBatchTimeoutSeconds + 1,
	})

	mockRepo.On("Get", ctx).Return(nil, domain.ErrConfigNotFound)

	err := s.Seed(ctx)

	assert.ErrorIs(t, err, domain.ErrInvalidBatchTimeout)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestConfigSeeder_Seed_RepoError(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockConfigRepository)
	s := NewConfigSeeder(mockRepo, domain.EngineConfig{})

	repoErr := errors.New("connection refused")
	mockRepo.On("Get", ctx).Return(nil, repoErr)

	err := s.Seed(ctx)

	assert.ErrorIs(t, err, repoErr)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
