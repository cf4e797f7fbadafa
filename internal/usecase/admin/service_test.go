package admin

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/veilpay/veilpay-backend/internal/domain"
)

// MockConfigRepository is a mock implementation of ConfigRepository for testing
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

// MockEventRepository is a mock implementation of EventRepository for testing
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Append(ctx context.Context, event *domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func addr(b byte) domain.Address {
	var a domain.Address
	for i := range a {
		a[i] = b
	}
	return a
}

var governance = addr(0x10)

func testConfig() *domain.EngineConfig {
	return &domain.EngineConfig{
		Governance:          governance,
		ExecutionAuthority:  addr(0xE0),
		AllowedAsset:        addr(0xAA),
		MaxRecipients:       100,
		BatchTimeoutSeconds: 86400,
	}
}

func initInput() InitConfigInput {
	return InitConfigInput{
		Governance:          governance,
		ExecutionAuthority:  addr(0xE0),
		AllowedAsset:        addr(0xAA),
		MaxRecipients:       100,
		BatchTimeoutSeconds: 86400,
	}
}

func newService(configRepo *MockConfigRepository, eventRepo *MockEventRepository) *AdminService {
	clock := clockwork.NewFakeClockAt(time.Unix(100_000, 0))
	return NewAdminService(configRepo, eventRepo, clock)
}

func TestInitConfig(t *testing.T) {
	ctx := context.Background()
	configRepo := new(MockConfigRepository)
	eventRepo := new(MockEventRepository)
	service := newService(configRepo, eventRepo)

	configRepo.On("Get", ctx).Return(nil, domain.ErrConfigNotFound)
	configRepo.On("Create", ctx, mock.Anything).Return(nil)
	eventRepo.On("Append", ctx, mock.MatchedBy(func(event *domain.Event) bool {
		return event.Type == domain.EventConfigInitialized
	})).Return(nil)

	config, err := service.InitConfig(ctx, initInput())
	require.NoError(t, err)
	assert.False(t, config.Paused)
	assert.Equal(t, governance, config.Governance)
	eventRepo.AssertExpectations(t)
}

func TestInitConfig_Once(t *testing.T) {
	ctx := context.Background()
	configRepo := new(MockConfigRepository)
	service := newService(configRepo, new(MockEventRepository))

	configRepo.On("Get", ctx).Return(testConfig(), nil)

	_, err := service.InitConfig(ctx, initInput())
	assert.ErrorIs(t, err, domain.ErrConfigExists)
	configRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestInitConfig_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*InitConfigInput)
		wantErr error
	}{
		{"zero governance", func(in *InitConfigInput) { in.Governance = domain.Address{} }, domain.ErrInvalidAuthority},
		{"zero execution authority", func(in *InitConfigInput) { in.ExecutionAuthority = domain.Address{} }, domain.ErrInvalidAuthority},
		{"zero asset", func(in *InitConfigInput) { in.AllowedAsset = domain.Address{} }, domain.ErrInvalidAsset},
		{"zero max recipients", func(in *InitConfigInput) { in.MaxRecipients = 0 }, domain.ErrInvalidMaxRecipients},
		{"recipients above bitmap capacity", func(in *InitConfigInput) { in.MaxRecipients = domain.MaxScheduleRecipients + 1 }, domain.ErrInvalidMaxRecipients},
		{"timeout below floor", func(in *InitConfigInput) { in.BatchTimeoutSeconds = domain.MinBatchTimeoutSeconds - 1 }, domain.ErrInvalidBatchTimeout},
		{"timeout above ceiling", func(in *InitConfigInput) { in.BatchTimeoutSeconds = domain.MaxBatchTimeoutSeconds + 1 }, domain.ErrInvalidBatchTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configRepo := new(MockConfigRepository)
			service := newService(configRepo, new(MockEventRepository))
			configRepo.On("Get", ctx).Return(nil, domain.ErrConfigNotFound)

			input := initInput()
			tt.mutate(&input)

			_, err := service.InitConfig(ctx, input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSetExecutionAuthority(t *testing.T) {
	ctx := context.Background()
	configRepo := new(MockConfigRepository)
	eventRepo := new(MockEventRepository)
	service := newService(configRepo, eventRepo)

	config := testConfig()
	configRepo.On("Get", ctx).Return(config, nil)
	configRepo.On("Update", ctx, config).Return(nil)
	eventRepo.On("Append", ctx, mock.Anything).Return(nil)

	updated, err := service.SetExecutionAuthority(ctx, SetExecutionAuthorityInput{
		Caller:       governance,
		NewAuthority: addr(0xE1),
	})
	require.NoError(t, err)
	assert.Equal(t, addr(0xE1), updated.ExecutionAuthority)
}

func TestSetExecutionAuthority_Rejections(t *testing.T) {
	ctx := context.Background()
	configRepo := new(MockConfigRepository)
	service := newService(configRepo, new(MockEventRepository))

	configRepo.On("Get", ctx).Return(testConfig(), nil)

	_, err := service.SetExecutionAuthority(ctx, SetExecutionAuthorityInput{
		Caller:       addr(0x02),
		NewAuthority: addr(0xE1),
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = service.SetExecutionAuthority(ctx, SetExecutionAuthorityInput{
		Caller: governance,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAuthority)
	configRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestPauseUnpause(t *testing.T) {
	ctx := context.Background()
	configRepo := new(MockConfigRepository)
	eventRepo := new(MockEventRepository)
	service := newService(configRepo, eventRepo)

	config := testConfig()
	configRepo.On("Get", ctx).Return(config, nil)
	configRepo.On("Update", ctx, config).Return(nil)
	eventRepo.On("Append", ctx, mock.Anything).Return(nil)

	require.NoError(t, service.Pause(ctx, PauseInput{Caller: governance}))
	assert.True(t, config.Paused)

	// Double pause and double unpause are both rejected
	assert.ErrorIs(t, service.Pause(ctx, PauseInput{Caller: governance}), domain.ErrPaused)

	require.NoError(t, service.Unpause(ctx, PauseInput{Caller: governance}))
	assert.False(t, config.Paused)
	assert.ErrorIs(t, service.Unpause(ctx, PauseInput{Caller: governance}), domain.ErrNotPaused)
}

func TestPauseUnpause_Unauthorized(t *testing.T) {
	ctx := context.Background()
	configRepo := new(MockConfigRepository)
	service := newService(configRepo, new(MockEventRepository))

	configRepo.On("Get", ctx).Return(testConfig(), nil)

	assert.ErrorIs(t, service.Pause(ctx, PauseInput{Caller: addr(0x02)}), domain.ErrUnauthorized)
	assert.ErrorIs(t, service.Unpause(ctx, PauseInput{Caller: addr(0x02)}), domain.ErrUnauthorized)
}
