package schedule

import (
	"context"
	"math"
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

// MockVaultRepository is a mock implementation of VaultRepository for testing
type MockVaultRepository struct {
	mock.Mock
}

func (m *MockVaultRepository) GetByOwner(ctx context.Context, owner domain.Address) (*domain.Vault, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vault), args.Error(1)
}

func (m *MockVaultRepository) Create(ctx context.Context, vault *domain.Vault) error {
	args := m.Called(ctx, vault)
	return args.Error(0)
}

func (m *MockVaultRepository) Update(ctx context.Context, vault *domain.Vault) error {
	args := m.Called(ctx, vault)
	return args.Error(0)
}

// MockScheduleRepository is a mock implementation of ScheduleRepository for testing
type MockScheduleRepository struct {
	mock.Mock
}

func (m *MockScheduleRepository) GetByID(ctx context.Context, id domain.Hash32) (*domain.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) Create(ctx context.Context, schedule *domain.Schedule) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

func (m *MockScheduleRepository) Update(ctx context.Context, schedule *domain.Schedule) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

func (m *MockScheduleRepository) ListByVault(ctx context.Context, owner domain.Address) ([]*domain.Schedule, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Schedule), args.Error(1)
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

func hash(b byte) domain.Hash32 {
	var h domain.Hash32
	for i := range h {
		h[i] = b
	}
	return h
}

var (
	asset      = addr(0xAA)
	employer   = addr(0x01)
	scheduleID = hash(0x51)
)

func testConfig() *domain.EngineConfig {
	return &domain.EngineConfig{
		Governance:          addr(0x10),
		ExecutionAuthority:  addr(0xE0),
		AllowedAsset:        asset,
		MaxRecipients:       100,
		BatchTimeoutSeconds: 86400,
	}
}

// stubUnitOfWork runs the callback directly against the test's mocks
type stubUnitOfWork struct {
	repos domain.RepositorySet
	calls int
}

func (u *stubUnitOfWork) Do(ctx context.Context, fn func(domain.RepositorySet) error) error {
	u.calls++
	return fn(u.repos)
}

type fixture struct {
	configRepo   *MockConfigRepository
	vaultRepo    *MockVaultRepository
	scheduleRepo *MockScheduleRepository
	eventRepo    *MockEventRepository
	uow          *stubUnitOfWork
	service      *ScheduleService
}

func newFixture() *fixture {
	f := &fixture{
		configRepo:   new(MockConfigRepository),
		vaultRepo:    new(MockVaultRepository),
		scheduleRepo: new(MockScheduleRepository),
		eventRepo:    new(MockEventRepository),
	}
	f.uow = &stubUnitOfWork{repos: domain.RepositorySet{
		Config:    f.configRepo,
		Vaults:    f.vaultRepo,
		Schedules: f.scheduleRepo,
		Events:    f.eventRepo,
	}}
	clock := clockwork.NewFakeClockAt(time.Unix(100_000, 0))
	f.service = NewScheduleService(f.configRepo, f.vaultRepo, f.scheduleRepo, f.uow, clock)
	return f
}

func createInput() CreateScheduleInput {
	return CreateScheduleInput{
		Employer:        employer,
		ScheduleID:      scheduleID,
		IntervalSeconds: 3600,
		ReservedAmount:  600,
		PerCycleAmount:  200,
		MerkleRoot:      hash(0xAB),
		TotalRecipients: 2,
		ExternalJobID:   hash(0x10),
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	vault := domain.NewVault(employer, asset)
	require.NoError(t, vault.Credit(1000))

	f.configRepo.On("Get", ctx).Return(testConfig(), nil)
	f.vaultRepo.On("GetByOwner", ctx, employer).Return(vault, nil)
	f.scheduleRepo.On("GetByID", ctx, scheduleID).Return(nil, domain.ErrScheduleNotFound)
	f.scheduleRepo.On("Create", ctx, mock.Anything).Return(nil)
	f.vaultRepo.On("Update", ctx, vault).Return(nil)
	f.eventRepo.On("Append", ctx, mock.Anything).Return(nil)

	schedule, err := f.service.Create(ctx, createInput())
	require.NoError(t, err)

	// Reservation moved out of the free partition
	assert.Equal(t, uint64(400), vault.Available)
	assert.Equal(t, uint64(600), vault.Reserved)

	assert.Equal(t, domain.ScheduleStatusActive, schedule.Status)
	assert.Equal(t, uint64(103_600), schedule.NextExecutionTime)
	assert.Zero(t, schedule.PaidCount)
	assert.Zero(t, schedule.LastExecutedBatch)
	assert.Equal(t, [domain.PaidBitmapBytes]byte{}, schedule.PaidBitmap)
	assert.Equal(t, domain.VenueHome, schedule.Venue)
	f.scheduleRepo.AssertExpectations(t)
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*CreateScheduleInput)
		wantErr error
	}{
		{"zero interval", func(in *CreateScheduleInput) { in.IntervalSeconds = 0 }, domain.ErrInvalidInterval},
		{"interval wraps unlock time", func(in *CreateScheduleInput) { in.IntervalSeconds = math.MaxUint64 }, domain.ErrInvalidInterval},
		{"zero reserved", func(in *CreateScheduleInput) { in.ReservedAmount = 0 }, domain.ErrInvalidAmount},
		{"zero per-cycle", func(in *CreateScheduleInput) { in.PerCycleAmount = 0 }, domain.ErrInvalidAmount},
		{"per-cycle above reserved", func(in *CreateScheduleInput) { in.PerCycleAmount = 601 }, domain.ErrInvalidAmount},
		{"zero recipients", func(in *CreateScheduleInput) { in.TotalRecipients = 0 }, domain.ErrInvalidMaxRecipients},
		{"too many recipients", func(in *CreateScheduleInput) { in.TotalRecipients = 101 }, domain.ErrInvalidMaxRecipients},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.configRepo.On("Get", ctx).Return(testConfig(), nil)

			input := createInput()
			tt.mutate(&input)

			_, err := f.service.Create(ctx, input)
			assert.ErrorIs(t, err, tt.wantErr)
			f.vaultRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		})
	}
}

func TestCreate_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	vault := domain.NewVault(employer, asset)
	require.NoError(t, vault.Credit(500)) // less than the requested reservation

	f.configRepo.On("Get", ctx).Return(testConfig(), nil)
	f.vaultRepo.On("GetByOwner", ctx, employer).Return(vault, nil)
	f.scheduleRepo.On("GetByID", ctx, scheduleID).Return(nil, domain.ErrScheduleNotFound)

	_, err := f.service.Create(ctx, createInput())
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, uint64(500), vault.Available)
	assert.Zero(t, vault.Reserved)
}

func TestCreate_AlreadyExists(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	vault := domain.NewVault(employer, asset)
	require.NoError(t, vault.Credit(1000))

	f.configRepo.On("Get", ctx).Return(testConfig(), nil)
	f.vaultRepo.On("GetByOwner", ctx, employer).Return(vault, nil)
	f.scheduleRepo.On("GetByID", ctx, scheduleID).Return(&domain.Schedule{ID: scheduleID}, nil)

	_, err := f.service.Create(ctx, createInput())
	assert.ErrorIs(t, err, domain.ErrScheduleExists)
}

func activeSchedule() *domain.Schedule {
	return &domain.Schedule{
		ID:                scheduleID,
		Employer:          employer,
		VaultOwner:        employer,
		Status:            domain.ScheduleStatusActive,
		IntervalSeconds:   3600,
		NextExecutionTime: 103_600,
		ReservedAmount:    400,
		PerCycleAmount:    200,
		TotalRecipients:   2,
		Venue:             domain.VenueHome,
	}
}

func TestPauseResume(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	schedule := activeSchedule()
	f.configRepo.On("Get", ctx).Return(testConfig(), nil)
	f.scheduleRepo.On("GetByID", ctx, scheduleID).Return(schedule, nil)
	f.scheduleRepo.On("Update", ctx, schedule).Return(nil)
	f.eventRepo.On("Append", ctx, mock.Anything).Return(nil)

	_, err := f.service.PauseResume(ctx, PauseResumeInput{Employer: employer, ScheduleID: scheduleID, Pause: true})
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleStatusPaused, schedule.Status)

	// Pausing twice is rejected in place
	_, err = f.service.PauseResume(ctx, PauseResumeInput{Employer: employer, ScheduleID: scheduleID, Pause: true})
	assert.ErrorIs(t, err, domain.ErrScheduleAlreadyPaused)

	_, err = f.service.PauseResume(ctx, PauseResumeInput{Employer: employer, ScheduleID: scheduleID, Pause: false})
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleStatusActive, schedule.Status)

	_, err = f.service.PauseResume(ctx, PauseResumeInput{Employer: employer, ScheduleID: scheduleID, Pause: false})
	assert.ErrorIs(t, err, domain.ErrScheduleNotPaused)
}

func TestPauseResume_WrongEmployer(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.configRepo.On("Get", ctx).Return(testConfig(), nil)
	f.scheduleRepo.On("GetByID", ctx, scheduleID).Return(activeSchedule(), nil)

	_, err := f.service.PauseResume(ctx, PauseResumeInput{Employer: addr(0x02), ScheduleID: scheduleID, Pause: true})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	vault := domain.NewVault(employer, asset)
	require.NoError(t, vault.Credit(800))
	require.NoError(t, vault.Reserve(400))
	schedule := activeSchedule()

	f.configRepo.On("Get", ctx).Return(testConfig(), nil)
	f.scheduleRepo.On("GetByID", ctx, scheduleID).Return(schedule, nil)
	f.vaultRepo.On("GetByOwner", ctx, employer).Return(vault, nil)
	f.scheduleRepo.On("Update", ctx, schedule).Return(nil)
	f.vaultRepo.On("Update", ctx, vault).Return(nil)
	f.eventRepo.On("Append", ctx, mock.MatchedBy(func(event *domain.Event) bool {
		return event.Type == domain.EventScheduleCancelled && event.Amount == 400
	})).Return(nil)

	cancelled, err := f.service.Cancel(ctx, CancelInput{Employer: employer, ScheduleID: scheduleID})
	require.NoError(t, err)

	// The full unclaimed reservation flows back to free funds
	assert.Equal(t, domain.ScheduleStatusCancelled, cancelled.Status)
	assert.Zero(t, cancelled.ReservedAmount)
	assert.Equal(t, uint64(800), vault.Available)
	assert.Zero(t, vault.Reserved)

	// Cancelled is terminal
	_, err = f.service.Cancel(ctx, CancelInput{Employer: employer, ScheduleID: scheduleID})
	assert.ErrorIs(t, err, domain.ErrScheduleAlreadyCancelled)
	f.eventRepo.AssertExpectations(t)
}

func TestCancel_MidCycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	// One recipient of two already claimed 100 this cycle; that amount has
	// left custody and must not be part of the refund
	vault := domain.NewVault(employer, asset)
	require.NoError(t, vault.Credit(800))
	require.NoError(t, vault.Reserve(400))
	require.NoError(t, vault.Settle(100))
	schedule := activeSchedule()
	require.NoError(t, schedule.MarkPaid(0))
	require.NoError(t, schedule.RecordPayment(100))

	f.configRepo.On("Get", ctx).Return(testConfig(), nil)
	f.scheduleRepo.On("GetByID", ctx, scheduleID).Return(schedule, nil)
	f.vaultRepo.On("GetByOwner", ctx, employer).Return(vault, nil)
	f.scheduleRepo.On("Update", ctx, schedule).Return(nil)
	f.vaultRepo.On("Update", ctx, vault).Return(nil)
	f.eventRepo.On("Append", ctx, mock.Anything).Return(nil)

	_, err := f.service.Cancel(ctx, CancelInput{Employer: employer, ScheduleID: scheduleID})
	require.NoError(t, err)
	assert.Equal(t, uint64(700), vault.Available)
	assert.Zero(t, vault.Reserved)
}

func TestAdvanceCycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	schedule := activeSchedule()
	schedule.LastExecutedBatch = 1

	f.configRepo.On("Get", ctx).Return(testConfig(), nil)
	f.scheduleRepo.On("GetByID", ctx, scheduleID).Return(schedule, nil)
	f.scheduleRepo.On("Update", ctx, schedule).Return(nil)
	f.eventRepo.On("Append", ctx, mock.Anything).Return(nil)

	newRoot := hash(0xCD)
	advanced, err := f.service.AdvanceCycle(ctx, AdvanceCycleInput{
		Employer:        employer,
		ScheduleID:      scheduleID,
		Batch:           1,
		MerkleRoot:      newRoot,
		TotalRecipients: 3,
		ExternalJobID:   hash(0x11),
	})
	require.NoError(t, err)
	assert.Equal(t, newRoot, advanced.MerkleRoot)
	assert.Equal(t, uint16(3), advanced.TotalRecipients)
	assert.Equal(t, hash(0x11), advanced.ExternalJobID)
}

func TestAdvanceCycle_ReplayGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("stale batch counter", func(t *testing.T) {
		f := newFixture()
		schedule := activeSchedule()
		schedule.LastExecutedBatch = 2

		f.configRepo.On("Get", ctx).Return(testConfig(), nil)
		f.scheduleRepo.On("GetByID", ctx, scheduleID).Return(schedule, nil)

		_, err := f.service.AdvanceCycle(ctx, AdvanceCycleInput{
			Employer:        employer,
			ScheduleID:      scheduleID,
			Batch:           1, // replaying the previous install
			MerkleRoot:      hash(0xCD),
			TotalRecipients: 3,
		})
		assert.ErrorIs(t, err, domain.ErrReplayDetected)
		f.scheduleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("mid-cycle root swap", func(t *testing.T) {
		f := newFixture()
		schedule := activeSchedule()
		schedule.PaidCount = 1

		f.configRepo.On("Get", ctx).Return(testConfig(), nil)
		f.scheduleRepo.On("GetByID", ctx, scheduleID).Return(schedule, nil)

		_, err := f.service.AdvanceCycle(ctx, AdvanceCycleInput{
			Employer:        employer,
			ScheduleID:      scheduleID,
			Batch:           0,
			MerkleRoot:      hash(0xCD),
			TotalRecipients: 3,
		})
		assert.ErrorIs(t, err, domain.ErrReplayDetected)
	})
}

func TestScheduleOps_Paused(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	config := testConfig()
	config.Paused = true
	f.configRepo.On("Get", ctx).Return(config, nil)

	_, err := f.service.Create(ctx, createInput())
	assert.ErrorIs(t, err, domain.ErrPaused)

	_, err = f.service.PauseResume(ctx, PauseResumeInput{Employer: employer, ScheduleID: scheduleID, Pause: true})
	assert.ErrorIs(t, err, domain.ErrPaused)

	_, err = f.service.Cancel(ctx, CancelInput{Employer: employer, ScheduleID: scheduleID})
	assert.ErrorIs(t, err, domain.ErrPaused)

	_, err = f.service.AdvanceCycle(ctx, AdvanceCycleInput{Employer: employer, ScheduleID: scheduleID})
	assert.ErrorIs(t, err, domain.ErrPaused)
}
