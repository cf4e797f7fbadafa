package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchedule() *Schedule {
	return &Schedule{
		ID:                Hash32{0x01},
		Employer:          testAddress(0x01),
		VaultOwner:        testAddress(0x01),
		Status:            ScheduleStatusActive,
		IntervalSeconds:   3600,
		NextExecutionTime: 10_000,
		ReservedAmount:    600,
		PerCycleAmount:    200,
		TotalRecipients:   2,
		Venue:             VenueHome,
	}
}

func TestSchedule_Bitmap(t *testing.T) {
	s := testSchedule()

	paid, err := s.IsPaid(0)
	require.NoError(t, err)
	assert.False(t, paid)

	require.NoError(t, s.MarkPaid(0))
	paid, err = s.IsPaid(0)
	require.NoError(t, err)
	assert.True(t, paid)

	// Neighboring indices are unaffected
	paid, err = s.IsPaid(1)
	require.NoError(t, err)
	assert.False(t, paid)

	// Highest supported index
	require.NoError(t, s.MarkPaid(MaxScheduleRecipients-1))
	paid, err = s.IsPaid(MaxScheduleRecipients - 1)
	require.NoError(t, err)
	assert.True(t, paid)
}

func TestSchedule_StatusTransitions(t *testing.T) {
	s := testSchedule()

	// Active -> Paused -> Active toggle
	require.NoError(t, s.Pause())
	assert.Equal(t, ScheduleStatusPaused, s.Status)
	assert.ErrorIs(t, s.Pause(), ErrScheduleAlreadyPaused)

	require.NoError(t, s.Resume())
	assert.Equal(t, ScheduleStatusActive, s.Status)
	assert.ErrorIs(t, s.Resume(), ErrScheduleNotPaused)

	// Paused -> Cancelled is allowed, Cancelled is terminal
	require.NoError(t, s.Pause())
	returned, err := s.Cancel()
	require.NoError(t, err)
	assert.Equal(t, uint64(600), returned)
	assert.Equal(t, ScheduleStatusCancelled, s.Status)
	assert.Zero(t, s.ReservedAmount)

	_, err = s.Cancel()
	assert.ErrorIs(t, err, ErrScheduleAlreadyCancelled)
	assert.ErrorIs(t, s.Pause(), ErrScheduleAlreadyCancelled)
	assert.ErrorIs(t, s.Resume(), ErrScheduleAlreadyCancelled)
}

func TestSchedule_RecordPayment(t *testing.T) {
	s := testSchedule()

	require.NoError(t, s.RecordPayment(100))
	assert.Equal(t, uint16(1), s.PaidCount)
	assert.Equal(t, uint64(100), s.CyclePaidAmount)

	require.NoError(t, s.RecordPayment(100))
	assert.Equal(t, uint16(2), s.PaidCount)

	// Paid count can never exceed the recipient set
	assert.ErrorIs(t, s.RecordPayment(1), ErrInsufficientFunds)
}

func TestSchedule_RecordPayment_CycleBound(t *testing.T) {
	s := testSchedule()

	// One cycle can never disburse more than PerCycleAmount in total
	require.NoError(t, s.RecordPayment(150))
	assert.ErrorIs(t, s.RecordPayment(51), ErrInsufficientFunds)
	assert.Equal(t, uint16(1), s.PaidCount)
	assert.Equal(t, uint64(150), s.CyclePaidAmount)
}

func TestSchedule_Cancel_MidCycle(t *testing.T) {
	s := testSchedule()
	require.NoError(t, s.RecordPayment(100))

	// Already-disbursed funds are no longer part of the reservation
	returned, err := s.Cancel()
	require.NoError(t, err)
	assert.Equal(t, uint64(500), returned)
	assert.Zero(t, s.ReservedAmount)
}

func TestSchedule_CompleteCycle(t *testing.T) {
	s := testSchedule()
	require.NoError(t, s.MarkPaid(0))
	require.NoError(t, s.MarkPaid(1))
	require.NoError(t, s.RecordPayment(100))
	require.NoError(t, s.RecordPayment(100))

	residual, err := s.CompleteCycle(20_000)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), residual)
	assert.Equal(t, uint64(400), s.ReservedAmount)
	assert.Zero(t, s.PaidCount)
	assert.Zero(t, s.CyclePaidAmount)
	assert.Equal(t, [PaidBitmapBytes]byte{}, s.PaidBitmap)
	assert.Equal(t, uint64(23_600), s.NextExecutionTime)
	assert.Equal(t, uint64(1), s.LastExecutedBatch)
}

func TestSchedule_CompleteCycle_Residual(t *testing.T) {
	s := testSchedule()
	require.NoError(t, s.RecordPayment(80))
	require.NoError(t, s.RecordPayment(70))

	residual, err := s.CompleteCycle(20_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), residual)
}

func TestSchedule_CompleteCycle_Underflow(t *testing.T) {
	s := testSchedule()
	s.ReservedAmount = 100 // less than PerCycleAmount

	_, err := s.CompleteCycle(20_000)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestSchedule_CompleteCycle_IntervalOverflow(t *testing.T) {
	s := testSchedule()
	s.IntervalSeconds = math.MaxUint64
	require.NoError(t, s.MarkPaid(0))
	require.NoError(t, s.RecordPayment(100))

	// A wrapped unlock time would leave the timing gate permanently open
	_, err := s.CompleteCycle(20_000)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	// The failed completion leaves the cycle state untouched
	assert.Equal(t, uint16(1), s.PaidCount)
	assert.Equal(t, uint64(100), s.CyclePaidAmount)
	assert.Equal(t, uint64(600), s.ReservedAmount)
	assert.Equal(t, uint64(10_000), s.NextExecutionTime)
	assert.Zero(t, s.LastExecutedBatch)
}

func TestSchedule_DelegationRequiresActive(t *testing.T) {
	s := testSchedule()
	require.NoError(t, s.Pause())
	assert.ErrorIs(t, s.Delegate(), ErrScheduleNotActive)

	require.NoError(t, s.Resume())
	require.NoError(t, s.Delegate())
	assert.Equal(t, VenueDelegated, s.Venue)
	assert.ErrorIs(t, s.Delegate(), ErrAlreadyDelegated)
}

func TestSchedule_DelegationToggle(t *testing.T) {
	s := testSchedule()

	assert.ErrorIs(t, s.Undelegate(), ErrNotDelegated)

	require.NoError(t, s.Delegate())
	require.NoError(t, s.Undelegate())
	assert.Equal(t, VenueHome, s.Venue)
}
