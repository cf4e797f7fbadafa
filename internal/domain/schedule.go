package domain

// ScheduleStatus represents the lifecycle state of a payment schedule
type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "ACTIVE"
	ScheduleStatusPaused    ScheduleStatus = "PAUSED"
	ScheduleStatusCancelled ScheduleStatus = "CANCELLED"
)

const (
	// PaidBitmapBytes is the fixed size of the claim-tracking bitmap
	PaidBitmapBytes = 128
	// MaxScheduleRecipients is the bitmap capacity: one bit per leaf index
	MaxScheduleRecipients = PaidBitmapBytes * 8
)

// Schedule is a recurring disbursement commitment: a slice of a vault's
// reserved funds bound to a merkle root over the current cycle's
// (recipient, amount) payout set, with a bitmap tracking which leaf
// indices have already claimed this cycle.
type Schedule struct {
	ID                Hash32
	Employer          Address // = vault owner
	VaultOwner        Address // back-reference to the funding vault
	Status            ScheduleStatus
	IntervalSeconds   uint64
	NextExecutionTime uint64 // unix seconds; earliest time the current cycle's claims may begin
	ReservedAmount    uint64 // total funds earmarked for this schedule
	PerCycleAmount    uint64 // total disbursed across all recipients in one cycle
	MerkleRoot        Hash32 // commits to the current cycle's payout set
	TotalRecipients   uint16
	PaidCount         uint16
	CyclePaidAmount   uint64 // funds already disbursed in the current cycle
	PaidBitmap        [PaidBitmapBytes]byte
	LastExecutedBatch uint64 // monotonically increasing cycle counter, replay protection
	ExternalJobID     Hash32 // opaque correlation token for the off-ledger job, passed through only
	Venue             ExecutionVenue
}

// IsPaid reports whether the leaf at the given index has claimed in the current cycle
func (s *Schedule) IsPaid(leafIndex uint16) (bool, error) {
	byteIndex := int(leafIndex / 8)
	bitIndex := leafIndex % 8
	if byteIndex >= len(s.PaidBitmap) {
		return false, ErrInvalidLeafIndex
	}
	return (s.PaidBitmap[byteIndex]>>bitIndex)&1 == 1, nil
}

// MarkPaid sets the bitmap bit for the given leaf index
func (s *Schedule) MarkPaid(leafIndex uint16) error {
	byteIndex := int(leafIndex / 8)
	bitIndex := leafIndex % 8
	if byteIndex >= len(s.PaidBitmap) {
		return ErrInvalidLeafIndex
	}
	s.PaidBitmap[byteIndex] |= 1 << bitIndex
	return nil
}

// Pause transitions Active -> Paused
func (s *Schedule) Pause() error {
	switch s.Status {
	case ScheduleStatusCancelled:
		return ErrScheduleAlreadyCancelled
	case ScheduleStatusPaused:
		return ErrScheduleAlreadyPaused
	}
	s.Status = ScheduleStatusPaused
	return nil
}

// Resume transitions Paused -> Active
func (s *Schedule) Resume() error {
	switch s.Status {
	case ScheduleStatusCancelled:
		return ErrScheduleAlreadyCancelled
	case ScheduleStatusActive:
		return ErrScheduleNotPaused
	}
	s.Status = ScheduleStatusActive
	return nil
}

// Cancel terminates the schedule and returns the unspent reserved balance.
// Cancelled is terminal; a second cancel fails. Amounts already claimed in
// the current cycle stay paid, only the remaining reservation is refunded.
func (s *Schedule) Cancel() (returned uint64, err error) {
	if s.Status == ScheduleStatusCancelled {
		return 0, ErrScheduleAlreadyCancelled
	}
	returned, err = checkedSub(s.ReservedAmount, s.CyclePaidAmount)
	if err != nil {
		return 0, err
	}
	s.ReservedAmount = 0
	s.Status = ScheduleStatusCancelled
	return returned, nil
}

// RecordPayment accounts one disbursed claim against the current cycle.
// The cycle as a whole may never disburse more than PerCycleAmount: the
// reservation backing it is pooled with other schedules in the vault.
func (s *Schedule) RecordPayment(amount uint64) error {
	count, err := checkedAdd(uint64(s.PaidCount), 1)
	if err != nil || count > uint64(s.TotalRecipients) {
		return ErrInsufficientFunds
	}
	paid, err := checkedAdd(s.CyclePaidAmount, amount)
	if err != nil || paid > s.PerCycleAmount {
		return ErrInsufficientFunds
	}
	s.PaidCount = uint16(count)
	s.CyclePaidAmount = paid
	return nil
}

// CompleteCycle applies the full-cycle bookkeeping after the last recipient
// claims: deducts the cycle amount from the reservation, resets the claim
// state and advances the unlock time and batch counter. It returns the
// residual between the committed per-cycle amount and what the cycle
// actually disbursed, which the vault still holds in custody.
func (s *Schedule) CompleteCycle(now uint64) (residual uint64, err error) {
	next, err := NextExecutionAfter(now, s.IntervalSeconds)
	if err != nil {
		return 0, err
	}
	reserved, err := checkedSub(s.ReservedAmount, s.PerCycleAmount)
	if err != nil {
		return 0, err
	}
	residual, err = checkedSub(s.PerCycleAmount, s.CyclePaidAmount)
	if err != nil {
		return 0, err
	}
	batch, err := checkedAdd(s.LastExecutedBatch, 1)
	if err != nil {
		return 0, err
	}
	s.ReservedAmount = reserved
	s.PaidCount = 0
	s.CyclePaidAmount = 0
	s.PaidBitmap = [PaidBitmapBytes]byte{}
	s.NextExecutionTime = next
	s.LastExecutedBatch = batch
	return residual, nil
}

// NextExecutionAfter returns the unlock time one interval past now.
// The unix timestamps here share the uint64 width of the amount fields, so
// a wrapped sum would silently open the timing gate forever.
func NextExecutionAfter(now, interval uint64) (uint64, error) {
	next, err := checkedAdd(now, interval)
	if err != nil {
		return 0, ErrInvalidInterval
	}
	return next, nil
}
