package report

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/veilpay/veilpay-backend/internal/domain"
)

// VaultSummary is the employer-facing view of one vault and its schedules
type VaultSummary struct {
	Owner       domain.Address
	Available   uint64
	Reserved    uint64
	Utilization decimal.Decimal // reserved / (available + reserved), 0 when empty
	Schedules   []ScheduleSummary
}

// ScheduleSummary is the read model of one schedule's cycle progress
type ScheduleSummary struct {
	ID                domain.Hash32
	Status            domain.ScheduleStatus
	ReservedAmount    uint64
	PerCycleAmount    uint64
	CyclesRemaining   uint64
	PaidCount         uint16
	TotalRecipients   uint16
	Progress          decimal.Decimal // paid / total recipients of the current cycle
	NextExecutionTime uint64
	LastExecutedBatch uint64
	CycleOverdue      bool // an opened, partially-claimed cycle older than the configured batch timeout
	Venue             domain.ExecutionVenue
}

// ReportService builds read models over vaults and schedules.
// It mutates nothing and enforces no policy; the batch timeout surfaced via
// CycleOverdue is declared in config but intentionally not enforced by claims.
type ReportService struct {
	ConfigRepo   domain.ConfigRepository
	VaultRepo    domain.VaultRepository
	ScheduleRepo domain.ScheduleRepository
	Clock        clockwork.Clock
}

// NewReportService creates a new ReportService instance
func NewReportService(
	configRepo domain.ConfigRepository,
	vaultRepo domain.VaultRepository,
	scheduleRepo domain.ScheduleRepository,
	clock clockwork.Clock,
) *ReportService {
	return &ReportService{
		ConfigRepo:   configRepo,
		VaultRepo:    vaultRepo,
		ScheduleRepo: scheduleRepo,
		Clock:        clock,
	}
}

// VaultSummary assembles the balances and schedule progress for one employer
func (s *ReportService) VaultSummary(ctx context.Context, owner domain.Address) (*VaultSummary, error) {
	config, err := s.ConfigRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	vault, err := s.VaultRepo.GetByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	schedules, err := s.ScheduleRepo.ListByVault(ctx, owner)
	if err != nil {
		return nil, err
	}

	summary := &VaultSummary{
		Owner:       vault.Owner,
		Available:   vault.Available,
		Reserved:    vault.Reserved,
		Utilization: utilization(vault.Available, vault.Reserved),
	}

	now := uint64(s.Clock.Now().Unix())
	for _, schedule := range schedules {
		summary.Schedules = append(summary.Schedules, summarize(schedule, config, now))
	}
	return summary, nil
}

// ScheduleSummary assembles the cycle progress view for one schedule
func (s *ReportService) ScheduleSummary(ctx context.Context, id domain.Hash32) (*ScheduleSummary, error) {
	config, err := s.ConfigRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	schedule, err := s.ScheduleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	summary := summarize(schedule, config, uint64(s.Clock.Now().Unix()))
	return &summary, nil
}

func summarize(schedule *domain.Schedule, config *domain.EngineConfig, now uint64) ScheduleSummary {
	summary := ScheduleSummary{
		ID:                schedule.ID,
		Status:            schedule.Status,
		ReservedAmount:    schedule.ReservedAmount,
		PerCycleAmount:    schedule.PerCycleAmount,
		PaidCount:         schedule.PaidCount,
		TotalRecipients:   schedule.TotalRecipients,
		Progress:          ratio(uint64(schedule.PaidCount), uint64(schedule.TotalRecipients)),
		NextExecutionTime: schedule.NextExecutionTime,
		LastExecutedBatch: schedule.LastExecutedBatch,
		Venue:             schedule.Venue,
	}
	if schedule.PerCycleAmount > 0 {
		summary.CyclesRemaining = schedule.ReservedAmount / schedule.PerCycleAmount
	}

	// A cycle is overdue when it opened, saw at least one claim, and has not
	// completed within the declared batch timeout. The comparison subtracts
	// instead of adding so a large timeout cannot wrap the deadline.
	if schedule.Status == domain.ScheduleStatusActive &&
		schedule.PaidCount > 0 &&
		now > schedule.NextExecutionTime &&
		now-schedule.NextExecutionTime > config.BatchTimeoutSeconds {
		summary.CycleOverdue = true
	}
	return summary
}

// ratio returns num/den as a decimal rounded to 4 places, 0 when den is 0.
// Base-unit uint64 division would truncate to 0 for every partial cycle.
func ratio(num, den uint64) decimal.Decimal {
	if den == 0 {
		return decimal.Zero
	}
	return decimal.NewFromUint64(num).Div(decimal.NewFromUint64(den)).Round(4)
}

// utilization returns reserved / (available + reserved). The sum is taken in
// decimal space because the two partitions can each approach the uint64 range
// and their uint64 sum would wrap.
func utilization(available, reserved uint64) decimal.Decimal {
	total := decimal.NewFromUint64(available).Add(decimal.NewFromUint64(reserved))
	if total.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromUint64(reserved).Div(total).Round(4)
}
