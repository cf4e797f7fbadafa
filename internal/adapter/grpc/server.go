package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	veilpayv1 "github.com/veilpay/veilpay-backend/internal/adapter/grpc/veilpay/v1"
	"github.com/veilpay/veilpay-backend/internal/domain"
	"github.com/veilpay/veilpay-backend/internal/usecase/admin"
	"github.com/veilpay/veilpay-backend/internal/usecase/claim"
	"github.com/veilpay/veilpay-backend/internal/usecase/delegation"
	"github.com/veilpay/veilpay-backend/internal/usecase/report"
	"github.com/veilpay/veilpay-backend/internal/usecase/schedule"
	"github.com/veilpay/veilpay-backend/internal/usecase/vault"
)

// Server implements the VeilPayService gRPC server
type Server struct {
	veilpayv1.UnimplementedVeilPayServiceServer

	AdminService      *admin.AdminService
	VaultService      *vault.VaultService
	ScheduleService   *schedule.ScheduleService
	ClaimService      *claim.ClaimService
	DelegationService *delegation.DelegationService
	ReportService     *report.ReportService
}

// NewServer creates a new gRPC server instance
func NewServer(
	adminService *admin.AdminService,
	vaultService *vault.VaultService,
	scheduleService *schedule.ScheduleService,
	claimService *claim.ClaimService,
	delegationService *delegation.DelegationService,
	reportService *report.ReportService,
) *Server {
	return &Server{
		AdminService:      adminService,
		VaultService:      vaultService,
		ScheduleService:   scheduleService,
		ClaimService:      claimService,
		DelegationService: delegationService,
		ReportService:     reportService,
	}
}

// InitConfig handles the InitConfig RPC
func (s *Server) InitConfig(ctx context.Context, req *veilpayv1.InitConfigRequest) (*veilpayv1.InitConfigResponse, error) {
	governance, err := parseAddress(req.Governance, "governance")
	if err != nil {
		return nil, err
	}
	executionAuthority, err := parseAddress(req.ExecutionAuthority, "execution_authority")
	if err != nil {
		return nil, err
	}
	allowedAsset, err := parseAddress(req.AllowedAsset, "allowed_asset")
	if err != nil {
		return nil, err
	}
	maxRecipients, err := parseUint16(req.MaxRecipients, "max_recipients")
	if err != nil {
		return nil, err
	}

	config, err := s.AdminService.InitConfig(ctx, admin.InitConfigInput{
		Governance:          governance,
		ExecutionAuthority:  executionAuthority,
		AllowedAsset:        allowedAsset,
		MaxRecipients:       maxRecipients,
		BatchTimeoutSeconds: req.BatchTimeoutSeconds,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &veilpayv1.InitConfigResponse{Paused: config.Paused}, nil
}

// SetExecutionAuthority handles the SetExecutionAuthority RPC
func (s *Server) SetExecutionAuthority(ctx context.Context, req *veilpayv1.SetExecutionAuthorityRequest) (*veilpayv1.SetExecutionAuthorityResponse, error) {
	caller, err := parseAddress(req.Caller, "caller")
	if err != nil {
		return nil, err
	}
	newAuthority, err := parseAddress(req.NewAuthority, "new_authority")
	if err != nil {
		return nil, err
	}

	config, err := s.AdminService.SetExecutionAuthority(ctx, admin.SetExecutionAuthorityInput{
		Caller:       caller,
		NewAuthority: newAuthority,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &veilpayv1.SetExecutionAuthorityResponse{
		ExecutionAuthority: config.ExecutionAuthority.String(),
	}, nil
}

// SetPaused handles the SetPaused RPC
func (s *Server) SetPaused(ctx context.Context, req *veilpayv1.SetPausedRequest) (*veilpayv1.SetPausedResponse, error) {
	caller, err := parseAddress(req.Caller, "caller")
	if err != nil {
		return nil, err
	}

	input := admin.PauseInput{Caller: caller}
	if req.Paused {
		err = s.AdminService.Pause(ctx, input)
	} else {
		err = s.AdminService.Unpause(ctx, input)
	}
	if err != nil {
		return nil, mapError(err)
	}

	return &veilpayv1.SetPausedResponse{Paused: req.Paused}, nil
}

// InitializeVault handles the InitializeVault RPC
func (s *Server) InitializeVault(ctx context.Context, req *veilpayv1.InitializeVaultRequest) (*veilpayv1.InitializeVaultResponse, error) {
	employer, err := parseAddress(req.Employer, "employer")
	if err != nil {
		return nil, err
	}
	asset, err := parseAddress(req.Asset, "asset")
	if err != nil {
		return nil, err
	}

	v, err := s.VaultService.Initialize(ctx, vault.InitializeVaultInput{
		Employer: employer,
		Asset:    asset,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &veilpayv1.InitializeVaultResponse{Vault: domainVaultToProto(v)}, nil
}

// Deposit handles the Deposit RPC
func (s *Server) Deposit(ctx context.Context, req *veilpayv1.DepositRequest) (*veilpayv1.DepositResponse, error) {
	employer, err := parseAddress(req.Employer, "employer")
	if err != nil {
		return nil, err
	}
	source, err := parseAddress(req.SourceAccount, "source_account")
	if err != nil {
		return nil, err
	}

	v, err := s.VaultService.Deposit(ctx, vault.DepositInput{
		Employer: employer,
		Source:   source,
		Amount:   req.Amount,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &veilpayv1.DepositResponse{Vault: domainVaultToProto(v)}, nil
}

// Withdraw handles the Withdraw RPC
func (s *Server) Withdraw(ctx context.Context, req *veilpayv1.WithdrawRequest) (*veilpayv1.WithdrawResponse, error) {
	employer, err := parseAddress(req.Employer, "employer")
	if err != nil {
		return nil, err
	}
	destination, err := parseAddress(req.DestinationAccount, "destination_account")
	if err != nil {
		return nil, err
	}

	v, err := s.VaultService.Withdraw(ctx, vault.WithdrawInput{
		Employer:    employer,
		Destination: destination,
		Amount:      req.Amount,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &veilpayv1.WithdrawResponse{Vault: domainVaultToProto(v)}, nil
}

// CreateSchedule handles the CreateSchedule RPC
func (s *Server) CreateSchedule(ctx context.Context, req *veilpayv1.CreateScheduleRequest) (*veilpayv1.CreateScheduleResponse, error) {
	employer, err := parseAddress(req.Employer, "employer")
	if err != nil {
		return nil, err
	}
	scheduleID, err := parseHash(req.ScheduleId, "schedule_id")
	if err != nil {
		return nil, err
	}
	merkleRoot, err := parseHash(req.MerkleRoot, "merkle_root")
	if err != nil {
		return nil, err
	}
	externalJobID, err := parseHash(req.ExternalJobId, "external_job_id")
	if err != nil {
		return nil, err
	}
	totalRecipients, err := parseUint16(req.TotalRecipients, "total_recipients")
	if err != nil {
		return nil, err
	}

	sched, err := s.ScheduleService.Create(ctx, schedule.CreateScheduleInput{
		Employer:        employer,
		ScheduleID:      scheduleID,
		IntervalSeconds: req.IntervalSeconds,
		ReservedAmount:  req.ReservedAmount,
		PerCycleAmount:  req.PerCycleAmount,
		MerkleRoot:      merkleRoot,
		TotalRecipients: totalRecipients,
		ExternalJobID:   externalJobID,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &veilpayv1.CreateScheduleResponse{Schedule: domainScheduleToProto(sched)}, nil
}

// PauseResumeSchedule handles the PauseResumeSchedule RPC
func (s *Server) PauseResumeSchedule(ctx context.Context, req *veilpayv1.PauseResumeScheduleRequest) (*veilpayv1.PauseResumeScheduleResponse, error) {
	employer, err := parseAddress(req.Employer, "employer")
	if err != nil {
		return nil, err
	}
	scheduleID, err := parseHash(req.ScheduleId, "schedule_id")
	if err != nil {
		return nil, err
	}

	sched, err := s.ScheduleService.PauseResume(ctx, schedule.PauseResumeInput{
		Employer:   employer,
		ScheduleID: scheduleID,
		Pause:      req.Pause,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &veilpayv1.PauseResumeScheduleResponse{Schedule: domainScheduleToProto(sched)}, nil
}

// CancelSchedule handles the CancelSchedule RPC
func (s *Server) CancelSchedule(ctx context.Context, req *veilpayv1.CancelScheduleRequest) (*veilpayv1.CancelScheduleResponse, error) {
	employer, err := parseAddress(req.Employer, "employer")
	if err != nil {
		return nil, err
	}
	scheduleID, err := parseHash(req.ScheduleId, "schedule_id")
	if err != nil {
		return nil, err
	}

	sched, err := s.ScheduleService.Cancel(ctx, schedule.CancelInput{
		Employer:   employer,
		ScheduleID: scheduleID,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &veilpayv1.CancelScheduleResponse{Schedule: domainScheduleToProto(sched)}, nil
}

// AdvanceCycle handles the AdvanceCycle RPC
func (s *Server) AdvanceCycle(ctx context.Context, req *veilpayv1.AdvanceCycleRequest) (*veilpayv1.AdvanceCycleResponse, error) {
	employer, err := parseAddress(req.Employer, "employer")
	if err != nil {
		return nil, err
	}
	scheduleID, err := parseHash(req.ScheduleId, "schedule_id")
	if err != nil {
		return nil, err
	}
	merkleRoot, err := parseHash(req.MerkleRoot, "merkle_root")
	if err != nil {
		return nil, err
	}
	externalJobID, err := parseHash(req.ExternalJobId, "external_job_id")
	if err != nil {
		return nil, err
	}
	totalRecipients, err := parseUint16(req.TotalRecipients, "total_recipients")
	if err != nil {
		return nil, err
	}

	sched, err := s.ScheduleService.AdvanceCycle(ctx, schedule.AdvanceCycleInput{
		Employer:        employer,
		ScheduleID:      scheduleID,
		Batch:           req.Batch,
		MerkleRoot:      merkleRoot,
		TotalRecipients: totalRecipients,
		ExternalJobID:   externalJobID,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &veilpayv1.AdvanceCycleResponse{Schedule: domainScheduleToProto(sched)}, nil
}

// Claim handles the Claim RPC
func (s *Server) Claim(ctx context.Context, req *veilpayv1.ClaimRequest) (*veilpayv1.ClaimResponse, error) {
	caller, err := parseAddress(req.Caller, "caller")
	if err != nil {
		return nil, err
	}
	scheduleID, err := parseHash(req.ScheduleId, "schedule_id")
	if err != nil {
		return nil, err
	}
	recipient, err := parseAddress(req.Recipient, "recipient")
	if err != nil {
		return nil, err
	}
	destination, err := parseAddress(req.DestinationAccount, "destination_account")
	if err != nil {
		return nil, err
	}
	leafIndex, err := parseUint16(req.LeafIndex, "leaf_index")
	if err != nil {
		return nil, err
	}

	proof := make([]domain.Hash32, 0, len(req.Proof))
	for _, node := range req.Proof {
		h, err := parseHash(node, "proof")
		if err != nil {
			return nil, err
		}
		proof = append(proof, h)
	}

	result, err := s.ClaimService.Claim(ctx, claim.ClaimInput{
		Caller:      caller,
		ScheduleID:  scheduleID,
		Recipient:   recipient,
		Amount:      req.Amount,
		LeafIndex:   leafIndex,
		Proof:       proof,
		Destination: destination,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &veilpayv1.ClaimResponse{
		Schedule:       domainScheduleToProto(result.Schedule),
		Vault:          domainVaultToProto(result.Vault),
		CycleCompleted: result.CycleCompleted,
	}, nil
}

// DelegateVault handles the DelegateVault RPC
func (s *Server) DelegateVault(ctx context.Context, req *veilpayv1.DelegateVaultRequest) (*veilpayv1.DelegateVaultResponse, error) {
	input, err := vaultDelegationInput(req.Caller, req.Owner)
	if err != nil {
		return nil, err
	}
	if err := s.DelegationService.DelegateVault(ctx, input); err != nil {
		return nil, mapError(err)
	}
	return &veilpayv1.DelegateVaultResponse{}, nil
}

// UndelegateVault handles the UndelegateVault RPC
func (s *Server) UndelegateVault(ctx context.Context, req *veilpayv1.UndelegateVaultRequest) (*veilpayv1.UndelegateVaultResponse, error) {
	input, err := vaultDelegationInput(req.Caller, req.Owner)
	if err != nil {
		return nil, err
	}
	if err := s.DelegationService.UndelegateVault(ctx, input); err != nil {
		return nil, mapError(err)
	}
	return &veilpayv1.UndelegateVaultResponse{}, nil
}

// DelegateSchedule handles the DelegateSchedule RPC
func (s *Server) DelegateSchedule(ctx context.Context, req *veilpayv1.DelegateScheduleRequest) (*veilpayv1.DelegateScheduleResponse, error) {
	input, err := scheduleDelegationInput(req.Caller, req.ScheduleId)
	if err != nil {
		return nil, err
	}
	if err := s.DelegationService.DelegateSchedule(ctx, input); err != nil {
		return nil, mapError(err)
	}
	return &veilpayv1.DelegateScheduleResponse{}, nil
}

// UndelegateSchedule handles the UndelegateSchedule RPC
func (s *Server) UndelegateSchedule(ctx context.Context, req *veilpayv1.UndelegateScheduleRequest) (*veilpayv1.UndelegateScheduleResponse, error) {
	input, err := scheduleDelegationInput(req.Caller, req.ScheduleId)
	if err != nil {
		return nil, err
	}
	if err := s.DelegationService.UndelegateSchedule(ctx, input); err != nil {
		return nil, mapError(err)
	}
	return &veilpayv1.UndelegateScheduleResponse{}, nil
}

// CommitState handles the CommitState RPC
func (s *Server) CommitState(ctx context.Context, req *veilpayv1.CommitStateRequest) (*veilpayv1.CommitStateResponse, error) {
	caller, err := parseAddress(req.Caller, "caller")
	if err != nil {
		return nil, err
	}
	owner, err := parseAddress(req.Owner, "owner")
	if err != nil {
		return nil, err
	}

	if err := s.DelegationService.Commit(ctx, delegation.CommitInput{Caller: caller, Owner: owner}); err != nil {
		return nil, mapError(err)
	}

	return &veilpayv1.CommitStateResponse{
		CommittedAt: timestamppb.New(time.Now().UTC()),
	}, nil
}

// GetVaultSummary handles the GetVaultSummary RPC
func (s *Server) GetVaultSummary(ctx context.Context, req *veilpayv1.GetVaultSummaryRequest) (*veilpayv1.GetVaultSummaryResponse, error) {
	owner, err := parseAddress(req.Owner, "owner")
	if err != nil {
		return nil, err
	}

	summary, err := s.ReportService.VaultSummary(ctx, owner)
	if err != nil {
		return nil, mapError(err)
	}

	protoSchedules := make([]*veilpayv1.ScheduleSummary, 0, len(summary.Schedules))
	for i := range summary.Schedules {
		protoSchedules = append(protoSchedules, scheduleSummaryToProto(&summary.Schedules[i]))
	}

	return &veilpayv1.GetVaultSummaryResponse{
		Owner:       summary.Owner.String(),
		Available:   summary.Available,
		Reserved:    summary.Reserved,
		Utilization: summary.Utilization.String(),
		Schedules:   protoSchedules,
	}, nil
}

// GetScheduleSummary handles the GetScheduleSummary RPC
func (s *Server) GetScheduleSummary(ctx context.Context, req *veilpayv1.GetScheduleSummaryRequest) (*veilpayv1.GetScheduleSummaryResponse, error) {
	scheduleID, err := parseHash(req.ScheduleId, "schedule_id")
	if err != nil {
		return nil, err
	}

	summary, err := s.ReportService.ScheduleSummary(ctx, scheduleID)
	if err != nil {
		return nil, mapError(err)
	}

	return &veilpayv1.GetScheduleSummaryResponse{Summary: scheduleSummaryToProto(summary)}, nil
}

func vaultDelegationInput(callerStr, ownerStr string) (delegation.VaultDelegationInput, error) {
	caller, err := parseAddress(callerStr, "caller")
	if err != nil {
		return delegation.VaultDelegationInput{}, err
	}
	owner, err := parseAddress(ownerStr, "owner")
	if err != nil {
		return delegation.VaultDelegationInput{}, err
	}
	return delegation.VaultDelegationInput{Caller: caller, Owner: owner}, nil
}

func scheduleDelegationInput(callerStr, scheduleIDStr string) (delegation.ScheduleDelegationInput, error) {
	caller, err := parseAddress(callerStr, "caller")
	if err != nil {
		return delegation.ScheduleDelegationInput{}, err
	}
	scheduleID, err := parseHash(scheduleIDStr, "schedule_id")
	if err != nil {
		return delegation.ScheduleDelegationInput{}, err
	}
	return delegation.ScheduleDelegationInput{Caller: caller, ScheduleID: scheduleID}, nil
}

func parseAddress(s, field string) (domain.Address, error) {
	a, err := domain.ParseAddress(s)
	if err != nil {
		return a, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", field, err)
	}
	return a, nil
}

func parseHash(s, field string) (domain.Hash32, error) {
	h, err := domain.ParseHash32(s)
	if err != nil {
		return h, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", field, err)
	}
	return h, nil
}

func parseUint16(v uint32, field string) (uint16, error) {
	if v > 0xFFFF {
		return 0, status.Errorf(codes.InvalidArgument, "%s out of range: %d", field, v)
	}
	return uint16(v), nil
}

// domainVaultToProto converts a domain Vault to a proto Vault message
func domainVaultToProto(v *domain.Vault) *veilpayv1.Vault {
	return &veilpayv1.Vault{
		Owner:            v.Owner.String(),
		CustodialAccount: v.CustodialAccount.String(),
		Asset:            v.Asset.String(),
		Available:        v.Available,
		Reserved:         v.Reserved,
		Venue:            string(v.Venue),
	}
}

// domainScheduleToProto converts a domain Schedule to a proto Schedule message
func domainScheduleToProto(s *domain.Schedule) *veilpayv1.Schedule {
	return &veilpayv1.Schedule{
		Id:                s.ID.String(),
		Employer:          s.Employer.String(),
		Status:            string(s.Status),
		IntervalSeconds:   s.IntervalSeconds,
		NextExecutionTime: s.NextExecutionTime,
		ReservedAmount:    s.ReservedAmount,
		PerCycleAmount:    s.PerCycleAmount,
		MerkleRoot:        s.MerkleRoot.String(),
		TotalRecipients:   uint32(s.TotalRecipients),
		PaidCount:         uint32(s.PaidCount),
		LastExecutedBatch: s.LastExecutedBatch,
		ExternalJobId:     s.ExternalJobID.String(),
		Venue:             string(s.Venue),
	}
}

// scheduleSummaryToProto converts a report ScheduleSummary to its proto message
func scheduleSummaryToProto(s *report.ScheduleSummary) *veilpayv1.ScheduleSummary {
	return &veilpayv1.ScheduleSummary{
		Id:                s.ID.String(),
		Status:            string(s.Status),
		ReservedAmount:    s.ReservedAmount,
		PerCycleAmount:    s.PerCycleAmount,
		CyclesRemaining:   s.CyclesRemaining,
		PaidCount:         uint32(s.PaidCount),
		TotalRecipients:   uint32(s.TotalRecipients),
		Progress:          s.Progress.String(),
		NextExecutionTime: s.NextExecutionTime,
		LastExecutedBatch: s.LastExecutedBatch,
		CycleOverdue:      s.CycleOverdue,
		Venue:             string(s.Venue),
	}
}

// mapError converts domain sentinel errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return status.Error(codes.PermissionDenied, err.Error())

	case errors.Is(err, domain.ErrConfigNotFound),
		errors.Is(err, domain.ErrVaultNotFound),
		errors.Is(err, domain.ErrScheduleNotFound),
		errors.Is(err, domain.ErrAccountNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, domain.ErrConfigExists),
		errors.Is(err, domain.ErrVaultExists),
		errors.Is(err, domain.ErrScheduleExists),
		errors.Is(err, domain.ErrAlreadyPaid),
		errors.Is(err, domain.ErrAlreadyDelegated):
		return status.Error(codes.AlreadyExists, err.Error())

	case errors.Is(err, domain.ErrPaused),
		errors.Is(err, domain.ErrNotPaused),
		errors.Is(err, domain.ErrScheduleNotActive),
		errors.Is(err, domain.ErrScheduleAlreadyPaused),
		errors.Is(err, domain.ErrScheduleNotPaused),
		errors.Is(err, domain.ErrScheduleAlreadyCancelled),
		errors.Is(err, domain.ErrNotDelegated),
		errors.Is(err, domain.ErrExecutionTooEarly),
		errors.Is(err, domain.ErrReplayDetected):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidAsset),
		errors.Is(err, domain.ErrInvalidAccount),
		errors.Is(err, domain.ErrInvalidAuthority),
		errors.Is(err, domain.ErrInvalidMaxRecipients),
		errors.Is(err, domain.ErrInvalidBatchTimeout),
		errors.Is(err, domain.ErrInvalidInterval),
		errors.Is(err, domain.ErrInvalidLeafIndex),
		errors.Is(err, domain.ErrInvalidMerkleProof):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, domain.ErrInsufficientFunds):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, domain.ErrVaultMismatch):
		// Conservation faults mean the books and custody disagree; surface
		// loudly rather than as a client error
		return status.Error(codes.DataLoss, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
