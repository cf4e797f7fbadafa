package cli

import (
	"context"

	"github.com/spf13/cobra"

	veilpayv1 "github.com/veilpay/veilpay-backend/internal/adapter/grpc/veilpay/v1"
)

// NewScheduleCommand creates the schedule command group.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Payment schedule operations",
	}

	cmd.AddCommand(newScheduleCreateCommand(rootOpts))
	cmd.AddCommand(newSchedulePauseResumeCommand(rootOpts, true))
	cmd.AddCommand(newSchedulePauseResumeCommand(rootOpts, false))
	cmd.AddCommand(newScheduleCancelCommand(rootOpts))
	cmd.AddCommand(newScheduleAdvanceCommand(rootOpts))
	cmd.AddCommand(newScheduleSummaryCommand(rootOpts))
	cmd.AddCommand(newScheduleDelegationCommand(rootOpts))
	return cmd
}

func newScheduleCreateCommand(rootOpts *RootOptions) *cobra.Command {
	req := &veilpayv1.CreateScheduleRequest{}
	var payoutFile string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Commit a recurring disbursement schedule",
		Long: `Commit a recurring disbursement schedule against a funded vault.

The merkle root may be given directly with --root, or derived from a
payout CSV file with --payouts (which also fills --total-recipients).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if payoutFile != "" {
				tree, payouts, err := loadPayoutTree(payoutFile)
				if err != nil {
					return err
				}
				req.MerkleRoot = tree.Root().String()
				req.TotalRecipients = uint32(len(payouts))
			}
			return withClient(rootOpts, func(ctx context.Context, client veilpayv1.VeilPayServiceClient) error {
				resp, err := client.CreateSchedule(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			})
		},
	}

	cmd.Flags().StringVar(&req.Employer, "employer", "", "employer address (required)")
	cmd.Flags().StringVar(&req.ScheduleId, "id", "", "schedule ID, 64 hex chars (required)")
	cmd.Flags().Uint64Var(&req.IntervalSeconds, "interval", 0, "cycle interval in seconds (required)")
	cmd.Flags().Uint64Var(&req.ReservedAmount, "reserve", 0, "total reservation in base units (required)")
	cmd.Flags().Uint64Var(&req.PerCycleAmount, "per-cycle", 0, "per-cycle disbursement in base units (required)")
	cmd.Flags().StringVar(&req.MerkleRoot, "root", "", "payout merkle root, 64 hex chars")
	cmd.Flags().Uint32Var(&req.TotalRecipients, "total-recipients", 0, "recipient count behind the root")
	cmd.Flags().StringVar(&req.ExternalJobId, "job-id", "", "off-ledger job correlation token, 64 hex chars")
	cmd.Flags().StringVarP(&payoutFile, "payouts", "f", "", "payout CSV file to derive --root and --total-recipients from")
	cmd.MarkFlagRequired("employer")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("interval")
	cmd.MarkFlagRequired("reserve")
	cmd.MarkFlagRequired("per-cycle")
	return cmd
}

func newSchedulePauseResumeCommand(rootOpts *RootOptions, pause bool) *cobra.Command {
	use, short := "pause", "Pause an active schedule"
	if !pause {
		use, short = "resume", "Resume a paused schedule"
	}
	var employer, scheduleID string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, func(ctx context.Context, client veilpayv1.VeilPayServiceClient) error {
				resp, err := client.PauseResumeSchedule(ctx, &veilpayv1.PauseResumeScheduleRequest{
					Employer:   employer,
					ScheduleId: scheduleID,
					Pause:      pause,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			})
		},
	}

	cmd.Flags().StringVar(&employer, "employer", "", "employer address (required)")
	cmd.Flags().StringVar(&scheduleID, "id", "", "schedule ID (required)")
	cmd.MarkFlagRequired("employer")
	cmd.MarkFlagRequired("id")
	return cmd
}

func newScheduleCancelCommand(rootOpts *RootOptions) *cobra.Command {
	var employer, scheduleID string

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a schedule and refund its unspent reservation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, func(ctx context.Context, client veilpayv1.VeilPayServiceClient) error {
				resp, err := client.CancelSchedule(ctx, &veilpayv1.CancelScheduleRequest{
					Employer:   employer,
					ScheduleId: scheduleID,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			})
		},
	}

	cmd.Flags().StringVar(&employer, "employer", "", "employer address (required)")
	cmd.Flags().StringVar(&scheduleID, "id", "", "schedule ID (required)")
	cmd.MarkFlagRequired("employer")
	cmd.MarkFlagRequired("id")
	return cmd
}

func newScheduleAdvanceCommand(rootOpts *RootOptions) *cobra.Command {
	req := &veilpayv1.AdvanceCycleRequest{}
	var payoutFile string

	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Install the next cycle's payout commitment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if payoutFile != "" {
				tree, payouts, err := loadPayoutTree(payoutFile)
				if err != nil {
					return err
				}
				req.MerkleRoot = tree.Root().String()
				req.TotalRecipients = uint32(len(payouts))
			}
			return withClient(rootOpts, func(ctx context.Context, client veilpayv1.VeilPayServiceClient) error {
				resp, err := client.AdvanceCycle(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			})
		},
	}

	cmd.Flags().StringVar(&req.Employer, "employer", "", "employer address (required)")
	cmd.Flags().StringVar(&req.ScheduleId, "id", "", "schedule ID (required)")
	cmd.Flags().Uint64Var(&req.Batch, "batch", 0, "the batch counter believed current (required)")
	cmd.Flags().StringVar(&req.MerkleRoot, "root", "", "next cycle's payout merkle root")
	cmd.Flags().Uint32Var(&req.TotalRecipients, "total-recipients", 0, "recipient count behind the root")
	cmd.Flags().StringVar(&req.ExternalJobId, "job-id", "", "off-ledger job correlation token")
	cmd.Flags().StringVarP(&payoutFile, "payouts", "f", "", "payout CSV file to derive --root and --total-recipients from")
	cmd.MarkFlagRequired("employer")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("batch")
	return cmd
}

func newScheduleSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	var scheduleID string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show a schedule's cycle progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, func(ctx context.Context, client veilpayv1.VeilPayServiceClient) error {
				resp, err := client.GetScheduleSummary(ctx, &veilpayv1.GetScheduleSummaryRequest{ScheduleId: scheduleID})
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			})
		},
	}

	cmd.Flags().StringVar(&scheduleID, "id", "", "schedule ID (required)")
	cmd.MarkFlagRequired("id")
	return cmd
}

func newScheduleDelegationCommand(rootOpts *RootOptions) *cobra.Command {
	var caller, scheduleID string

	cmd := &cobra.Command{
		Use:   "delegate",
		Short: "Schedule venue hand-off operations",
	}
	cmd.PersistentFlags().StringVar(&caller, "caller", "", "employer address (required)")
	cmd.PersistentFlags().StringVar(&scheduleID, "id", "", "schedule ID (required)")

	cmd.AddCommand(&cobra.Command{
		Use:   "on",
		Short: "Hand the schedule to the external venue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, func(ctx context.Context, client veilpayv1.VeilPayServiceClient) error {
				_, err := client.DelegateSchedule(ctx, &veilpayv1.DelegateScheduleRequest{Caller: caller, ScheduleId: scheduleID})
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "off",
		Short: "Return the schedule to the home ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, func(ctx context.Context, client veilpayv1.VeilPayServiceClient) error {
				_, err := client.UndelegateSchedule(ctx, &veilpayv1.UndelegateScheduleRequest{Caller: caller, ScheduleId: scheduleID})
				return err
			})
		},
	})

	return cmd
}
