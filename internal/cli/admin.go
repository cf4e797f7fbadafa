package cli

import (
	"context"

	"github.com/spf13/cobra"

	veilpayv1 "github.com/veilpay/veilpay-backend/internal/adapter/grpc/veilpay/v1"
)

// NewAdminCommand creates the admin command group for governance operations.
func NewAdminCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Governance operations on the engine config",
	}

	cmd.AddCommand(newInitConfigCommand(rootOpts))
	cmd.AddCommand(newSetAuthorityCommand(rootOpts))
	cmd.AddCommand(newPauseCommand(rootOpts, true))
	cmd.AddCommand(newPauseCommand(rootOpts, false))
	return cmd
}

func newInitConfigCommand(rootOpts *RootOptions) *cobra.Command {
	req := &veilpayv1.InitConfigRequest{}

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Bootstrap the engine configuration (once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, func(ctx context.Context, client veilpayv1.VeilPayServiceClient) error {
				resp, err := client.InitConfig(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			})
		},
	}

	cmd.Flags().StringVar(&req.Governance, "governance", "", "governance address (required)")
	cmd.Flags().StringVar(&req.ExecutionAuthority, "execution-authority", "", "claim executor address (required)")
	cmd.Flags().StringVar(&req.AllowedAsset, "asset", "", "allowed asset address (required)")
	cmd.Flags().Uint32Var(&req.MaxRecipients, "max-recipients", 100, "recipient cap per schedule")
	cmd.Flags().Uint64Var(&req.BatchTimeoutSeconds, "batch-timeout", 86400, "declared cycle timeout in seconds")
	cmd.MarkFlagRequired("governance")
	cmd.MarkFlagRequired("execution-authority")
	cmd.MarkFlagRequired("asset")
	return cmd
}

func newSetAuthorityCommand(rootOpts *RootOptions) *cobra.Command {
	req := &veilpayv1.SetExecutionAuthorityRequest{}

	cmd := &cobra.Command{
		Use:   "set-authority",
		Short: "Rotate the claim execution authority",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, func(ctx context.Context, client veilpayv1.VeilPayServiceClient) error {
				resp, err := client.SetExecutionAuthority(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			})
		},
	}

	cmd.Flags().StringVar(&req.Caller, "caller", "", "governance address (required)")
	cmd.Flags().StringVar(&req.NewAuthority, "new-authority", "", "new executor address (required)")
	cmd.MarkFlagRequired("caller")
	cmd.MarkFlagRequired("new-authority")
	return cmd
}

func newPauseCommand(rootOpts *RootOptions, pause bool) *cobra.Command {
	use, short := "pause", "Halt every mutating operation"
	if !pause {
		use, short = "unpause", "Lift the emergency halt"
	}
	var caller string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, func(ctx context.Context, client veilpayv1.VeilPayServiceClient) error {
				resp, err := client.SetPaused(ctx, &veilpayv1.SetPausedRequest{
					Caller: caller,
					Paused: pause,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			})
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "governance address (required)")
	cmd.MarkFlagRequired("caller")
	return cmd
}
