package cli

import (
	"context"

	"github.com/spf13/cobra"

	veilpayv1 "github.com/veilpay/veilpay-backend/internal/adapter/grpc/veilpay/v1"
)

// NewVaultCommand creates the vault command group.
func NewVaultCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Employer vault operations",
	}

	cmd.AddCommand(newVaultInitCommand(rootOpts))
	cmd.AddCommand(newVaultDepositCommand(rootOpts))
	cmd.AddCommand(newVaultWithdrawCommand(rootOpts))
	cmd.AddCommand(newVaultSummaryCommand(rootOpts))
	cmd.AddCommand(newVaultDelegationCommand(rootOpts))
	return cmd
}

func newVaultInitCommand(rootOpts *RootOptions) *cobra.Command {
	req := &veilpayv1.InitializeVaultRequest{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the escrow vault for an employer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, func(ctx context.Context, client veilpayv1.VeilPayServiceClient) error {
				resp, err := client.InitializeVault(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			})
		},
	}

	cmd.Flags().StringVar(&req.Employer, "employer", "", "employer address (required)")
	cmd.Flags().StringVar(&req.Asset, "asset", "", "asset address (required)")
	cmd.MarkFlagRequired("employer")
	cmd.MarkFlagRequired("asset")
	return cmd
}

func newVaultDepositCommand(rootOpts *RootOptions) *cobra.Command {
	req := &veilpayv1.DepositRequest{}

	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Move funds from an employer account into custody",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, func(ctx context.Context, client veilpayv1.VeilPayServiceClient) error {
				resp, err := client.Deposit(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			})
		},
	}

	cmd.Flags().StringVar(&req.Employer, "employer", "", "employer address (required)")
	cmd.Flags().StringVar(&req.SourceAccount, "source", "", "employer-owned source account (required)")
	cmd.Flags().Uint64Var(&req.Amount, "amount", 0, "amount in base units (required)")
	cmd.MarkFlagRequired("employer")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func newVaultWithdrawCommand(rootOpts *RootOptions) *cobra.Command {
	req := &veilpayv1.WithdrawRequest{}

	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Move free funds out of custody",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, func(ctx context.Context, client veilpayv1.VeilPayServiceClient) error {
				resp, err := client.Withdraw(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			})
		},
	}

	cmd.Flags().StringVar(&req.Employer, "employer", "", "employer address (required)")
	cmd.Flags().StringVar(&req.DestinationAccount, "destination", "", "employer-owned destination account (required)")
	cmd.Flags().Uint64Var(&req.Amount, "amount", 0, "amount in base units (required)")
	cmd.MarkFlagRequired("employer")
	cmd.MarkFlagRequired("destination")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func newVaultSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show a vault's balances and schedule progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, func(ctx context.Context, client veilpayv1.VeilPayServiceClient) error {
				resp, err := client.GetVaultSummary(ctx, &veilpayv1.GetVaultSummaryRequest{Owner: owner})
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "vault owner address (required)")
	cmd.MarkFlagRequired("owner")
	return cmd
}

func newVaultDelegationCommand(rootOpts *RootOptions) *cobra.Command {
	var caller, owner string

	cmd := &cobra.Command{
		Use:   "delegate",
		Short: "Vault venue hand-off operations",
	}
	cmd.PersistentFlags().StringVar(&caller, "caller", "", "vault owner address (required)")
	cmd.PersistentFlags().StringVar(&owner, "owner", "", "vault owner address (required)")

	cmd.AddCommand(&cobra.Command{
		Use:   "on",
		Short: "Hand the vault to the external venue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, func(ctx context.Context, client veilpayv1.VeilPayServiceClient) error {
				_, err := client.DelegateVault(ctx, &veilpayv1.DelegateVaultRequest{Caller: caller, Owner: owner})
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "off",
		Short: "Return the vault to the home ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, func(ctx context.Context, client veilpayv1.VeilPayServiceClient) error {
				_, err := client.UndelegateVault(ctx, &veilpayv1.UndelegateVaultRequest{Caller: caller, Owner: owner})
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "commit",
		Short: "Flush delegated state back to the home ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(rootOpts, func(ctx context.Context, client veilpayv1.VeilPayServiceClient) error {
				resp, err := client.CommitState(ctx, &veilpayv1.CommitStateRequest{Caller: caller, Owner: owner})
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			})
		},
	})

	return cmd
}
