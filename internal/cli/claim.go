package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	veilpayv1 "github.com/veilpay/veilpay-backend/internal/adapter/grpc/veilpay/v1"
)

// NewClaimCommand creates the claim command.
func NewClaimCommand(rootOpts *RootOptions) *cobra.Command {
	req := &veilpayv1.ClaimRequest{}
	var payoutFile string
	var leafIndex uint16

	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Execute one recipient's claim for the current cycle",
		Long: `Execute one recipient's claim for the current cycle.

The membership proof may be given directly with repeated --proof flags,
or derived from the cycle's payout CSV file with --payouts, in which
case the recipient and amount are read from the file as well.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if payoutFile != "" {
				tree, payouts, err := loadPayoutTree(payoutFile)
				if err != nil {
					return err
				}
				if int(leafIndex) >= len(payouts) {
					return fmt.Errorf("leaf index %d out of range: file has %d payouts", leafIndex, len(payouts))
				}
				proof, err := tree.Proof(leafIndex)
				if err != nil {
					return err
				}
				req.Proof = req.Proof[:0]
				for _, node := range proof {
					req.Proof = append(req.Proof, node.String())
				}
				req.Recipient = payouts[leafIndex].Recipient.String()
				req.Amount = payouts[leafIndex].Amount
			}
			req.LeafIndex = uint32(leafIndex)

			return withClient(rootOpts, func(ctx context.Context, client veilpayv1.VeilPayServiceClient) error {
				resp, err := client.Claim(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			})
		},
	}

	cmd.Flags().StringVar(&req.Caller, "caller", "", "execution authority address (required)")
	cmd.Flags().StringVar(&req.ScheduleId, "id", "", "schedule ID (required)")
	cmd.Flags().StringVar(&req.Recipient, "recipient", "", "recipient address")
	cmd.Flags().Uint64Var(&req.Amount, "amount", 0, "claim amount in base units")
	cmd.Flags().Uint16Var(&leafIndex, "index", 0, "leaf index in the payout tree")
	cmd.Flags().StringArrayVar(&req.Proof, "proof", nil, "proof node, 64 hex chars (repeatable, leaf to root)")
	cmd.Flags().StringVar(&req.DestinationAccount, "destination", "", "recipient-owned destination account (required)")
	cmd.Flags().StringVarP(&payoutFile, "payouts", "f", "", "payout CSV file to derive recipient, amount and proof from")
	cmd.MarkFlagRequired("caller")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("destination")
	return cmd
}
