package cli

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/veilpay/veilpay-backend/internal/domain"
)

// NewTreeCommand creates the tree command group for offline payout commitments.
func NewTreeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Build payout merkle trees offline",
		Long: `Build the merkle commitment for one payment cycle from a payout file.

The payout file is CSV with one "recipient,amount" row per leaf, where
recipient is a 64-character hex address and amount is in base units.
Row order fixes the leaf indices claims must use.`,
	}

	cmd.AddCommand(newTreeRootCommand())
	cmd.AddCommand(newTreeProofCommand())
	return cmd
}

func newTreeRootCommand() *cobra.Command {
	var payoutFile string

	cmd := &cobra.Command{
		Use:   "root",
		Short: "Print the merkle root of a payout file",
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, _, err := loadPayoutTree(payoutFile)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]interface{}{
				"merkle_root": tree.Root().String(),
			})
		},
	}

	cmd.Flags().StringVarP(&payoutFile, "payouts", "f", "", "payout CSV file (required)")
	cmd.MarkFlagRequired("payouts")
	return cmd
}

func newTreeProofCommand() *cobra.Command {
	var payoutFile string
	var leafIndex uint16

	cmd := &cobra.Command{
		Use:   "proof",
		Short: "Print the membership proof for one leaf index",
		RunE: func(cmd *cobra.Command, args []string) error {
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
			nodes := make([]string, 0, len(proof))
			for _, node := range proof {
				nodes = append(nodes, node.String())
			}

			return printJSON(cmd, map[string]interface{}{
				"merkle_root": tree.Root().String(),
				"leaf_index":  leafIndex,
				"recipient":   payouts[leafIndex].Recipient.String(),
				"amount":      payouts[leafIndex].Amount,
				"proof":       nodes,
			})
		},
	}

	cmd.Flags().StringVarP(&payoutFile, "payouts", "f", "", "payout CSV file (required)")
	cmd.Flags().Uint16Var(&leafIndex, "index", 0, "leaf index to prove")
	cmd.MarkFlagRequired("payouts")
	return cmd
}

// loadPayoutTree reads a payout CSV file and builds its merkle tree
func loadPayoutTree(path string) (*domain.PayoutTree, []domain.PayoutLeaf, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open payout file: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read payout file: %w", err)
	}

	payouts := make([]domain.PayoutLeaf, 0, len(rows))
	for i, row := range rows {
		if len(row) != 2 {
			return nil, nil, fmt.Errorf("row %d: expected recipient,amount, got %d fields", i+1, len(row))
		}
		recipient, err := domain.ParseAddress(row[0])
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		amount, err := strconv.ParseUint(row[1], 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: invalid amount %q: %w", i+1, row[1], err)
		}
		payouts = append(payouts, domain.PayoutLeaf{Recipient: recipient, Amount: amount})
	}
	if len(payouts) == 0 {
		return nil, nil, fmt.Errorf("payout file %s is empty", path)
	}

	tree, err := domain.BuildPayoutTree(payouts)
	if err != nil {
		return nil, nil, err
	}
	return tree, payouts, nil
}
