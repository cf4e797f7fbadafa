package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	veilpayv1 "github.com/veilpay/veilpay-backend/internal/adapter/grpc/veilpay/v1"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Server  string
	Token   string
	Timeout time.Duration
}

// NewRootCommand creates the root command for the veilctl CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "veilctl",
		Short: "veilctl - operator tooling for the VeilPay settlement engine",
		Long: `Operator tooling for the VeilPay settlement engine.

Talks to a running engine over gRPC for vault, schedule, claim and
governance operations, and builds payout merkle trees offline for
schedule commitments.`,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.Server, "server", "localhost:8080", "engine gRPC address")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "dev-token", "API token sent as authorization metadata")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 15*time.Second, "per-call timeout")

	// Add subcommands
	cmd.AddCommand(NewTreeCommand(opts))
	cmd.AddCommand(NewAdminCommand(opts))
	cmd.AddCommand(NewVaultCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))
	cmd.AddCommand(NewClaimCommand(opts))

	return cmd
}

// withClient dials the engine, runs fn with an authenticated context and
// closes the connection afterwards.
func withClient(opts *RootOptions, fn func(ctx context.Context, client veilpayv1.VeilPayServiceClient) error) error {
	conn, err := grpc.NewClient(opts.Server, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", opts.Server, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", opts.Token)

	return fn(ctx, veilpayv1.NewVeilPayServiceClient(conn))
}

// printJSON renders a response for scripting consumption.
func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
