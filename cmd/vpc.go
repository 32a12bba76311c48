package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tasnim.dev/aws-sweep/internal/cleanup"
)

func newVPCCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vpc",
		Short: "VPC cleanup",
	}
	cmd.AddCommand(newVPCTeardownCmd(opts))
	return cmd
}

func newVPCTeardownCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "teardown <vpc-id>",
		Short: "Delete a VPC and everything inside it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to tear down %s without --yes", args[0])
			}
			ctx := cmd.Context()
			client, err := opts.serviceClient(ctx)
			if err != nil {
				return err
			}
			resolver := cleanup.NewResolver(client.VPC, opts.logger, cleanup.WithPollConfig(opts.cfg.RetryConfig()))
			if err := resolver.TeardownVPC(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the teardown")
	return cmd
}
