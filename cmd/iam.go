package cmd

import (
	"github.com/spf13/cobra"

	"tasnim.dev/aws-sweep/internal/report"
)

func newIAMCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iam",
		Short: "IAM inspection",
	}
	cmd.AddCommand(newIAMRedundantPoliciesCmd(opts))
	return cmd
}

func newIAMRedundantPoliciesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "redundant-policies",
		Short: "List customer-managed policies attached to nothing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := opts.serviceClient(ctx)
			if err != nil {
				return err
			}
			policies, err := client.IAM.ListRedundantPolicies(ctx)
			if err != nil {
				return err
			}
			return report.Policies(cmd.OutOrStdout(), "Redundant IAM policies", policies)
		},
	}
}
