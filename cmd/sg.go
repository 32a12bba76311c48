package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/util/sets"

	awsclient "tasnim.dev/aws-sweep/internal/aws"
	"tasnim.dev/aws-sweep/internal/cleanup"
	"tasnim.dev/aws-sweep/internal/report"
)

// orphanFlags select which security groups count as orphans.
type orphanFlags struct {
	filter         string
	allow          []string
	allowSageMaker bool
}

func (f *orphanFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.filter, "filter", "", "also treat groups whose description contains this text as orphans")
	cmd.Flags().StringSliceVar(&f.allow, "allow", nil, "ids that keep a --filter match alive when named in its description")
	cmd.Flags().BoolVar(&f.allowSageMaker, "allow-sagemaker-domains", false, "add every active SageMaker domain id to --allow")
}

// allowList merges --allow with active notebook domains when requested.
func (f *orphanFlags) allowList(ctx context.Context, client *awsclient.ServiceClient) (sets.Set[string], error) {
	allow := sets.New(f.allow...)
	if !f.allowSageMaker {
		return allow, nil
	}
	domains, err := client.SageMaker.ActiveDomainIDs(ctx)
	if err != nil {
		return nil, err
	}
	return allow.Union(domains), nil
}

func (f *orphanFlags) descriptionFilter(opts *rootOptions, cmd *cobra.Command) string {
	if cmd.Flags().Changed("filter") {
		return f.filter
	}
	return opts.cfg.DescriptionFilter
}

func newSGCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sg",
		Aliases: []string{"security-groups"},
		Short:   "Resolve and delete orphaned security groups",
	}
	cmd.AddCommand(newSGListCmd(opts))
	cmd.AddCommand(newSGDeleteCmd(opts))
	return cmd
}

func newSGListCmd(opts *rootOptions) *cobra.Command {
	var f orphanFlags
	var orphansOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List security groups and mark orphans",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := opts.serviceClient(ctx)
			if err != nil {
				return err
			}
			allow, err := f.allowList(ctx, client)
			if err != nil {
				return err
			}

			resolver := cleanup.NewResolver(client.VPC, opts.logger)
			orphans, err := resolver.ResolveOrphans(ctx, f.descriptionFilter(opts, cmd), allow)
			if err != nil {
				return err
			}
			if orphansOnly {
				return report.IDs(cmd.OutOrStdout(), "Orphaned security groups", orphans)
			}

			groups, err := client.VPC.ListSecurityGroups(ctx, "")
			if err != nil {
				return err
			}
			return report.SecurityGroups(cmd.OutOrStdout(), "Security groups", groups, orphans)
		},
	}

	f.register(cmd)
	cmd.Flags().BoolVar(&orphansOnly, "orphans-only", false, "print only orphan ids")
	return cmd
}

func newSGDeleteCmd(opts *rootOptions) *cobra.Command {
	var f orphanFlags
	var dryRun, revokeReferences bool

	cmd := &cobra.Command{
		Use:   "delete [group-id...]",
		Short: "Delete the given security groups, or every resolved orphan",
		Long: `Delete security groups after revoking all of their rules.

With no arguments every orphan is deleted. Groups that are already gone are
reported and skipped; groups still in use are reported as failures.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := opts.serviceClient(ctx)
			if err != nil {
				return err
			}
			resolver := cleanup.NewResolver(client.VPC, opts.logger, cleanup.WithPollConfig(opts.cfg.RetryConfig()))

			targets := sets.New(args...)
			if targets.Len() == 0 {
				allow, err := f.allowList(ctx, client)
				if err != nil {
					return err
				}
				targets, err = resolver.ResolveOrphans(ctx, f.descriptionFilter(opts, cmd), allow)
				if err != nil {
					return err
				}
			}

			outcomes := resolver.DeleteSecurityGroupsCascading(ctx, targets, cleanup.DeleteOptions{
				RevokeReferencingRules: revokeReferences,
				DryRun:                 dryRun,
			})
			if err := report.Outcomes(cmd.OutOrStdout(), "Security groups", outcomes); err != nil {
				return err
			}
			if failed := cleanup.Failures(outcomes); len(failed) > 0 {
				return fmt.Errorf("%d of %d security groups could not be deleted", len(failed), len(outcomes))
			}
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be deleted without deleting")
	cmd.Flags().BoolVar(&revokeReferences, "revoke-references", false, "revoke rules in other groups that reference a deleted group")
	return cmd
}
