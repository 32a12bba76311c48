package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tasnim.dev/aws-sweep/internal/cleanup"
	"tasnim.dev/aws-sweep/internal/report"
)

func newEFSCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "efs",
		Short: "EFS cleanup",
	}
	cmd.AddCommand(newEFSPruneCmd(opts))
	return cmd
}

func newEFSPruneCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete notebook file systems whose SageMaker domain no longer exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := opts.serviceClient(ctx)
			if err != nil {
				return err
			}
			active, err := client.SageMaker.ActiveDomainIDs(ctx)
			if err != nil {
				return err
			}
			opts.logger.WithField("domains", active.Len()).Debug("loaded active domains")

			pruner := cleanup.NewFileSystemPruner(client.EFS, opts.logger, cleanup.WithPollConfig(opts.cfg.RetryConfig()))
			if dryRun {
				redundant, err := pruner.RedundantFileSystems(ctx, active)
				if err != nil {
					return err
				}
				return report.FileSystems(cmd.OutOrStdout(), "Redundant file systems", redundant)
			}

			outcomes, err := pruner.DeleteRedundantFileSystems(ctx, active, cleanup.DeleteOptions{})
			if err != nil {
				return err
			}
			if err := report.Outcomes(cmd.OutOrStdout(), "File systems", outcomes); err != nil {
				return err
			}
			if failed := cleanup.Failures(outcomes); len(failed) > 0 {
				return fmt.Errorf("%d of %d file systems could not be deleted", len(failed), len(outcomes))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list redundant file systems without deleting")
	return cmd
}
