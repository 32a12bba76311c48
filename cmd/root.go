package cmd

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	awsclient "tasnim.dev/aws-sweep/internal/aws"
	"tasnim.dev/aws-sweep/internal/config"
	applog "tasnim.dev/aws-sweep/internal/log"
)

// rootOptions carries persistent flags and state shared by every subcommand.
type rootOptions struct {
	profile  string
	region   string
	logLevel string

	cfg    *config.Config
	logger *log.Logger
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "aws-sweep",
		Short:         "Find and delete orphaned AWS resources",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			opts.cfg = cfg

			level := opts.logLevel
			if level == "" {
				level = cfg.LogLevel
			}
			opts.logger = applog.New(level, cmd.ErrOrStderr())
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.profile, "profile", "p", "", "AWS profile to use")
	root.PersistentFlags().StringVarP(&opts.region, "region", "r", "", "AWS region to use")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newFetchCmd(opts))
	root.AddCommand(newSGCmd(opts))
	root.AddCommand(newVPCCmd(opts))
	root.AddCommand(newEFSCmd(opts))
	root.AddCommand(newIAMCmd(opts))

	return root
}

// serviceClient builds AWS clients from config defaults and flag overrides
// and logs the account they will act on.
func (o *rootOptions) serviceClient(ctx context.Context) (*awsclient.ServiceClient, error) {
	profile, region := o.cfg.Merge(o.profile, o.region)

	client, err := awsclient.NewServiceClient(ctx, profile, region)
	if err != nil {
		return nil, fmt.Errorf("initializing AWS client: %w", err)
	}

	logger := o.logger.WithFields(log.Fields{
		"profile": profile,
		"region":  client.Config.Region,
	})
	account, err := client.AccountID(ctx)
	if err != nil {
		logger.WithError(err).Warn("could not resolve account")
	} else {
		logger.WithField("account", account).Info("using account")
	}
	return client, nil
}
