package main

import (
	"io"
	"os"

	"github.com/jrsteele09/wydely-client/internal/config"
	"github.com/jrsteele09/wydely-client/internal/logging"
	"github.com/spf13/cobra"
)

func newRootCommand(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wydely",
		Short:         "Wydely session client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags(), os.Getenv)
			if err != nil {
				return err
			}
			logger := logging.Install(cfg.GetEnv(), cfg.GetLogLevel())
			withApp(cmd, newApp(cfg, logger, out))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			appFrom(cmd).close()
		},
	}
	config.RegisterFlags(cmd.PersistentFlags())
	cmd.SetOut(out)

	cmd.AddCommand(
		newSignupCommand(),
		newLoginCommand(),
		newVerifyOTPCommand(),
		newStatusCommand(),
		newWhoamiCommand(),
		newLogoutCommand(),
		newWatchCommand(),
		newPlaceholdersCommand(),
		newMockServerCommand(),
	)
	return cmd
}
