package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "roster",
		Short:         "roster: run a fleet of remote-service accounts",
		Long:          "roster logs a configured fleet of accounts into a remote service with staggered logins, throttles friend/comment/vote actions across them, watches proxy health and friendlist capacity, and carries state across restarts.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(app),
		newStatusCmd(app),
		newFleetCmd(app),
		newProxyCmd(app),
	)

	return rootCmd
}
