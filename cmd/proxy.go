package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	statusadapter "github.com/roster-cli/roster/internal/adapters/render/status"
)

func newProxyCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Inspect proxy health",
	}

	cmd.AddCommand(newProxyCheckCmd(app))

	return cmd
}

func newProxyCheckCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe every configured proxy and report reachability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.repo.Load(cmd.Context())
			if err != nil {
				return err
			}

			cfg.Policy.ApplyDefaults()
			controller := app.newController(cfg)

			err = runProxyCheckSpinner(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context) error {
				controller.RecheckProxies(ctx)
				return nil
			})
			if err != nil {
				return fmt.Errorf("check proxies: %w", err)
			}

			rendered, err := app.statusRenderer(nil, controller.Proxies(), statusadapter.RenderOptions{
				Now:        app.now(),
				StaleAfter: time.Hour,
			})
			if err != nil {
				return fmt.Errorf("render proxy report: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}
}
