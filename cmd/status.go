package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	statusadapter "github.com/roster-cli/roster/internal/adapters/render/status"
)

func newStatusCmd(app *app) *cobra.Command {
	var (
		asJSON     bool
		staleAfter time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the configured fleet and proxy assignments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.repo.Load(cmd.Context())
			if err != nil {
				return err
			}

			cfg.Policy.ApplyDefaults()
			controller := app.newController(cfg)
			sessions := controller.Statuses()
			proxies := controller.Proxies()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Sessions interface{}
					Proxies  interface{}
				}{Sessions: sessions, Proxies: proxies})
			}

			rendered, err := app.statusRenderer(sessions, proxies, statusadapter.RenderOptions{
				Now:         app.now(),
				MaxCapacity: cfg.Policy.MaxCapacity,
				StaleAfter:  staleAfter,
			})
			if err != nil {
				return fmt.Errorf("render status: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit machine-readable JSON")
	cmd.Flags().DurationVar(&staleAfter, "stale-after", time.Hour, "flag proxy checks older than this")

	return cmd
}
