package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	restartcodec "github.com/roster-cli/roster/internal/adapters/restart"
	"github.com/roster-cli/roster/internal/application"
)

const stopTimeout = 10 * time.Second

func newRunCmd(app *app) *cobra.Command {
	var (
		restartState string
		stateFile    string
		runFor       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Log the fleet in and serve actions until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.repo.Load(cmd.Context())
			if err != nil {
				return err
			}
			if len(cfg.Accounts) == 0 {
				return fmt.Errorf("no accounts configured, add some with 'roster fleet add'")
			}

			controller := app.newController(cfg)

			if restartState != "" {
				snapshot, err := restartcodec.Decode(restartState)
				if err != nil {
					return fmt.Errorf("decode restart state: %w", err)
				}
				if err := controller.Ingest(snapshot); err != nil {
					return fmt.Errorf("ingest restart state: %w", err)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			events := controller.Events(64)
			go logEvents(ctx, app, events)

			if err := controller.Start(ctx); err != nil {
				return err
			}
			app.logger.Info().Int("accounts", len(cfg.Accounts)).Msg("fleet started")

			if runFor > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(runFor):
				}
			} else {
				<-ctx.Done()
			}

			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()

			snapshot := controller.Stop(stopCtx)
			app.logger.Info().Msg("fleet stopped")

			blob, err := restartcodec.Encode(snapshot)
			if err != nil {
				return fmt.Errorf("encode restart state: %w", err)
			}

			if stateFile != "" {
				if err := os.WriteFile(stateFile, []byte(blob), 0o600); err != nil {
					return fmt.Errorf("write state file: %w", err)
				}
				return nil
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), blob)
			return err
		},
	}

	cmd.Flags().StringVar(&restartState, "restart-state", "", "state blob emitted by the previous run")
	cmd.Flags().StringVar(&stateFile, "state-file", "", "write the shutdown state blob to this file instead of stdout")
	cmd.Flags().DurationVar(&runFor, "for", 0, "stop after this duration instead of waiting for a signal")

	return cmd
}

func logEvents(ctx context.Context, app *app, events <-chan application.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			entry := app.logger.Info()
			if event.Kind == application.EventWarning {
				entry = app.logger.Warn()
			}
			entry.
				Str("kind", string(event.Kind)).
				Str("session", event.Session).
				Str("status", string(event.Status)).
				Msg(event.Message)
		}
	}
}
