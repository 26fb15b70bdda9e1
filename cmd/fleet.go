package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roster-cli/roster/internal/domain"
)

func newFleetCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fleet",
		Short: "Manage the fleet configuration file",
	}

	cmd.AddCommand(
		newFleetInitCmd(app),
		newFleetListCmd(app),
		newFleetAddCmd(app),
		newFleetAddProxyCmd(app),
	)

	return cmd
}

func newFleetInitCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty fleet file with default policy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := app.repo.Load(cmd.Context()); err == nil {
				return fmt.Errorf("fleet file already exists")
			}

			cfg := domain.FleetConfig{}
			cfg.Policy.ApplyDefaults()
			if err := app.repo.Save(cmd.Context(), cfg); err != nil {
				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Initialized fleet file.")
			return err
		},
	}
}

func newFleetListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.repo.Load(cmd.Context())
			if err != nil {
				return err
			}

			if len(cfg.Accounts) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No accounts configured.")
				return err
			}

			for i, account := range cfg.Accounts {
				proxy := "direct"
				if account.Proxy != "" {
					proxy = string(account.Proxy)
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s (egress: %s)\n", i, account.Name, proxy); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func newFleetAddCmd(app *app) *cobra.Command {
	var (
		name      string
		secretRef string
		proxy     string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an account to the fleet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.repo.Load(cmd.Context())
			if err != nil {
				return err
			}

			cfg.Accounts = append(cfg.Accounts, domain.AccountConfig{
				Name:      name,
				SecretRef: secretRef,
				Proxy:     domain.ProxyID(proxy),
			})

			if err := app.repo.Save(cmd.Context(), cfg); err != nil {
				return fmt.Errorf("save fleet file: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added account %s.\n", name)
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "account name")
	cmd.Flags().StringVar(&secretRef, "secret-ref", "", "secret store key holding the account password")
	cmd.Flags().StringVar(&proxy, "proxy", "", "proxy id for egress (empty for direct)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("secret-ref")

	return cmd
}

func newFleetAddProxyCmd(app *app) *cobra.Command {
	var (
		id  string
		url string
	)

	cmd := &cobra.Command{
		Use:   "add-proxy",
		Short: "Add a proxy to the fleet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.repo.Load(cmd.Context())
			if err != nil {
				return err
			}

			cfg.Proxies = append(cfg.Proxies, domain.ProxyRecord{
				ID:  domain.ProxyID(id),
				URL: url,
			})

			if err := app.repo.Save(cmd.Context(), cfg); err != nil {
				return fmt.Errorf("save fleet file: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added proxy %s.\n", id)
			return err
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "proxy id")
	cmd.Flags().StringVar(&url, "url", "", "proxy url")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}
