package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/roster-cli/roster/internal/adapters/connect/sim"
	"github.com/roster-cli/roster/internal/adapters/probe/httpprobe"
	statusadapter "github.com/roster-cli/roster/internal/adapters/render/status"
	tomlrepo "github.com/roster-cli/roster/internal/adapters/repo/toml"
	chainstore "github.com/roster-cli/roster/internal/adapters/secrets/chain"
	"github.com/roster-cli/roster/internal/application"
	"github.com/roster-cli/roster/internal/domain"
	"github.com/roster-cli/roster/internal/ports"
)

type app struct {
	repo           ports.FleetRepository
	secretStore    ports.SecretStore
	factory        ports.ConnectivityFactory
	clock          ports.Clock
	logger         zerolog.Logger
	statusRenderer func([]application.SessionStatusView, []application.ProxyStatusView, statusadapter.RenderOptions) (string, error)
	now            func() time.Time
}

func wireApp() (*app, error) {
	repo, err := tomlrepo.NewRepository(viper.New())
	if err != nil {
		return nil, fmt.Errorf("wire fleet repository: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	secretStore, err := chainstore.NewPassFirstWithFileFallback(filepath.Join(homeDir, ".roster", "secrets"))
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	return &app{
		repo:           repo,
		secretStore:    secretStore,
		factory:        &sim.Factory{},
		clock:          ports.SystemClock{},
		logger:         newLogger(envOrDefault("ROSTER_LOG_LEVEL", "info")),
		statusRenderer: statusadapter.Render,
		now:            time.Now,
	}, nil
}

// newController assembles a controller over the current fleet config. The
// caller decides whether to start it; read commands use it unstarted.
func (a *app) newController(cfg domain.FleetConfig) *application.Controller {
	cfg.Policy.ApplyDefaults()
	prober := httpprobe.New(cfg.Policy.ProbeTimeout)

	return application.NewController(cfg, a.factory, a.secretStore, prober, a.clock, a.logger)
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}

	return zerolog.New(writer).Level(parsed).With().Timestamp().Logger()
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
