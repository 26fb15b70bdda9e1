package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/roster-cli/roster/internal/domain"
	"github.com/roster-cli/roster/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName      = "config"
	configType      = "toml"
	fleetPathKey    = "fleet.path"
	fleetFileMode   = 0o600
	fleetDirMode    = 0o700
	fleetConfigDir  = ".roster"
	fleetConfigFile = "fleet.toml"
	tempFilePattern = ".fleet-*.toml.tmp"
)

type Repository struct {
	fleetPath string
	mu        *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.FleetRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, fleetConfigDir, fleetConfigFile)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, fleetConfigDir))
	cfg.SetDefault(fleetPathKey, defaultPath)

	err = cfg.ReadInConfig()
	if err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	fleetPath := cfg.GetString(fleetPathKey)
	if fleetPath == "" {
		return nil, errors.New("fleet path is empty")
	}
	fleetPath, err = normalizeFleetPath(fleetPath)
	if err != nil {
		return nil, err
	}

	return &Repository{fleetPath: fleetPath, mu: lockForPath(fleetPath)}, nil
}

func (r *Repository) Load(ctx context.Context) (domain.FleetConfig, error) {
	if err := ctx.Err(); err != nil {
		return domain.FleetConfig{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.FleetConfig{}, err
	}

	cfg := fromSchema(file)
	if err := cfg.Validate(); err != nil {
		return domain.FleetConfig{}, fmt.Errorf("invalid fleet file %s: %w", r.fleetPath, err)
	}

	return cfg, nil
}

func (r *Repository) Save(ctx context.Context, cfg domain.FleetConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.writeSchema(toSchema(cfg))
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.fleetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, fmt.Errorf("fleet file %s not found: %w", r.fleetPath, err)
		}
		return fileSchema{}, fmt.Errorf("read fleet file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode fleet file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (r *Repository) writeSchema(file fileSchema) error {
	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode fleet file: %w", err)
	}

	dir := filepath.Dir(r.fleetPath)
	if err := os.MkdirAll(dir, fleetDirMode); err != nil {
		return fmt.Errorf("create fleet directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp fleet file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp fleet file: %w", err)
	}
	if err := tmp.Chmod(fleetFileMode); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp fleet file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp fleet file: %w", err)
	}

	if err := os.Rename(tmpPath, r.fleetPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace fleet file: %w", err)
	}

	return nil
}

func normalizeFleetPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve fleet path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}
