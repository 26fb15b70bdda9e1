package ports

import (
	"context"

	"github.com/roster-cli/roster/internal/domain"
)

type FleetRepository interface {
	Load(ctx context.Context) (domain.FleetConfig, error)
	Save(ctx context.Context, cfg domain.FleetConfig) error
}
