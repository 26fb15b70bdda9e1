package ports

import "context"

// SecretStore resolves the secret refs named in the fleet file. Keys follow
// the "roster/accounts/<name>/password" convention.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
