package capability

import "context"

// KeyStore resolves an API key's tag to its hashed record. Implementations
// live in pkg/store.
type KeyStore interface {
	GetByTag(ctx context.Context, tag string) (*APIKey, error)
	Put(ctx context.Context, key *APIKey) error
}
