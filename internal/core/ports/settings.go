package ports

import "context"

// SettingsRepository is the durable key-value state behind the identity and
// device registry: device id, identity, remote credentials, operation mode
// and per-collection pull watermarks.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) (bool, error)
	// Clear wipes every setting (factory reset).
	Clear(ctx context.Context) error
}
