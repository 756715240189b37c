package ports

import (
	"context"
	"time"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
)

// RemoteStore is the shared multi-device table store. Rows cross this
// boundary in local field naming; the adapter owns the wire translation.
type RemoteStore interface {
	// SelectNewer fetches rows whose cursor timestamp is strictly greater
	// than after.
	SelectNewer(ctx context.Context, collection domain.Collection, after time.Time) ([]domain.Row, error)
	// Upsert writes the batch by primary key. All-or-nothing per call.
	Upsert(ctx context.Context, collection domain.Collection, rows []domain.Row) error
	// Ping verifies the endpoint and key with a minimal read.
	Ping(ctx context.Context) error
}

// RemoteDialer resolves the configured endpoint (environment first, then the
// locally stored settings) into a usable RemoteStore. Returns an error
// wrapping domain.ErrRemoteNotConfigured when neither source has credentials.
type RemoteDialer interface {
	Dial(ctx context.Context) (RemoteStore, error)
}
