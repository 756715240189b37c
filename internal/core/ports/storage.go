package ports

import (
	"context"
	"encoding/json"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
)

// CollectionStore owns the persisted representation of whole collections.
// Load returns an empty slice on first run (no file yet) and an error
// wrapping domain.ErrCorruptStore when a file exists but cannot be decoded.
// Save replaces the entire collection atomically, never partially.
type CollectionStore interface {
	Load(ctx context.Context, collection domain.Collection) ([]json.RawMessage, error)
	Save(ctx context.Context, collection domain.Collection, records []json.RawMessage) error
	// Reset removes every persisted collection and sidecar data (factory reset).
	Reset(ctx context.Context) error
}

// ImageStore keeps portrait sidecar files outside the collection files.
type ImageStore interface {
	SaveImage(ctx context.Context, id string, data []byte) (string, error)
}
