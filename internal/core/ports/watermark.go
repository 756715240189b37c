package ports

import (
	"context"
	"time"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
)

// WatermarkStore tracks the last successfully pulled timestamp per
// collection, so a pull cutoff never has to be derived from local record
// contents after the first cycle.
type WatermarkStore interface {
	Watermark(ctx context.Context, c domain.Collection) (time.Time, bool, error)
	SetWatermark(ctx context.Context, c domain.Collection, t time.Time) error
}
