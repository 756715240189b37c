package ports

import (
	"context"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
)

// Notifier receives computed alert conditions. Presentation lives with the
// collaborator behind the implementation, never in the core.
type Notifier interface {
	Notify(ctx context.Context, alert domain.Alert) error
}
