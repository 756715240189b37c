package ports

import (
	"context"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
)

// AuditTrail records mutations. Append is best-effort from the caller's point
// of view: a failed trail entry never rolls back the write it describes.
type AuditTrail interface {
	Append(ctx context.Context, action, entityType, entityName string) (domain.AuditLogEntry, error)
}
