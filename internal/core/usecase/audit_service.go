package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
	"github.com/atvirokodosprendimai/rostersync/internal/core/ports"
)

// MaxAuditEntries bounds the local audit log. The bound applies to the local
// copy only; eviction does not wait for a successful push of the evicted
// entries.
const MaxAuditEntries = 1000

// AuditService keeps the append-only mutation trail. It owns the audit_logs
// collection directly rather than going through the entity store, so entity
// saves can feed it without a dependency cycle. Entries are prepended: index 0
// is always the most recent, and the tail beyond MaxAuditEntries is discarded
// after every append.
type AuditService struct {
	store    ports.CollectionStore
	registry *RegistryService
	guard    *SchemaGuard
	log      zerolog.Logger
	max      int
}

func NewAuditService(store ports.CollectionStore, registry *RegistryService, guard *SchemaGuard, log zerolog.Logger) *AuditService {
	return &AuditService{store: store, registry: registry, guard: guard, log: log, max: MaxAuditEntries}
}

// Append creates, stamps and persists one entry, returning it.
// Implements ports.AuditTrail.
func (s *AuditService) Append(ctx context.Context, action, entityType, entityName string) (domain.AuditLogEntry, error) {
	entry := domain.AuditLogEntry{
		ID:         uuid.NewString(),
		Action:     action,
		EntityType: entityType,
		EntityName: entityName,
		Timestamp:  time.Now().UTC(),
		UserName:   "Unknown",
		UserEmail:  "Unknown",
	}

	if identity, ok, err := s.registry.Identity(ctx); err != nil {
		s.log.Warn().Err(err).Msg("identity unavailable for audit entry")
	} else if ok {
		entry.UserName = identity.Name
		entry.UserEmail = identity.Email
	}

	deviceID, err := s.registry.DeviceID(ctx)
	if err != nil {
		return domain.AuditLogEntry{}, fmt.Errorf("device id: %w", err)
	}
	entry.DeviceID = deviceID

	entries, err := s.Entries(ctx)
	if err != nil {
		return domain.AuditLogEntry{}, err
	}

	entries = append([]domain.AuditLogEntry{entry}, entries...)
	if len(entries) > s.max {
		entries = entries[:s.max]
	}

	if err := s.persist(ctx, entries); err != nil {
		return domain.AuditLogEntry{}, err
	}
	return entry, nil
}

// Entries returns the full local trail, most recent first.
func (s *AuditService) Entries(ctx context.Context) ([]domain.AuditLogEntry, error) {
	raws, err := s.store.Load(ctx, domain.CollectionAuditLogs)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.AuditLogEntry, 0, len(raws))
	for _, raw := range raws {
		var e domain.AuditLogEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("%w: audit_logs: %v", domain.ErrCorruptStore, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Replace rewrites the trail wholesale. Only the sync engine calls this,
// after stamping pushed entries; entries are never edited individually.
func (s *AuditService) Replace(ctx context.Context, entries []domain.AuditLogEntry) error {
	if len(entries) > s.max {
		entries = entries[:s.max]
	}
	return s.persist(ctx, entries)
}

func (s *AuditService) persist(ctx context.Context, entries []domain.AuditLogEntry) error {
	raws := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode audit entry: %w", err)
		}
		if s.guard != nil {
			if err := s.guard.Validate(domain.CollectionAuditLogs, raw); err != nil {
				return err
			}
		}
		raws = append(raws, raw)
	}
	return s.store.Save(ctx, domain.CollectionAuditLogs, raws)
}

var _ ports.AuditTrail = (*AuditService)(nil)
