package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
	"github.com/atvirokodosprendimai/rostersync/internal/core/ports"
)

// EntityService loads and persists whole collections with pre-write
// validation. It never stamps updatedAt/syncedAt itself; callers own the
// lifecycle fields, the store only refuses records that are structurally
// invalid.
type EntityService struct {
	store  ports.CollectionStore
	images ports.ImageStore
	guard  *SchemaGuard
	audit  ports.AuditTrail
	log    zerolog.Logger
}

func NewEntityService(store ports.CollectionStore, images ports.ImageStore, guard *SchemaGuard, audit ports.AuditTrail, log zerolog.Logger) *EntityService {
	return &EntityService{store: store, images: images, guard: guard, audit: audit, log: log}
}

func (s *EntityService) People(ctx context.Context) ([]domain.Person, error) {
	return loadTyped[domain.Person](ctx, s, domain.CollectionPeople)
}

func (s *EntityService) SavePeople(ctx context.Context, people []domain.Person, meta *domain.AuditMeta) error {
	return saveTyped(ctx, s, domain.CollectionPeople, people, meta)
}

func (s *EntityService) Activities(ctx context.Context) ([]domain.Activity, error) {
	return loadTyped[domain.Activity](ctx, s, domain.CollectionActivities)
}

func (s *EntityService) SaveActivities(ctx context.Context, activities []domain.Activity, meta *domain.AuditMeta) error {
	return saveTyped(ctx, s, domain.CollectionActivities, activities, meta)
}

func (s *EntityService) Attendance(ctx context.Context) ([]domain.AttendanceRecord, error) {
	return loadTyped[domain.AttendanceRecord](ctx, s, domain.CollectionAttendance)
}

func (s *EntityService) SaveAttendance(ctx context.Context, attendance []domain.AttendanceRecord, meta *domain.AuditMeta) error {
	return saveTyped(ctx, s, domain.CollectionAttendance, attendance, meta)
}

// Rows returns the collection in wire form for the sync engine.
func (s *EntityService) Rows(ctx context.Context, c domain.Collection) ([]domain.Row, error) {
	if err := domain.ValidateCollection(c); err != nil {
		return nil, err
	}
	raws, err := s.store.Load(ctx, c)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.Row, 0, len(raws))
	for _, raw := range raws {
		var row domain.Row
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptStore, c, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// SaveRows persists a reconciled collection coming back from the sync engine.
// Every row passes the same validation gate as a caller-provided save.
func (s *EntityService) SaveRows(ctx context.Context, c domain.Collection, rows []domain.Row) error {
	if err := domain.ValidateCollection(c); err != nil {
		return err
	}
	raws := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		raw, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode %s row: %w", c, err)
		}
		if err := s.validateRaw(c, raw); err != nil {
			return err
		}
		raws = append(raws, raw)
	}
	return s.store.Save(ctx, c, raws)
}

// ValidateRows runs the save-time validation gate without persisting,
// used on pulled remote rows before they enter a merge.
func (s *EntityService) ValidateRows(ctx context.Context, c domain.Collection, rows []domain.Row) error {
	if err := domain.ValidateCollection(c); err != nil {
		return err
	}
	for _, row := range rows {
		raw, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode %s row: %w", c, err)
		}
		if err := s.validateRaw(c, raw); err != nil {
			return err
		}
	}
	return nil
}

// FactoryReset deletes every persisted collection and sidecar file. The only
// physical deletion path in the system.
func (s *EntityService) FactoryReset(ctx context.Context) error {
	return s.store.Reset(ctx)
}

func (s *EntityService) SaveImage(ctx context.Context, id string, data []byte) (string, error) {
	if s.images == nil {
		return "", fmt.Errorf("image store not configured")
	}
	return s.images.SaveImage(ctx, id, data)
}

func (s *EntityService) validateRaw(c domain.Collection, raw json.RawMessage) error {
	switch c {
	case domain.CollectionPeople:
		var p domain.Person
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("%w: person: %v", domain.ErrValidation, err)
		}
		if err := p.Validate(); err != nil {
			return err
		}
	case domain.CollectionActivities:
		var a domain.Activity
		if err := json.Unmarshal(raw, &a); err != nil {
			return fmt.Errorf("%w: activity: %v", domain.ErrValidation, err)
		}
		if err := a.Validate(); err != nil {
			return err
		}
	case domain.CollectionAttendance:
		var r domain.AttendanceRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return fmt.Errorf("%w: attendance: %v", domain.ErrValidation, err)
		}
		if err := r.Validate(); err != nil {
			return err
		}
	case domain.CollectionAuditLogs:
		var e domain.AuditLogEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return fmt.Errorf("%w: audit entry: %v", domain.ErrValidation, err)
		}
		if err := e.Validate(); err != nil {
			return err
		}
	}
	if s.guard != nil {
		return s.guard.Validate(c, raw)
	}
	return nil
}

func loadTyped[T any](ctx context.Context, s *EntityService, c domain.Collection) ([]T, error) {
	raws, err := s.store.Load(ctx, c)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptStore, c, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func saveTyped[T any](ctx context.Context, s *EntityService, c domain.Collection, records []T, meta *domain.AuditMeta) error {
	raws := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode %s record: %w", c, err)
		}
		if err := s.validateRaw(c, raw); err != nil {
			return err
		}
		raws = append(raws, raw)
	}
	if err := s.store.Save(ctx, c, raws); err != nil {
		return err
	}
	if meta != nil && s.audit != nil {
		// Best effort: a failed trail entry never rolls back the write.
		if _, err := s.audit.Append(ctx, meta.Action, c.EntityType(), meta.Name); err != nil {
			s.log.Warn().Err(err).Str("collection", string(c)).Msg("audit append failed")
		}
	}
	return nil
}
