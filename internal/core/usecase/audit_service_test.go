package usecase

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
)

func newAuditFixture(t *testing.T) (*AuditService, *RegistryService) {
	t.Helper()
	guard, err := NewSchemaGuard()
	if err != nil {
		t.Fatalf("schema guard: %v", err)
	}
	registry := NewRegistryService(newMemSettings())
	return NewAuditService(newMemStore(), registry, guard, zerolog.Nop()), registry
}

func TestAuditAppendStampsEntry(t *testing.T) {
	audit, _ := newAuditFixture(t)

	entry, err := audit.Append(context.Background(), domain.AuditCreate, "PERSON", "Marie Douala")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if entry.ID == "" || entry.Timestamp.IsZero() {
		t.Fatalf("expected stamped id and timestamp, got %+v", entry)
	}
	if entry.UserName != "Unknown" || entry.UserEmail != "Unknown" {
		t.Fatalf("expected Unknown identity fallback, got %q/%q", entry.UserName, entry.UserEmail)
	}
	if matched, _ := regexp.MatchString(`^MOB-[0-9A-Z]{6}$`, entry.DeviceID); !matched {
		t.Fatalf("expected device id of form MOB-XXXXXX, got %q", entry.DeviceID)
	}

	entries, err := audit.Entries(context.Background())
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != entry.ID {
		t.Fatalf("expected the appended entry persisted, got %+v", entries)
	}
}

func TestAuditAppendUsesConfiguredIdentity(t *testing.T) {
	audit, registry := newAuditFixture(t)
	identity := domain.Identity{Name: "Alain Perrin", Email: "alain@example.org"}
	if err := registry.SetIdentity(context.Background(), identity); err != nil {
		t.Fatalf("set identity: %v", err)
	}

	entry, err := audit.Append(context.Background(), domain.AuditUpdate, "ACTIVITY", "Conference 2024")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if entry.UserName != identity.Name || entry.UserEmail != identity.Email {
		t.Fatalf("expected configured identity on entry, got %q/%q", entry.UserName, entry.UserEmail)
	}
}

func TestAuditRetentionDropsOldest(t *testing.T) {
	audit, _ := newAuditFixture(t)
	audit.max = 3

	for i := 0; i < 4; i++ {
		name := fmt.Sprintf("record %d", i)
		if _, err := audit.Append(context.Background(), domain.AuditCreate, "PERSON", name); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	entries, err := audit.Entries(context.Background())
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected trail capped at 3 entries, got %d", len(entries))
	}
	if entries[0].EntityName != "record 3" {
		t.Fatalf("expected most recent entry first, got %q", entries[0].EntityName)
	}
	for _, e := range entries {
		if e.EntityName == "record 0" {
			t.Fatal("expected oldest entry evicted")
		}
	}
}

func TestAuditReplaceTrims(t *testing.T) {
	audit, _ := newAuditFixture(t)
	audit.max = 2

	now := time.Now().UTC()
	entries := make([]domain.AuditLogEntry, 0, 3)
	for i := 0; i < 3; i++ {
		entries = append(entries, domain.AuditLogEntry{
			ID:        fmt.Sprintf("e%d", i),
			Action:    domain.AuditCreate,
			Timestamp: now.Add(-time.Duration(i) * time.Minute),
		})
	}
	if err := audit.Replace(context.Background(), entries); err != nil {
		t.Fatalf("replace: %v", err)
	}

	stored, err := audit.Entries(context.Background())
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 entries after trim, got %d", len(stored))
	}
}
