package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Audit action kinds. Free-form actions are accepted, these cover the core.
const (
	AuditCreate = "CREATE"
	AuditUpdate = "UPDATE"
	AuditDelete = "DELETE"
	AuditLogin  = "LOGIN"
	AuditSeed   = "SEED"
	AuditReset  = "RESET"
)

// AuditLogEntry is one append-only mutation record. Entries are immutable
// once created; only SyncedAt is stamped after a successful push.
type AuditLogEntry struct {
	ID         string     `json:"id"`
	Action     string     `json:"action"`
	EntityType string     `json:"entityType"`
	EntityName string     `json:"entityName"`
	Timestamp  time.Time  `json:"timestamp"`
	UserName   string     `json:"userName"`
	UserEmail  string     `json:"userEmail"`
	DeviceID   string     `json:"deviceId"`
	SyncedAt   *time.Time `json:"syncedAt,omitempty"`

	Extensions map[string]json.RawMessage `json:"-"`
}

var auditKeys = keySet(
	"id", "action", "entityType", "entityName", "timestamp",
	"userName", "userEmail", "deviceId", "syncedAt")

func (e AuditLogEntry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: audit entry without id", ErrValidation)
	}
	if e.Action == "" {
		return fmt.Errorf("%w: audit entry %s: action is required", ErrValidation, e.ID)
	}
	return nil
}

// Dirty reports whether the entry still awaits its first push. Entries never
// change after creation, so a stamped SyncedAt settles the question for good.
func (e AuditLogEntry) Dirty() bool {
	return e.SyncedAt == nil || e.Timestamp.After(*e.SyncedAt)
}

func (e AuditLogEntry) MarshalJSON() ([]byte, error) {
	type alias AuditLogEntry
	return marshalWithExtensions(alias(e), e.Extensions)
}

func (e *AuditLogEntry) UnmarshalJSON(data []byte) error {
	type alias AuditLogEntry
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	ext, err := unmarshalExtensions(data, auditKeys)
	if err != nil {
		return err
	}
	*e = AuditLogEntry(a)
	e.Extensions = ext
	return nil
}

// AuditMeta asks the entity store to record one trail entry after a
// successful save.
type AuditMeta struct {
	Action string `json:"action"`
	Name   string `json:"name"`
}
