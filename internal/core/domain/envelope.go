package domain

import "time"

// Envelope carries the lifecycle fields shared by every synchronized record.
// IDs are assigned by the creating device, never by the remote store.
type Envelope struct {
	ID        string     `json:"id"`
	UpdatedAt time.Time  `json:"updatedAt"`
	SyncedAt  *time.Time `json:"syncedAt,omitempty"`
}

// Dirty reports whether this version of the record has never been pushed,
// or has been mutated since the last successful push.
func (e Envelope) Dirty() bool {
	return e.SyncedAt == nil || e.UpdatedAt.After(*e.SyncedAt)
}

// Touch stamps UpdatedAt. The timestamp is monotonically non-decreasing:
// a clock that moved backwards never rewinds a record.
func (e *Envelope) Touch(now time.Time) {
	now = now.UTC()
	if now.After(e.UpdatedAt) {
		e.UpdatedAt = now
	}
}

// MarkSynced records a successful push of this exact version.
func (e *Envelope) MarkSynced(now time.Time) {
	t := now.UTC()
	e.SyncedAt = &t
}
