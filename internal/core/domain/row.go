package domain

import (
	"encoding/json"
	"time"
)

// Row is the wire form of one record: a flat JSON object keyed by the local
// camelCase field names. Every entity round-trips losslessly through its Row,
// which lets the sync engine reconcile all four collections with one code path.
type Row map[string]json.RawMessage

func (r Row) ID() string {
	return r.stringField("id")
}

// UpdatedAt reads the record's mutation timestamp. Audit entries carry it as
// "timestamp" since they are never updated after creation.
func (r Row) UpdatedAt() time.Time {
	if t, ok := r.timeField("updatedAt"); ok {
		return t
	}
	if t, ok := r.timeField("timestamp"); ok {
		return t
	}
	return time.Time{}
}

func (r Row) SyncedAt() (time.Time, bool) {
	return r.timeField("syncedAt")
}

// Dirty mirrors Envelope.Dirty for wire-form records.
func (r Row) Dirty() bool {
	synced, ok := r.SyncedAt()
	if !ok {
		return true
	}
	return r.UpdatedAt().After(synced)
}

func (r Row) SetSyncedAt(t time.Time) {
	raw, err := json.Marshal(t.UTC())
	if err != nil {
		return
	}
	r["syncedAt"] = raw
}

// Clone returns a shallow copy; the values are immutable raw messages.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (r Row) stringField(key string) string {
	raw, ok := r[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func (r Row) timeField(key string) (time.Time, bool) {
	s := r.stringField(key)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MaxUpdatedAt returns the newest mutation timestamp across rows, used as the
// first-run pull cutoff before a collection has a stored watermark.
func MaxUpdatedAt(rows []Row) time.Time {
	var max time.Time
	for _, row := range rows {
		if at := row.UpdatedAt(); at.After(max) {
			max = at
		}
	}
	return max
}
