package domain

import (
	"testing"
	"time"
)

func TestEnvelopeDirty(t *testing.T) {
	now := time.Now().UTC()

	var e Envelope
	e.Touch(now)
	if !e.Dirty() {
		t.Fatal("expected never-pushed record to be dirty")
	}

	e.MarkSynced(now)
	if e.Dirty() {
		t.Fatal("expected record to be clean after push of this version")
	}

	e.Touch(now.Add(time.Second))
	if !e.Dirty() {
		t.Fatal("expected record mutated after push to be dirty")
	}
}

func TestEnvelopeTouchNeverRewinds(t *testing.T) {
	now := time.Now().UTC()

	var e Envelope
	e.Touch(now)
	e.Touch(now.Add(-time.Hour))
	if !e.UpdatedAt.Equal(now) {
		t.Fatalf("expected updatedAt to stay at %v, got %v", now, e.UpdatedAt)
	}
}

func TestRowDirty(t *testing.T) {
	row := Row{
		"id":        []byte(`"a"`),
		"updatedAt": []byte(`"2024-06-01T10:00:00Z"`),
	}
	if !row.Dirty() {
		t.Fatal("expected row without syncedAt to be dirty")
	}

	row.SetSyncedAt(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	if row.Dirty() {
		t.Fatal("expected row synced at its own timestamp to be clean")
	}

	row["updatedAt"] = []byte(`"2024-06-01T11:00:00Z"`)
	if !row.Dirty() {
		t.Fatal("expected row updated after sync to be dirty")
	}
}

func TestRowUpdatedAtFallsBackToTimestamp(t *testing.T) {
	row := Row{
		"id":        []byte(`"a"`),
		"timestamp": []byte(`"2024-06-01T10:00:00Z"`),
	}
	want := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	if !row.UpdatedAt().Equal(want) {
		t.Fatalf("expected %v, got %v", want, row.UpdatedAt())
	}
}

func TestMaxUpdatedAt(t *testing.T) {
	rows := []Row{
		{"id": []byte(`"a"`), "updatedAt": []byte(`"2024-06-01T10:00:00Z"`)},
		{"id": []byte(`"b"`), "updatedAt": []byte(`"2024-06-03T10:00:00Z"`)},
		{"id": []byte(`"c"`), "updatedAt": []byte(`"2024-06-02T10:00:00Z"`)},
	}
	want := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	if got := MaxUpdatedAt(rows); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got := MaxUpdatedAt(nil); !got.IsZero() {
		t.Fatalf("expected zero time for empty input, got %v", got)
	}
}
