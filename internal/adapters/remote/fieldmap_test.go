package remote

import (
	"encoding/json"
	"testing"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
)

func TestFieldMapRoundTrip(t *testing.T) {
	local := domain.Row{
		"id":          json.RawMessage(`"p1"`),
		"isJRs":       json.RawMessage(`true`),
		"updatedAt":   json.RawMessage(`"2024-06-01T10:00:00Z"`),
		"customField": json.RawMessage(`7`),
	}

	remote := toRemoteRow(domain.CollectionPeople, local)
	for _, key := range []string{"id", "is_jrs", "updated_at", "custom_field"} {
		if _, ok := remote[key]; !ok {
			t.Fatalf("expected remote key %q, got %v", key, remote)
		}
	}
	if _, ok := remote["isJRs"]; ok {
		t.Fatal("expected no camelCase keys on the wire")
	}

	back := toLocalRow(domain.CollectionPeople, remote)
	for _, key := range []string{"id", "isJRs", "updatedAt", "customField"} {
		if _, ok := back[key]; !ok {
			t.Fatalf("expected local key %q after round trip, got %v", key, back)
		}
	}
}

func TestFieldMapPerCollection(t *testing.T) {
	row := domain.Row{"activityId": json.RawMessage(`"a1"`), "personIds": json.RawMessage(`["p1"]`)}
	out := toRemoteRow(domain.CollectionAttendance, row)
	if _, ok := out["activity_id"]; !ok {
		t.Fatalf("expected activity_id, got %v", out)
	}
	if _, ok := out["person_ids"]; !ok {
		t.Fatalf("expected person_ids, got %v", out)
	}
}

func TestCursorColumn(t *testing.T) {
	if got := cursorColumn(domain.CollectionPeople); got != "updated_at" {
		t.Fatalf("expected updated_at, got %q", got)
	}
	if got := cursorColumn(domain.CollectionAuditLogs); got != "timestamp" {
		t.Fatalf("expected timestamp for audit entries, got %q", got)
	}
}

func TestCaseConversionFallback(t *testing.T) {
	if got := camelToSnake("someNewField"); got != "some_new_field" {
		t.Fatalf("camelToSnake: got %q", got)
	}
	if got := snakeToCamel("some_new_field"); got != "someNewField" {
		t.Fatalf("snakeToCamel: got %q", got)
	}
	if got := snakeToCamel("plain"); got != "plain" {
		t.Fatalf("snakeToCamel identity: got %q", got)
	}
}
