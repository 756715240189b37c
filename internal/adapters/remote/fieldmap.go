package remote

import (
	"strings"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
)

// Field-name translation between the local camelCase representation and the
// remote snake_case schema is an explicit per-collection table, not a regex.
// Every persisted field appears here; keys the tables don't know (extension
// fields from newer app versions) fall back to mechanical case conversion in
// both directions.

var localToRemoteFields = map[domain.Collection]map[string]string{
	domain.CollectionPeople: {
		"id":              "id",
		"name":            "name",
		"phone":           "phone",
		"status":          "status",
		"dob":             "dob",
		"dateIntegration": "date_integration",
		"dateDeparture":   "date_departure",
		"isJRs":           "is_jrs",
		"image":           "image",
		"isArchived":      "is_archived",
		"isDeleted":       "is_deleted",
		"deletedAt":       "deleted_at",
		"updatedAt":       "updated_at",
		"syncedAt":        "synced_at",
	},
	domain.CollectionActivities: {
		"id":        "id",
		"name":      "name",
		"date":      "date",
		"type":      "type",
		"notes":     "notes",
		"isDeleted": "is_deleted",
		"deletedAt": "deleted_at",
		"updatedAt": "updated_at",
		"syncedAt":  "synced_at",
	},
	domain.CollectionAttendance: {
		"id":           "id",
		"activityId":   "activity_id",
		"activityName": "activity_name",
		"date":         "date",
		"personIds":    "person_ids",
		"count":        "count",
		"isLocked":     "is_locked",
		"updatedAt":    "updated_at",
		"syncedAt":     "synced_at",
	},
	domain.CollectionAuditLogs: {
		"id":         "id",
		"action":     "action",
		"entityType": "entity_type",
		"entityName": "entity_name",
		"timestamp":  "timestamp",
		"userName":   "user_name",
		"userEmail":  "user_email",
		"deviceId":   "device_id",
		"syncedAt":   "synced_at",
	},
}

var remoteToLocalFields = invertFieldMaps(localToRemoteFields)

func invertFieldMaps(in map[domain.Collection]map[string]string) map[domain.Collection]map[string]string {
	out := make(map[domain.Collection]map[string]string, len(in))
	for c, fields := range in {
		inv := make(map[string]string, len(fields))
		for local, remote := range fields {
			inv[remote] = local
		}
		out[c] = inv
	}
	return out
}

// cursorColumn is the remote column the pull predicate filters on. Audit
// entries are immutable, so their creation timestamp is the cursor.
func cursorColumn(c domain.Collection) string {
	if c == domain.CollectionAuditLogs {
		return "timestamp"
	}
	return "updated_at"
}

func toRemoteRow(c domain.Collection, row domain.Row) domain.Row {
	table := localToRemoteFields[c]
	out := make(domain.Row, len(row))
	for key, value := range row {
		if mapped, ok := table[key]; ok {
			out[mapped] = value
			continue
		}
		out[camelToSnake(key)] = value
	}
	return out
}

func toLocalRow(c domain.Collection, row domain.Row) domain.Row {
	table := remoteToLocalFields[c]
	out := make(domain.Row, len(row))
	for key, value := range row {
		if mapped, ok := table[key]; ok {
			out[mapped] = value
			continue
		}
		out[snakeToCamel(key)] = value
	}
	return out
}

func camelToSnake(key string) string {
	var b strings.Builder
	for _, r := range key {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func snakeToCamel(key string) string {
	parts := strings.Split(key, "_")
	var b strings.Builder
	for i, part := range parts {
		if i == 0 || part == "" {
			b.WriteString(part)
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
