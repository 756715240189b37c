package domain

// Collection names one of the four persisted logs. The string value doubles
// as the local file stem (db/<collection>.json) and the remote table name.
type Collection string

const (
	CollectionPeople     Collection = "people"
	CollectionActivities Collection = "activities"
	CollectionAttendance Collection = "attendance"
	CollectionAuditLogs  Collection = "audit_logs"
)

// Collections lists every synchronized collection in sync order.
func Collections() []Collection {
	return []Collection{CollectionPeople, CollectionActivities, CollectionAttendance, CollectionAuditLogs}
}

func ValidateCollection(c Collection) error {
	switch c {
	case CollectionPeople, CollectionActivities, CollectionAttendance, CollectionAuditLogs:
		return nil
	}
	return ErrInvalidCollection
}

// EntityType returns the audit-trail entity label for a collection.
func (c Collection) EntityType() string {
	switch c {
	case CollectionPeople:
		return "PERSON"
	case CollectionActivities:
		return "ACTIVITY"
	case CollectionAttendance:
		return "ATTENDANCE"
	case CollectionAuditLogs:
		return "AUDIT"
	}
	return "UNKNOWN"
}

// CursorField returns the local name of the timestamp column used as the
// pull watermark predicate. Audit entries are immutable, so their creation
// timestamp is the cursor.
func (c Collection) CursorField() string {
	if c == CollectionAuditLogs {
		return "timestamp"
	}
	return "updatedAt"
}
