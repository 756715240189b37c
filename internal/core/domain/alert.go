package domain

// AlertKind names a computed notification condition. The core computes the
// condition, the UI layer owns its presentation.
type AlertKind string

const (
	AlertBirthday            AlertKind = "birthday"
	AlertUnfinalizedActivity AlertKind = "unfinalized_attendance"
)

type Alert struct {
	Kind  AlertKind `json:"kind"`
	Title string    `json:"title"`
	Body  string    `json:"body"`
	// IDs of the records the condition was derived from.
	SubjectIDs []string `json:"subjectIds,omitempty"`
}
