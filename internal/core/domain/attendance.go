package domain

import (
	"encoding/json"
	"fmt"
)

// AttendanceRecord captures who attended one activity (1:1 by ActivityID).
// Once IsLocked is set the attendee set is final; there is no unlock
// transition. The store itself does not enforce the lock, the calling layer
// must gate mutations before they reach Save.
type AttendanceRecord struct {
	Envelope
	ActivityID   string   `json:"activityId"`
	ActivityName string   `json:"activityName"`
	Date         string   `json:"date"`
	PersonIDs    []string `json:"personIds"`
	Count        int      `json:"count"`
	IsLocked     bool     `json:"isLocked"`

	Extensions map[string]json.RawMessage `json:"-"`
}

var attendanceKeys = keySet(append(envelopeKeys,
	"activityId", "activityName", "date", "personIds", "count", "isLocked")...)

func (r AttendanceRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: attendance record without id", ErrValidation)
	}
	if r.ActivityID == "" {
		return fmt.Errorf("%w: attendance %s: activityId is required", ErrValidation, r.ID)
	}
	if r.Count != len(r.PersonIDs) {
		return fmt.Errorf("%w: attendance %s: count %d does not match %d attendees",
			ErrValidation, r.ID, r.Count, len(r.PersonIDs))
	}
	seen := make(map[string]struct{}, len(r.PersonIDs))
	for _, id := range r.PersonIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: attendance %s: duplicate attendee %s", ErrValidation, r.ID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// SameAttendees reports whether both records carry the same attendee set,
// regardless of order.
func (r AttendanceRecord) SameAttendees(other AttendanceRecord) bool {
	if len(r.PersonIDs) != len(other.PersonIDs) {
		return false
	}
	set := make(map[string]struct{}, len(r.PersonIDs))
	for _, id := range r.PersonIDs {
		set[id] = struct{}{}
	}
	for _, id := range other.PersonIDs {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

func (r AttendanceRecord) MarshalJSON() ([]byte, error) {
	type alias AttendanceRecord
	return marshalWithExtensions(alias(r), r.Extensions)
}

func (r *AttendanceRecord) UnmarshalJSON(data []byte) error {
	type alias AttendanceRecord
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	ext, err := unmarshalExtensions(data, attendanceKeys)
	if err != nil {
		return err
	}
	*r = AttendanceRecord(a)
	r.Extensions = ext
	return nil
}
