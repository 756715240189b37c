package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	ActivityMonthlyMeeting = "MONTHLY_MEETING"
	ActivityConference     = "CONFERENCE"
	ActivityJuniorService  = "JUNIOR_SERVICE"
	ActivitySocial         = "SOCIAL"
	ActivityOpenDay        = "OPEN_DAY"
	ActivityOther          = "OTHER"
)

// ActivityTypes is the fixed category enumeration.
var ActivityTypes = []string{
	ActivityMonthlyMeeting,
	ActivityConference,
	ActivityJuniorService,
	ActivitySocial,
	ActivityOpenDay,
	ActivityOther,
}

// Activity is a dated community event. Date is a calendar day, not an instant.
type Activity struct {
	Envelope
	Name      string     `json:"name"`
	Date      string     `json:"date"`
	Type      string     `json:"type"`
	Notes     string     `json:"notes"`
	IsDeleted bool       `json:"isDeleted"`
	DeletedAt *time.Time `json:"deletedAt"`

	Extensions map[string]json.RawMessage `json:"-"`
}

var activityKeys = keySet(append(envelopeKeys,
	"name", "date", "type", "notes", "isDeleted", "deletedAt")...)

func (a Activity) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("%w: activity without id", ErrValidation)
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: activity %s: name is required", ErrValidation, a.ID)
	}
	return nil
}

// Day parses the activity date. The zero time means the date is absent or unparseable.
func (a Activity) Day() time.Time {
	t, err := time.Parse("2006-01-02", a.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (a Activity) MarshalJSON() ([]byte, error) {
	type alias Activity
	return marshalWithExtensions(alias(a), a.Extensions)
}

func (a *Activity) UnmarshalJSON(data []byte) error {
	type alias Activity
	var al alias
	if err := json.Unmarshal(data, &al); err != nil {
		return err
	}
	ext, err := unmarshalExtensions(data, activityKeys)
	if err != nil {
		return err
	}
	*a = Activity(al)
	a.Extensions = ext
	return nil
}
