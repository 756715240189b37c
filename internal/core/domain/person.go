package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	StatusMember  = "Member"
	StatusStudent = "Student"
)

// PersonStatuses is the fixed status enumeration.
var PersonStatuses = []string{StatusMember, StatusStudent}

// Person is a tracked community member. Deletion is logical: IsDeleted
// tombstones the record, IsArchived hides it from active rosters while
// keeping it in every view that asks for history.
type Person struct {
	Envelope
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	Status          string     `json:"status"`
	DOB             string     `json:"dob"`
	DateIntegration string     `json:"dateIntegration"`
	DateDeparture   string     `json:"dateDeparture"`
	IsJRs           bool       `json:"isJRs"`
	Image           string     `json:"image"`
	IsArchived      bool       `json:"isArchived"`
	IsDeleted       bool       `json:"isDeleted"`
	DeletedAt       *time.Time `json:"deletedAt"`

	Extensions map[string]json.RawMessage `json:"-"`
}

var personKeys = keySet(append(envelopeKeys,
	"name", "phone", "status", "dob", "dateIntegration", "dateDeparture",
	"isJRs", "image", "isArchived", "isDeleted", "deletedAt")...)

func (p Person) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: person without id", ErrValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: person %s: name is required", ErrValidation, p.ID)
	}
	if p.Status != "" && p.Status != StatusMember && p.Status != StatusStudent {
		return fmt.Errorf("%w: person %s: unknown status %q", ErrValidation, p.ID, p.Status)
	}
	return nil
}

// Active reports whether the person belongs on current rosters.
func (p Person) Active() bool {
	return !p.IsArchived && !p.IsDeleted
}

func (p Person) MarshalJSON() ([]byte, error) {
	type alias Person
	return marshalWithExtensions(alias(p), p.Extensions)
}

func (p *Person) UnmarshalJSON(data []byte) error {
	type alias Person
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	ext, err := unmarshalExtensions(data, personKeys)
	if err != nil {
		return err
	}
	*p = Person(a)
	p.Extensions = ext
	return nil
}
