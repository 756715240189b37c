package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
	"github.com/atvirokodosprendimai/rostersync/internal/core/ports"
)

// AlertService computes the notification conditions: birthdays falling on the
// given day and past activities whose attendance was never finalized. The
// notifier and the HTTP surface own presentation; this service only decides
// whether a condition holds.
type AlertService struct {
	entities *EntityService
	notifier ports.Notifier
	log      zerolog.Logger
}

func NewAlertService(entities *EntityService, notifier ports.Notifier, log zerolog.Logger) *AlertService {
	return &AlertService{entities: entities, notifier: notifier, log: log}
}

// Check evaluates every condition against now and fires the notifier for
// each alert. Notifier failures are logged, never propagated.
func (s *AlertService) Check(ctx context.Context, now time.Time) ([]domain.Alert, error) {
	people, err := s.entities.People(ctx)
	if err != nil {
		return nil, err
	}
	activities, err := s.entities.Activities(ctx)
	if err != nil {
		return nil, err
	}
	attendance, err := s.entities.Attendance(ctx)
	if err != nil {
		return nil, err
	}

	var alerts []domain.Alert
	if a, ok := birthdayAlert(people, now); ok {
		alerts = append(alerts, a)
	}
	if a, ok := unfinalizedAlert(activities, attendance, now); ok {
		alerts = append(alerts, a)
	}

	if s.notifier != nil {
		for _, a := range alerts {
			if err := s.notifier.Notify(ctx, a); err != nil {
				s.log.Warn().Err(err).Str("kind", string(a.Kind)).Msg("notifier failed")
			}
		}
	}
	return alerts, nil
}

func birthdayAlert(people []domain.Person, now time.Time) (domain.Alert, bool) {
	var names []string
	var ids []string
	for _, p := range people {
		if !p.Active() || p.DOB == "" {
			continue
		}
		dob, err := time.Parse("2006-01-02", p.DOB)
		if err != nil {
			continue
		}
		if dob.Month() == now.Month() && dob.Day() == now.Day() {
			names = append(names, p.Name)
			ids = append(ids, p.ID)
		}
	}
	if len(names) == 0 {
		return domain.Alert{}, false
	}
	return domain.Alert{
		Kind:       domain.AlertBirthday,
		Title:      "Birthday today",
		Body:       fmt.Sprintf("Today is the birthday of: %s.", strings.Join(names, ", ")),
		SubjectIDs: ids,
	}, true
}

func unfinalizedAlert(activities []domain.Activity, attendance []domain.AttendanceRecord, now time.Time) (domain.Alert, bool) {
	locked := make(map[string]bool, len(attendance))
	for _, rec := range attendance {
		if rec.IsLocked {
			locked[rec.ActivityID] = true
		}
	}

	var ids []string
	for _, a := range activities {
		if a.IsDeleted {
			continue
		}
		day := a.Day()
		if day.IsZero() || !day.Before(now) {
			continue
		}
		if !locked[a.ID] {
			ids = append(ids, a.ID)
		}
	}
	if len(ids) == 0 {
		return domain.Alert{}, false
	}
	noun := "activities"
	if len(ids) == 1 {
		noun = "activity"
	}
	return domain.Alert{
		Kind:       domain.AlertUnfinalizedActivity,
		Title:      "Attendance not finalized",
		Body:       fmt.Sprintf("%d past %s still have unlocked attendance.", len(ids), noun),
		SubjectIDs: ids,
	}, true
}
