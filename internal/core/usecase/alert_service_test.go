package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
)

type stubNotifier struct {
	mu     sync.Mutex
	alerts []domain.Alert
}

func (n *stubNotifier) Notify(_ context.Context, alert domain.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return nil
}

func newAlertFixture(t *testing.T) (*AlertService, *EntityService, *stubNotifier) {
	t.Helper()
	entities, _ := newEntityFixture(t)
	notifier := &stubNotifier{}
	return NewAlertService(entities, notifier, zerolog.Nop()), entities, notifier
}

func TestBirthdayAlert(t *testing.T) {
	alerts, entities, notifier := newAlertFixture(t)
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

	birthday := domain.Person{Name: "Marie Douala", DOB: "1990-06-15"}
	birthday.ID = "p1"
	birthday.Touch(now)
	archived := domain.Person{Name: "Eric Roux", DOB: "1985-06-15", IsArchived: true}
	archived.ID = "p2"
	archived.Touch(now)
	other := domain.Person{Name: "Lucie Faure", DOB: "1990-01-02"}
	other.ID = "p3"
	other.Touch(now)

	people := []domain.Person{birthday, archived, other}
	if err := entities.SavePeople(context.Background(), people, nil); err != nil {
		t.Fatalf("save people: %v", err)
	}

	got, err := alerts.Check(context.Background(), now)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(got) != 1 || got[0].Kind != domain.AlertBirthday {
		t.Fatalf("expected one birthday alert, got %+v", got)
	}
	if len(got[0].SubjectIDs) != 1 || got[0].SubjectIDs[0] != "p1" {
		t.Fatalf("expected only the active birthday person, got %v", got[0].SubjectIDs)
	}
	if len(notifier.alerts) != 1 {
		t.Fatalf("expected notifier fired once, got %d", len(notifier.alerts))
	}
}

func TestUnfinalizedAttendanceAlert(t *testing.T) {
	alerts, entities, _ := newAlertFixture(t)
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

	past := domain.Activity{Name: "Meeting May", Date: "2024-05-25"}
	past.ID = "a1"
	past.Touch(now)
	finalized := domain.Activity{Name: "Meeting April", Date: "2024-04-25"}
	finalized.ID = "a2"
	finalized.Touch(now)
	future := domain.Activity{Name: "Meeting July", Date: "2024-07-25"}
	future.ID = "a3"
	future.Touch(now)

	if err := entities.SaveActivities(context.Background(), []domain.Activity{past, finalized, future}, nil); err != nil {
		t.Fatalf("save activities: %v", err)
	}

	locked := domain.AttendanceRecord{ActivityID: "a2", PersonIDs: []string{"p1"}, Count: 1, IsLocked: true}
	locked.ID = "att2"
	locked.Touch(now)
	if err := entities.SaveAttendance(context.Background(), []domain.AttendanceRecord{locked}, nil); err != nil {
		t.Fatalf("save attendance: %v", err)
	}

	got, err := alerts.Check(context.Background(), now)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(got) != 1 || got[0].Kind != domain.AlertUnfinalizedActivity {
		t.Fatalf("expected one unfinalized-attendance alert, got %+v", got)
	}
	if len(got[0].SubjectIDs) != 1 || got[0].SubjectIDs[0] != "a1" {
		t.Fatalf("expected only the past unlocked activity, got %v", got[0].SubjectIDs)
	}
}

func TestNoAlertsOnQuietDay(t *testing.T) {
	alerts, _, notifier := newAlertFixture(t)

	got, err := alerts.Check(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(got) != 0 || len(notifier.alerts) != 0 {
		t.Fatalf("expected no alerts on empty data, got %+v", got)
	}
}
