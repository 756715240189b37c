package usecase

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
)

var seedFirstNames = []string{
	"Jean-Paul", "Marie", "Thomas", "Sarah", "Lucas", "Sophie", "Alain", "Emilie",
	"David", "Laura", "Marc", "Camille", "Nicolas", "Julie", "Eric", "Fatou",
	"Ahmed", "Lucie", "Pierre", "Monique",
}

var seedLastNames = []string{
	"Kamga", "Ngo Bakot", "Ebakisse", "Douala", "Muller", "Perrin", "Morin",
	"Rousseau", "Fontaine", "Guerin", "Dupont", "Durand", "Lefebvre", "Moreau",
	"Petit", "Roux", "Bernard", "Richard", "Garnier", "Faure",
}

// SeedSummary reports how much sandbox data was generated.
type SeedSummary struct {
	People     int `json:"people"`
	Activities int `json:"activities"`
	Attendance int `json:"attendance"`
}

// SeedService populates the local store with a sandbox dataset: cohorts of
// people with distinct attendance habits, four years of activities, and
// attendance for everything in the past. Refuses to run outside sandbox mode
// so it can never trample production data.
type SeedService struct {
	entities *EntityService
	audit    *AuditService
	registry *RegistryService
	log      zerolog.Logger
}

func NewSeedService(entities *EntityService, audit *AuditService, registry *RegistryService, log zerolog.Logger) *SeedService {
	return &SeedService{entities: entities, audit: audit, registry: registry, log: log}
}

func (s *SeedService) Seed(ctx context.Context, seed uint64) (SeedSummary, error) {
	mode, err := s.registry.Mode(ctx)
	if err != nil {
		return SeedSummary{}, err
	}
	if mode != domain.ModeSandbox {
		return SeedSummary{}, domain.ErrSandboxRequired
	}

	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, 0))
	now := time.Now().UTC()

	people, cohorts := seedPeople(rng, now)
	activities := seedActivities(now)
	attendance := seedAttendance(rng, activities, cohorts, now)

	if err := s.entities.SavePeople(ctx, people, nil); err != nil {
		return SeedSummary{}, fmt.Errorf("seed people: %w", err)
	}
	if err := s.entities.SaveActivities(ctx, activities, nil); err != nil {
		return SeedSummary{}, fmt.Errorf("seed activities: %w", err)
	}
	if err := s.entities.SaveAttendance(ctx, attendance, nil); err != nil {
		return SeedSummary{}, fmt.Errorf("seed attendance: %w", err)
	}

	deviceID, err := s.registry.DeviceID(ctx)
	if err != nil {
		return SeedSummary{}, err
	}
	bootstrap := []domain.AuditLogEntry{
		{
			ID: uuid.NewString(), Action: domain.AuditSeed, EntityType: "SYSTEM",
			EntityName: "Sandbox dataset generated", Timestamp: now,
			UserName: "Sandbox", UserEmail: "Unknown", DeviceID: deviceID,
		},
		{
			ID: uuid.NewString(), Action: domain.AuditLogin, EntityType: "SYSTEM",
			EntityName: "Sandbox session started", Timestamp: now,
			UserName: "Sandbox", UserEmail: "Unknown", DeviceID: deviceID,
		},
	}
	if err := s.audit.Replace(ctx, bootstrap); err != nil {
		return SeedSummary{}, fmt.Errorf("seed audit trail: %w", err)
	}

	summary := SeedSummary{People: len(people), Activities: len(activities), Attendance: len(attendance)}
	s.log.Info().
		Int("people", summary.People).
		Int("activities", summary.Activities).
		Int("attendance", summary.Attendance).
		Msg("sandbox dataset generated")
	return summary, nil
}

// cohorts groups the ids of active people by attendance habit.
type cohorts struct {
	pillars  []string
	atRisk   []string
	regulars []string
	recruits []string
}

func seedPeople(rng *rand.Rand, now time.Time) ([]domain.Person, cohorts) {
	const total = 120
	people := make([]domain.Person, 0, total)
	var c cohorts

	for i := 0; i < total; i++ {
		name := seedFirstNames[i%len(seedFirstNames)] + " " +
			seedLastNames[(i/len(seedFirstNames))%len(seedLastNames)]
		if i > 40 {
			name = fmt.Sprintf("%s (%d)", name, i)
		}

		status := domain.StatusMember
		if i >= total*3/4 {
			status = domain.StatusStudent
		}
		integration := "2023-01-01"
		if i >= 90 {
			integration = now.AddDate(0, -3, 0).Format("2006-01-02")
		}
		phone := ""
		if i < total*9/10 {
			phone = fmt.Sprintf("+237 6%08d", rng.IntN(90000000)+10000000)
		}

		p := domain.Person{
			Name:            name,
			Phone:           phone,
			Status:          status,
			DOB:             fmt.Sprintf("%04d-01-01", 1970+i%35),
			DateIntegration: integration,
			IsJRs:           rng.Float64() > 0.7,
			IsArchived:      i >= 110 && i < 115,
			IsDeleted:       i >= 115,
		}
		p.ID = uuid.NewString()
		p.Touch(now)
		if p.IsDeleted {
			t := now
			p.DeletedAt = &t
		}
		people = append(people, p)

		if p.Active() {
			switch {
			case i < 40:
				c.pillars = append(c.pillars, p.ID)
			case i < 55:
				c.atRisk = append(c.atRisk, p.ID)
			case i < 90:
				c.regulars = append(c.regulars, p.ID)
			default:
				c.recruits = append(c.recruits, p.ID)
			}
		}
	}
	return people, c
}

func seedActivities(now time.Time) []domain.Activity {
	years := []int{now.Year() - 3, now.Year() - 2, now.Year() - 1, now.Year()}
	var activities []domain.Activity
	for _, year := range years {
		for i := 1; i <= 18; i++ {
			month := min((i*2+2)/3, 12)
			day := 25
			if i%2 == 0 {
				day = 10
			}
			kind := domain.ActivityTypes[i%len(domain.ActivityTypes)]
			a := domain.Activity{
				Name: fmt.Sprintf("%s %d #%d", kind, year, i),
				Type: kind,
				Date: fmt.Sprintf("%04d-%02d-%02d", year, month, day),
			}
			a.ID = uuid.NewString()
			a.Touch(now)
			activities = append(activities, a)
		}
	}
	return activities
}

func seedAttendance(rng *rand.Rand, activities []domain.Activity, c cohorts, now time.Time) []domain.AttendanceRecord {
	pick := func(ids []string, chance float64, into []string) []string {
		for _, id := range ids {
			if rng.Float64() < chance {
				into = append(into, id)
			}
		}
		return into
	}

	var records []domain.AttendanceRecord
	for _, act := range activities {
		day := act.Day()
		if day.IsZero() || !day.Before(now) {
			continue
		}

		var attendees []string
		attendees = pick(c.pillars, 0.95, attendees)
		attendees = pick(c.regulars, 0.6, attendees)
		if day.Year() >= now.Year()-1 {
			attendees = pick(c.recruits, 0.7, attendees)
		} else {
			attendees = pick(c.atRisk, 0.8, attendees)
		}

		// Activities from the last month stay unlocked so the overdue
		// attendance alert has something to report.
		recent := day.After(now.AddDate(0, -1, 0))

		rec := domain.AttendanceRecord{
			ActivityID:   act.ID,
			ActivityName: act.Name,
			Date:         act.Date,
			PersonIDs:    attendees,
			Count:        len(attendees),
			IsLocked:     !recent,
		}
		rec.ID = uuid.NewString()
		rec.Touch(now)
		records = append(records, rec)
	}
	return records
}
