package usecase

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
)

const (
	// vitalityWindow is how many recent activities feed the score.
	vitalityWindow = 10
	// trendWindow is how many sessions each side of the forecast compares.
	trendWindow = 3
	// DefaultMissWindow is the consecutive-miss count that flags a member
	// as at risk when the caller does not pick one.
	DefaultMissWindow = 3
)

// IntelligenceService derives attendance analytics from the stored
// collections: a vitality ranking over the most recent activities and the
// members absent from every one of the last few gatherings. It only reads;
// nothing here mutates state.
type IntelligenceService struct {
	entities *EntityService
	log      zerolog.Logger
}

func NewIntelligenceService(entities *EntityService, log zerolog.Logger) *IntelligenceService {
	return &IntelligenceService{entities: entities, log: log}
}

// VitalityRankings scores every active person by presence across the last
// vitalityWindow activities held on or before now, highest score first. The
// forecast compares the latest trendWindow sessions against the trendWindow
// before them.
func (s *IntelligenceService) VitalityRankings(ctx context.Context, now time.Time) ([]domain.VitalityRanking, error) {
	people, activities, attendance, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return vitalityRankings(people, activities, attendance, now), nil
}

// AtRiskMembers returns the active people present at none of the last misses
// activities held on or before now. With fewer than misses held activities
// there is not enough history to call anyone at risk, so the list is empty.
func (s *IntelligenceService) AtRiskMembers(ctx context.Context, now time.Time, misses int) ([]domain.Person, error) {
	if misses <= 0 {
		misses = DefaultMissWindow
	}
	people, activities, attendance, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return atRiskMembers(people, activities, attendance, now, misses), nil
}

func (s *IntelligenceService) load(ctx context.Context) ([]domain.Person, []domain.Activity, []domain.AttendanceRecord, error) {
	people, err := s.entities.People(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	activities, err := s.entities.Activities(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	attendance, err := s.entities.Attendance(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return people, activities, attendance, nil
}

// recentActivityIDs lists held activities newest first, capped at limit.
// Deleted activities, future dates, and unparseable dates are skipped.
func recentActivityIDs(activities []domain.Activity, now time.Time, limit int) []string {
	var held []domain.Activity
	for _, a := range activities {
		if a.IsDeleted {
			continue
		}
		day := a.Day()
		if day.IsZero() || day.After(now) {
			continue
		}
		held = append(held, a)
	}
	sort.SliceStable(held, func(i, j int) bool {
		return held[i].Day().After(held[j].Day())
	})
	if len(held) > limit {
		held = held[:limit]
	}
	ids := make([]string, len(held))
	for i, a := range held {
		ids[i] = a.ID
	}
	return ids
}

func vitalityRankings(people []domain.Person, activities []domain.Activity, attendance []domain.AttendanceRecord, now time.Time) []domain.VitalityRanking {
	recent := recentActivityIDs(activities, now, vitalityWindow)

	recentSet := idSet(recent)
	latest := idSet(idRange(recent, 0, trendWindow))
	previous := idSet(idRange(recent, trendWindow, 2*trendWindow))
	trendKnown := len(latest) > 0 && len(previous) > 0

	var rankings []domain.VitalityRanking
	for _, p := range people {
		if !p.Active() {
			continue
		}
		var total, recentCount, latestCount, previousCount int
		for _, rec := range attendance {
			if !slices.Contains(rec.PersonIDs, p.ID) {
				continue
			}
			total++
			if _, ok := recentSet[rec.ActivityID]; ok {
				recentCount++
			}
			if _, ok := latest[rec.ActivityID]; ok {
				latestCount++
			}
			if _, ok := previous[rec.ActivityID]; ok {
				previousCount++
			}
		}

		divisor := len(recent)
		if divisor == 0 {
			divisor = 1
		}
		rankings = append(rankings, domain.VitalityRanking{
			Person:          p,
			AttendanceCount: total,
			Score:           float64(recentCount) / float64(divisor),
			Forecast:        forecastTrend(latestCount, previousCount, trendKnown),
		})
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].Score > rankings[j].Score
	})
	return rankings
}

// forecastTrend compares the latest sessions against the ones before.
// Vanishing or shrinking presence reads as a drop risk; without both windows
// the trend is unknowable and stays stable.
func forecastTrend(latest, previous int, trendKnown bool) domain.Forecast {
	if !trendKnown {
		return domain.ForecastStable
	}
	switch {
	case latest == 0 && previous > 0:
		return domain.ForecastDropRisk
	case latest > previous:
		return domain.ForecastGrowing
	case latest < previous && latest > 0:
		return domain.ForecastDropRisk
	default:
		return domain.ForecastStable
	}
}

func atRiskMembers(people []domain.Person, activities []domain.Activity, attendance []domain.AttendanceRecord, now time.Time, misses int) []domain.Person {
	recent := recentActivityIDs(activities, now, misses)
	if len(recent) < misses {
		return nil
	}
	recentSet := idSet(recent)

	present := make(map[string]struct{})
	for _, rec := range attendance {
		if _, ok := recentSet[rec.ActivityID]; !ok {
			continue
		}
		for _, id := range rec.PersonIDs {
			present[id] = struct{}{}
		}
	}

	var atRisk []domain.Person
	for _, p := range people {
		if !p.Active() {
			continue
		}
		if _, ok := present[p.ID]; !ok {
			atRisk = append(atRisk, p)
		}
	}
	return atRisk
}

func idRange(ids []string, from, to int) []string {
	if from > len(ids) {
		from = len(ids)
	}
	if to > len(ids) {
		to = len(ids)
	}
	return ids[from:to]
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
