package domain

// Forecast names the attendance trend projected for one person.
type Forecast string

const (
	ForecastDropRisk Forecast = "Drop Risk"
	ForecastGrowing  Forecast = "Growing"
	ForecastStable   Forecast = "Stable"
)

// VitalityRanking scores one active person against the most recent
// activities. Score is the fraction of those activities the person attended.
type VitalityRanking struct {
	Person          Person   `json:"person"`
	AttendanceCount int      `json:"attendanceCount"`
	Score           float64  `json:"score"`
	Forecast        Forecast `json:"forecast"`
}
