package analytics

import (
	"transitperf.dev/internal/schedule"
	"transitperf.dev/metricsdb"
)

// TimePeriod is a named slice of the service day. Hours are [Start, End).
type TimePeriod struct {
	Name      string
	StartHour int
	EndHour   int
}

// Contains reports whether a wall-clock hour falls inside the period.
func (p TimePeriod) Contains(hour int) bool {
	return hour >= p.StartHour && hour < p.EndHour
}

// DefaultTimePeriods covers the full day with standard transit analysis
// windows.
var DefaultTimePeriods = []TimePeriod{
	{Name: "AM Peak", StartHour: 6, EndHour: 9},
	{Name: "Midday", StartHour: 9, EndHour: 15},
	{Name: "PM Peak", StartHour: 15, EndHour: 19},
	{Name: "Evening", StartHour: 19, EndHour: 24},
	{Name: "Night", StartHour: 0, EndHour: 6},
}

// PeriodOTP is an OTP breakdown for one time period.
type PeriodOTP struct {
	Period TimePeriod
	OTP    OTPResult
}

// EstimateByPeriod computes OTP per time period. Reconciliation and
// deduplication run once over all positions; only the classification is
// bucketed, so a passage near a period boundary lands in exactly one period.
// A nil periods slice means DefaultTimePeriods.
func (e *ScheduleEstimator) EstimateByPeriod(rs *schedule.RouteSchedule, exceptions *schedule.ExceptionIndex, positions []metricsdb.VehiclePosition, periods []TimePeriod) ([]PeriodOTP, error) {
	if periods == nil {
		periods = DefaultTimePeriods
	}

	passages, _ := e.collectPassages(rs, exceptions, positions)
	deduped := Deduplicate(passages)

	buckets := make([][]Passage, len(periods))
	for _, p := range deduped {
		hour := p.Timestamp.Hour()
		for i, period := range periods {
			if period.Contains(hour) {
				buckets[i] = append(buckets[i], p)
				break
			}
		}
	}

	results := make([]PeriodOTP, 0, len(periods))
	for i, period := range periods {
		result := e.newResult(rs.RouteID, observationCounts{total: len(buckets[i])})
		e.classify(&result, buckets[i])
		results = append(results, PeriodOTP{Period: period, OTP: result})
	}
	return results, nil
}
