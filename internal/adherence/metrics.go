package adherence

import (
	"math"
	"sort"
	"time"

	"github.com/gmsas95/meditrack/internal/medicine"
)

// DailyMetrics tallies one day's doses by outcome.
type DailyMetrics struct {
	Date          string `json:"date"`
	Taken         int    `json:"taken"`
	Skipped       int    `json:"skipped"`
	Missed        int    `json:"missed"`
	Upcoming      int    `json:"upcoming"`
	AdherenceRate int    `json:"adherence_rate"` // taken / (taken+skipped+missed), percent
}

// Scheduled returns the total number of doses expected on the day.
func (d DailyMetrics) Scheduled() int {
	return d.Taken + d.Skipped + d.Missed + d.Upcoming
}

// Perfect reports whether every scheduled dose was taken. Days with
// nothing scheduled are never perfect.
func (d DailyMetrics) Perfect() bool {
	scheduled := d.Scheduled()
	return scheduled > 0 && d.Taken == scheduled
}

// Daily computes the day's tallies and adherence rate. Upcoming doses
// stay out of the rate denominator.
func Daily(meds []*medicine.Medicine, intakes []*medicine.Intake, dateISO string, now time.Time) DailyMetrics {
	metrics := DailyMetrics{Date: dateISO}
	for _, dose := range BuildExpected(meds, intakes, dateISO) {
		switch Classify(dose, now) {
		case DoseTaken:
			metrics.Taken++
		case DoseSkipped:
			metrics.Skipped++
		case DoseMissed:
			metrics.Missed++
		case DoseUpcoming:
			metrics.Upcoming++
		}
	}
	metrics.AdherenceRate = rate(metrics.Taken, metrics.Taken+metrics.Skipped+metrics.Missed)
	return metrics
}

// Series computes daily metrics for the last n days, oldest first.
func Series(meds []*medicine.Medicine, intakes []*medicine.Intake, days int, now time.Time) []DailyMetrics {
	dates := medicine.DatesBackwards(days, now)
	series := make([]DailyMetrics, 0, len(dates))
	for _, d := range dates {
		series = append(series, Daily(meds, intakes, d, now))
	}
	return series
}

// MedicineAdherence is one medicine's adherence over a window.
type MedicineAdherence struct {
	Medicine *medicine.Medicine `json:"medicine"`
	Taken    int                `json:"taken"`
	Total    int                `json:"total"`
	Rate     int                `json:"rate"`
}

// PerMedicine computes adherence per medicine over the last n days,
// best first. Future dates are excluded from both the numerator and the
// denominator; taken and delayed intakes both count as taken.
func PerMedicine(meds []*medicine.Medicine, intakes []*medicine.Intake, days int, now time.Time) []MedicineAdherence {
	todayISO := medicine.DateISO(now)
	dates := medicine.DatesBackwards(days, now)

	byDose := make(map[doseKey]*medicine.Intake, len(intakes))
	for _, in := range intakes {
		byDose[doseKey{in.MedicineID, in.Date, in.ScheduledTime}] = in
	}

	result := make([]MedicineAdherence, 0, len(meds))
	for _, med := range meds {
		entry := MedicineAdherence{Medicine: med}
		for _, d := range dates {
			if d > todayISO || !medicine.ActiveOn(med, d) {
				continue
			}
			for _, t := range medicine.Times(med) {
				entry.Total++
				if in := byDose[doseKey{med.ID, d, t}]; in != nil {
					if in.Status == medicine.StatusTaken || in.Status == medicine.StatusDelayed {
						entry.Taken++
					}
				}
			}
		}
		entry.Rate = rate(entry.Taken, entry.Total)
		result = append(result, entry)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Rate > result[j].Rate
	})
	return result
}

// Totals aggregates a series into overall counts.
type Totals struct {
	Taken         int `json:"taken"`
	Skipped       int `json:"skipped"`
	Missed        int `json:"missed"`
	AdherenceRate int `json:"adherence_rate"`
}

// Overall sums a daily series into window-wide totals and rate.
func Overall(series []DailyMetrics) Totals {
	var t Totals
	for _, d := range series {
		t.Taken += d.Taken
		t.Skipped += d.Skipped
		t.Missed += d.Missed
	}
	t.AdherenceRate = rate(t.Taken, t.Taken+t.Skipped+t.Missed)
	return t
}

// Streak counts consecutive perfect days ending at today, scanning at
// most n days back. A day with nothing scheduled breaks the streak.
func Streak(meds []*medicine.Medicine, intakes []*medicine.Intake, days int, now time.Time) int {
	series := Series(meds, intakes, days, now)
	streak := 0
	for i := len(series) - 1; i >= 0; i-- {
		if !series[i].Perfect() {
			break
		}
		streak++
	}
	return streak
}

// PerfectDays counts days in the window where every scheduled dose was
// taken.
func PerfectDays(meds []*medicine.Medicine, intakes []*medicine.Intake, days int, now time.Time) int {
	count := 0
	for _, d := range Series(meds, intakes, days, now) {
		if d.Perfect() {
			count++
		}
	}
	return count
}

// rate is round(100 * taken / total), 0 when nothing was due.
func rate(taken, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(taken) / float64(total) * 100))
}
