// Package adherence computes dose timelines, adherence metrics, streaks,
// and stock projections from medicine schedules and recorded intakes.
// Every function is pure: the reference clock is always an explicit
// parameter and nothing here touches storage or logs.
package adherence

import (
	"sort"
	"time"

	"github.com/gmsas95/meditrack/internal/medicine"
)

// DoseState is the reconciled outcome of one expected dose.
type DoseState string

const (
	DoseTaken    DoseState = "taken"
	DoseSkipped  DoseState = "skipped"
	DoseMissed   DoseState = "missed"
	DoseUpcoming DoseState = "upcoming"
)

// ExpectedDose pairs a scheduled slot with whatever intake was recorded
// against it, if any.
type ExpectedDose struct {
	Medicine      *medicine.Medicine `json:"medicine"`
	MedicineID    string             `json:"medicine_id"`
	Date          string             `json:"date"`
	ScheduledTime string             `json:"scheduled_time"`
	Intake        *medicine.Intake   `json:"intake,omitempty"`
	State         DoseState          `json:"state"`
}

// BuildExpected expands every medicine active on the date into its dose
// slots and attaches recorded intakes by (medicine, date, time). The
// result is ordered by scheduled time, then medicine name for a stable
// timeline. States are left unset; call Classify or Daily for those.
func BuildExpected(meds []*medicine.Medicine, intakes []*medicine.Intake, dateISO string) []*ExpectedDose {
	byDose := make(map[doseKey]*medicine.Intake, len(intakes))
	for _, in := range intakes {
		byDose[doseKey{in.MedicineID, in.Date, in.ScheduledTime}] = in
	}

	var expected []*ExpectedDose
	for _, med := range meds {
		if !medicine.ActiveOn(med, dateISO) {
			continue
		}
		for _, t := range medicine.Times(med) {
			expected = append(expected, &ExpectedDose{
				Medicine:      med,
				MedicineID:    med.ID,
				Date:          dateISO,
				ScheduledTime: t,
				Intake:        byDose[doseKey{med.ID, dateISO, t}],
			})
		}
	}

	sort.SliceStable(expected, func(i, j int) bool {
		if expected[i].ScheduledTime != expected[j].ScheduledTime {
			return expected[i].ScheduledTime < expected[j].ScheduledTime
		}
		return expected[i].Medicine.Name < expected[j].Medicine.Name
	})
	return expected
}

type doseKey struct {
	medicineID string
	date       string
	time       string
}

// Classify resolves a single expected dose against the reference clock.
// A recorded delayed intake counts as taken; any recorded status that is
// neither taken nor delayed counts as skipped. Unrecorded doses are
// upcoming until their slot has passed, then missed.
func Classify(dose *ExpectedDose, now time.Time) DoseState {
	if dose.Intake != nil {
		switch dose.Intake.Status {
		case medicine.StatusTaken, medicine.StatusDelayed:
			return DoseTaken
		default:
			return DoseSkipped
		}
	}

	todayISO := medicine.DateISO(now)
	switch {
	case dose.Date > todayISO:
		return DoseUpcoming
	case dose.Date < todayISO:
		return DoseMissed
	default:
		// Same day: the dose is missed once its HH:MM has passed.
		if dose.ScheduledTime < now.Format("15:04") {
			return DoseMissed
		}
		return DoseUpcoming
	}
}

// Timeline returns the day's expected doses with states resolved,
// ready for display.
func Timeline(meds []*medicine.Medicine, intakes []*medicine.Intake, dateISO string, now time.Time) []*ExpectedDose {
	expected := BuildExpected(meds, intakes, dateISO)
	for _, dose := range expected {
		dose.State = Classify(dose, now)
	}
	return expected
}
