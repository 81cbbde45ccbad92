package adherence

import (
	"sort"
	"time"

	"github.com/gmsas95/meditrack/internal/medicine"
)

// StockProjection estimates how long a medicine's supply lasts at its
// current daily dose count.
type StockProjection struct {
	Medicine   *medicine.Medicine `json:"medicine"`
	DailyDoses int                `json:"daily_doses"`
	DaysLeft   int                `json:"days_left"`
	RunOutDate string             `json:"run_out_date,omitempty"`
	Unbounded  bool               `json:"unbounded"` // no daily doses, supply never depletes
	LowStock   bool               `json:"low_stock"`
}

// Projections computes a stock projection for every medicine. The low
// stock flag marks medicines at or below their alert threshold without
// filtering anything out.
func Projections(meds []*medicine.Medicine, now time.Time) []StockProjection {
	projections := make([]StockProjection, 0, len(meds))
	for _, med := range meds {
		p := StockProjection{
			Medicine:   med,
			DailyDoses: medicine.DailyDoseCount(med),
			LowStock:   med.CurrentStock <= med.LowStockAlert,
		}
		if p.DailyDoses == 0 {
			p.Unbounded = true
		} else {
			p.DaysLeft = med.CurrentStock / p.DailyDoses
			p.RunOutDate = medicine.DateISO(now.AddDate(0, 0, p.DaysLeft))
		}
		projections = append(projections, p)
	}
	return projections
}

// LowestStock returns the three projections closest to running out.
// Medicines with no daily doses never run out and are left out of the
// ranking.
func LowestStock(projections []StockProjection) []StockProjection {
	bounded := make([]StockProjection, 0, len(projections))
	for _, p := range projections {
		if !p.Unbounded {
			bounded = append(bounded, p)
		}
	}
	sort.SliceStable(bounded, func(i, j int) bool {
		return bounded[i].DaysLeft < bounded[j].DaysLeft
	})
	if len(bounded) > 3 {
		bounded = bounded[:3]
	}
	return bounded
}
