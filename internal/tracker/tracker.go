package tracker

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gmsas95/meditrack/internal/adherence"
	apperrors "github.com/gmsas95/meditrack/internal/errors"
	"github.com/gmsas95/meditrack/internal/medicine"
	"github.com/gmsas95/meditrack/internal/metrics"
)

// Tracker implements the application operations on top of the store.
// The clock is a field so reports are deterministic under test; every
// operation reads it once and threads the value through the engine.
type Tracker struct {
	store  *Store
	logger *zap.Logger
	now    func() time.Time
}

func NewTracker(store *Store, logger *zap.Logger) *Tracker {
	return &Tracker{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Medicines

func (t *Tracker) CreateMedicine(med *medicine.Medicine) error {
	if med.ID == "" {
		med.ID = uuid.NewString()
	}
	if err := t.store.CreateMedicine(med); err != nil {
		return apperrors.Wrap(err, "MED_002", "failed to create medicine")
	}
	t.logger.Info("Medicine created",
		zap.String("medicine_id", med.ID),
		zap.String("name", med.Name),
	)
	t.RefreshGauges()
	return nil
}

func (t *Tracker) GetMedicine(id string) (*medicine.Medicine, error) {
	med, err := t.store.GetMedicine(id)
	if err != nil {
		return nil, err
	}
	if med == nil {
		return nil, apperrors.ErrMedicineNotFound
	}
	return med, nil
}

func (t *Tracker) UpdateMedicine(med *medicine.Medicine) error {
	existing, err := t.GetMedicine(med.ID)
	if err != nil {
		return err
	}
	med.CreatedAt = existing.CreatedAt
	if err := t.store.UpdateMedicine(med); err != nil {
		return apperrors.Wrap(err, "MED_002", "failed to update medicine")
	}
	t.RefreshGauges()
	return nil
}

// DeleteMedicine removes the medicine and every intake recorded
// against it.
func (t *Tracker) DeleteMedicine(id string) error {
	if _, err := t.GetMedicine(id); err != nil {
		return err
	}
	if err := t.store.DeleteMedicine(id); err != nil {
		return apperrors.Wrap(err, "MED_002", "failed to delete medicine")
	}
	t.logger.Info("Medicine deleted", zap.String("medicine_id", id))
	t.RefreshGauges()
	return nil
}

// ListMedicines returns all medicines; with ordered set, the saved
// display order is applied first, unknown IDs are ignored and
// medicines missing from the order are appended in creation order.
func (t *Tracker) ListMedicines(ordered bool) ([]*medicine.Medicine, error) {
	meds, err := t.store.ListMedicines()
	if err != nil {
		return nil, err
	}
	if !ordered {
		return meds, nil
	}

	order, err := t.store.GetOrder()
	if err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return meds, nil
	}

	byID := make(map[string]*medicine.Medicine, len(meds))
	for _, med := range meds {
		byID[med.ID] = med
	}

	sorted := make([]*medicine.Medicine, 0, len(meds))
	for _, id := range order {
		if med, ok := byID[id]; ok {
			sorted = append(sorted, med)
			delete(byID, id)
		}
	}
	for _, med := range meds {
		if _, unlisted := byID[med.ID]; unlisted {
			sorted = append(sorted, med)
		}
	}
	return sorted, nil
}

// ReorderMedicines saves a new display order.
func (t *Tracker) ReorderMedicines(ids []string) error {
	return t.store.SaveOrder(ids)
}

// Intakes

// RecordIntake records or replaces the outcome of one dose slot. A
// taken dose stamps the actual time and consumes one unit of stock;
// re-recording a taken dose to another status puts the unit back.
func (t *Tracker) RecordIntake(medicineID, date, scheduledTime, status, notes string) (*medicine.Intake, error) {
	med, err := t.GetMedicine(medicineID)
	if err != nil {
		return nil, err
	}

	now := t.now()
	prior, err := t.store.GetIntakeForDose(medicineID, date, scheduledTime)
	if err != nil {
		return nil, err
	}

	in := &medicine.Intake{
		ID:            uuid.NewString(),
		MedicineID:    medicineID,
		Date:          date,
		ScheduledTime: scheduledTime,
		Status:        status,
		Notes:         notes,
	}
	if prior != nil {
		in.ID = prior.ID
	}
	if status == medicine.StatusTaken {
		in.ActualTime = &now
	}

	if err := t.store.UpsertIntake(in); err != nil {
		return nil, apperrors.Wrap(err, "INTAKE_002", "failed to record intake")
	}

	if err := t.adjustStock(med, prior, status); err != nil {
		return nil, err
	}

	metrics.RecordIntake(status)
	t.logger.Info("Intake recorded",
		zap.String("medicine_id", medicineID),
		zap.String("date", date),
		zap.String("scheduled_time", scheduledTime),
		zap.String("status", status),
	)
	return in, nil
}

// adjustStock reconciles the stock counter with a status transition.
func (t *Tracker) adjustStock(med *medicine.Medicine, prior *medicine.Intake, status string) error {
	wasTaken := prior != nil && prior.Status == medicine.StatusTaken
	isTaken := status == medicine.StatusTaken

	switch {
	case isTaken && !wasTaken:
		if med.CurrentStock > 0 {
			med.CurrentStock--
		}
	case !isTaken && wasTaken:
		med.CurrentStock++
	default:
		return nil
	}
	if err := t.store.UpdateMedicine(med); err != nil {
		return apperrors.Wrap(err, "MED_002", "failed to adjust stock")
	}
	t.RefreshGauges()
	return nil
}

// DeleteIntake removes a recorded intake; a taken dose returns its
// unit of stock.
func (t *Tracker) DeleteIntake(id string) error {
	in, err := t.store.GetIntake(id)
	if err != nil {
		return err
	}
	if in == nil {
		return apperrors.ErrIntakeNotFound
	}
	if err := t.store.DeleteIntake(id); err != nil {
		return apperrors.Wrap(err, "INTAKE_002", "failed to delete intake")
	}
	if in.Status == medicine.StatusTaken {
		if med, err := t.store.GetMedicine(in.MedicineID); err == nil && med != nil {
			med.CurrentStock++
			if err := t.store.UpdateMedicine(med); err != nil {
				return apperrors.Wrap(err, "MED_002", "failed to restore stock")
			}
		}
	}
	return nil
}

func (t *Tracker) ListIntakes(medicineID, from, to string) ([]*medicine.Intake, error) {
	return t.store.ListIntakes(medicineID, from, to)
}

// Reports

// Timeline returns the expected doses for one date with their
// reconciled states.
func (t *Tracker) Timeline(dateISO string) ([]*adherence.ExpectedDose, error) {
	meds, intakes, err := t.loadAll()
	if err != nil {
		return nil, err
	}
	return adherence.Timeline(meds, intakes, dateISO, t.now()), nil
}

func (t *Tracker) DailyReport(dateISO string) (adherence.DailyMetrics, error) {
	meds, intakes, err := t.loadAll()
	if err != nil {
		return adherence.DailyMetrics{}, err
	}
	return adherence.Daily(meds, intakes, dateISO, t.now()), nil
}

func (t *Tracker) SeriesReport(days int) ([]adherence.DailyMetrics, error) {
	meds, intakes, err := t.loadAll()
	if err != nil {
		return nil, err
	}
	return adherence.Series(meds, intakes, days, t.now()), nil
}

func (t *Tracker) MedicinesReport(days int) ([]adherence.MedicineAdherence, error) {
	meds, intakes, err := t.loadAll()
	if err != nil {
		return nil, err
	}
	return adherence.PerMedicine(meds, intakes, days, t.now()), nil
}

// SummaryReport bundles the overall totals, current streak, and
// perfect day count for a window.
type SummaryReport struct {
	Days        int              `json:"days"`
	Overall     adherence.Totals `json:"overall"`
	Streak      int              `json:"streak"`
	PerfectDays int              `json:"perfect_days"`
}

func (t *Tracker) Summary(days int) (*SummaryReport, error) {
	meds, intakes, err := t.loadAll()
	if err != nil {
		return nil, err
	}
	now := t.now()
	series := adherence.Series(meds, intakes, days, now)
	return &SummaryReport{
		Days:        days,
		Overall:     adherence.Overall(series),
		Streak:      adherence.Streak(meds, intakes, days, now),
		PerfectDays: adherence.PerfectDays(meds, intakes, days, now),
	}, nil
}

// StockReport lists every projection plus the three closest to
// running out.
type StockReport struct {
	Projections []adherence.StockProjection `json:"projections"`
	Lowest      []adherence.StockProjection `json:"lowest"`
}

func (t *Tracker) Stock() (*StockReport, error) {
	meds, err := t.store.ListMedicines()
	if err != nil {
		return nil, err
	}
	projections := adherence.Projections(meds, t.now())
	return &StockReport{
		Projections: projections,
		Lowest:      adherence.LowestStock(projections),
	}, nil
}

// ExportCSV streams every intake as CSV.
func (t *Tracker) ExportCSV(w io.Writer) error {
	meds, intakes, err := t.loadAll()
	if err != nil {
		return err
	}
	if err := adherence.WriteCSV(w, meds, intakes); err != nil {
		return fmt.Errorf("failed to export intakes: %w", err)
	}
	metrics.RecordExport()
	return nil
}

// RefreshGauges recomputes the medicine and low-stock gauges.
func (t *Tracker) RefreshGauges() {
	meds, err := t.store.ListMedicines()
	if err != nil {
		t.logger.Warn("Failed to refresh gauges", zap.Error(err))
		return
	}
	low := 0
	for _, med := range meds {
		if med.CurrentStock <= med.LowStockAlert {
			low++
		}
	}
	metrics.SetMedicines(len(meds))
	metrics.SetLowStock(low)
}

// LowStockMedicines returns medicines at or below their alert
// threshold.
func (t *Tracker) LowStockMedicines() ([]*medicine.Medicine, error) {
	meds, err := t.store.ListMedicines()
	if err != nil {
		return nil, err
	}
	var low []*medicine.Medicine
	for _, med := range meds {
		if med.CurrentStock <= med.LowStockAlert {
			low = append(low, med)
		}
	}
	return low, nil
}

func (t *Tracker) loadAll() ([]*medicine.Medicine, []*medicine.Intake, error) {
	meds, err := t.store.ListMedicines()
	if err != nil {
		return nil, nil, err
	}
	intakes, err := t.store.ListIntakes("", "", "")
	if err != nil {
		return nil, nil, err
	}
	return meds, intakes, nil
}
