package api

import (
	"github.com/gmsas95/meditrack/internal/medicine"
)

// CreateMedicineRequest is the payload for registering a medicine.
type CreateMedicineRequest struct {
	Name          string   `json:"name" validate:"required,max=200"`
	Dosage        string   `json:"dosage" validate:"max=100"`
	Frequency     string   `json:"frequency" validate:"required,oneof=once-daily twice-daily three-times-daily four-times-daily custom-times interval-hours"`
	CustomTimes   []string `json:"custom_times" validate:"omitempty,dive,datetime=15:04"`
	IntervalHours int      `json:"interval_hours" validate:"omitempty,min=1,max=24"`
	StartDate     string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	CurrentStock  int      `json:"current_stock" validate:"min=0"`
	LowStockAlert int      `json:"low_stock_alert" validate:"min=0"`
	TakeWithFood  bool     `json:"take_with_food"`
	Notes         string   `json:"notes" validate:"max=2000"`
}

func (r *CreateMedicineRequest) toMedicine() *medicine.Medicine {
	return &medicine.Medicine{
		Name:          r.Name,
		Dosage:        r.Dosage,
		Frequency:     medicine.Frequency(r.Frequency),
		CustomTimes:   r.CustomTimes,
		IntervalHours: r.IntervalHours,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		CurrentStock:  r.CurrentStock,
		LowStockAlert: r.LowStockAlert,
		TakeWithFood:  r.TakeWithFood,
		Notes:         r.Notes,
	}
}

// RecordIntakeRequest records or replaces one dose outcome.
type RecordIntakeRequest struct {
	MedicineID    string `json:"medicine_id" validate:"required"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	ScheduledTime string `json:"scheduled_time" validate:"required,datetime=15:04"`
	Status        string `json:"status" validate:"required,oneof=pending taken skipped delayed"`
	Notes         string `json:"notes" validate:"max=2000"`
}

// ReorderRequest sets the medicine display order.
type ReorderRequest struct {
	IDs []string `json:"ids" validate:"required"`
}
