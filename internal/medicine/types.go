package medicine

import (
	"time"
)

// Frequency describes how often a medicine is taken during a day.
type Frequency string

const (
	OnceDaily       Frequency = "once-daily"
	TwiceDaily      Frequency = "twice-daily"
	ThreeTimesDaily Frequency = "three-times-daily"
	FourTimesDaily  Frequency = "four-times-daily"
	CustomTimes     Frequency = "custom-times"
	IntervalHours   Frequency = "interval-hours"
)

// Intake statuses as recorded by the user.
const (
	StatusPending = "pending"
	StatusTaken   = "taken"
	StatusSkipped = "skipped"
	StatusDelayed = "delayed"
)

// Medicine is a registered medication with its dosing schedule.
// StartDate/EndDate are calendar dates in YYYY-MM-DD form; EndDate empty
// means the medicine runs indefinitely. CustomTimes only applies when
// Frequency is custom-times, IntervalHours only when interval-hours.
type Medicine struct {
	ID     string `json:"id" gorm:"primaryKey"`
	Name   string `json:"name"`
	Dosage string `json:"dosage"` // display string, e.g. "10mg", "2 tablets"

	Frequency       Frequency `json:"frequency"`
	CustomTimes     []string  `json:"custom_times,omitempty" gorm:"-"` // ["09:00", "21:00"], serialized below
	CustomTimesJSON string    `json:"-" gorm:"type:text"`
	IntervalHours   int       `json:"interval_hours,omitempty"`

	StartDate string `json:"start_date"` // YYYY-MM-DD, inclusive
	EndDate   string `json:"end_date,omitempty"`

	CurrentStock  int  `json:"current_stock"`
	LowStockAlert int  `json:"low_stock_alert"`
	TakeWithFood  bool `json:"take_with_food"`

	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Intake records the outcome of one scheduled dose. At most one intake
// exists per (MedicineID, Date, ScheduledTime); the unique index enforces
// that and recording again replaces the earlier outcome.
type Intake struct {
	ID            string `json:"id" gorm:"primaryKey"`
	MedicineID    string `json:"medicine_id" gorm:"index;index:idx_intake_dose,unique"`
	Date          string `json:"date" gorm:"index:idx_intake_dose,unique"`           // YYYY-MM-DD
	ScheduledTime string `json:"scheduled_time" gorm:"index:idx_intake_dose,unique"` // HH:MM

	Status     string     `json:"status"` // pending, taken, skipped, delayed
	ActualTime *time.Time `json:"actual_time,omitempty"`
	Notes      string     `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
