package adherence

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/gmsas95/meditrack/internal/medicine"
)

var csvHeader = []string{"id", "medicineId", "medicineName", "date", "scheduledTime", "actualTime", "status", "notes"}

// WriteCSV writes every recorded intake as one CSV row, statuses
// verbatim. Intakes whose medicine no longer exists get an empty name.
func WriteCSV(w io.Writer, meds []*medicine.Medicine, intakes []*medicine.Intake) error {
	names := make(map[string]string, len(meds))
	for _, med := range meds {
		names[med.ID] = med.Name
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, in := range intakes {
		actual := ""
		if in.ActualTime != nil {
			actual = in.ActualTime.Format(time.RFC3339)
		}
		row := []string{
			in.ID,
			in.MedicineID,
			names[in.MedicineID],
			in.Date,
			in.ScheduledTime,
			actual,
			in.Status,
			in.Notes,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
