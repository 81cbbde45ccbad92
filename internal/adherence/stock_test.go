package adherence

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/meditrack/internal/medicine"
)

func TestProjections(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.Local)
	twice := med("m1", "Lisinopril", medicine.TwiceDaily, "2026-01-01")
	twice.CurrentStock = 7
	twice.LowStockAlert = 5

	projections := Projections([]*medicine.Medicine{twice}, now)
	require.Len(t, projections, 1)

	p := projections[0]
	assert.Equal(t, 2, p.DailyDoses)
	assert.Equal(t, 3, p.DaysLeft) // floor(7/2)
	assert.Equal(t, "2026-02-13", p.RunOutDate)
	assert.False(t, p.Unbounded)
	assert.False(t, p.LowStock)
}

func TestProjectionsLowStockFlag(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.Local)
	m := med("m1", "Aspirin", medicine.OnceDaily, "2026-01-01")
	m.CurrentStock = 5
	m.LowStockAlert = 5

	projections := Projections([]*medicine.Medicine{m}, now)
	require.Len(t, projections, 1)
	assert.True(t, projections[0].LowStock)
}

func TestProjectionsUnbounded(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.Local)
	m := med("m1", "PRN", "as-needed", "2026-01-01")
	m.CurrentStock = 10

	projections := Projections([]*medicine.Medicine{m}, now)
	require.Len(t, projections, 1)
	assert.True(t, projections[0].Unbounded)
	assert.Empty(t, projections[0].RunOutDate)
}

func TestLowestStock(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.Local)

	mk := func(id string, stock int) *medicine.Medicine {
		m := med(id, id, medicine.OnceDaily, "2026-01-01")
		m.CurrentStock = stock
		return m
	}
	unbounded := med("m5", "m5", "as-needed", "2026-01-01")

	projections := Projections([]*medicine.Medicine{
		mk("m1", 30), mk("m2", 2), mk("m3", 14), mk("m4", 7), unbounded,
	}, now)

	lowest := LowestStock(projections)
	require.Len(t, lowest, 3)
	assert.Equal(t, "m2", lowest[0].Medicine.ID)
	assert.Equal(t, "m4", lowest[1].Medicine.ID)
	assert.Equal(t, "m3", lowest[2].Medicine.ID)
}

func TestWriteCSV(t *testing.T) {
	actual := time.Date(2026, 2, 10, 9, 5, 0, 0, time.UTC)
	meds := []*medicine.Medicine{med("m1", "Aspirin", medicine.OnceDaily, "2026-01-01")}
	intakes := []*medicine.Intake{
		{ID: "i1", MedicineID: "m1", Date: "2026-02-10", ScheduledTime: "09:00", Status: medicine.StatusTaken, ActualTime: &actual},
		{ID: "i2", MedicineID: "m1", Date: "2026-02-09", ScheduledTime: "09:00", Status: medicine.StatusSkipped, Notes: "felt fine"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, meds, intakes))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3) // header + one row per intake
	assert.Equal(t, "id,medicineId,medicineName,date,scheduledTime,actualTime,status,notes", lines[0])
	assert.Equal(t, "i1,m1,Aspirin,2026-02-10,09:00,2026-02-10T09:05:00Z,taken,", lines[1])
	assert.Equal(t, "i2,m1,Aspirin,2026-02-09,09:00,,skipped,felt fine", lines[2])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil, nil))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 1)
}
