package tracker

import (
	"bytes"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/glebarez/go-sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	apperrors "github.com/gmsas95/meditrack/internal/errors"
	"github.com/gmsas95/meditrack/internal/medicine"
)

func setupTestStore(t *testing.T) *Store {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqlDB}, &gorm.Config{})
	require.NoError(t, err)

	badgerDB, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { badgerDB.Close() })

	store, err := New(db, badgerDB)
	require.NoError(t, err)
	return store
}

func setupTestTracker(t *testing.T) *Tracker {
	store := setupTestStore(t)
	logger := zap.NewNop()

	tr := NewTracker(store, logger)
	tr.now = func() time.Time {
		return time.Date(2026, 2, 10, 12, 0, 0, 0, time.Local)
	}
	return tr
}

func newMedicine(name string) *medicine.Medicine {
	return &medicine.Medicine{
		Name:          name,
		Dosage:        "10mg",
		Frequency:     medicine.OnceDaily,
		StartDate:     "2026-01-01",
		CurrentStock:  30,
		LowStockAlert: 5,
	}
}

// Store tests

func TestStore_MedicineCRUD(t *testing.T) {
	store := setupTestStore(t)

	med := newMedicine("Lisinopril")
	med.ID = "m1"
	med.Frequency = medicine.CustomTimes
	med.CustomTimes = []string{"07:30", "19:30"}
	require.NoError(t, store.CreateMedicine(med))

	loaded, err := store.GetMedicine("m1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Lisinopril", loaded.Name)
	assert.Equal(t, []string{"07:30", "19:30"}, loaded.CustomTimes)

	loaded.Name = "Lisinopril 20"
	require.NoError(t, store.UpdateMedicine(loaded))
	reloaded, err := store.GetMedicine("m1")
	require.NoError(t, err)
	assert.Equal(t, "Lisinopril 20", reloaded.Name)

	missing, err := store.GetMedicine("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_DeleteMedicineCascades(t *testing.T) {
	store := setupTestStore(t)

	med := newMedicine("Aspirin")
	med.ID = "m1"
	require.NoError(t, store.CreateMedicine(med))
	require.NoError(t, store.UpsertIntake(&medicine.Intake{
		ID: "i1", MedicineID: "m1", Date: "2026-02-10", ScheduledTime: "09:00", Status: medicine.StatusTaken,
	}))

	require.NoError(t, store.DeleteMedicine("m1"))

	intakes, err := store.ListIntakes("m1", "", "")
	require.NoError(t, err)
	assert.Empty(t, intakes)
}

func TestStore_UpsertIntakeReplacesSlot(t *testing.T) {
	store := setupTestStore(t)

	med := newMedicine("Aspirin")
	med.ID = "m1"
	require.NoError(t, store.CreateMedicine(med))

	first := &medicine.Intake{
		ID: "i1", MedicineID: "m1", Date: "2026-02-10", ScheduledTime: "09:00", Status: medicine.StatusTaken,
	}
	require.NoError(t, store.UpsertIntake(first))

	second := &medicine.Intake{
		ID: "i2", MedicineID: "m1", Date: "2026-02-10", ScheduledTime: "09:00", Status: medicine.StatusSkipped, Notes: "nausea",
	}
	require.NoError(t, store.UpsertIntake(second))

	intakes, err := store.ListIntakes("m1", "", "")
	require.NoError(t, err)
	require.Len(t, intakes, 1)
	assert.Equal(t, "i1", intakes[0].ID) // row identity survives replacement
	assert.Equal(t, medicine.StatusSkipped, intakes[0].Status)
	assert.Equal(t, "nausea", intakes[0].Notes)
}

func TestStore_ListIntakesFilters(t *testing.T) {
	store := setupTestStore(t)

	for _, date := range []string{"2026-02-08", "2026-02-09", "2026-02-10"} {
		require.NoError(t, store.UpsertIntake(&medicine.Intake{
			ID: "i-" + date, MedicineID: "m1", Date: date, ScheduledTime: "09:00", Status: medicine.StatusTaken,
		}))
	}

	intakes, err := store.ListIntakes("m1", "2026-02-09", "2026-02-10")
	require.NoError(t, err)
	require.Len(t, intakes, 2)
	assert.Equal(t, "2026-02-09", intakes[0].Date)
}

func TestStore_OrderRoundTrip(t *testing.T) {
	store := setupTestStore(t)

	order, err := store.GetOrder()
	require.NoError(t, err)
	assert.Nil(t, order)

	require.NoError(t, store.SaveOrder([]string{"m2", "m1"}))
	order, err = store.GetOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m1"}, order)
}

// Tracker tests

func TestTracker_CreateAssignsID(t *testing.T) {
	tr := setupTestTracker(t)

	med := newMedicine("Aspirin")
	require.NoError(t, tr.CreateMedicine(med))
	assert.NotEmpty(t, med.ID)

	loaded, err := tr.GetMedicine(med.ID)
	require.NoError(t, err)
	assert.Equal(t, "Aspirin", loaded.Name)
}

func TestTracker_GetMedicineNotFound(t *testing.T) {
	tr := setupTestTracker(t)

	_, err := tr.GetMedicine("missing")
	assert.ErrorIs(t, err, apperrors.ErrMedicineNotFound)
}

func TestTracker_RecordIntakeStock(t *testing.T) {
	tr := setupTestTracker(t)

	med := newMedicine("Aspirin")
	med.CurrentStock = 2
	require.NoError(t, tr.CreateMedicine(med))

	// Taking a dose consumes one unit and stamps the actual time.
	in, err := tr.RecordIntake(med.ID, "2026-02-10", "09:00", medicine.StatusTaken, "")
	require.NoError(t, err)
	require.NotNil(t, in.ActualTime)

	loaded, err := tr.GetMedicine(med.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.CurrentStock)

	// Re-recording the same slot as taken does not consume again.
	_, err = tr.RecordIntake(med.ID, "2026-02-10", "09:00", medicine.StatusTaken, "")
	require.NoError(t, err)
	loaded, _ = tr.GetMedicine(med.ID)
	assert.Equal(t, 1, loaded.CurrentStock)

	// Flipping taken to skipped restores the unit.
	in, err = tr.RecordIntake(med.ID, "2026-02-10", "09:00", medicine.StatusSkipped, "felt fine")
	require.NoError(t, err)
	assert.Nil(t, in.ActualTime)
	loaded, _ = tr.GetMedicine(med.ID)
	assert.Equal(t, 2, loaded.CurrentStock)

	intakes, err := tr.ListIntakes(med.ID, "", "")
	require.NoError(t, err)
	require.Len(t, intakes, 1)
	assert.Equal(t, medicine.StatusSkipped, intakes[0].Status)
}

func TestTracker_RecordIntakeStockFloor(t *testing.T) {
	tr := setupTestTracker(t)

	med := newMedicine("Aspirin")
	med.CurrentStock = 0
	require.NoError(t, tr.CreateMedicine(med))

	_, err := tr.RecordIntake(med.ID, "2026-02-10", "09:00", medicine.StatusTaken, "")
	require.NoError(t, err)

	loaded, _ := tr.GetMedicine(med.ID)
	assert.Equal(t, 0, loaded.CurrentStock)
}

func TestTracker_RecordIntakeUnknownMedicine(t *testing.T) {
	tr := setupTestTracker(t)

	_, err := tr.RecordIntake("missing", "2026-02-10", "09:00", medicine.StatusTaken, "")
	assert.ErrorIs(t, err, apperrors.ErrMedicineNotFound)
}

func TestTracker_DeleteIntakeRestoresStock(t *testing.T) {
	tr := setupTestTracker(t)

	med := newMedicine("Aspirin")
	med.CurrentStock = 5
	require.NoError(t, tr.CreateMedicine(med))

	in, err := tr.RecordIntake(med.ID, "2026-02-10", "09:00", medicine.StatusTaken, "")
	require.NoError(t, err)

	require.NoError(t, tr.DeleteIntake(in.ID))

	loaded, _ := tr.GetMedicine(med.ID)
	assert.Equal(t, 5, loaded.CurrentStock)
	assert.ErrorIs(t, tr.DeleteIntake(in.ID), apperrors.ErrIntakeNotFound)
}

func TestTracker_ListMedicinesOrdered(t *testing.T) {
	tr := setupTestTracker(t)

	a := newMedicine("A")
	b := newMedicine("B")
	c := newMedicine("C")
	for _, med := range []*medicine.Medicine{a, b, c} {
		require.NoError(t, tr.CreateMedicine(med))
	}

	// Order lists c then a, drops an unknown ID, and leaves b unlisted.
	require.NoError(t, tr.ReorderMedicines([]string{c.ID, "ghost", a.ID}))

	meds, err := tr.ListMedicines(true)
	require.NoError(t, err)
	require.Len(t, meds, 3)
	assert.Equal(t, "C", meds[0].Name)
	assert.Equal(t, "A", meds[1].Name)
	assert.Equal(t, "B", meds[2].Name) // appended in creation order
}

func TestTracker_Timeline(t *testing.T) {
	tr := setupTestTracker(t)

	med := newMedicine("Aspirin")
	med.Frequency = medicine.TwiceDaily
	require.NoError(t, tr.CreateMedicine(med))
	_, err := tr.RecordIntake(med.ID, "2026-02-10", "09:00", medicine.StatusTaken, "")
	require.NoError(t, err)

	timeline, err := tr.Timeline("2026-02-10")
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, "taken", string(timeline[0].State))
	assert.Equal(t, "upcoming", string(timeline[1].State)) // 21:00 slot, clock fixed at noon
}

func TestTracker_Summary(t *testing.T) {
	tr := setupTestTracker(t)

	med := newMedicine("Aspirin")
	med.StartDate = "2026-02-09"
	require.NoError(t, tr.CreateMedicine(med))
	_, err := tr.RecordIntake(med.ID, "2026-02-09", "09:00", medicine.StatusTaken, "")
	require.NoError(t, err)
	_, err = tr.RecordIntake(med.ID, "2026-02-10", "09:00", medicine.StatusTaken, "")
	require.NoError(t, err)

	summary, err := tr.Summary(7)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Overall.Taken)
	assert.Equal(t, 100, summary.Overall.AdherenceRate)
	assert.Equal(t, 2, summary.Streak)
	assert.Equal(t, 2, summary.PerfectDays)
}

func TestTracker_ExportCSV(t *testing.T) {
	tr := setupTestTracker(t)

	med := newMedicine("Aspirin")
	require.NoError(t, tr.CreateMedicine(med))
	_, err := tr.RecordIntake(med.ID, "2026-02-10", "09:00", medicine.StatusTaken, "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tr.ExportCSV(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,medicineId,medicineName"))
	assert.Contains(t, lines[1], "Aspirin")
}

func TestTracker_BackupRestoreRoundTrip(t *testing.T) {
	tr := setupTestTracker(t)

	a := newMedicine("A")
	b := newMedicine("B")
	require.NoError(t, tr.CreateMedicine(a))
	require.NoError(t, tr.CreateMedicine(b))
	_, err := tr.RecordIntake(a.ID, "2026-02-10", "09:00", medicine.StatusTaken, "")
	require.NoError(t, err)
	require.NoError(t, tr.ReorderMedicines([]string{b.ID, a.ID}))

	var buf bytes.Buffer
	require.NoError(t, tr.Backup(&buf))

	// Restore into a fresh tracker.
	fresh := setupTestTracker(t)
	require.NoError(t, fresh.Restore(&buf))

	meds, err := fresh.ListMedicines(true)
	require.NoError(t, err)
	require.Len(t, meds, 2)
	assert.Equal(t, "B", meds[0].Name)

	intakes, err := fresh.ListIntakes("", "", "")
	require.NoError(t, err)
	require.Len(t, intakes, 1)
	assert.Equal(t, medicine.StatusTaken, intakes[0].Status)
}

func TestTracker_RestoreRejectsGarbage(t *testing.T) {
	tr := setupTestTracker(t)
	err := tr.Restore(strings.NewReader("{not yaml: ["))
	require.Error(t, err)
}
