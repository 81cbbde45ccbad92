package cron

import (
	"database/sql"
	"testing"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/glebarez/go-sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gmsas95/meditrack/internal/config"
	"github.com/gmsas95/meditrack/internal/medicine"
	"github.com/gmsas95/meditrack/internal/tracker"
)

func setupTestTracker(t *testing.T) *tracker.Tracker {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db, err := gorm.Open(sqlite.Dialector{Conn: sqlDB}, &gorm.Config{})
	require.NoError(t, err)

	badgerDB, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { badgerDB.Close() })

	store, err := tracker.New(db, badgerDB)
	require.NoError(t, err)
	return tracker.NewTracker(store, zap.NewNop())
}

func TestStartRejectsBadSchedule(t *testing.T) {
	r := NewRunner(config.CronConfig{
		Enabled:          true,
		LowStockSchedule: "not a schedule",
		RolloverSchedule: "5 0 * * *",
	}, setupTestTracker(t), zap.NewNop())

	assert.Error(t, r.Start())
}

func TestStartDisabled(t *testing.T) {
	r := NewRunner(config.CronConfig{Enabled: false}, setupTestTracker(t), zap.NewNop())
	assert.NoError(t, r.Start())
}

func TestStartAndStop(t *testing.T) {
	r := NewRunner(config.CronConfig{
		Enabled:          true,
		LowStockSchedule: "0 9 * * *",
		RolloverSchedule: "5 0 * * *",
	}, setupTestTracker(t), zap.NewNop())

	require.NoError(t, r.Start())
	r.Stop()
}

func TestJobsRunAgainstStore(t *testing.T) {
	tr := setupTestTracker(t)
	med := &medicine.Medicine{
		Name:          "Aspirin",
		Frequency:     medicine.OnceDaily,
		StartDate:     "2026-01-01",
		CurrentStock:  2,
		LowStockAlert: 5,
	}
	require.NoError(t, tr.CreateMedicine(med))

	r := NewRunner(config.CronConfig{Enabled: true}, tr, zap.NewNop())

	// The job bodies tolerate being called directly.
	r.lowStockScan()
	r.dayRollover()
}
