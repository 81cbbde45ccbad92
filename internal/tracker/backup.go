package tracker

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	apperrors "github.com/gmsas95/meditrack/internal/errors"
	"github.com/gmsas95/meditrack/internal/medicine"
	"github.com/gmsas95/meditrack/internal/metrics"
)

// Snapshot is the backup file format.
type Snapshot struct {
	ExportedAt time.Time            `yaml:"exported_at"`
	Medicines  []*medicine.Medicine `yaml:"medicines"`
	Intakes    []*medicine.Intake   `yaml:"intakes"`
	Order      []string             `yaml:"order,omitempty"`
}

// Backup writes a YAML snapshot of all records and the display order.
func (t *Tracker) Backup(w io.Writer) error {
	meds, intakes, err := t.loadAll()
	if err != nil {
		return err
	}
	order, err := t.store.GetOrder()
	if err != nil {
		return err
	}

	snap := &Snapshot{
		ExportedAt: t.now(),
		Medicines:  meds,
		Intakes:    intakes,
		Order:      order,
	}
	if err := yaml.NewEncoder(w).Encode(snap); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	metrics.RecordBackup()
	t.logger.Info("Backup written",
		zap.Int("medicines", len(meds)),
		zap.Int("intakes", len(intakes)),
	)
	return nil
}

// Restore replaces all records with the snapshot's contents. Both
// collections are swapped in one transaction; the display order is
// restored afterwards.
func (t *Tracker) Restore(r io.Reader) error {
	var snap Snapshot
	if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
		return apperrors.Wrap(err, "BACKUP_001", "failed to parse backup snapshot")
	}

	err := t.store.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&medicine.Intake{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&medicine.Medicine{}).Error; err != nil {
			return err
		}
		for _, med := range snap.Medicines {
			if err := med.SerializeTimes(); err != nil {
				return err
			}
			if err := tx.Create(med).Error; err != nil {
				return err
			}
		}
		for _, in := range snap.Intakes {
			if err := tx.Create(in).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, "BACKUP_001", "failed to restore snapshot")
	}

	if len(snap.Order) > 0 {
		if err := t.store.SaveOrder(snap.Order); err != nil {
			return err
		}
	}

	metrics.RecordRestore()
	t.RefreshGauges()
	return nil
}
