package api

import (
	"bytes"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/meditrack/internal/errors"
)

// parseBody parses and validates a request payload; a false return
// means the 400 response was already written.
func (s *Server) parseBody(c *fiber.Ctx, req interface{}) bool {
	if err := c.BodyParser(req); err != nil {
		c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		return false
	}
	if err := s.validate.Struct(req); err != nil {
		c.Status(400).JSON(fiber.Map{"error": err.Error()})
		return false
	}
	return true
}

// fail maps service errors onto HTTP responses.
func (s *Server) fail(c *fiber.Ctx, err error, message string) error {
	if errors.Is(err, apperrors.ErrMedicineNotFound) || errors.Is(err, apperrors.ErrIntakeNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Code == "BACKUP_001" {
		return c.Status(400).JSON(fiber.Map{"error": appErr.Error()})
	}
	s.logger.Error(message, zap.Error(err))
	return c.Status(500).JSON(fiber.Map{"error": message})
}

// Medicines

func (s *Server) handleListMedicines(c *fiber.Ctx) error {
	ordered := c.QueryBool("ordered", false)
	meds, err := s.tracker.ListMedicines(ordered)
	if err != nil {
		return s.fail(c, err, "failed to list medicines")
	}
	return c.JSON(meds)
}

func (s *Server) handleCreateMedicine(c *fiber.Ctx) error {
	var req CreateMedicineRequest
	if !s.parseBody(c, &req) {
		return nil
	}

	med := req.toMedicine()
	if err := s.tracker.CreateMedicine(med); err != nil {
		return s.fail(c, err, "failed to create medicine")
	}
	return c.Status(201).JSON(med)
}

func (s *Server) handleGetMedicine(c *fiber.Ctx) error {
	med, err := s.tracker.GetMedicine(c.Params("id"))
	if err != nil {
		return s.fail(c, err, "failed to get medicine")
	}
	return c.JSON(med)
}

func (s *Server) handleUpdateMedicine(c *fiber.Ctx) error {
	var req CreateMedicineRequest
	if !s.parseBody(c, &req) {
		return nil
	}

	med := req.toMedicine()
	med.ID = c.Params("id")
	if err := s.tracker.UpdateMedicine(med); err != nil {
		return s.fail(c, err, "failed to update medicine")
	}
	return c.JSON(med)
}

func (s *Server) handleDeleteMedicine(c *fiber.Ctx) error {
	if err := s.tracker.DeleteMedicine(c.Params("id")); err != nil {
		return s.fail(c, err, "failed to delete medicine")
	}
	return c.SendStatus(204)
}

func (s *Server) handleReorderMedicines(c *fiber.Ctx) error {
	var req ReorderRequest
	if !s.parseBody(c, &req) {
		return nil
	}
	if err := s.tracker.ReorderMedicines(req.IDs); err != nil {
		return s.fail(c, err, "failed to reorder medicines")
	}
	return c.SendStatus(204)
}

// Schedule and intakes

func (s *Server) handleSchedule(c *fiber.Ctx) error {
	date := c.Params("date")
	if !validDate(date) {
		return c.Status(400).JSON(fiber.Map{"error": "date must be YYYY-MM-DD"})
	}
	timeline, err := s.tracker.Timeline(date)
	if err != nil {
		return s.fail(c, err, "failed to build schedule")
	}
	return c.JSON(timeline)
}

func (s *Server) handleListIntakes(c *fiber.Ctx) error {
	intakes, err := s.tracker.ListIntakes(
		c.Query("medicine_id"), c.Query("from"), c.Query("to"))
	if err != nil {
		return s.fail(c, err, "failed to list intakes")
	}
	return c.JSON(intakes)
}

func (s *Server) handleRecordIntake(c *fiber.Ctx) error {
	var req RecordIntakeRequest
	if !s.parseBody(c, &req) {
		return nil
	}

	in, err := s.tracker.RecordIntake(req.MedicineID, req.Date, req.ScheduledTime, req.Status, req.Notes)
	if err != nil {
		return s.fail(c, err, "failed to record intake")
	}
	return c.Status(201).JSON(in)
}

func (s *Server) handleDeleteIntake(c *fiber.Ctx) error {
	if err := s.tracker.DeleteIntake(c.Params("id")); err != nil {
		return s.fail(c, err, "failed to delete intake")
	}
	return c.SendStatus(204)
}

// Reports

func (s *Server) reportDays(c *fiber.Ctx) int {
	days := c.QueryInt("days", s.config.Reports.DefaultDays)
	if days < 1 {
		days = s.config.Reports.DefaultDays
	}
	return days
}

func (s *Server) handleDailyReport(c *fiber.Ctx) error {
	date := c.Query("date")
	if !validDate(date) {
		return c.Status(400).JSON(fiber.Map{"error": "date must be YYYY-MM-DD"})
	}
	report, err := s.tracker.DailyReport(date)
	if err != nil {
		return s.fail(c, err, "failed to compute daily report")
	}
	return c.JSON(report)
}

func (s *Server) handleSeriesReport(c *fiber.Ctx) error {
	series, err := s.tracker.SeriesReport(s.reportDays(c))
	if err != nil {
		return s.fail(c, err, "failed to compute series report")
	}
	return c.JSON(series)
}

func (s *Server) handleMedicinesReport(c *fiber.Ctx) error {
	report, err := s.tracker.MedicinesReport(s.reportDays(c))
	if err != nil {
		return s.fail(c, err, "failed to compute medicine report")
	}
	return c.JSON(report)
}

func (s *Server) handleSummaryReport(c *fiber.Ctx) error {
	summary, err := s.tracker.Summary(s.reportDays(c))
	if err != nil {
		return s.fail(c, err, "failed to compute summary")
	}
	return c.JSON(summary)
}

func (s *Server) handleStockReport(c *fiber.Ctx) error {
	report, err := s.tracker.Stock()
	if err != nil {
		return s.fail(c, err, "failed to compute stock report")
	}
	return c.JSON(report)
}

// Export, backup, restore

func (s *Server) handleExportCSV(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := s.tracker.ExportCSV(&buf); err != nil {
		return s.fail(c, err, "failed to export intakes")
	}
	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", `attachment; filename="intakes.csv"`)
	return c.Send(buf.Bytes())
}

func (s *Server) handleBackup(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := s.tracker.Backup(&buf); err != nil {
		return s.fail(c, err, "failed to write backup")
	}
	c.Set("Content-Type", "application/yaml")
	c.Set("Content-Disposition", `attachment; filename="meditrack-backup.yaml"`)
	return c.Send(buf.Bytes())
}

func (s *Server) handleRestore(c *fiber.Ctx) error {
	if err := s.tracker.Restore(bytes.NewReader(c.Body())); err != nil {
		return s.fail(c, err, "failed to restore backup")
	}
	return c.SendStatus(204)
}

// validDate checks the YYYY-MM-DD shape without pulling in time parsing
// everywhere; the engine compares these strings lexicographically.
func validDate(date string) bool {
	if len(date) != 10 || date[4] != '-' || date[7] != '-' {
		return false
	}
	for i, r := range date {
		if i == 4 || i == 7 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
