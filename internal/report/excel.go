// Package report renders telescope schedules as Excel workbooks for
// operators.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"skydish/internal/models"
	"skydish/internal/scheduling"
)

// ScheduleSource provides the data a schedule export needs.
type ScheduleSource interface {
	ListTelescopes(ctx context.Context) ([]models.Telescope, error)
	TelescopeSchedule(ctx context.Context, telescopeID string, from, to time.Time) ([]models.Appointment, scheduling.ErrorSet, error)
}

// Exporter writes schedule workbooks, one sheet per active telescope.
type Exporter struct {
	source ScheduleSource
	logger zerolog.Logger
}

// NewExporter creates a schedule exporter.
func NewExporter(source ScheduleSource, logger zerolog.Logger) *Exporter {
	return &Exporter{
		source: source,
		logger: logger.With().Str("component", "report").Logger(),
	}
}

var scheduleHeaders = []string{"Appointment", "User", "Start", "End", "Duration", "Status", "Type", "Priority", "Public"}

// ScheduleWorkbook builds a workbook covering [from, to) across all
// active telescopes. The caller owns the returned file and must close it.
func (e *Exporter) ScheduleWorkbook(ctx context.Context, from, to time.Time) (*excelize.File, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("schedule window end must be after its start")
	}

	telescopes, err := e.source.ListTelescopes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list telescopes: %w", err)
	}

	f := excelize.NewFile()
	wroteSheet := false
	for _, tel := range telescopes {
		if !tel.Active {
			continue
		}
		schedule, errs, err := e.source.TelescopeSchedule(ctx, tel.ID, from, to)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("schedule for %s: %w", tel.ID, err)
		}
		if !errs.Empty() {
			// A telescope deactivated between list and read. Skip it.
			e.logger.Warn().Str("telescope_id", tel.ID).Str("errors", errs.String()).Msg("skipping telescope in export")
			continue
		}
		if err := e.writeSheet(f, tel, schedule); err != nil {
			f.Close()
			return nil, err
		}
		wroteSheet = true
	}

	if wroteSheet {
		f.DeleteSheet("Sheet1")
	}
	e.logger.Info().
		Time("from", from).
		Time("to", to).
		Int("telescopes", len(telescopes)).
		Msg("schedule workbook built")
	return f, nil
}

func (e *Exporter) writeSheet(f *excelize.File, tel models.Telescope, schedule []models.Appointment) error {
	sheet := sheetName(tel)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet for %s: %w", tel.ID, err)
	}

	for col, h := range scheduleHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for row, appt := range schedule {
		values := []any{
			appt.ID,
			appt.UserID,
			appt.StartTime.Format("2006-01-02 15:04"),
			appt.EndTime.Format("2006-01-02 15:04"),
			appt.Duration().String(),
			string(appt.Status),
			string(appt.Type),
			string(appt.Priority),
			appt.Public,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	return f.SetColWidth(sheet, "A", "B", 24)
}

// sheetName keeps within Excel's 31 character sheet name limit.
func sheetName(tel models.Telescope) string {
	name := tel.Name
	if name == "" {
		name = tel.ID
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
