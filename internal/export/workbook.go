// Package export renders the monitor view as an Excel workbook.
package export

import (
	"fmt"
	"io"

	"sewamonitor/internal/config"
	"sewamonitor/internal/models"
	"sewamonitor/internal/monitor"

	"github.com/xuri/excelize/v2"
)

var (
	unitHeaders   = []string{"Unit", "Status"}
	rentalHeaders = []string{"ID", "Klien", "Unit", "Mulai", "Selesai", "Status", "Sisa Waktu", "Harga", "Sumber", "Notifikasi"}
)

const (
	colorHeader   = "#DDEBF7"
	colorOccupied = "#FFC7CE"
	colorFree     = "#C6EFCE"
	colorExpiring = "#FFEB9C"
)

// WriteWorkbook writes the units and rentals of view to w as .xlsx.
func WriteWorkbook(w io.Writer, view *monitor.View, cfg config.ExportConfig) error {
	if view == nil {
		view = &monitor.View{}
	}
	unitSheet, rentalSheet := cfg.SheetUnits, cfg.SheetRentals
	if unitSheet == "" {
		unitSheet = "Unit"
	}
	if rentalSheet == "" {
		rentalSheet = "Sewa"
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", unitSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(rentalSheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	if err := writeUnits(f, unitSheet, view, styles); err != nil {
		return err
	}
	if err := writeRentals(f, rentalSheet, view, styles); err != nil {
		return err
	}

	idx, err := f.GetSheetIndex(unitSheet)
	if err == nil {
		f.SetActiveSheet(idx)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type styleSet struct {
	header, occupied, free, expiring int
}

func newStyles(f *excelize.File) (styleSet, error) {
	var s styleSet
	var err error

	if s.header, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{colorHeader}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return s, fmt.Errorf("header style: %w", err)
	}
	if s.occupied, err = fillStyle(f, colorOccupied); err != nil {
		return s, err
	}
	if s.free, err = fillStyle(f, colorFree); err != nil {
		return s, err
	}
	if s.expiring, err = fillStyle(f, colorExpiring); err != nil {
		return s, err
	}
	return s, nil
}

func fillStyle(f *excelize.File, color string) (int, error) {
	id, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
	if err != nil {
		return 0, fmt.Errorf("fill style %s: %w", color, err)
	}
	return id, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeUnits(f *excelize.File, sheet string, view *monitor.View, styles styleSet) error {
	if err := writeHeader(f, sheet, unitHeaders, styles.header); err != nil {
		return err
	}

	for i, u := range view.Units {
		row := i + 2
		status, style := "Kosong", styles.free
		if u.Occupied {
			status, style = "Terisi", styles.occupied
		}

		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &[]interface{}{u.Display, status}); err != nil {
			return fmt.Errorf("write unit row %d: %w", row, err)
		}
		end, _ := excelize.CoordinatesToCellName(2, row)
		_ = f.SetCellStyle(sheet, end, end, style)
	}

	_ = f.SetColWidth(sheet, "A", "A", 20)
	_ = f.SetColWidth(sheet, "B", "B", 12)
	return nil
}

func writeRentals(f *excelize.File, sheet string, view *monitor.View, styles styleSet) error {
	if err := writeHeader(f, sheet, rentalHeaders, styles.header); err != nil {
		return err
	}

	for i, rs := range view.Rentals {
		row := i + 2
		r := rs.Rental
		alerted := ""
		if rs.Alerted {
			alerted = "Terkirim"
		}

		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []interface{}{
			r.ID,
			r.Client,
			r.Unit,
			models.FormatTimestamp(r.Start),
			models.FormatTimestamp(r.End),
			rs.Countdown.State.String(),
			rs.Countdown.Clock(),
			r.Price,
			r.BookingSource,
			alerted,
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write rental row %d: %w", row, err)
		}
		if rs.Alerted {
			end, _ := excelize.CoordinatesToCellName(len(values), row)
			_ = f.SetCellStyle(sheet, cell, end, styles.expiring)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 10)
	_ = f.SetColWidth(sheet, "B", "C", 20)
	_ = f.SetColWidth(sheet, "D", "E", 22)
	_ = f.SetColWidth(sheet, "F", "J", 14)
	return nil
}
