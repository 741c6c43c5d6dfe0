// Package report renders spreadsheet exports.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/farmhub/internal/model"
)

// XLSXContentType is the MIME type of the workbooks written here.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	harvestSheet = "Harvests"
	summarySheet = "Summary"
)

var harvestHeader = []any{"ID", "Harvest date", "Field", "Crop", "Quantity", "Unit", "Grade", "Notes"}

type cropTotal struct {
	crop, unit string
	quantity   float64
	count      int
}

// WriteHarvestWorkbook writes one row per harvest and a per crop/unit
// summary sheet to w.
func WriteHarvestWorkbook(w io.Writer, harvests []model.Harvest, fieldNames map[uint64]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", harvestSheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := writeRow(f, harvestSheet, 1, harvestHeader); err != nil {
		return err
	}

	totals := map[string]*cropTotal{}
	for i, h := range harvests {
		field := fieldNames[h.FieldID]
		if field == "" {
			field = fmt.Sprintf("#%d", h.FieldID)
		}
		notes := ""
		if h.Notes != nil {
			notes = *h.Notes
		}
		row := []any{h.ID, h.HarvestDate.Format("2006-01-02"), field, h.CropType, h.Quantity, h.Unit, h.QualityGrade, notes}
		if err := writeRow(f, harvestSheet, i+2, row); err != nil {
			return err
		}

		key := h.CropType + "\x00" + h.Unit
		t, ok := totals[key]
		if !ok {
			t = &cropTotal{crop: h.CropType, unit: h.Unit}
			totals[key] = t
		}
		t.quantity += h.Quantity
		t.count++
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	if err := writeRow(f, summarySheet, 1, []any{"Crop", "Unit", "Harvests", "Total quantity"}); err != nil {
		return err
	}
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		t := totals[k]
		if err := writeRow(f, summarySheet, i+2, []any{t.crop, t.unit, t.count, t.quantity}); err != nil {
			return err
		}
	}

	for _, sheet := range []string{harvestSheet, summarySheet} {
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", "H", 16); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
