// Package excel renders a persisted quote as an XLSX workbook for handing
// to purchasing. One sheet, fixed layout: summary, cost breakdown, machining
// time, audit warnings.
package excel

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/fabworks/partquote/internal/core/domain"
)

const sheetName = "Quote"

type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) Export(w io.Writer, req domain.QuoteRequest, result *domain.QuoteResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	row := 1
	writeHeader := func(title string) error {
		cell := fmt.Sprintf("A%d", row)
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, cell, cell, bold); err != nil {
			return err
		}
		row++
		return nil
	}
	writePair := func(label string, value any) error {
		if err := f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), label); err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), value); err != nil {
			return err
		}
		row++
		return nil
	}

	sections := []struct {
		title string
		pairs [][2]any
	}{
		{
			title: "Quote Summary",
			pairs: [][2]any{
				{"Quote ID", result.ID},
				{"Unit Price (USD)", result.UnitPrice},
				{"Total Price (USD)", result.TotalPrice},
				{"Quantity", req.Quantity},
				{"Discount Tier", result.DiscountTier},
				{"Lead Time (days)", result.LeadTimeDays},
				{"Confidence", result.Confidence},
				{"Created At", result.CreatedAt.Format("2006-01-02 15:04 MST")},
			},
		},
		{
			title: "Part",
			pairs: [][2]any{
				{"Volume (cm3)", req.VolumeCm3},
				{"Surface Area (cm2)", req.SurfaceAreaCm2},
				{"Complexity Score", req.ComplexityScore},
				{"Process", req.Process},
				{"Material", req.Material},
				{"Finish", req.Finish},
			},
		},
		{
			title: "Cost Breakdown (per unit)",
			pairs: [][2]any{
				{"Material", result.Breakdown.MaterialCost},
				{"Machining", result.Breakdown.MachiningCost},
				{"Setup", result.Breakdown.SetupCost},
				{"Finish", result.Breakdown.FinishCost},
				{"Surface Treatments", result.Breakdown.SurfaceTreatmentCost},
				{"Quantity Discount", -result.Breakdown.DiscountApplied},
			},
		},
		{
			title: "Machining Time (hours per unit)",
			pairs: [][2]any{
				{"Roughing", result.Machining.RoughingHours},
				{"Finishing", result.Machining.FinishingHours},
				{"Tool Changes", result.Machining.ToolChangeHours},
				{"Positioning", result.Machining.PositioningHours},
				{"Total", result.Machining.TotalHours},
			},
		},
	}

	for _, section := range sections {
		if err := writeHeader(section.title); err != nil {
			return fmt.Errorf("write section %q: %w", section.title, err)
		}
		for _, pair := range section.pairs {
			if err := writePair(pair[0].(string), pair[1]); err != nil {
				return fmt.Errorf("write section %q: %w", section.title, err)
			}
		}
		row++
	}

	if len(result.Warnings) > 0 {
		if err := writeHeader("Review Warnings"); err != nil {
			return fmt.Errorf("write warnings: %w", err)
		}
		for _, warning := range result.Warnings {
			if err := writePair(warning.Kind, warning.Message); err != nil {
				return fmt.Errorf("write warnings: %w", err)
			}
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 28); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(sheetName, "B", "B", 40); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
