package pricing

import (
	"math"

	"github.com/fabworks/partquote/internal/core/domain"
)

// barLengthMargin covers saw kerf and facing stock on each bar cut.
const barLengthMargin = 1.2

// cheapestBarCost searches the material's bar sections for the cheapest one
// the part's cross section fits, pricing the margin-padded cut length. dims
// is sorted ascending in cm; the two smaller dimensions form the cross
// section and the largest is the cut length. Returns false when no section
// fits.
func cheapestBarCost(sections []domain.StockSection, dims [3]float64) (float64, bool) {
	aIn := dims[0] / cmPerInch
	bIn := dims[1] / cmPerInch
	lengthIn := dims[2] / cmPerInch * barLengthMargin

	best := 0.0
	found := false
	for _, section := range sections {
		if !section.Fits(aIn, bIn) {
			continue
		}
		cost := section.CostPerInch() * lengthIn
		if !found || cost < best {
			best = cost
			found = true
		}
	}
	return best, found
}

// bestSheetCost prices the part from the most economical configured sheet.
// Parts nest as a grid, so per-sheet yield is the product of per-axis floor
// counts (both orientations tried), derated by nesting efficiency. The order
// pays for whole sheets: a partially used last sheet is charged in full and
// its cost spread over the order quantity. Returns false when no sheet fits
// the part's footprint.
func bestSheetCost(sheets []domain.SheetConfiguration, dims [3]float64, quantity int, nestingEfficiency float64) (float64, bool) {
	// Footprint is the two largest bounding dimensions; the smallest is the
	// part thickness absorbed by the sheet gauge.
	partW := dims[1]
	partH := dims[2]
	if partW <= 0 || partH <= 0 || quantity < 1 {
		return 0, false
	}

	best := 0.0
	found := false
	for _, sheet := range sheets {
		sw, sh := sheet.WidthCm(), sheet.HeightCm()
		perSheet := math.Max(
			gridYield(sw, sh, partW, partH, nestingEfficiency),
			gridYield(sw, sh, partH, partW, nestingEfficiency),
		)
		if perSheet <= 0 {
			continue
		}

		sheetsNeeded := math.Ceil(float64(quantity) / perSheet)
		cost := sheetsNeeded * sheet.CostPerSheet / float64(quantity)
		if !found || cost < best {
			best = cost
			found = true
		}
	}
	return best, found
}

// gridYield is the nesting-derated number of parts cut from one sheet in a
// fixed orientation.
func gridYield(sheetW, sheetH, partW, partH, efficiency float64) float64 {
	return math.Floor(sheetW/partW) * math.Floor(sheetH/partH) * efficiency
}
