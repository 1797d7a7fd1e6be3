package domain

import "math"

// PricingMethod selects how material cost is computed for a material.
type PricingMethod string

const (
	PriceByWeight     PricingMethod = "weight"
	PriceByLinearInch PricingMethod = "linear_inch"
	PriceBySheet      PricingMethod = "sheet"
)

// Process is a manufacturing process rate card.
type Process struct {
	Name                string  `json:"name"`
	HourlyRate          float64 `json:"hourly_rate"`
	SetupCost           float64 `json:"setup_cost"`
	SetupTimeMultiplier float64 `json:"setup_time_multiplier"`
	FeedRateMmPerMin    float64 `json:"feed_rate_mm_per_min"`
	DepthOfCutMm        float64 `json:"depth_of_cut_mm"`
	ToolChangeMinutes   float64 `json:"tool_change_minutes"`
	Active              bool    `json:"active"`
}

// Material is a priced stock material with its section and sheet catalogs.
type Material struct {
	Name                string               `json:"name"`
	PricingMethod       PricingMethod        `json:"pricing_method"`
	CostPerCubicCm      float64              `json:"cost_per_cubic_cm"`
	MachinabilityRating float64              `json:"machinability_rating"`
	RemovalAdjustment   float64              `json:"removal_adjustment"`
	ToolWearFactor      float64              `json:"tool_wear_factor"`
	Sections            []StockSection       `json:"sections,omitempty"`
	Sheets              []SheetConfiguration `json:"sheets,omitempty"`
	Active              bool                 `json:"active"`
}

// StockSection is a bar-stock cross section. Rectangular and circular
// sections are distinct types rather than one record with a discriminant
// field, so a circular section cannot drift into an inconsistent
// width/thickness pair. Dimensions are in inches, matching supplier
// catalogs.
type StockSection interface {
	// Fits reports whether a part whose two smaller bounding dimensions
	// are a and b (inches) can be cut from this section.
	Fits(aIn, bIn float64) bool
	// CostPerInch is the stock price per inch of bar length.
	CostPerInch() float64

	isStockSection()
}

type RectangularSection struct {
	WidthIn       float64 `json:"width_in"`
	ThicknessIn   float64 `json:"thickness_in"`
	PricePerInch  float64 `json:"cost_per_inch"`
	WeightPerFoot float64 `json:"weight_per_foot,omitempty"`
	WeightPerBar  float64 `json:"weight_per_bar,omitempty"`
}

func (s RectangularSection) Fits(aIn, bIn float64) bool {
	// Either orientation of the part against the section is acceptable.
	if aIn <= s.WidthIn && bIn <= s.ThicknessIn {
		return true
	}
	return bIn <= s.WidthIn && aIn <= s.ThicknessIn
}

func (s RectangularSection) CostPerInch() float64 { return s.PricePerInch }
func (s RectangularSection) isStockSection()      {}

type CircularSection struct {
	DiameterIn    float64 `json:"diameter_in"`
	PricePerInch  float64 `json:"cost_per_inch"`
	WeightPerFoot float64 `json:"weight_per_foot,omitempty"`
	WeightPerBar  float64 `json:"weight_per_bar,omitempty"`
}

func (s CircularSection) Fits(aIn, bIn float64) bool {
	// The rectangular cross section of the part must fit inside the round
	// bar, so its diagonal is the binding dimension.
	return math.Sqrt(aIn*aIn+bIn*bIn) <= s.DiameterIn
}

func (s CircularSection) CostPerInch() float64 { return s.PricePerInch }
func (s CircularSection) isStockSection()      {}

// SheetUnit is the dimension unit of a sheet configuration.
type SheetUnit string

const (
	SheetUnitCm   SheetUnit = "cm"
	SheetUnitInch SheetUnit = "inch"
)

// SheetConfiguration is one purchasable sheet size.
type SheetConfiguration struct {
	Width        float64   `json:"width"`
	Height       float64   `json:"height"`
	Thickness    float64   `json:"thickness"`
	CostPerSheet float64   `json:"cost_per_sheet"`
	Unit         SheetUnit `json:"unit"`
}

// WidthCm and HeightCm return sheet dimensions normalized to centimetres.
func (s SheetConfiguration) WidthCm() float64 {
	if s.Unit == SheetUnitInch {
		return s.Width * 2.54
	}
	return s.Width
}

func (s SheetConfiguration) HeightCm() float64 {
	if s.Unit == SheetUnitInch {
		return s.Height * 2.54
	}
	return s.Height
}

// SurfaceTreatment is a per-area post-processing operation.
type SurfaceTreatment struct {
	Name       string  `json:"name"`
	CostPerCm2 float64 `json:"cost_per_cm2"`
	Active     bool    `json:"active"`
}
