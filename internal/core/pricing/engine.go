// Package pricing converts geometric quantities plus catalog rates into a
// unit price with a full cost and machining-time breakdown. The engine is
// pure: catalog data is passed in, nothing here touches a store.
package pricing

import (
	"fmt"
	"math"

	"github.com/fabworks/partquote/internal/core/domain"
)

const cmPerInch = 2.54

// Config carries the engine's tunable economics.
type Config struct {
	// MinimumUnitPrice floors every quote.
	MinimumUnitPrice float64
	// StockMarginFactor scales each bounding dimension to the stock blank.
	StockMarginFactor float64
	// StockVolumeCap bounds stock volume to a multiple of part volume so a
	// thin sprawling part cannot claim unbounded waste.
	StockVolumeCap float64
	// MinRemovalFraction guarantees some cutting work even for near-net
	// parts.
	MinRemovalFraction float64
	// NestingEfficiency is the usable fraction of sheet area after layout
	// losses.
	NestingEfficiency float64
	// FinishCostPerCm2 prices a non-default finish per unit surface area.
	FinishCostPerCm2 float64
	// DefaultConfidence is reported when the request does not carry one.
	DefaultConfidence float64
}

func DefaultConfig() Config {
	return Config{
		MinimumUnitPrice:   10.0,
		StockMarginFactor:  1.2,
		StockVolumeCap:     3.0,
		MinRemovalFraction: 0.2,
		NestingEfficiency:  0.85,
		FinishCostPerCm2:   0.05,
		DefaultConfidence:  0.9,
	}
}

// Engine computes quotes. Construct once, share freely: it holds no mutable
// state.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.MinimumUnitPrice <= 0 {
		cfg.MinimumUnitPrice = def.MinimumUnitPrice
	}
	if cfg.StockMarginFactor <= 1 {
		cfg.StockMarginFactor = def.StockMarginFactor
	}
	if cfg.StockVolumeCap <= 1 {
		cfg.StockVolumeCap = def.StockVolumeCap
	}
	if cfg.MinRemovalFraction <= 0 {
		cfg.MinRemovalFraction = def.MinRemovalFraction
	}
	if cfg.NestingEfficiency <= 0 || cfg.NestingEfficiency > 1 {
		cfg.NestingEfficiency = def.NestingEfficiency
	}
	if cfg.FinishCostPerCm2 <= 0 {
		cfg.FinishCostPerCm2 = def.FinishCostPerCm2
	}
	if cfg.DefaultConfidence <= 0 {
		cfg.DefaultConfidence = def.DefaultConfidence
	}
	return &Engine{cfg: cfg}
}

// ValidateRequest rejects requests missing the required quantities.
func ValidateRequest(req domain.QuoteRequest) error {
	switch {
	case req.VolumeCm3 <= 0:
		return domain.WrapError(domain.ErrInvalidInput, "validate quote request",
			fmt.Errorf("volume_cm3 must be positive"))
	case req.SurfaceAreaCm2 <= 0:
		return domain.WrapError(domain.ErrInvalidInput, "validate quote request",
			fmt.Errorf("surface_area_cm2 must be positive"))
	case req.ComplexityScore < 1 || req.ComplexityScore > 10:
		return domain.WrapError(domain.ErrInvalidInput, "validate quote request",
			fmt.Errorf("complexity_score must be 1-10"))
	case req.Quantity < 1:
		return domain.WrapError(domain.ErrInvalidInput, "validate quote request",
			fmt.Errorf("quantity must be at least 1"))
	}
	return nil
}

// Quote runs the full pricing model. The caller resolves catalog entries;
// a missing process or material is the caller's fatal error, not the
// engine's.
func (e *Engine) Quote(
	req domain.QuoteRequest,
	process domain.Process,
	material domain.Material,
	treatments []domain.SurfaceTreatment,
) *domain.QuoteResult {
	dims := e.partDimensions(req)

	materialCost := e.materialCost(req, material, dims)
	removedVolume := e.removedVolume(req.VolumeCm3, dims)
	machining := e.machiningTime(req, process, material, removedVolume)
	machiningCost := machining.TotalHours * process.HourlyRate

	setupCost := process.SetupCost * process.SetupTimeMultiplier / float64(req.Quantity)

	finishCost := 0.0
	if req.Finish != "" && req.Finish != "standard" {
		finishCost = req.SurfaceAreaCm2 * e.cfg.FinishCostPerCm2
	}

	treatmentCost := 0.0
	for _, treatment := range treatments {
		treatmentCost += req.SurfaceAreaCm2 * treatment.CostPerCm2
	}

	subtotal := materialCost + machiningCost + setupCost + finishCost + treatmentCost
	discount, tier := quantityDiscount(req.Quantity)
	discountAmount := subtotal * discount

	unitPrice := subtotal - discountAmount
	if unitPrice < e.cfg.MinimumUnitPrice {
		unitPrice = e.cfg.MinimumUnitPrice
	}

	totalHours := machining.TotalHours * float64(req.Quantity)
	leadTime := int(math.Ceil(totalHours/8.0)) + 2
	if leadTime < 5 {
		leadTime = 5
	}

	confidence := req.Confidence
	if confidence <= 0 {
		confidence = e.cfg.DefaultConfidence
	}

	result := &domain.QuoteResult{
		UnitPrice:  round2(unitPrice),
		TotalPrice: round2(unitPrice * float64(req.Quantity)),
		Breakdown: domain.CostBreakdown{
			MaterialCost:         round2(materialCost),
			MachiningCost:        round2(machiningCost),
			SetupCost:            round2(setupCost),
			FinishCost:           round2(finishCost),
			SurfaceTreatmentCost: round2(treatmentCost),
			DiscountApplied:      round2(discountAmount),
		},
		EstimatedHours:   machining.TotalHours,
		LeadTimeDays:     leadTime,
		Confidence:       confidence,
		Machining:        machining,
		RemovedVolumeCm3: removedVolume,
		DiscountTier:     tier,
	}
	result.Warnings = auditWarnings(req, result)
	return result
}

// materialCost branches on the material's pricing method, falling back to
// weight-based cost when no stock option fits the part.
func (e *Engine) materialCost(req domain.QuoteRequest, material domain.Material, dims [3]float64) float64 {
	weightBased := req.VolumeCm3 * material.CostPerCubicCm

	switch material.PricingMethod {
	case domain.PriceByLinearInch:
		if cost, ok := cheapestBarCost(material.Sections, dims); ok {
			return cost
		}
		return weightBased
	case domain.PriceBySheet:
		if cost, ok := bestSheetCost(material.Sheets, dims, req.Quantity, e.cfg.NestingEfficiency); ok {
			return cost
		}
		return weightBased
	default:
		return weightBased
	}
}

// partDimensions returns sorted bounding dimensions in cm, deriving a cube
// estimate from volume when the request carries none.
func (e *Engine) partDimensions(req domain.QuoteRequest) [3]float64 {
	dims := [3]float64{req.WidthCm, req.HeightCm, req.DepthCm}
	if dims[0] <= 0 || dims[1] <= 0 || dims[2] <= 0 {
		side := math.Cbrt(req.VolumeCm3)
		dims = [3]float64{side, side, side}
	}
	sort3(&dims)
	return dims
}

// removedVolume estimates waste: stock is the margin-scaled bounding box,
// capped relative to the part, and removal never drops below the minimum
// fraction.
func (e *Engine) removedVolume(partVolume float64, dims [3]float64) float64 {
	m := e.cfg.StockMarginFactor
	stockVolume := dims[0] * m * dims[1] * m * dims[2] * m
	if cap := partVolume * e.cfg.StockVolumeCap; stockVolume > cap {
		stockVolume = cap
	}
	return math.Max(stockVolume-partVolume, partVolume*e.cfg.MinRemovalFraction)
}

// machiningTime models roughing, finishing, tool changes and positioning
// from the material removal rate.
func (e *Engine) machiningTime(
	req domain.QuoteRequest,
	process domain.Process,
	material domain.Material,
	removedVolume float64,
) domain.MachiningTimeBreakdown {
	// MRR in mm3/min: feed x depth x stepover (1.5 x depth), derated by
	// machinability; converted to cm3/min.
	mrr := process.FeedRateMmPerMin * process.DepthOfCutMm * (1.5 * process.DepthOfCutMm) *
		material.MachinabilityRating * material.RemovalAdjustment / 1000.0
	if mrr <= 0 {
		mrr = 1.0
	}

	roughingMin := (removedVolume * 0.8) / mrr
	finishingMin := (removedVolume * 0.2) / (mrr * 0.3)
	finishingMin += (req.SurfaceAreaCm2 / 50.0) * (1.0 + float64(req.ComplexityScore-5)/10.0)

	toolWear := material.ToolWearFactor
	if toolWear <= 0 {
		toolWear = 1.0
	}
	toolChangeMin := math.Ceil(removedVolume/50.0*toolWear) * process.ToolChangeMinutes

	positioningMin := (roughingMin + finishingMin) * 0.2

	total := roughingMin + finishingMin + toolChangeMin + positioningMin
	return domain.MachiningTimeBreakdown{
		RoughingHours:    roughingMin / 60.0,
		FinishingHours:   finishingMin / 60.0,
		ToolChangeHours:  toolChangeMin / 60.0,
		PositioningHours: positioningMin / 60.0,
		TotalHours:       total / 60.0,
	}
}

// quantityDiscount is a non-increasing step function of quantity.
func quantityDiscount(quantity int) (float64, string) {
	switch {
	case quantity >= 1000:
		return 0.20, "1000+"
	case quantity >= 100:
		return 0.15, "100+"
	case quantity >= 50:
		return 0.10, "50+"
	case quantity >= 10:
		return 0.05, "10+"
	default:
		return 0, "none"
	}
}

func sort3(dims *[3]float64) {
	if dims[0] > dims[1] {
		dims[0], dims[1] = dims[1], dims[0]
	}
	if dims[1] > dims[2] {
		dims[1], dims[2] = dims[2], dims[1]
	}
	if dims[0] > dims[1] {
		dims[0], dims[1] = dims[1], dims[0]
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
