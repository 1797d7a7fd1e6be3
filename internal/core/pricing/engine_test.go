package pricing

import (
	"math"
	"testing"

	"github.com/fabworks/partquote/internal/core/domain"
)

func testProcess() domain.Process {
	return domain.Process{
		Name:                "cnc-milling",
		HourlyRate:          50,
		SetupCost:           100,
		SetupTimeMultiplier: 1.0,
		FeedRateMmPerMin:    500,
		DepthOfCutMm:        2,
		ToolChangeMinutes:   2,
		Active:              true,
	}
}

func testMaterial() domain.Material {
	return domain.Material{
		Name:                "aluminum-6061",
		PricingMethod:       domain.PriceByWeight,
		CostPerCubicCm:      0.05,
		MachinabilityRating: 1.0,
		RemovalAdjustment:   1.0,
		ToolWearFactor:      1.0,
		Active:              true,
	}
}

func baseRequest() domain.QuoteRequest {
	return domain.QuoteRequest{
		VolumeCm3:       50,
		SurfaceAreaCm2:  300,
		ComplexityScore: 5,
		Quantity:        1,
	}
}

func TestQuoteWeightBasedBreakdown(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	result := engine.Quote(baseRequest(), testProcess(), testMaterial(), nil)

	if math.Abs(result.Breakdown.MaterialCost-2.5) > 1e-9 {
		t.Fatalf("expected material cost 50 cm3 x 0.05 = 2.50, got %f", result.Breakdown.MaterialCost)
	}
	if result.Breakdown.SetupCost != 100 {
		t.Fatalf("expected full setup cost at quantity 1, got %f", result.Breakdown.SetupCost)
	}
	if result.Breakdown.MachiningCost <= 0 {
		t.Fatalf("expected positive machining cost, got %f", result.Breakdown.MachiningCost)
	}
	if result.Breakdown.DiscountApplied != 0 {
		t.Fatalf("expected no discount at quantity 1, got %f", result.Breakdown.DiscountApplied)
	}

	sum := result.Breakdown.MaterialCost + result.Breakdown.MachiningCost +
		result.Breakdown.SetupCost + result.Breakdown.FinishCost +
		result.Breakdown.SurfaceTreatmentCost - result.Breakdown.DiscountApplied
	if math.Abs(sum-result.UnitPrice) > 0.02 {
		t.Fatalf("breakdown must sum to unit price: sum=%f unit=%f", sum, result.UnitPrice)
	}
	if result.TotalPrice != result.UnitPrice {
		t.Fatalf("total must equal unit price at quantity 1")
	}
}

func TestQuoteMachiningTimeComponents(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	result := engine.Quote(baseRequest(), testProcess(), testMaterial(), nil)

	m := result.Machining
	componentSum := m.RoughingHours + m.FinishingHours + m.ToolChangeHours + m.PositioningHours
	if math.Abs(componentSum-m.TotalHours) > 1e-9 {
		t.Fatalf("machining components must sum to total: %f vs %f", componentSum, m.TotalHours)
	}
	if m.RoughingHours <= 0 || m.FinishingHours <= 0 {
		t.Fatalf("expected positive roughing and finishing time: %+v", m)
	}
	// Positioning is a fixed 20% of cutting time.
	cutting := m.RoughingHours + m.FinishingHours
	if math.Abs(m.PositioningHours-cutting*0.2) > 1e-9 {
		t.Fatalf("expected positioning 20%% of cutting time, got %f of %f", m.PositioningHours, cutting)
	}
}

func TestQuoteQuantityDiscountSteps(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	cases := []struct {
		quantity int
		tier     string
		rate     float64
	}{
		{1, "none", 0},
		{9, "none", 0},
		{10, "10+", 0.05},
		{50, "50+", 0.10},
		{100, "100+", 0.15},
		{1000, "1000+", 0.20},
	}
	for _, tc := range cases {
		req := baseRequest()
		req.Quantity = tc.quantity
		result := engine.Quote(req, testProcess(), testMaterial(), nil)

		if result.DiscountTier != tc.tier {
			t.Fatalf("quantity %d: expected tier %q, got %q", tc.quantity, tc.tier, result.DiscountTier)
		}
		subtotal := result.UnitPrice + result.Breakdown.DiscountApplied
		if math.Abs(result.Breakdown.DiscountApplied-subtotal*tc.rate) > 0.02 {
			t.Fatalf("quantity %d: expected %.0f%% discount, got %f off %f",
				tc.quantity, tc.rate*100, result.Breakdown.DiscountApplied, subtotal)
		}
	}
}

func TestQuoteHigherQuantityNeverRaisesUnitPrice(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	prev := math.Inf(1)
	for _, quantity := range []int{1, 10, 50, 100, 1000} {
		req := baseRequest()
		req.Quantity = quantity
		result := engine.Quote(req, testProcess(), testMaterial(), nil)
		if result.UnitPrice > prev {
			t.Fatalf("unit price rose with quantity %d: %f > %f", quantity, result.UnitPrice, prev)
		}
		prev = result.UnitPrice
	}
}

func TestQuoteMinimumUnitPriceFloor(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	req := domain.QuoteRequest{
		VolumeCm3:       0.5,
		SurfaceAreaCm2:  4,
		ComplexityScore: 1,
		Quantity:        1000,
	}
	process := testProcess()
	process.SetupCost = 1
	material := testMaterial()
	material.CostPerCubicCm = 0.001

	result := engine.Quote(req, process, material, nil)
	if result.UnitPrice < 10 {
		t.Fatalf("unit price must never fall below the 10 floor, got %f", result.UnitPrice)
	}
}

func TestQuoteLeadTimeFloor(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	result := engine.Quote(baseRequest(), testProcess(), testMaterial(), nil)

	if result.LeadTimeDays < 5 {
		t.Fatalf("lead time must never drop below 5 days, got %d", result.LeadTimeDays)
	}

	// A big batch of slow parts pushes past the floor.
	req := baseRequest()
	req.Quantity = 500
	batch := engine.Quote(req, testProcess(), testMaterial(), nil)
	want := int(math.Ceil(batch.EstimatedHours*500/8.0)) + 2
	if batch.LeadTimeDays != want {
		t.Fatalf("expected lead time %d for the batch, got %d", want, batch.LeadTimeDays)
	}
}

func TestQuoteLinearInchPicksCheapestFittingSection(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	material := testMaterial()
	material.PricingMethod = domain.PriceByLinearInch
	material.Sections = []domain.StockSection{
		// Too small for the part's cross section.
		domain.CircularSection{DiameterIn: 0.5, PricePerInch: 0.10},
		domain.RectangularSection{WidthIn: 4, ThicknessIn: 4, PricePerInch: 2.00},
		domain.CircularSection{DiameterIn: 4, PricePerInch: 1.00},
	}

	req := baseRequest()
	req.WidthCm = 4
	req.HeightCm = 4
	req.DepthCm = 20

	result := engine.Quote(req, testProcess(), material, nil)
	// Cross section 4x4 cm = 1.57x1.57 in, diagonal 2.23 in: both large
	// sections fit, the round bar is cheaper. Length 20 cm x 1.2 margin.
	wantCost := 1.00 * (20 / 2.54 * 1.2)
	if math.Abs(result.Breakdown.MaterialCost-round2(wantCost)) > 0.02 {
		t.Fatalf("expected cheapest fitting bar cost %.2f, got %f", wantCost, result.Breakdown.MaterialCost)
	}
}

func TestQuoteLinearInchFallsBackToWeightWhenNothingFits(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	material := testMaterial()
	material.PricingMethod = domain.PriceByLinearInch
	material.Sections = []domain.StockSection{
		domain.CircularSection{DiameterIn: 0.25, PricePerInch: 0.10},
	}

	req := baseRequest()
	req.WidthCm = 10
	req.HeightCm = 10
	req.DepthCm = 10

	result := engine.Quote(req, testProcess(), material, nil)
	if math.Abs(result.Breakdown.MaterialCost-2.5) > 1e-9 {
		t.Fatalf("expected weight-based fallback 2.50, got %f", result.Breakdown.MaterialCost)
	}
}

func TestQuoteSheetChargesWholeSheets(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	material := testMaterial()
	material.PricingMethod = domain.PriceBySheet
	material.Sheets = []domain.SheetConfiguration{
		{Width: 100, Height: 100, Thickness: 0.5, CostPerSheet: 85, Unit: domain.SheetUnitCm},
	}

	req := baseRequest()
	req.WidthCm = 0.5
	req.HeightCm = 10
	req.DepthCm = 10
	req.Quantity = 200

	// Grid yield: floor(100/10) x floor(100/10) x 0.85 = 85 parts per sheet.
	// 200 parts need ceil(200/85) = 3 sheets; the third is paid in full even
	// though it is only partially used: 3 x 85 / 200 per part.
	result := engine.Quote(req, testProcess(), material, nil)
	want := round2(math.Ceil(200.0/85.0) * 85.0 / 200.0)
	if math.Abs(result.Breakdown.MaterialCost-want) > 1e-9 {
		t.Fatalf("expected sheet cost %.2f per part, got %f", want, result.Breakdown.MaterialCost)
	}

	// A quantity-1 order pays for the whole sheet.
	req.Quantity = 1
	single := engine.Quote(req, testProcess(), material, nil)
	if math.Abs(single.Breakdown.MaterialCost-85.0) > 1e-9 {
		t.Fatalf("expected single part to carry the full sheet, got %f", single.Breakdown.MaterialCost)
	}
}

func TestQuoteSheetYieldUsesPerAxisCounts(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	material := testMaterial()
	material.PricingMethod = domain.PriceBySheet
	material.Sheets = []domain.SheetConfiguration{
		{Width: 100, Height: 100, Thickness: 0.5, CostPerSheet: 85, Unit: domain.SheetUnitCm},
	}

	// A 60x60 part leaves 40 cm scrap on each axis: only one part nests per
	// sheet even though two would fit by raw area. Yield 1x1x0.85 = 0.85, so
	// a single part still needs ceil(1/0.85) = 2 sheets of material budget.
	req := baseRequest()
	req.WidthCm = 0.5
	req.HeightCm = 60
	req.DepthCm = 60
	req.Quantity = 1

	result := engine.Quote(req, testProcess(), material, nil)
	if math.Abs(result.Breakdown.MaterialCost-170.0) > 1e-9 {
		t.Fatalf("expected 2 sheets = 170.00 for the uneven part, got %f", result.Breakdown.MaterialCost)
	}
}

func TestQuoteSheetTriesTransposedOrientation(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	material := testMaterial()
	material.PricingMethod = domain.PriceBySheet
	material.Sheets = []domain.SheetConfiguration{
		{Width: 100, Height: 50, Thickness: 0.5, CostPerSheet: 40, Unit: domain.SheetUnitCm},
	}

	// 40x90 fits the 100x50 sheet only when rotated: floor(100/90) x
	// floor(50/40) = 1 part per sheet before derating.
	req := baseRequest()
	req.WidthCm = 0.5
	req.HeightCm = 40
	req.DepthCm = 90
	req.Quantity = 1

	result := engine.Quote(req, testProcess(), material, nil)
	want := round2(math.Ceil(1.0/0.85) * 40.0)
	if math.Abs(result.Breakdown.MaterialCost-want) > 1e-9 {
		t.Fatalf("expected transposed fit at %.2f, got %f", want, result.Breakdown.MaterialCost)
	}
}

func TestQuoteSheetFallsBackToWeightWhenNothingFits(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	material := testMaterial()
	material.PricingMethod = domain.PriceBySheet
	material.Sheets = []domain.SheetConfiguration{
		{Width: 100, Height: 100, Thickness: 0.5, CostPerSheet: 85, Unit: domain.SheetUnitCm},
	}

	req := baseRequest()
	req.WidthCm = 0.5
	req.HeightCm = 120
	req.DepthCm = 150

	result := engine.Quote(req, testProcess(), material, nil)
	if math.Abs(result.Breakdown.MaterialCost-2.5) > 1e-9 {
		t.Fatalf("expected weight-based fallback 2.50, got %f", result.Breakdown.MaterialCost)
	}
}

func TestQuoteFinishAndTreatmentCosts(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	req := baseRequest()
	req.Finish = "anodized"
	treatments := []domain.SurfaceTreatment{
		{Name: "bead-blast", CostPerCm2: 0.02, Active: true},
	}

	result := engine.Quote(req, testProcess(), testMaterial(), treatments)
	if math.Abs(result.Breakdown.FinishCost-300*0.05) > 1e-9 {
		t.Fatalf("expected finish cost 15.00, got %f", result.Breakdown.FinishCost)
	}
	if math.Abs(result.Breakdown.SurfaceTreatmentCost-300*0.02) > 1e-9 {
		t.Fatalf("expected treatment cost 6.00, got %f", result.Breakdown.SurfaceTreatmentCost)
	}

	req.Finish = "standard"
	plain := engine.Quote(req, testProcess(), testMaterial(), nil)
	if plain.Breakdown.FinishCost != 0 {
		t.Fatalf("standard finish must be free, got %f", plain.Breakdown.FinishCost)
	}
}

func TestQuoteAuditWarnings(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	// A huge, complex part with slow parameters trips the machining-hours
	// and unit-price thresholds.
	req := domain.QuoteRequest{
		VolumeCm3:       4000,
		SurfaceAreaCm2:  6000,
		ComplexityScore: 9,
		Quantity:        1,
	}
	process := testProcess()
	process.FeedRateMmPerMin = 100
	material := testMaterial()
	material.CostPerCubicCm = 3.0

	result := engine.Quote(req, process, material, nil)
	kinds := map[string]bool{}
	for _, w := range result.Warnings {
		kinds[w.Kind] = true
	}
	if !kinds["long_machining"] {
		t.Fatalf("expected long_machining warning, got %v", result.Warnings)
	}
	if !kinds["high_material_cost"] {
		t.Fatalf("expected high_material_cost warning, got %v", result.Warnings)
	}
	if !kinds["high_unit_price"] {
		t.Fatalf("expected high_unit_price warning, got %v", result.Warnings)
	}

	// Warnings annotate, they never block: the quote is still priced.
	if result.UnitPrice <= 0 || result.LeadTimeDays < 5 {
		t.Fatalf("warned quote must still be fully priced: %+v", result)
	}

	clean := engine.Quote(baseRequest(), testProcess(), testMaterial(), nil)
	if len(clean.Warnings) != 0 {
		t.Fatalf("expected no warnings for the nominal part, got %v", clean.Warnings)
	}
}

func TestValidateRequest(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.QuoteRequest)
	}{
		{"zero volume", func(r *domain.QuoteRequest) { r.VolumeCm3 = 0 }},
		{"negative surface", func(r *domain.QuoteRequest) { r.SurfaceAreaCm2 = -1 }},
		{"complexity too low", func(r *domain.QuoteRequest) { r.ComplexityScore = 0 }},
		{"complexity too high", func(r *domain.QuoteRequest) { r.ComplexityScore = 11 }},
		{"zero quantity", func(r *domain.QuoteRequest) { r.Quantity = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := baseRequest()
			tc.mutate(&req)
			if err := ValidateRequest(req); !domain.IsKind(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	if err := ValidateRequest(baseRequest()); err != nil {
		t.Fatalf("expected valid request to pass, got %v", err)
	}
}

func TestQuoteConfidencePassThroughAndDefault(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	req := baseRequest()
	req.Confidence = domain.ConfidenceHeuristic
	result := engine.Quote(req, testProcess(), testMaterial(), nil)
	if result.Confidence != domain.ConfidenceHeuristic {
		t.Fatalf("expected confidence passed through, got %f", result.Confidence)
	}

	req.Confidence = 0
	defaulted := engine.Quote(req, testProcess(), testMaterial(), nil)
	if defaulted.Confidence != 0.9 {
		t.Fatalf("expected default confidence 0.9, got %f", defaulted.Confidence)
	}
}
