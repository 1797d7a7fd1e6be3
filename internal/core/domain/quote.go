package domain

import "time"

// QuoteRequest carries the geometric quantities and commercial options a
// quote is computed from. Volume, surface area, complexity and quantity are
// required; everything else has catalog or engine defaults.
type QuoteRequest struct {
	VolumeCm3         float64  `json:"volume_cm3"`
	SurfaceAreaCm2    float64  `json:"surface_area_cm2"`
	ComplexityScore   int      `json:"complexity_score"`
	Quantity          int      `json:"quantity"`
	Process           string   `json:"process,omitempty"`
	Material          string   `json:"material,omitempty"`
	Finish            string   `json:"finish,omitempty"`
	SurfaceTreatments []string `json:"surface_treatments,omitempty"`
	WidthCm           float64  `json:"part_width_cm,omitempty"`
	HeightCm          float64  `json:"part_height_cm,omitempty"`
	DepthCm           float64  `json:"part_depth_cm,omitempty"`
	Confidence        float64  `json:"confidence,omitempty"`
}

// CostBreakdown itemizes one quoted unit price.
type CostBreakdown struct {
	MaterialCost         float64 `json:"material_cost"`
	MachiningCost        float64 `json:"machining_cost"`
	SetupCost            float64 `json:"setup_cost"`
	FinishCost           float64 `json:"finish_cost"`
	SurfaceTreatmentCost float64 `json:"surface_treatment_cost"`
	DiscountApplied      float64 `json:"discount_applied"`
}

// MachiningTimeBreakdown itemizes per-unit machining hours.
type MachiningTimeBreakdown struct {
	RoughingHours    float64 `json:"roughing_hours"`
	FinishingHours   float64 `json:"finishing_hours"`
	ToolChangeHours  float64 `json:"tool_change_hours"`
	PositioningHours float64 `json:"positioning_hours"`
	TotalHours       float64 `json:"total_hours"`
}

// QuoteWarning is an audit annotation. Warnings never block quote delivery.
type QuoteWarning struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// QuoteResult is the computed quote. Constructed per request and never
// mutated after return.
type QuoteResult struct {
	ID               string                 `json:"quote_id,omitempty"`
	UnitPrice        float64                `json:"unit_price"`
	TotalPrice       float64                `json:"total_price"`
	Breakdown        CostBreakdown          `json:"breakdown"`
	EstimatedHours   float64                `json:"estimated_hours"`
	LeadTimeDays     int                    `json:"lead_time_days"`
	Confidence       float64                `json:"confidence"`
	Machining        MachiningTimeBreakdown `json:"machining_time_breakdown"`
	RemovedVolumeCm3 float64                `json:"removed_volume_cm3"`
	DiscountTier     string                 `json:"discount_tier"`
	Warnings         []QuoteWarning         `json:"warnings,omitempty"`
	CreatedAt        time.Time              `json:"created_at,omitempty"`
}
