package pricing

import (
	"fmt"

	"github.com/fabworks/partquote/internal/core/domain"
)

// Audit thresholds. Breaching one annotates the quote, it never blocks it.
const (
	wasteRatioLimit      = 5.0
	machiningHoursLimit  = 10.0
	materialRateLimit    = 2.0
	unitPriceReviewLimit = 1000.0
)

// auditWarnings flags implausible quotes for human review.
func auditWarnings(req domain.QuoteRequest, result *domain.QuoteResult) []domain.QuoteWarning {
	var warnings []domain.QuoteWarning

	if ratio := result.RemovedVolumeCm3 / req.VolumeCm3; ratio > wasteRatioLimit {
		warnings = append(warnings, domain.QuoteWarning{
			Kind:    "excess_waste",
			Message: fmt.Sprintf("removed volume is %.1fx part volume", ratio),
		})
	}
	if result.EstimatedHours > machiningHoursLimit {
		warnings = append(warnings, domain.QuoteWarning{
			Kind:    "long_machining",
			Message: fmt.Sprintf("estimated %.1f machining hours per unit", result.EstimatedHours),
		})
	}
	if rate := result.Breakdown.MaterialCost / req.VolumeCm3; rate > materialRateLimit {
		warnings = append(warnings, domain.QuoteWarning{
			Kind:    "high_material_cost",
			Message: fmt.Sprintf("material cost %.2f per cm3 exceeds review threshold", rate),
		})
	}
	if result.UnitPrice > unitPriceReviewLimit {
		warnings = append(warnings, domain.QuoteWarning{
			Kind:    "high_unit_price",
			Message: fmt.Sprintf("unit price %.2f exceeds review threshold", result.UnitPrice),
		})
	}
	return warnings
}
