package search

import (
	"math"

	"github.com/khaliloulah1/securelife/internal/domain"
)

// ValidateFilter rejects filters whose bounds cannot match anything meaningful
func ValidateFilter(f domain.Filter) error {
	fields := map[string]string{}
	if f.PremiumMin != nil && !finite(*f.PremiumMin) {
		fields["premiumMin"] = "must be a finite number"
	}
	if f.PremiumMax != nil && !finite(*f.PremiumMax) {
		fields["premiumMax"] = "must be a finite number"
	}
	if f.PremiumMin != nil && f.PremiumMax != nil && len(fields) == 0 && *f.PremiumMin > *f.PremiumMax {
		fields["premiumMin"] = "must not exceed premiumMax"
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
