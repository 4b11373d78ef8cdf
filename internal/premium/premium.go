// Package premium derives annual premiums from contract-specific inputs.
// Callers validate input ranges; these functions never fail.
package premium

import (
	"strings"

	"github.com/khaliloulah1/securelife/internal/domain"
)

// Risk-zone tiers recognised by Home
const (
	ZoneHigh   = "HAUT"
	ZoneMedium = "MOYEN"
	ZoneLow    = "BAS"
)

// Auto = base * (bonusMalus/100) * fiscalPower
func Auto(base float64, bonusMalus, fiscalPower int) float64 {
	return base * (float64(bonusMalus) / 100.0) * float64(fiscalPower)
}

// Home = base * surface * zone factor
func Home(base, surface float64, zone string) float64 {
	return base * surface * ZoneFactor(zone)
}

// ZoneFactor maps a free-text zone onto its tier factor. Unknown zones count as low risk.
func ZoneFactor(zone string) float64 {
	switch strings.ToUpper(strings.TrimSpace(zone)) {
	case ZoneHigh, "HIGH":
		return 1.5
	case ZoneMedium, "MEDIUM":
		return 1.2
	default:
		return 1.0
	}
}

// Life = base * (capital/10000) * age factor
func Life(base, capital float64, age int) float64 {
	ageFactor := 1.0
	if age >= 40 {
		ageFactor = 1.5
	}
	return base * (capital / 10000.0) * ageFactor
}

// For computes the annual premium of a contract from its current fields
func For(c *domain.Contract) float64 {
	switch {
	case c.Auto != nil:
		return Auto(c.BasePremium, c.Auto.BonusMalus, c.Auto.FiscalPower)
	case c.Home != nil:
		return Home(c.BasePremium, c.Home.SurfaceArea, c.Home.RiskZone)
	case c.Life != nil:
		return Life(c.BasePremium, c.Life.GuaranteedCapital, c.Life.InsuredAge)
	}
	return 0
}
