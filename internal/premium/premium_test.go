package premium

import (
	"math"
	"testing"

	"github.com/khaliloulah1/securelife/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestAuto(t *testing.T) {
	if got := Auto(1000, 120, 6); !almostEqual(got, 7200) {
		t.Fatalf("expected 7200, got %v", got)
	}
	if got := Auto(500, 50, 1); !almostEqual(got, 250) {
		t.Fatalf("expected 250, got %v", got)
	}
}

func TestHome(t *testing.T) {
	tests := []struct {
		zone string
		want float64
	}{
		{"HAUT", 15000},
		{"haut", 15000},
		{"High", 15000},
		{"MOYEN", 12000},
		{" moyen ", 12000},
		{"BAS", 10000},
		{"CENTRE", 10000},
		{"", 10000},
	}
	for _, tt := range tests {
		if got := Home(200, 50, tt.zone); !almostEqual(got, tt.want) {
			t.Errorf("zone %q: expected %v, got %v", tt.zone, tt.want, got)
		}
	}
}

func TestLife(t *testing.T) {
	if got := Life(100, 20000, 39); !almostEqual(got, 200) {
		t.Fatalf("age 39: expected 200, got %v", got)
	}
	if got := Life(100, 20000, 40); !almostEqual(got, 300) {
		t.Fatalf("age 40: expected 300, got %v", got)
	}
}

func TestFor(t *testing.T) {
	c := &domain.Contract{Kind: domain.KindAuto, BasePremium: 1000, Auto: &domain.AutoDetails{BonusMalus: 120, FiscalPower: 6}}
	if got := For(c); !almostEqual(got, 7200) {
		t.Fatalf("expected 7200, got %v", got)
	}
	c = &domain.Contract{Kind: domain.KindLife, BasePremium: 50, Life: &domain.LifeDetails{GuaranteedCapital: 10000, InsuredAge: 60}}
	if got := For(c); !almostEqual(got, 75) {
		t.Fatalf("expected 75, got %v", got)
	}
}
