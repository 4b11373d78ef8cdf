package domain

import (
	"math"
	"testing"
)

func TestPageOffset(t *testing.T) {
	tests := []struct {
		name string
		page Page
		want int
	}{
		{"first page", Page{Number: 0, Size: 10}, 0},
		{"third page", Page{Number: 2, Size: 25}, 50},
		{"negative number", Page{Number: -3, Size: 10}, 0},
		{"overflowing product", Page{Number: math.MaxInt / 50, Size: 100}, math.MaxInt},
		{"max number", Page{Number: math.MaxInt, Size: 1}, math.MaxInt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.page.Offset(); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestPageNormalize(t *testing.T) {
	p := Page{Number: -1, Size: 500}.Normalize()
	if p.Number != 0 || p.Size != MaxPageSize {
		t.Fatalf("unexpected %+v", p)
	}
	if p := (Page{}).Normalize(); p.Size != DefaultPageSize {
		t.Fatalf("expected default size, got %d", p.Size)
	}
}
