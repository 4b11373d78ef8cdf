package search

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/khaliloulah1/securelife/internal/domain"
)

// fingerprintInput fixes field order; absent filters encode as null so two
// different filter combinations never share a key.
type fingerprintInput struct {
	Filter domain.Filter `json:"filter"`
	Page   domain.Page   `json:"page"`
	Scoped bool          `json:"scoped"`
	Owner  int64         `json:"owner"`
}

// Fingerprint returns a deterministic cache key for a search request. The
// ownership scope is part of the key so holders never share cached results.
func Fingerprint(f domain.Filter, page domain.Page, ownerID int64, scoped bool) string {
	if !scoped {
		ownerID = 0
	}
	in := fingerprintInput{Filter: f, Page: page, Scoped: scoped, Owner: ownerID}
	b, err := json.Marshal(in)
	if err != nil {
		// NaN and Inf bounds are rejected by ValidateFilter; fall back to the Go syntax form.
		b = []byte(fmt.Sprintf("%#v|%v|%v", in, deref(f.PremiumMin), deref(f.PremiumMax)))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func deref(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
