package search

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/khaliloulah1/securelife/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func sample() []*domain.Contract {
	return []*domain.Contract{
		{ID: 1, Kind: domain.KindAuto, FullName: "Awa Ndiaye", Email: "awa@example.com", AnnualPremium: 7200, Status: domain.StatusActive, OwnerID: 10},
		{ID: 2, Kind: domain.KindHome, FullName: "Moussa Fall", Email: "moussa@example.com", AnnualPremium: 15000, Status: domain.StatusActive, OwnerID: 11},
		{ID: 3, Kind: domain.KindLife, FullName: "awa diop", Email: "diop@example.com", AnnualPremium: 50, Status: domain.StatusCancelled, OwnerID: 10},
	}
}

func ids(spec Specification, contracts []*domain.Contract) []int64 {
	var out []int64
	for _, c := range contracts {
		if spec.Matches(c) {
			out = append(out, c.ID)
		}
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEmptyFilterMatchesEverything(t *testing.T) {
	spec := FromFilter(domain.Filter{})
	if spec.Len() != 0 {
		t.Fatalf("expected no predicates, got %v", spec.Names())
	}
	if got := ids(spec, sample()); !equalIDs(got, []int64{1, 2, 3}) {
		t.Fatalf("expected all contracts, got %v", got)
	}
	where, args := spec.Where(0)
	if where != "TRUE" || len(args) != 0 {
		t.Fatalf("expected TRUE, got %q %v", where, args)
	}
}

func TestPremiumBetween(t *testing.T) {
	if PremiumBetween(nil, nil) != nil {
		t.Fatalf("unbounded premium range must be elided")
	}
	spec := AllOf(PremiumBetween(ptr(100.0), nil))
	if got := ids(spec, sample()); !equalIDs(got, []int64{1, 2}) {
		t.Fatalf("min=100: got %v", got)
	}
	spec = AllOf(PremiumBetween(nil, ptr(7200.0)))
	if got := ids(spec, sample()); !equalIDs(got, []int64{1, 3}) {
		t.Fatalf("max=7200: got %v", got)
	}
	spec = AllOf(PremiumBetween(ptr(50.0), ptr(7200.0)))
	if got := ids(spec, sample()); !equalIDs(got, []int64{1, 3}) {
		t.Fatalf("between inclusive: got %v", got)
	}
}

func TestFilterCombination(t *testing.T) {
	spec := FromFilter(domain.Filter{
		FullName: "AWA",
		Status:   ptr(domain.StatusActive),
	})
	if got := ids(spec, sample()); !equalIDs(got, []int64{1}) {
		t.Fatalf("got %v", got)
	}
	spec = FromFilter(domain.Filter{Kind: ptr(domain.KindLife)})
	if got := ids(spec, sample()); !equalIDs(got, []int64{3}) {
		t.Fatalf("kind: got %v", got)
	}
	spec = FromFilter(domain.Filter{Email: "moussa@example.com"})
	if got := ids(spec, sample()); !equalIDs(got, []int64{2}) {
		t.Fatalf("email: got %v", got)
	}
}

func TestScopedAlwaysRestrictsToOwner(t *testing.T) {
	filters := []domain.Filter{
		{},
		{Email: "moussa@example.com"},
		{Kind: ptr(domain.KindHome)},
		{PremiumMin: ptr(0.0)},
	}
	for _, f := range filters {
		spec := Scoped(FromFilter(f), 10, true)
		for _, c := range sample() {
			if spec.Matches(c) && c.OwnerID != 10 {
				t.Fatalf("filter %+v leaked contract %d owned by %d", f, c.ID, c.OwnerID)
			}
		}
	}
	if Scoped(FromFilter(domain.Filter{}), 10, false).Len() != 0 {
		t.Fatalf("unscoped specification must not add an owner predicate")
	}
}

func TestWhereRendersPlaceholders(t *testing.T) {
	spec := Scoped(FromFilter(domain.Filter{
		FullName:   "50%_off",
		Email:      "a@b.c",
		PremiumMin: ptr(1.0),
		PremiumMax: ptr(2.0),
	}), 7, true)
	where, args := spec.Where(1)
	want := `(LOWER(c.full_name) LIKE $2 ESCAPE '\') AND (c.email = $3) AND (c.annual_premium BETWEEN $4 AND $5) AND (c.owner_id = $6)`
	if where != want {
		t.Fatalf("unexpected where:\n got %s\nwant %s", where, want)
	}
	if len(args) != 5 {
		t.Fatalf("expected 5 args, got %v", args)
	}
	if args[0] != `%50\%\_off%` {
		t.Fatalf("expected escaped like pattern, got %v", args[0])
	}
	if args[4] != int64(7) {
		t.Fatalf("expected owner arg 7, got %v", args[4])
	}
}

func TestAndDoesNotMutateReceiver(t *testing.T) {
	base := AllOf(EmailEquals("a@b.c"))
	_ = base.And(OwnedBy(1))
	if base.Len() != 1 {
		t.Fatalf("And must not mutate the receiver")
	}
}

func TestFingerprint(t *testing.T) {
	page := domain.Page{Number: 0, Size: 10}
	a := Fingerprint(domain.Filter{Email: "x@y.z"}, page, 0, false)
	b := Fingerprint(domain.Filter{Email: "x@y.z"}, page, 0, false)
	if a != b {
		t.Fatalf("same filter must give same key")
	}
	keys := map[string]string{
		"empty":    Fingerprint(domain.Filter{}, page, 0, false),
		"email":    a,
		"name":     Fingerprint(domain.Filter{FullName: "x@y.z"}, page, 0, false),
		"min0":     Fingerprint(domain.Filter{PremiumMin: ptr(0.0)}, page, 0, false),
		"max0":     Fingerprint(domain.Filter{PremiumMax: ptr(0.0)}, page, 0, false),
		"page1":    Fingerprint(domain.Filter{}, domain.Page{Number: 1, Size: 10}, 0, false),
		"holder10": Fingerprint(domain.Filter{}, page, 10, true),
		"holder11": Fingerprint(domain.Filter{}, page, 11, true),
	}
	seen := map[string]string{}
	for name, k := range keys {
		if other, dup := seen[k]; dup {
			t.Fatalf("%s and %s collide", name, other)
		}
		seen[k] = name
	}
	if Fingerprint(domain.Filter{}, page, 42, false) != keys["empty"] {
		t.Fatalf("owner id must be ignored when unscoped")
	}
}

func TestValidateFilter(t *testing.T) {
	if err := ValidateFilter(domain.Filter{PremiumMin: ptr(10.0), PremiumMax: ptr(5.0)}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for inverted bounds, got %v", err)
	}
	err := ValidateFilter(domain.Filter{PremiumMin: ptr(math.NaN())})
	if err == nil || !strings.Contains(err.Error(), "premiumMin") {
		t.Fatalf("expected NaN to be rejected, got %v", err)
	}
	if err := ValidateFilter(domain.Filter{PremiumMin: ptr(5.0), PremiumMax: ptr(5.0)}); err != nil {
		t.Fatalf("equal bounds are valid: %v", err)
	}
}
