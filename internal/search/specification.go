// Package search turns an optional filter record into one composable predicate.
//
// Every predicate can be evaluated in memory (Match) and rendered as a
// parameterised SQL fragment (Clause), so the in-memory and Postgres stores
// apply exactly the same rules.
package search

import (
	"fmt"
	"strings"

	"github.com/khaliloulah1/securelife/internal/domain"
)

// Binder allocates the next positional placeholder for v and returns it ($1, $2, ...)
type Binder func(v any) string

// Predicate is a single boolean condition over a contract
type Predicate struct {
	Name   string
	Match  func(c *domain.Contract) bool
	Clause func(bind Binder) string
}

// Specification is a conjunction of predicates. The zero value matches everything.
type Specification struct {
	predicates []*Predicate
}

// AllOf conjoins predicates, eliding nil ones
func AllOf(preds ...*Predicate) Specification {
	var s Specification
	return s.And(preds...)
}

// And returns a new specification with the non-nil predicates appended
func (s Specification) And(preds ...*Predicate) Specification {
	out := Specification{predicates: make([]*Predicate, 0, len(s.predicates)+len(preds))}
	out.predicates = append(out.predicates, s.predicates...)
	for _, p := range preds {
		if p != nil {
			out.predicates = append(out.predicates, p)
		}
	}
	return out
}

// Len is the number of applied predicates
func (s Specification) Len() int { return len(s.predicates) }

// Names lists applied predicates, for logging
func (s Specification) Names() []string {
	names := make([]string, len(s.predicates))
	for i, p := range s.predicates {
		names[i] = p.Name
	}
	return names
}

// Matches evaluates the conjunction against c
func (s Specification) Matches(c *domain.Contract) bool {
	for _, p := range s.predicates {
		if !p.Match(c) {
			return false
		}
	}
	return true
}

// Where renders the conjunction as SQL. Placeholders start after the given
// number of already-bound arguments. An empty specification renders "TRUE".
func (s Specification) Where(existingArgs int) (string, []any) {
	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", existingArgs+len(args))
	}
	if len(s.predicates) == 0 {
		return "TRUE", nil
	}
	clauses := make([]string, 0, len(s.predicates))
	for _, p := range s.predicates {
		clauses = append(clauses, "("+p.Clause(bind)+")")
	}
	return strings.Join(clauses, " AND "), args
}

// FullNameContains is a case-insensitive substring match on the holder name
func FullNameContains(name string) *Predicate {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	needle := strings.ToLower(name)
	return &Predicate{
		Name: "fullName",
		Match: func(c *domain.Contract) bool {
			return strings.Contains(strings.ToLower(c.FullName), needle)
		},
		Clause: func(bind Binder) string {
			return "LOWER(c.full_name) LIKE " + bind("%"+escapeLike(needle)+"%") + ` ESCAPE '\'`
		},
	}
}

// EmailEquals is an exact email match
func EmailEquals(email string) *Predicate {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	return &Predicate{
		Name:   "email",
		Match:  func(c *domain.Contract) bool { return c.Email == email },
		Clause: func(bind Binder) string { return "c.email = " + bind(email) },
	}
}

// KindEquals restricts results to one contract variant
func KindEquals(kind *domain.Kind) *Predicate {
	if kind == nil {
		return nil
	}
	k := *kind
	return &Predicate{
		Name:   "kind",
		Match:  func(c *domain.Contract) bool { return c.Kind == k },
		Clause: func(bind Binder) string { return "c.kind = " + bind(string(k)) },
	}
}

// StatusEquals restricts results to one status
func StatusEquals(status *domain.Status) *Predicate {
	if status == nil {
		return nil
	}
	st := *status
	return &Predicate{
		Name:   "status",
		Match:  func(c *domain.Contract) bool { return c.Status == st },
		Clause: func(bind Binder) string { return "c.status = " + bind(string(st)) },
	}
}

// PremiumBetween bounds the annual premium inclusively. Either bound may be nil.
func PremiumBetween(min, max *float64) *Predicate {
	switch {
	case min == nil && max == nil:
		return nil
	case max == nil:
		lo := *min
		return &Predicate{
			Name:   "premiumMin",
			Match:  func(c *domain.Contract) bool { return c.AnnualPremium >= lo },
			Clause: func(bind Binder) string { return "c.annual_premium >= " + bind(lo) },
		}
	case min == nil:
		hi := *max
		return &Predicate{
			Name:   "premiumMax",
			Match:  func(c *domain.Contract) bool { return c.AnnualPremium <= hi },
			Clause: func(bind Binder) string { return "c.annual_premium <= " + bind(hi) },
		}
	}
	lo, hi := *min, *max
	return &Predicate{
		Name:  "premiumBetween",
		Match: func(c *domain.Contract) bool { return c.AnnualPremium >= lo && c.AnnualPremium <= hi },
		Clause: func(bind Binder) string {
			return "c.annual_premium BETWEEN " + bind(lo) + " AND " + bind(hi)
		},
	}
}

// OwnedBy restricts results to one owner
func OwnedBy(ownerID int64) *Predicate {
	return &Predicate{
		Name:   "owner",
		Match:  func(c *domain.Contract) bool { return c.OwnedBy(ownerID) },
		Clause: func(bind Binder) string { return "c.owner_id = " + bind(ownerID) },
	}
}

// FromFilter composes the predicates of every set filter field
func FromFilter(f domain.Filter) Specification {
	return AllOf(
		FullNameContains(f.FullName),
		EmailEquals(f.Email),
		KindEquals(f.Kind),
		StatusEquals(f.Status),
		PremiumBetween(f.PremiumMin, f.PremiumMax),
	)
}

// Scoped conjoins the ownership restriction when scoped is true
func Scoped(s Specification, ownerID int64, scoped bool) Specification {
	if !scoped {
		return s
	}
	return s.And(OwnedBy(ownerID))
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
