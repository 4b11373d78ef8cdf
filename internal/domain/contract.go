package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind discriminates the contract variants
type Kind string

const (
	KindAuto Kind = "AUTO"
	KindHome Kind = "HABITATION"
	KindLife Kind = "VIE"
)

// Kinds lists every contract kind in display order
var Kinds = []Kind{KindAuto, KindHome, KindLife}

// ParseKind accepts the canonical names and their English aliases, case-insensitively
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AUTO":
		return KindAuto, nil
	case "HABITATION", "HOME":
		return KindHome, nil
	case "VIE", "LIFE":
		return KindLife, nil
	}
	return "", fmt.Errorf("unknown contract kind %q", s)
}

// Status is the lifecycle state of a contract
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

// DefaultStatuses is the status set used when none is configured
var DefaultStatuses = []Status{StatusActive, StatusSuspended, StatusCancelled, StatusExpired}

// Contract is an insurance contract. Kind selects which of the payload
// pointers is set; exactly one of Auto, Home or Life is non-nil.
type Contract struct {
	ID            int64     `json:"id"`
	Number        string    `json:"contractNumber"`
	Kind          Kind      `json:"kind"`
	FullName      string    `json:"fullName"`
	Email         string    `json:"email"`
	BasePremium   float64   `json:"basePremium"`
	AnnualPremium float64   `json:"annualPremium"`
	Status        Status    `json:"status"`
	OwnerID       int64     `json:"ownerId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	Auto *AutoDetails `json:"auto,omitempty"`
	Home *HomeDetails `json:"home,omitempty"`
	Life *LifeDetails `json:"life,omitempty"`
}

// AutoDetails holds the motor-insurance fields
type AutoDetails struct {
	RegistrationPlate string `json:"registrationPlate"`
	FiscalPower       int    `json:"fiscalPower"`
	BonusMalus        int    `json:"bonusMalus"`
}

// HomeDetails holds the home-insurance fields
type HomeDetails struct {
	Address     string  `json:"address"`
	SurfaceArea float64 `json:"surfaceArea"`
	RiskZone    string  `json:"riskZone"`
}

// LifeDetails holds the life-insurance fields
type LifeDetails struct {
	InsuredAge        int     `json:"insuredAge"`
	GuaranteedCapital float64 `json:"guaranteedCapital"`
	Beneficiary       string  `json:"beneficiary"`
}

// CheckShape reports whether the payload matches the kind tag
func (c *Contract) CheckShape() error {
	set := 0
	for _, ok := range []bool{c.Auto != nil, c.Home != nil, c.Life != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("contract %d carries %d kind payloads", c.ID, set)
	}
	switch c.Kind {
	case KindAuto:
		if c.Auto != nil {
			return nil
		}
	case KindHome:
		if c.Home != nil {
			return nil
		}
	case KindLife:
		if c.Life != nil {
			return nil
		}
	}
	return fmt.Errorf("contract %d payload does not match kind %s", c.ID, c.Kind)
}

// OwnedBy reports whether the contract belongs to the given user
func (c *Contract) OwnedBy(userID int64) bool {
	return c.OwnerID != 0 && c.OwnerID == userID
}

// Clone returns a deep copy
func (c *Contract) Clone() *Contract {
	out := *c
	if c.Auto != nil {
		a := *c.Auto
		out.Auto = &a
	}
	if c.Home != nil {
		h := *c.Home
		out.Home = &h
	}
	if c.Life != nil {
		l := *c.Life
		out.Life = &l
	}
	return &out
}

// Filter is the optional search record. Nil or empty fields are not applied.
type Filter struct {
	FullName   string   `json:"fullName"`
	Email      string   `json:"email"`
	Kind       *Kind    `json:"kind"`
	Status     *Status  `json:"status"`
	PremiumMin *float64 `json:"premiumMin"`
	PremiumMax *float64 `json:"premiumMax"`
}

// Page is an offset/size window. Page numbers start at 0.
type Page struct {
	Number int `json:"page"`
	Size   int `json:"size"`
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Normalize clamps the page into valid bounds
func (p Page) Normalize() Page {
	if p.Number < 0 {
		p.Number = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset returns the number of rows to skip. It saturates at math.MaxInt
// so a page past the end stays empty rather than wrapping negative.
func (p Page) Offset() int {
	if p.Number <= 0 || p.Size <= 0 {
		return 0
	}
	if p.Number > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return p.Number * p.Size
}

// ContractPage is one page of results
type ContractPage struct {
	Items []*Contract `json:"items"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
	Total int64       `json:"total"`
}

// Stats is the aggregate view over all contracts
type Stats struct {
	CountByStatus      map[Status]int64 `json:"countByStatus"`
	Total              int64            `json:"total"`
	TotalAnnualPremium float64          `json:"totalAnnualPremium"`
}
