package service

import (
	"strings"

	"github.com/khaliloulah1/securelife/internal/domain"
)

// ContractFields are the fields common to every contract kind
type ContractFields struct {
	FullName    string  `json:"fullName" validate:"required,max=255"`
	Email       string  `json:"email" validate:"required,email"`
	BasePremium float64 `json:"basePremium" validate:"gt=0"`
	// OwnerID is honoured for administrators only
	OwnerID *int64 `json:"ownerId,omitempty" validate:"omitempty,gt=0"`
}

func (f ContractFields) common() ContractFields {
	return f
}

func (f ContractFields) applyTo(c *domain.Contract) {
	c.FullName = strings.TrimSpace(f.FullName)
	c.Email = strings.TrimSpace(f.Email)
	c.BasePremium = f.BasePremium
}

// AutoRequest creates or replaces a motor contract
type AutoRequest struct {
	ContractFields
	RegistrationPlate string `json:"registrationPlate" validate:"required,max=32"`
	FiscalPower       int    `json:"fiscalPower" validate:"min=1,max=50"`
	BonusMalus        int    `json:"bonusMalus" validate:"min=50,max=350"`
}

// HomeRequest creates or replaces a home contract
type HomeRequest struct {
	ContractFields
	Address     string  `json:"address" validate:"required"`
	SurfaceArea float64 `json:"surfaceArea" validate:"gte=10"`
	RiskZone    string  `json:"riskZone" validate:"required"`
}

// LifeRequest creates or replaces a life contract
type LifeRequest struct {
	ContractFields
	InsuredAge        int     `json:"insuredAge" validate:"min=18,max=80"`
	GuaranteedCapital float64 `json:"guaranteedCapital" validate:"gte=10000"`
	Beneficiary       string  `json:"beneficiary" validate:"required"`
}

// StatusRequest changes the status of a contract
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// kindRequest is implemented by the three request types
type kindRequest interface {
	common() ContractFields
	applyTo(c *domain.Contract)
}

func (r AutoRequest) applyTo(c *domain.Contract) {
	r.ContractFields.applyTo(c)
	c.Auto = &domain.AutoDetails{
		RegistrationPlate: strings.TrimSpace(r.RegistrationPlate),
		FiscalPower:       r.FiscalPower,
		BonusMalus:        r.BonusMalus,
	}
}

func (r HomeRequest) applyTo(c *domain.Contract) {
	r.ContractFields.applyTo(c)
	c.Home = &domain.HomeDetails{
		Address:     strings.TrimSpace(r.Address),
		SurfaceArea: r.SurfaceArea,
		RiskZone:    strings.TrimSpace(r.RiskZone),
	}
}

func (r LifeRequest) applyTo(c *domain.Contract) {
	r.ContractFields.applyTo(c)
	c.Life = &domain.LifeDetails{
		InsuredAge:        r.InsuredAge,
		GuaranteedCapital: r.GuaranteedCapital,
		Beneficiary:       strings.TrimSpace(r.Beneficiary),
	}
}
