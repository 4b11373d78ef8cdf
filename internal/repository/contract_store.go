package repository

import (
	"context"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/search"
)

// ContractStore is the unified contract table and its kind sub-tables.
// GetByID, Update and Delete return *domain.NotFoundError for unknown ids.
type ContractStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Contract, error)
	Create(ctx context.Context, c *domain.Contract) error
	Update(ctx context.Context, c *domain.Contract) error
	Delete(ctx context.Context, id int64) error

	// ExistsActiveByEmail reports whether an ACTIVE contract of kind exists
	// for email, compared case-insensitively
	ExistsActiveByEmail(ctx context.Context, kind domain.Kind, email string) (bool, error)
	// ExistsByRegistrationPlate ignores the contract with id excludeID
	ExistsByRegistrationPlate(ctx context.Context, plate string, excludeID int64) (bool, error)
	// LockIdentity serializes creations for (kind, email) until the
	// surrounding transaction ends
	LockIdentity(ctx context.Context, kind domain.Kind, email string) error

	// Find returns one page of matches ordered by id ascending, plus the total match count
	Find(ctx context.Context, spec search.Specification, page domain.Page) ([]*domain.Contract, int64, error)
	Stats(ctx context.Context) (*domain.Stats, error)
}

// ContractRepository is a ContractStore that can run a unit of work atomically
type ContractRepository interface {
	ContractStore
	WithinTx(ctx context.Context, fn func(ctx context.Context, store ContractStore) error) error
	Ping(ctx context.Context) error
}

// DocumentRepository manages contract document metadata
type DocumentRepository interface {
	Attach(ctx context.Context, doc *domain.Document) error
	CountByContract(ctx context.Context, contractID int64) (int64, error)
}

func notFound(id int64) error {
	return &domain.NotFoundError{Resource: "contract", ID: id}
}

func duplicatePlate(plate string) error {
	return &domain.DuplicateResourceError{Message: "registration plate " + plate + " already exists"}
}
