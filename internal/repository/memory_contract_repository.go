package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/search"
)

// MemoryContractRepository keeps contracts and their documents in process.
// Transactions run one at a time against a private copy of the state which
// replaces the shared state only on commit.
type MemoryContractRepository struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	state *memState
}

type memState struct {
	contracts map[int64]*domain.Contract
	documents map[int64][]*domain.Document
	nextID    int64
	nextDocID int64
}

func (s *memState) clone() *memState {
	out := &memState{
		contracts: make(map[int64]*domain.Contract, len(s.contracts)),
		documents: make(map[int64][]*domain.Document, len(s.documents)),
		nextID:    s.nextID,
		nextDocID: s.nextDocID,
	}
	for id, c := range s.contracts {
		out.contracts[id] = c.Clone()
	}
	for id, docs := range s.documents {
		out.documents[id] = append([]*domain.Document(nil), docs...)
	}
	return out
}

// NewMemoryContractRepository creates an empty repository
func NewMemoryContractRepository() *MemoryContractRepository {
	return &MemoryContractRepository{state: &memState{
		contracts: make(map[int64]*domain.Contract),
		documents: make(map[int64][]*domain.Document),
	}}
}

// WithinTx runs fn against a copy of the state and publishes it if fn succeeds
func (r *MemoryContractRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, store ContractStore) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	work := r.state.clone()
	r.mu.RUnlock()

	view := &memView{st: work}
	if err := fn(ctx, view); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.state = work
	r.mu.Unlock()
	return nil
}

func (r *MemoryContractRepository) read() *memView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &memView{st: r.state}
}

// Ping always succeeds
func (r *MemoryContractRepository) Ping(context.Context) error { return nil }

// Reads run against the last committed state, which is never mutated in place.

func (r *MemoryContractRepository) GetByID(ctx context.Context, id int64) (*domain.Contract, error) {
	return r.read().GetByID(ctx, id)
}

func (r *MemoryContractRepository) ExistsActiveByEmail(ctx context.Context, kind domain.Kind, email string) (bool, error) {
	return r.read().ExistsActiveByEmail(ctx, kind, email)
}

func (r *MemoryContractRepository) ExistsByRegistrationPlate(ctx context.Context, plate string, excludeID int64) (bool, error) {
	return r.read().ExistsByRegistrationPlate(ctx, plate, excludeID)
}

func (r *MemoryContractRepository) LockIdentity(context.Context, domain.Kind, string) error {
	return nil
}

func (r *MemoryContractRepository) Find(ctx context.Context, spec search.Specification, page domain.Page) ([]*domain.Contract, int64, error) {
	return r.read().Find(ctx, spec, page)
}

func (r *MemoryContractRepository) Stats(ctx context.Context) (*domain.Stats, error) {
	return r.read().Stats(ctx)
}

func (r *MemoryContractRepository) Create(ctx context.Context, c *domain.Contract) error {
	return r.WithinTx(ctx, func(ctx context.Context, s ContractStore) error { return s.Create(ctx, c) })
}

func (r *MemoryContractRepository) Update(ctx context.Context, c *domain.Contract) error {
	return r.WithinTx(ctx, func(ctx context.Context, s ContractStore) error { return s.Update(ctx, c) })
}

func (r *MemoryContractRepository) Delete(ctx context.Context, id int64) error {
	return r.WithinTx(ctx, func(ctx context.Context, s ContractStore) error { return s.Delete(ctx, id) })
}

// Attach stores document metadata for an existing contract
func (r *MemoryContractRepository) Attach(_ context.Context, doc *domain.Document) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.state.contracts[doc.ContractID]; !ok {
		return notFound(doc.ContractID)
	}
	next := r.state.clone()
	next.nextDocID++
	doc.ID = next.nextDocID
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	stored := *doc
	next.documents[doc.ContractID] = append(next.documents[doc.ContractID], &stored)
	r.state = next
	return nil
}

// CountByContract returns how many documents reference the contract
func (r *MemoryContractRepository) CountByContract(_ context.Context, contractID int64) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.state.documents[contractID])), nil
}

// memView implements ContractStore over one state snapshot
type memView struct {
	st *memState
}

func (v *memView) GetByID(_ context.Context, id int64) (*domain.Contract, error) {
	c, ok := v.st.contracts[id]
	if !ok {
		return nil, notFound(id)
	}
	return c.Clone(), nil
}

func (v *memView) Create(_ context.Context, c *domain.Contract) error {
	if err := c.CheckShape(); err != nil {
		return err
	}
	if c.Auto != nil && v.plateTaken(c.Auto.RegistrationPlate, 0) {
		return duplicatePlate(c.Auto.RegistrationPlate)
	}
	for _, existing := range v.st.contracts {
		if existing.Number == c.Number {
			return &domain.DuplicateResourceError{Message: "contract number " + c.Number + " already exists"}
		}
	}
	v.st.nextID++
	c.ID = v.st.nextID
	v.st.contracts[c.ID] = c.Clone()
	return nil
}

func (v *memView) Update(_ context.Context, c *domain.Contract) error {
	if _, ok := v.st.contracts[c.ID]; !ok {
		return notFound(c.ID)
	}
	if err := c.CheckShape(); err != nil {
		return err
	}
	if c.Auto != nil && v.plateTaken(c.Auto.RegistrationPlate, c.ID) {
		return duplicatePlate(c.Auto.RegistrationPlate)
	}
	v.st.contracts[c.ID] = c.Clone()
	return nil
}

func (v *memView) Delete(_ context.Context, id int64) error {
	if _, ok := v.st.contracts[id]; !ok {
		return notFound(id)
	}
	delete(v.st.contracts, id)
	delete(v.st.documents, id)
	return nil
}

func (v *memView) ExistsActiveByEmail(_ context.Context, kind domain.Kind, email string) (bool, error) {
	for _, c := range v.st.contracts {
		if c.Kind == kind && c.Status == domain.StatusActive && strings.EqualFold(c.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (v *memView) ExistsByRegistrationPlate(_ context.Context, plate string, excludeID int64) (bool, error) {
	return v.plateTaken(plate, excludeID), nil
}

func (v *memView) plateTaken(plate string, excludeID int64) bool {
	for _, c := range v.st.contracts {
		if c.Auto != nil && c.ID != excludeID && c.Auto.RegistrationPlate == plate {
			return true
		}
	}
	return false
}

// Transactions are already serialized.
func (v *memView) LockIdentity(context.Context, domain.Kind, string) error { return nil }

func (v *memView) Find(_ context.Context, spec search.Specification, page domain.Page) ([]*domain.Contract, int64, error) {
	page = page.Normalize()
	matched := make([]*domain.Contract, 0)
	for _, c := range v.st.contracts {
		if spec.Matches(c) {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	start := page.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.Size
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]*domain.Contract, 0, end-start)
	for _, c := range matched[start:end] {
		out = append(out, c.Clone())
	}
	return out, total, nil
}

func (v *memView) Stats(context.Context) (*domain.Stats, error) {
	stats := &domain.Stats{CountByStatus: make(map[domain.Status]int64)}
	for _, c := range v.st.contracts {
		stats.CountByStatus[c.Status]++
		stats.Total++
		stats.TotalAnnualPremium += c.AnnualPremium
	}
	return stats, nil
}
