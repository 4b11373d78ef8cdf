package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/search"
	"github.com/khaliloulah1/securelife/pkg/database"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const selectContracts = `
	SELECT c.id, c.contract_number, c.kind, c.full_name, c.email, c.base_premium,
	       c.annual_premium, c.status, c.owner_id, c.created_at, c.updated_at,
	       a.registration_plate, a.fiscal_power, a.bonus_malus,
	       h.address, h.surface_area, h.risk_zone,
	       l.insured_age, l.guaranteed_capital, l.beneficiary
	FROM contracts c
	LEFT JOIN contracts_auto a ON a.contract_id = c.id
	LEFT JOIN contracts_home h ON h.contract_id = c.id
	LEFT JOIN contracts_life l ON l.contract_id = c.id`

// PostgresContractRepository implements ContractRepository using PostgreSQL
type PostgresContractRepository struct {
	*pgStore
	db *sql.DB
}

// NewPostgresContractRepository creates a new contract repository
func NewPostgresContractRepository(db *sql.DB, logger *slog.Logger) *PostgresContractRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresContractRepository{
		pgStore: &pgStore{q: db, logger: logger},
		db:      db,
	}
}

// WithinTx runs fn in a database transaction
func (r *PostgresContractRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, store ContractStore) error) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(ctx, &pgStore{q: tx, logger: r.logger})
	})
}

// Find counts and pages inside one read-only snapshot so Total matches Items
func (r *PostgresContractRepository) Find(ctx context.Context, spec search.Specification, page domain.Page) ([]*domain.Contract, int64, error) {
	var (
		items []*domain.Contract
		total int64
	)
	err := database.WithTxOptions(ctx, r.db, database.ReadSnapshot, func(tx *sql.Tx) error {
		var err error
		items, total, err = (&pgStore{q: tx, logger: r.logger}).Find(ctx, spec, page)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Ping checks the connection
func (r *PostgresContractRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Create writes the base row and the kind row atomically
func (r *PostgresContractRepository) Create(ctx context.Context, c *domain.Contract) error {
	return r.WithinTx(ctx, func(ctx context.Context, s ContractStore) error { return s.Create(ctx, c) })
}

// Update writes the base row and the kind row atomically
func (r *PostgresContractRepository) Update(ctx context.Context, c *domain.Contract) error {
	return r.WithinTx(ctx, func(ctx context.Context, s ContractStore) error { return s.Update(ctx, c) })
}

// pgStore runs ContractStore statements on a connection or a transaction
type pgStore struct {
	q      querier
	logger *slog.Logger
}

func (s *pgStore) GetByID(ctx context.Context, id int64) (*domain.Contract, error) {
	row := s.q.QueryRowContext(ctx, selectContracts+` WHERE c.id = $1`, id)
	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		s.logger.Error("failed to get contract",
			slog.Int64("contract_id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return c, nil
}

func (s *pgStore) Create(ctx context.Context, c *domain.Contract) error {
	if err := c.CheckShape(); err != nil {
		return err
	}
	query := `
		INSERT INTO contracts (contract_number, kind, full_name, email, base_premium,
		                       annual_premium, status, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	err := s.q.QueryRowContext(ctx, query,
		c.Number, string(c.Kind), c.FullName, c.Email, c.BasePremium,
		c.AnnualPremium, string(c.Status), nullableID(c.OwnerID), c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return s.writeError("create", c, err)
	}

	switch c.Kind {
	case domain.KindAuto:
		_, err = s.q.ExecContext(ctx,
			`INSERT INTO contracts_auto (contract_id, registration_plate, fiscal_power, bonus_malus) VALUES ($1, $2, $3, $4)`,
			c.ID, c.Auto.RegistrationPlate, c.Auto.FiscalPower, c.Auto.BonusMalus)
	case domain.KindHome:
		_, err = s.q.ExecContext(ctx,
			`INSERT INTO contracts_home (contract_id, address, surface_area, risk_zone) VALUES ($1, $2, $3, $4)`,
			c.ID, c.Home.Address, c.Home.SurfaceArea, c.Home.RiskZone)
	case domain.KindLife:
		_, err = s.q.ExecContext(ctx,
			`INSERT INTO contracts_life (contract_id, insured_age, guaranteed_capital, beneficiary) VALUES ($1, $2, $3, $4)`,
			c.ID, c.Life.InsuredAge, c.Life.GuaranteedCapital, c.Life.Beneficiary)
	}
	if err != nil {
		return s.writeError("create", c, err)
	}
	return nil
}

func (s *pgStore) Update(ctx context.Context, c *domain.Contract) error {
	if err := c.CheckShape(); err != nil {
		return err
	}
	query := `
		UPDATE contracts
		SET full_name = $1, email = $2, base_premium = $3, annual_premium = $4,
		    status = $5, owner_id = $6, updated_at = $7
		WHERE id = $8`
	res, err := s.q.ExecContext(ctx, query,
		c.FullName, c.Email, c.BasePremium, c.AnnualPremium,
		string(c.Status), nullableID(c.OwnerID), c.UpdatedAt, c.ID,
	)
	if err != nil {
		return s.writeError("update", c, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return notFound(c.ID)
	}

	switch c.Kind {
	case domain.KindAuto:
		_, err = s.q.ExecContext(ctx,
			`UPDATE contracts_auto SET registration_plate = $1, fiscal_power = $2, bonus_malus = $3 WHERE contract_id = $4`,
			c.Auto.RegistrationPlate, c.Auto.FiscalPower, c.Auto.BonusMalus, c.ID)
	case domain.KindHome:
		_, err = s.q.ExecContext(ctx,
			`UPDATE contracts_home SET address = $1, surface_area = $2, risk_zone = $3 WHERE contract_id = $4`,
			c.Home.Address, c.Home.SurfaceArea, c.Home.RiskZone, c.ID)
	case domain.KindLife:
		_, err = s.q.ExecContext(ctx,
			`UPDATE contracts_life SET insured_age = $1, guaranteed_capital = $2, beneficiary = $3 WHERE contract_id = $4`,
			c.Life.InsuredAge, c.Life.GuaranteedCapital, c.Life.Beneficiary, c.ID)
	}
	if err != nil {
		return s.writeError("update", c, err)
	}
	return nil
}

// Delete removes the contract; kind rows and documents cascade
func (s *pgStore) Delete(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contract: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return notFound(id)
	}
	return nil
}

func (s *pgStore) ExistsActiveByEmail(ctx context.Context, kind domain.Kind, email string) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM contracts WHERE kind = $1 AND lower(email) = lower($2) AND status = $3)`,
		string(kind), email, string(domain.StatusActive),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active contract: %w", err)
	}
	return exists, nil
}

func (s *pgStore) ExistsByRegistrationPlate(ctx context.Context, plate string, excludeID int64) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM contracts_auto WHERE registration_plate = $1 AND contract_id <> $2)`,
		plate, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check registration plate: %w", err)
	}
	return exists, nil
}

// LockIdentity takes a transaction-scoped advisory lock. Outside a
// transaction the lock is released as soon as the statement ends.
func (s *pgStore) LockIdentity(ctx context.Context, kind domain.Kind, email string) error {
	key := string(kind) + ":" + strings.ToLower(strings.TrimSpace(email))
	if _, err := s.q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("failed to lock contract identity: %w", err)
	}
	return nil
}

func (s *pgStore) Find(ctx context.Context, spec search.Specification, page domain.Page) ([]*domain.Contract, int64, error) {
	page = page.Normalize()
	where, args := spec.Where(0)

	var total int64
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM contracts c WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count contracts: %w", err)
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY c.id ASC LIMIT $%d OFFSET $%d",
		selectContracts, where, len(args)+1, len(args)+2)
	rows, err := s.q.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		s.logger.Error("failed to search contracts",
			slog.Any("predicates", spec.Names()),
			slog.String("error", err.Error()),
		)
		return nil, 0, fmt.Errorf("failed to search contracts: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Contract, 0, page.Size)
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan contract: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate contracts: %w", err)
	}
	return out, total, nil
}

func (s *pgStore) Stats(ctx context.Context) (*domain.Stats, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(annual_premium), 0) FROM contracts GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate contracts: %w", err)
	}
	defer rows.Close()

	stats := &domain.Stats{CountByStatus: make(map[domain.Status]int64)}
	for rows.Next() {
		var (
			status string
			count  int64
			sum    float64
		)
		if err := rows.Scan(&status, &count, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		stats.CountByStatus[domain.Status(status)] = count
		stats.Total += count
		stats.TotalAnnualPremium += sum
	}
	return stats, rows.Err()
}

func (s *pgStore) writeError(op string, c *domain.Contract, err error) error {
	if dup := translateUniqueViolation(err); dup != nil {
		return dup
	}
	s.logger.Error("failed to "+op+" contract",
		slog.Int64("contract_id", c.ID),
		slog.String("kind", string(c.Kind)),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("failed to %s contract: %w", op, err)
}

// translateUniqueViolation maps SQLSTATE 23505 onto DuplicateResourceError
func translateUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return nil
	}
	switch pqErr.Constraint {
	case "contracts_auto_registration_plate_key":
		return &domain.DuplicateResourceError{Message: "registration plate already exists"}
	case "contracts_contract_number_key":
		return &domain.DuplicateResourceError{Message: "contract number already exists"}
	case "users_email_key":
		return &domain.DuplicateResourceError{Message: "email already registered"}
	}
	return &domain.DuplicateResourceError{Message: "resource already exists"}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (*domain.Contract, error) {
	var (
		c             domain.Contract
		kind, status  string
		owner         sql.NullInt64
		plate         sql.NullString
		fiscal, bonus sql.NullInt64
		address, zone sql.NullString
		surface       sql.NullFloat64
		age           sql.NullInt64
		capital       sql.NullFloat64
		beneficiary   sql.NullString
	)
	err := row.Scan(
		&c.ID, &c.Number, &kind, &c.FullName, &c.Email, &c.BasePremium,
		&c.AnnualPremium, &status, &owner, &c.CreatedAt, &c.UpdatedAt,
		&plate, &fiscal, &bonus,
		&address, &surface, &zone,
		&age, &capital, &beneficiary,
	)
	if err != nil {
		return nil, err
	}
	c.Kind = domain.Kind(kind)
	c.Status = domain.Status(status)
	c.OwnerID = owner.Int64

	switch c.Kind {
	case domain.KindAuto:
		c.Auto = &domain.AutoDetails{
			RegistrationPlate: plate.String,
			FiscalPower:       int(fiscal.Int64),
			BonusMalus:        int(bonus.Int64),
		}
	case domain.KindHome:
		c.Home = &domain.HomeDetails{
			Address:     address.String,
			SurfaceArea: surface.Float64,
			RiskZone:    zone.String,
		}
	case domain.KindLife:
		c.Life = &domain.LifeDetails{
			InsuredAge:        int(age.Int64),
			GuaranteedCapital: capital.Float64,
			Beneficiary:       beneficiary.String,
		}
	}
	return &c, nil
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
