package database

import (
	"context"
	"fmt"
	"log/slog"
)

// schema is applied idempotently at startup. Contracts use joined
// inheritance: common columns in contracts, kind fields in sub-tables.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		full_name     TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id              BIGSERIAL PRIMARY KEY,
		contract_number TEXT NOT NULL UNIQUE,
		kind            TEXT NOT NULL,
		full_name       TEXT NOT NULL,
		email           TEXT NOT NULL,
		base_premium    DOUBLE PRECISION NOT NULL,
		annual_premium  DOUBLE PRECISION NOT NULL,
		status          TEXT NOT NULL,
		owner_id        BIGINT REFERENCES users(id) ON DELETE SET NULL,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_kind_email_status ON contracts (kind, lower(email), status)`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_owner ON contracts (owner_id)`,
	`CREATE TABLE IF NOT EXISTS contracts_auto (
		contract_id        BIGINT PRIMARY KEY REFERENCES contracts(id) ON DELETE CASCADE,
		registration_plate TEXT NOT NULL UNIQUE,
		fiscal_power       INTEGER NOT NULL,
		bonus_malus        INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS contracts_home (
		contract_id  BIGINT PRIMARY KEY REFERENCES contracts(id) ON DELETE CASCADE,
		address      TEXT NOT NULL,
		surface_area DOUBLE PRECISION NOT NULL,
		risk_zone    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS contracts_life (
		contract_id        BIGINT PRIMARY KEY REFERENCES contracts(id) ON DELETE CASCADE,
		insured_age        INTEGER NOT NULL,
		guaranteed_capital DOUBLE PRECISION NOT NULL,
		beneficiary        TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id            BIGSERIAL PRIMARY KEY,
		contract_id   BIGINT NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		file_name     TEXT NOT NULL,
		file_type     TEXT NOT NULL,
		file_size     BIGINT NOT NULL,
		document_type TEXT NOT NULL,
		uploaded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates any missing tables and indexes
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := cp.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	cp.logger.Info("database schema applied", slog.Int("statements", len(schema)))
	return nil
}
