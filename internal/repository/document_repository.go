package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/khaliloulah1/securelife/internal/domain"
)

// PostgresDocumentRepository stores document metadata in the documents table
type PostgresDocumentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresDocumentRepository creates a new document repository
func NewPostgresDocumentRepository(db *sql.DB, logger *slog.Logger) *PostgresDocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDocumentRepository{db: db, logger: logger}
}

// Attach records document metadata for an existing contract
func (r *PostgresDocumentRepository) Attach(ctx context.Context, doc *domain.Document) error {
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO documents (contract_id, file_name, file_type, file_size, document_type, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		doc.ContractID, doc.FileName, doc.FileType, doc.FileSize, doc.DocumentType, doc.UploadedAt,
	).Scan(&doc.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return notFound(doc.ContractID)
		}
		r.logger.Error("failed to attach document",
			slog.Int64("contract_id", doc.ContractID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to attach document: %w", err)
	}
	return nil
}

// CountByContract returns how many documents reference the contract
func (r *PostgresDocumentRepository) CountByContract(ctx context.Context, contractID int64) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE contract_id = $1`, contractID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}
