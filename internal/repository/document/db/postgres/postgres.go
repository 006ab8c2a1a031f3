package postgres

import (
	"context"
	"fmt"
	"time"

	"doc-converter/internal/domain"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
)

type ConversionsRepository struct {
	db      *dbpg.DB
	retries retry.Strategy
}

func NewConversionsRepository(db *dbpg.DB, retries retry.Strategy) *ConversionsRepository {
	return &ConversionsRepository{
		db:      db,
		retries: retries,
	}
}

func (r *ConversionsRepository) Save(ctx context.Context, rec *domain.ConversionRecord) error {
	query := `
		INSERT INTO conversions (
			id, run_id, source_key, class, status,
			reason, destination_key, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := r.db.ExecWithRetry(ctx, r.retries, query,
		rec.ID,
		rec.RunID,
		rec.SourceKey,
		rec.Class,
		rec.Status,
		rec.Reason,
		rec.DestinationKey,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save conversion record: %w", err)
	}

	return nil
}

func (r *ConversionsRepository) List(ctx context.Context, limit, offset int) ([]domain.ConversionRecord, error) {
	query := `
		SELECT id, run_id, source_key, class, status,
		       reason, destination_key, created_at
		FROM conversions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryWithRetry(ctx, r.retries, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversions: %w", err)
	}
	defer rows.Close()

	var records []domain.ConversionRecord
	for rows.Next() {
		var rec domain.ConversionRecord
		err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.SourceKey,
			&rec.Class,
			&rec.Status,
			&rec.Reason,
			&rec.DestinationKey,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversion record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversions: %w", err)
	}

	return records, nil
}

func (r *ConversionsRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM conversions`

	row, err := r.db.QueryRowWithRetry(ctx, r.retries, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count conversions: %w", err)
	}

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to scan count: %w", err)
	}

	return count, nil
}
