package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/custody-service/internal/domain"
)

// ProcessingRepository encapsulates processing record persistence.
type ProcessingRepository interface {
	// Create inserts the record and flips its transport predecessor to
	// PROCESSED in one transaction, with the same miss classification as
	// TransportRepository.Create.
	Create(ctx context.Context, record *domain.ProcessingRecord, eligible []domain.TransportStatus) error
	GetByID(ctx context.Context, id string) (*domain.ProcessingRecord, error)
	GetByTransport(ctx context.Context, transportID string) (*domain.ProcessingRecord, error)
	List(ctx context.Context, filter RangeFilter) ([]domain.ProcessingRecord, error)
	AdvanceStatus(ctx context.Context, id string, eligible []domain.ProcessingStatus, next domain.ProcessingStatus) error
	UpdateQuality(ctx context.Context, id string, quality domain.QualityMetrics) error
}

type processingRepository struct {
	pool *pgxpool.Pool
}

// NewProcessingRepository instantiates the repository.
func NewProcessingRepository(pool *pgxpool.Pool) ProcessingRepository {
	return &processingRepository{pool: pool}
}

const processingColumns = `id, transport_id, staff_id, quantity_processed, oil_extracted, meal_extracted,
               processing_cost, started_at, ended_at, moisture_content, free_fatty_acid,
               staff_attestation, counterparty_attestation, status, created_at, updated_at`

func (r *processingRepository) Create(ctx context.Context, record *domain.ProcessingRecord, eligible []domain.TransportStatus) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const flip = `
        UPDATE transport_records SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status = ANY($3)`
	cmd, err := tx.Exec(ctx, flip, domain.TransportStatusProcessed, record.TransportID, statusStrings(eligible))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM transport_records WHERE id=$1)`, record.TransportID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
		return ErrStatusConflict
	}

	const insert = `
        INSERT INTO processing_records (transport_id, staff_id, quantity_processed, oil_extracted, meal_extracted,
            processing_cost, started_at, ended_at, moisture_content, free_fatty_acid,
            staff_attestation, counterparty_attestation, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insert,
		record.TransportID,
		record.StaffID,
		record.QuantityProcessed,
		record.OilExtracted,
		record.MealExtracted,
		record.ProcessingCost,
		record.StartedAt,
		record.EndedAt,
		record.Quality.MoistureContent,
		record.Quality.FreeFattyAcid,
		record.StaffAttestation,
		record.CounterpartyAttestation,
		record.Status,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *processingRepository) GetByID(ctx context.Context, id string) (*domain.ProcessingRecord, error) {
	query := `SELECT ` + processingColumns + ` FROM processing_records WHERE id=$1`
	return scanProcessing(r.pool.QueryRow(ctx, query, id))
}

func (r *processingRepository) GetByTransport(ctx context.Context, transportID string) (*domain.ProcessingRecord, error) {
	query := `SELECT ` + processingColumns + ` FROM processing_records WHERE transport_id=$1`
	return scanProcessing(r.pool.QueryRow(ctx, query, transportID))
}

func (r *processingRepository) List(ctx context.Context, filter RangeFilter) ([]domain.ProcessingRecord, error) {
	query := `SELECT ` + processingColumns + ` FROM processing_records WHERE 1=1`
	args := []any{}
	query, args = applyRangeFilter(query, args, filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ProcessingRecord
	for rows.Next() {
		record, err := scanProcessing(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func (r *processingRepository) AdvanceStatus(ctx context.Context, id string, eligible []domain.ProcessingStatus, next domain.ProcessingStatus) error {
	const query = `
        UPDATE processing_records SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status = ANY($3)`
	cmd, err := r.pool.Exec(ctx, query, next, id, statusStrings(eligible))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.classifyMiss(ctx, id)
	}
	return nil
}

func (r *processingRepository) UpdateQuality(ctx context.Context, id string, quality domain.QualityMetrics) error {
	const query = `
        UPDATE processing_records SET moisture_content=$1, free_fatty_acid=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, quality.MoistureContent, quality.FreeFattyAcid, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *processingRepository) classifyMiss(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM processing_records WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return pgx.ErrNoRows
	}
	return ErrStatusConflict
}

func scanProcessing(row rowScanner) (*domain.ProcessingRecord, error) {
	var record domain.ProcessingRecord
	if err := row.Scan(
		&record.ID,
		&record.TransportID,
		&record.StaffID,
		&record.QuantityProcessed,
		&record.OilExtracted,
		&record.MealExtracted,
		&record.ProcessingCost,
		&record.StartedAt,
		&record.EndedAt,
		&record.Quality.MoistureContent,
		&record.Quality.FreeFattyAcid,
		&record.StaffAttestation,
		&record.CounterpartyAttestation,
		&record.Status,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}
