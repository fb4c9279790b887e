package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/custody-service/internal/domain"
)

// RangeFilter captures the common list query parameters for stage records.
type RangeFilter struct {
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// AcquisitionRepository encapsulates acquisition record persistence.
type AcquisitionRepository interface {
	Create(ctx context.Context, record *domain.AcquisitionRecord) error
	GetByID(ctx context.Context, id string) (*domain.AcquisitionRecord, error)
	List(ctx context.Context, filter RangeFilter) ([]domain.AcquisitionRecord, error)
	// AdvanceStatus compare-and-sets status from one of the eligible values.
	// Returns pgx.ErrNoRows when the record is absent and ErrStatusConflict
	// when its status is not in the eligible set.
	AdvanceStatus(ctx context.Context, id string, eligible []domain.AcquisitionStatus, next domain.AcquisitionStatus) error
	// Correct applies whitelisted field updates and marks the record
	// CORRECTED, gated by the eligible status set.
	Correct(ctx context.Context, id string, fields map[string]any, eligible []domain.AcquisitionStatus) (*domain.AcquisitionRecord, error)
}

type acquisitionRepository struct {
	pool *pgxpool.Pool
}

// NewAcquisitionRepository instantiates the repository.
func NewAcquisitionRepository(pool *pgxpool.Pool) AcquisitionRepository {
	return &acquisitionRepository{pool: pool}
}

const acquisitionColumns = `id, staff_id, supplier_name, supplier_phone, quantity, unit, price,
               payment_proof_ref, goods_photo_refs, latitude, longitude,
               staff_attestation, counterparty_attestation, status, created_at, updated_at`

func (r *acquisitionRepository) Create(ctx context.Context, record *domain.AcquisitionRecord) error {
	const query = `
        INSERT INTO acquisition_records (staff_id, supplier_name, supplier_phone, quantity, unit, price,
            payment_proof_ref, goods_photo_refs, latitude, longitude,
            staff_attestation, counterparty_attestation, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		record.StaffID,
		record.SupplierName,
		record.SupplierPhone,
		record.Quantity,
		record.Unit,
		record.Price,
		record.PaymentProofRef,
		record.GoodsPhotoRefs,
		record.Latitude,
		record.Longitude,
		record.StaffAttestation,
		record.CounterpartyAttestation,
		record.Status,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
}

func (r *acquisitionRepository) GetByID(ctx context.Context, id string) (*domain.AcquisitionRecord, error) {
	query := `SELECT ` + acquisitionColumns + ` FROM acquisition_records WHERE id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanAcquisition(row)
}

func (r *acquisitionRepository) List(ctx context.Context, filter RangeFilter) ([]domain.AcquisitionRecord, error) {
	query := `SELECT ` + acquisitionColumns + ` FROM acquisition_records WHERE 1=1`
	args := []any{}
	query, args = applyRangeFilter(query, args, filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.AcquisitionRecord
	for rows.Next() {
		record, err := scanAcquisition(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func (r *acquisitionRepository) AdvanceStatus(ctx context.Context, id string, eligible []domain.AcquisitionStatus, next domain.AcquisitionStatus) error {
	const query = `
        UPDATE acquisition_records SET status=$1, updated_at=NOW()
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

func (r *acquisitionRepository) Correct(ctx context.Context, id string, fields map[string]any, eligible []domain.AcquisitionStatus) (*domain.AcquisitionRecord, error) {
	query := `UPDATE acquisition_records SET updated_at=NOW(), status=$1`
	args := []any{domain.AcquisitionStatusCorrected}
	for column, value := range fields {
		args = append(args, value)
		query += fmt.Sprintf(", %s=$%d", column, len(args))
	}
	args = append(args, id)
	query += fmt.Sprintf(" WHERE id=$%d", len(args))
	args = append(args, statusStrings(eligible))
	query += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	query += ` RETURNING ` + acquisitionColumns

	record, err := scanAcquisition(r.pool.QueryRow(ctx, query, args...))
	if err == pgx.ErrNoRows {
		return nil, r.classifyMiss(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *acquisitionRepository) classifyMiss(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM acquisition_records WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return pgx.ErrNoRows
	}
	return ErrStatusConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAcquisition(row rowScanner) (*domain.AcquisitionRecord, error) {
	var record domain.AcquisitionRecord
	if err := row.Scan(
		&record.ID,
		&record.StaffID,
		&record.SupplierName,
		&record.SupplierPhone,
		&record.Quantity,
		&record.Unit,
		&record.Price,
		&record.PaymentProofRef,
		&record.GoodsPhotoRefs,
		&record.Latitude,
		&record.Longitude,
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

func applyRangeFilter(query string, args []any, filter RangeFilter) (string, []any) {
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func statusStrings[S ~string](statuses []S) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
