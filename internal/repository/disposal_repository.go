package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/custody-service/internal/domain"
)

// DisposalFilter extends the range filter with a product type selector.
type DisposalFilter struct {
	RangeFilter
	ProductType *domain.ProductType
}

// DisposalRepository encapsulates disposal record persistence.
type DisposalRepository interface {
	// Create inserts the record and draws the disposed quantity down from
	// the processing predecessor's extracted balances in one transaction.
	// pgx.ErrNoRows: predecessor absent; ErrStatusConflict: predecessor not
	// in an eligible state; ErrInsufficientBalance: a balance would go
	// negative.
	Create(ctx context.Context, record *domain.DisposalRecord, oil, meal float64, eligible []domain.ProcessingStatus) error
	GetByID(ctx context.Context, id string) (*domain.DisposalRecord, error)
	ListByProcessing(ctx context.Context, processingID string) ([]domain.DisposalRecord, error)
	List(ctx context.Context, filter DisposalFilter) ([]domain.DisposalRecord, error)
	AdvanceStatus(ctx context.Context, id string, eligible []domain.DisposalStatus, next domain.DisposalStatus) error
	UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error
}

type disposalRepository struct {
	pool *pgxpool.Pool
}

// NewDisposalRepository instantiates the repository.
func NewDisposalRepository(pool *pgxpool.Pool) DisposalRepository {
	return &disposalRepository{pool: pool}
}

const disposalColumns = `id, processing_id, staff_id, customer_name, customer_phone, product_type,
               quantity, unit_price, total_amount, payment_method, payment_status, delivery_address,
               invoice_number, staff_attestation, counterparty_attestation, status, created_at, updated_at`

func (r *disposalRepository) Create(ctx context.Context, record *domain.DisposalRecord, oil, meal float64, eligible []domain.ProcessingStatus) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const draw = `
        UPDATE processing_records
        SET oil_extracted = oil_extracted - $1, meal_extracted = meal_extracted - $2, updated_at=NOW()
        WHERE id=$3 AND status = ANY($4) AND oil_extracted >= $1 AND meal_extracted >= $2`
	cmd, err := tx.Exec(ctx, draw, oil, meal, record.ProcessingID, statusStrings(eligible))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var status domain.ProcessingStatus
		err := tx.QueryRow(ctx,
			`SELECT status FROM processing_records WHERE id=$1`, record.ProcessingID).Scan(&status)
		if err != nil {
			return err
		}
		for _, s := range eligible {
			if status == s {
				return ErrInsufficientBalance
			}
		}
		return ErrStatusConflict
	}

	const insert = `
        INSERT INTO disposal_records (processing_id, staff_id, customer_name, customer_phone, product_type,
            quantity, unit_price, total_amount, payment_method, payment_status, delivery_address,
            invoice_number, staff_attestation, counterparty_attestation, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insert,
		record.ProcessingID,
		record.StaffID,
		record.CustomerName,
		record.CustomerPhone,
		record.ProductType,
		record.Quantity,
		record.UnitPrice,
		record.TotalAmount,
		record.PaymentMethod,
		record.PaymentStatus,
		record.DeliveryAddress,
		record.InvoiceNumber,
		record.StaffAttestation,
		record.CounterpartyAttestation,
		record.Status,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *disposalRepository) GetByID(ctx context.Context, id string) (*domain.DisposalRecord, error) {
	query := `SELECT ` + disposalColumns + ` FROM disposal_records WHERE id=$1`
	return scanDisposal(r.pool.QueryRow(ctx, query, id))
}

func (r *disposalRepository) ListByProcessing(ctx context.Context, processingID string) ([]domain.DisposalRecord, error) {
	query := `SELECT ` + disposalColumns + ` FROM disposal_records WHERE processing_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, processingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDisposals(rows)
}

func (r *disposalRepository) List(ctx context.Context, filter DisposalFilter) ([]domain.DisposalRecord, error) {
	query := `SELECT ` + disposalColumns + ` FROM disposal_records WHERE 1=1`
	args := []any{}
	if filter.ProductType != nil {
		args = append(args, *filter.ProductType)
		query += fmt.Sprintf(" AND product_type=$%d", len(args))
	}
	query, args = applyRangeFilter(query, args, filter.RangeFilter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDisposals(rows)
}

func (r *disposalRepository) AdvanceStatus(ctx context.Context, id string, eligible []domain.DisposalStatus, next domain.DisposalStatus) error {
	const query = `
        UPDATE disposal_records SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status = ANY($3)`
	cmd, err := r.pool.Exec(ctx, query, next, id, statusStrings(eligible))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM disposal_records WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
		return ErrStatusConflict
	}
	return nil
}

func (r *disposalRepository) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	const query = `
        UPDATE disposal_records SET payment_status=$1, updated_at=NOW()
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func collectDisposals(rows pgx.Rows) ([]domain.DisposalRecord, error) {
	var records []domain.DisposalRecord
	for rows.Next() {
		record, err := scanDisposal(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func scanDisposal(row rowScanner) (*domain.DisposalRecord, error) {
	var record domain.DisposalRecord
	if err := row.Scan(
		&record.ID,
		&record.ProcessingID,
		&record.StaffID,
		&record.CustomerName,
		&record.CustomerPhone,
		&record.ProductType,
		&record.Quantity,
		&record.UnitPrice,
		&record.TotalAmount,
		&record.PaymentMethod,
		&record.PaymentStatus,
		&record.DeliveryAddress,
		&record.InvoiceNumber,
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
