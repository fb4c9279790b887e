package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/custody-service/internal/domain"
)

// TransportRepository encapsulates transport record persistence.
type TransportRepository interface {
	// Create inserts the record and flips its acquisition predecessor to
	// IN_TRANSIT in one transaction. The predecessor must currently hold one
	// of the eligible statuses; pgx.ErrNoRows means it does not exist,
	// ErrStatusConflict means it was already consumed or is not eligible.
	Create(ctx context.Context, record *domain.TransportRecord, eligible []domain.AcquisitionStatus) error
	GetByID(ctx context.Context, id string) (*domain.TransportRecord, error)
	GetByAcquisition(ctx context.Context, acquisitionID string) (*domain.TransportRecord, error)
	List(ctx context.Context, filter RangeFilter) ([]domain.TransportRecord, error)
	AdvanceStatus(ctx context.Context, id string, eligible []domain.TransportStatus, next domain.TransportStatus) error
	UpdateBorderCrossing(ctx context.Context, id string, crossing domain.BorderCrossing) error
}

type transportRepository struct {
	pool *pgxpool.Pool
}

// NewTransportRepository instantiates the repository.
func NewTransportRepository(pool *pgxpool.Pool) TransportRepository {
	return &transportRepository{pool: pool}
}

const transportColumns = `id, acquisition_id, staff_id, receiver_name, receiver_phone, receiver_designation,
               quantity_received, transport_cost, driver_name, driver_phone, vehicle_number,
               border_crossing, staff_attestation, counterparty_attestation, status, created_at, updated_at`

func (r *transportRepository) Create(ctx context.Context, record *domain.TransportRecord, eligible []domain.AcquisitionStatus) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const flip = `
        UPDATE acquisition_records SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status = ANY($3)`
	cmd, err := tx.Exec(ctx, flip, domain.AcquisitionStatusInTransit, record.AcquisitionID, statusStrings(eligible))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM acquisition_records WHERE id=$1)`, record.AcquisitionID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
		return ErrStatusConflict
	}

	const insert = `
        INSERT INTO transport_records (acquisition_id, staff_id, receiver_name, receiver_phone, receiver_designation,
            quantity_received, transport_cost, driver_name, driver_phone, vehicle_number,
            border_crossing, staff_attestation, counterparty_attestation, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insert,
		record.AcquisitionID,
		record.StaffID,
		record.ReceiverName,
		record.ReceiverPhone,
		record.ReceiverDesignation,
		record.QuantityReceived,
		record.TransportCost,
		record.DriverName,
		record.DriverPhone,
		record.VehicleNumber,
		record.BorderCrossing,
		record.StaffAttestation,
		record.CounterpartyAttestation,
		record.Status,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *transportRepository) GetByID(ctx context.Context, id string) (*domain.TransportRecord, error) {
	query := `SELECT ` + transportColumns + ` FROM transport_records WHERE id=$1`
	return scanTransport(r.pool.QueryRow(ctx, query, id))
}

func (r *transportRepository) GetByAcquisition(ctx context.Context, acquisitionID string) (*domain.TransportRecord, error) {
	query := `SELECT ` + transportColumns + ` FROM transport_records WHERE acquisition_id=$1`
	return scanTransport(r.pool.QueryRow(ctx, query, acquisitionID))
}

func (r *transportRepository) List(ctx context.Context, filter RangeFilter) ([]domain.TransportRecord, error) {
	query := `SELECT ` + transportColumns + ` FROM transport_records WHERE 1=1`
	args := []any{}
	query, args = applyRangeFilter(query, args, filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.TransportRecord
	for rows.Next() {
		record, err := scanTransport(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func (r *transportRepository) AdvanceStatus(ctx context.Context, id string, eligible []domain.TransportStatus, next domain.TransportStatus) error {
	const query = `
        UPDATE transport_records SET status=$1, updated_at=NOW()
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

func (r *transportRepository) UpdateBorderCrossing(ctx context.Context, id string, crossing domain.BorderCrossing) error {
	const query = `
        UPDATE transport_records SET border_crossing=$1, updated_at=NOW()
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, crossing, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *transportRepository) classifyMiss(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM transport_records WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return pgx.ErrNoRows
	}
	return ErrStatusConflict
}

func scanTransport(row rowScanner) (*domain.TransportRecord, error) {
	var record domain.TransportRecord
	if err := row.Scan(
		&record.ID,
		&record.AcquisitionID,
		&record.StaffID,
		&record.ReceiverName,
		&record.ReceiverPhone,
		&record.ReceiverDesignation,
		&record.QuantityReceived,
		&record.TransportCost,
		&record.DriverName,
		&record.DriverPhone,
		&record.VehicleNumber,
		&record.BorderCrossing,
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
