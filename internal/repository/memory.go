package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/custody-service/internal/domain"
)

// Memory is an in-process implementation of every repository, guarded by a
// single mutex so the compare-and-set semantics match the SQL
// implementations. Used by tests and standalone runs without Postgres.
type Memory struct {
	mu           sync.Mutex
	identities   map[string]*domain.Identity
	tokens       map[string]*domain.ProvisionToken
	acquisitions map[string]*domain.AcquisitionRecord
	transports   map[string]*domain.TransportRecord
	processings  map[string]*domain.ProcessingRecord
	disposals    map[string]*domain.DisposalRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		identities:   make(map[string]*domain.Identity),
		tokens:       make(map[string]*domain.ProvisionToken),
		acquisitions: make(map[string]*domain.AcquisitionRecord),
		transports:   make(map[string]*domain.TransportRecord),
		processings:  make(map[string]*domain.ProcessingRecord),
		disposals:    make(map[string]*domain.DisposalRecord),
	}
}

// Identities returns the store as an IdentityRepository.
func (m *Memory) Identities() IdentityRepository { return (*memoryIdentities)(m) }

// ProvisionTokens returns the store as a ProvisionTokenRepository.
func (m *Memory) ProvisionTokens() ProvisionTokenRepository { return (*memoryTokens)(m) }

// Acquisitions returns the store as an AcquisitionRepository.
func (m *Memory) Acquisitions() AcquisitionRepository { return (*memoryAcquisitions)(m) }

// Transports returns the store as a TransportRepository.
func (m *Memory) Transports() TransportRepository { return (*memoryTransports)(m) }

// Processings returns the store as a ProcessingRepository.
func (m *Memory) Processings() ProcessingRepository { return (*memoryProcessings)(m) }

// Disposals returns the store as a DisposalRepository.
func (m *Memory) Disposals() DisposalRepository { return (*memoryDisposals)(m) }

type memoryIdentities Memory

func (m *memoryIdentities) Create(_ context.Context, identity *domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.identities {
		if existing.Phone == identity.Phone {
			return ErrDuplicate
		}
	}
	identity.ID = uuid.NewString()
	identity.CreatedAt = time.Now()
	identity.UpdatedAt = identity.CreatedAt
	clone := *identity
	m.identities[identity.ID] = &clone
	return nil
}

func (m *memoryIdentities) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.identities[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *identity
	return &clone, nil
}

func (m *memoryIdentities) GetByPhone(_ context.Context, phone string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, identity := range m.identities {
		if identity.Phone == phone {
			clone := *identity
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryIdentities) List(_ context.Context, filter IdentityFilter) ([]domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Identity
	for _, identity := range m.identities {
		if filter.Role != nil && identity.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && identity.Active != *filter.Active {
			continue
		}
		out = append(out, *identity)
	}
	return out, nil
}

func (m *memoryIdentities) SetActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.identities[id]
	if !ok {
		return pgx.ErrNoRows
	}
	identity.Active = active
	identity.UpdatedAt = time.Now()
	return nil
}

func (m *memoryIdentities) RecordLogin(_ context.Context, id, ip string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.identities[id]
	if !ok {
		return pgx.ErrNoRows
	}
	identity.LastLoginAt = &at
	identity.LastLoginIP = &ip
	identity.UpdatedAt = time.Now()
	return nil
}

type memoryTokens Memory

func (m *memoryTokens) Create(_ context.Context, token *domain.ProvisionToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token.ID = uuid.NewString()
	token.CreatedAt = time.Now()
	clone := *token
	m.tokens[token.Token] = &clone
	return nil
}

func (m *memoryTokens) GetByToken(_ context.Context, value string) (*domain.ProvisionToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[value]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *token
	return &clone, nil
}

func (m *memoryTokens) Redeem(_ context.Context, value string, now time.Time) (*domain.ProvisionToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[value]
	if !ok || token.Used || !token.ExpiresAt.After(now) {
		return nil, pgx.ErrNoRows
	}
	token.Used = true
	clone := *token
	return &clone, nil
}

func (m *memoryTokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for value, token := range m.tokens {
		if !token.ExpiresAt.After(before) {
			delete(m.tokens, value)
			deleted++
		}
	}
	return deleted, nil
}

type memoryAcquisitions Memory

func (m *memoryAcquisitions) Create(_ context.Context, record *domain.AcquisitionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record.ID = uuid.NewString()
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	clone := *record
	m.acquisitions[record.ID] = &clone
	return nil
}

func (m *memoryAcquisitions) GetByID(_ context.Context, id string) (*domain.AcquisitionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.acquisitions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

func (m *memoryAcquisitions) List(_ context.Context, filter RangeFilter) ([]domain.AcquisitionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AcquisitionRecord
	for _, record := range m.acquisitions {
		if inRange(record.CreatedAt, filter) {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (m *memoryAcquisitions) AdvanceStatus(_ context.Context, id string, eligible []domain.AcquisitionStatus, next domain.AcquisitionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.acquisitions[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if !statusIn(record.Status, eligible) {
		return ErrStatusConflict
	}
	record.Status = next
	record.UpdatedAt = time.Now()
	return nil
}

func (m *memoryAcquisitions) Correct(_ context.Context, id string, fields map[string]any, eligible []domain.AcquisitionStatus) (*domain.AcquisitionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.acquisitions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if !statusIn(record.Status, eligible) {
		return nil, ErrStatusConflict
	}
	for column, value := range fields {
		switch column {
		case "quantity":
			if v, ok := value.(float64); ok {
				record.Quantity = v
			}
		case "price":
			if v, ok := value.(float64); ok {
				record.Price = v
			}
		case "supplier_name":
			if v, ok := value.(string); ok {
				record.SupplierName = v
			}
		}
	}
	record.Status = domain.AcquisitionStatusCorrected
	record.UpdatedAt = time.Now()
	clone := *record
	return &clone, nil
}

type memoryTransports Memory

func (m *memoryTransports) Create(_ context.Context, record *domain.TransportRecord, eligible []domain.AcquisitionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	predecessor, ok := m.acquisitions[record.AcquisitionID]
	if !ok {
		return pgx.ErrNoRows
	}
	if !statusIn(predecessor.Status, eligible) {
		return ErrStatusConflict
	}
	predecessor.Status = domain.AcquisitionStatusInTransit
	predecessor.UpdatedAt = time.Now()

	record.ID = uuid.NewString()
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	clone := *record
	m.transports[record.ID] = &clone
	return nil
}

func (m *memoryTransports) GetByID(_ context.Context, id string) (*domain.TransportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.transports[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

func (m *memoryTransports) GetByAcquisition(_ context.Context, acquisitionID string) (*domain.TransportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range m.transports {
		if record.AcquisitionID == acquisitionID {
			clone := *record
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryTransports) List(_ context.Context, filter RangeFilter) ([]domain.TransportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TransportRecord
	for _, record := range m.transports {
		if inRange(record.CreatedAt, filter) {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (m *memoryTransports) AdvanceStatus(_ context.Context, id string, eligible []domain.TransportStatus, next domain.TransportStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.transports[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if !statusIn(record.Status, eligible) {
		return ErrStatusConflict
	}
	record.Status = next
	record.UpdatedAt = time.Now()
	return nil
}

func (m *memoryTransports) UpdateBorderCrossing(_ context.Context, id string, crossing domain.BorderCrossing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.transports[id]
	if !ok {
		return pgx.ErrNoRows
	}
	record.BorderCrossing = crossing
	record.UpdatedAt = time.Now()
	return nil
}

type memoryProcessings Memory

func (m *memoryProcessings) Create(_ context.Context, record *domain.ProcessingRecord, eligible []domain.TransportStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	predecessor, ok := m.transports[record.TransportID]
	if !ok {
		return pgx.ErrNoRows
	}
	if !statusIn(predecessor.Status, eligible) {
		return ErrStatusConflict
	}
	predecessor.Status = domain.TransportStatusProcessed
	predecessor.UpdatedAt = time.Now()

	record.ID = uuid.NewString()
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	clone := *record
	m.processings[record.ID] = &clone
	return nil
}

func (m *memoryProcessings) GetByID(_ context.Context, id string) (*domain.ProcessingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.processings[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

func (m *memoryProcessings) GetByTransport(_ context.Context, transportID string) (*domain.ProcessingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range m.processings {
		if record.TransportID == transportID {
			clone := *record
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryProcessings) List(_ context.Context, filter RangeFilter) ([]domain.ProcessingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ProcessingRecord
	for _, record := range m.processings {
		if inRange(record.CreatedAt, filter) {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (m *memoryProcessings) AdvanceStatus(_ context.Context, id string, eligible []domain.ProcessingStatus, next domain.ProcessingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.processings[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if !statusIn(record.Status, eligible) {
		return ErrStatusConflict
	}
	record.Status = next
	record.UpdatedAt = time.Now()
	return nil
}

func (m *memoryProcessings) UpdateQuality(_ context.Context, id string, quality domain.QualityMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.processings[id]
	if !ok {
		return pgx.ErrNoRows
	}
	record.Quality = quality
	record.UpdatedAt = time.Now()
	return nil
}

type memoryDisposals Memory

func (m *memoryDisposals) Create(_ context.Context, record *domain.DisposalRecord, oil, meal float64, eligible []domain.ProcessingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := (*Memory)(m).decrementLocked(record.ProcessingID, oil, meal, eligible); err != nil {
		return err
	}

	record.ID = uuid.NewString()
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	clone := *record
	m.disposals[record.ID] = &clone
	return nil
}

func (m *memoryDisposals) GetByID(_ context.Context, id string) (*domain.DisposalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.disposals[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

func (m *memoryDisposals) ListByProcessing(_ context.Context, processingID string) ([]domain.DisposalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.DisposalRecord
	for _, record := range m.disposals {
		if record.ProcessingID == processingID {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (m *memoryDisposals) List(_ context.Context, filter DisposalFilter) ([]domain.DisposalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.DisposalRecord
	for _, record := range m.disposals {
		if filter.ProductType != nil && record.ProductType != *filter.ProductType {
			continue
		}
		if inRange(record.CreatedAt, filter.RangeFilter) {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (m *memoryDisposals) AdvanceStatus(_ context.Context, id string, eligible []domain.DisposalStatus, next domain.DisposalStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.disposals[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if !statusIn(record.Status, eligible) {
		return ErrStatusConflict
	}
	record.Status = next
	record.UpdatedAt = time.Now()
	return nil
}

func (m *memoryDisposals) UpdatePaymentStatus(_ context.Context, id string, status domain.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.disposals[id]
	if !ok {
		return pgx.ErrNoRows
	}
	record.PaymentStatus = status
	record.UpdatedAt = time.Now()
	return nil
}

// decrementLocked assumes m.mu is held.
func (m *Memory) decrementLocked(id string, oil, meal float64, eligible []domain.ProcessingStatus) error {
	record, ok := m.processings[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if !statusIn(record.Status, eligible) {
		return ErrStatusConflict
	}
	if record.OilExtracted < oil || record.MealExtracted < meal {
		return ErrInsufficientBalance
	}
	record.OilExtracted -= oil
	record.MealExtracted -= meal
	record.UpdatedAt = time.Now()
	return nil
}

func statusIn[S comparable](status S, eligible []S) bool {
	for _, s := range eligible {
		if status == s {
			return true
		}
	}
	return false
}

func inRange(at time.Time, filter RangeFilter) bool {
	if filter.CreatedFrom != nil && at.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && at.After(*filter.CreatedTo) {
		return false
	}
	return true
}
