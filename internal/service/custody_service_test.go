package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/custody-service/internal/auth"
	"github.com/spec-kit/custody-service/internal/domain"
	"github.com/spec-kit/custody-service/internal/events"
	"github.com/spec-kit/custody-service/internal/repository"
)

type custodyFixture struct {
	svc    *CustodyService
	mem    *repository.Memory
	tokens *auth.TokenManager
	seal   string

	acquirer  *domain.Identity
	hauler    *domain.Identity
	processor *domain.Identity
	seller    *domain.Identity
	admin     *domain.Identity
}

func newCustodyFixture(t *testing.T) *custodyFixture {
	t.Helper()
	mem := repository.NewMemory()
	tokens := auth.NewTokenManager("test-secret", time.Hour, 5*time.Minute)

	svc := NewCustodyService(CustodyDependencies{
		AcquisitionRepo: mem.Acquisitions(),
		TransportRepo:   mem.Transports(),
		ProcessingRepo:  mem.Processings(),
		DisposalRepo:    mem.Disposals(),
		TokenManager:    tokens,
		Dispatcher:      events.NewInMemoryDispatcher(),
		Logger:          zap.NewNop(),
	})

	seal, err := auth.SealCounterparty("counterparty-sample", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	return &custodyFixture{
		svc:       svc,
		mem:       mem,
		tokens:    tokens,
		seal:      seal,
		acquirer:  &domain.Identity{ID: uuid.NewString(), Role: domain.RoleAcquisition, Active: true},
		hauler:    &domain.Identity{ID: uuid.NewString(), Role: domain.RoleTransport, Active: true},
		processor: &domain.Identity{ID: uuid.NewString(), Role: domain.RoleProcessing, Active: true},
		seller:    &domain.Identity{ID: uuid.NewString(), Role: domain.RoleDisposal, Active: true},
		admin:     &domain.Identity{ID: uuid.NewString(), Role: domain.RoleAdministrator, Active: true},
	}
}

func (f *custodyFixture) attest(t *testing.T, actor *domain.Identity) Attestations {
	t.Helper()
	proof, err := f.tokens.GenerateAttestation(actor.ID)
	if err != nil {
		t.Fatalf("generate attestation: %v", err)
	}
	return Attestations{StaffProof: proof, CounterpartySeal: f.seal}
}

func (f *custodyFixture) createAcquisition(t *testing.T) *domain.AcquisitionRecord {
	t.Helper()
	record, err := f.svc.CreateAcquisition(context.Background(), f.acquirer, CreateAcquisitionParams{
		SupplierName: "Okonkwo Farms",
		Quantity:     500,
		Unit:         domain.UnitKG,
		Price:        250000,
		Attestations: f.attest(t, f.acquirer),
	})
	if err != nil {
		t.Fatalf("create acquisition: %v", err)
	}
	return record
}

func (f *custodyFixture) verifiedAcquisition(t *testing.T) *domain.AcquisitionRecord {
	t.Helper()
	record := f.createAcquisition(t)
	verified, err := f.svc.ReviewAcquisition(context.Background(), f.admin, record.ID, true)
	if err != nil {
		t.Fatalf("review acquisition: %v", err)
	}
	return verified
}

func (f *custodyFixture) deliveredTransport(t *testing.T) *domain.TransportRecord {
	t.Helper()
	ctx := context.Background()
	acquisition := f.verifiedAcquisition(t)

	transport, err := f.svc.CreateTransport(ctx, f.hauler, CreateTransportParams{
		AcquisitionID:    acquisition.ID,
		ReceiverName:     "Factory Gate",
		QuantityReceived: 495,
		BorderCrossing:   domain.CrossingSeme,
		Attestations:     f.attest(t, f.hauler),
	})
	if err != nil {
		t.Fatalf("create transport: %v", err)
	}
	if _, err := f.svc.ReviewTransport(ctx, f.admin, transport.ID, true); err != nil {
		t.Fatalf("review transport: %v", err)
	}
	delivered, err := f.svc.MarkTransportDelivered(ctx, f.hauler, transport.ID)
	if err != nil {
		t.Fatalf("deliver transport: %v", err)
	}
	return delivered
}

func (f *custodyFixture) verifiedProcessing(t *testing.T, oil, meal float64) *domain.ProcessingRecord {
	t.Helper()
	ctx := context.Background()
	transport := f.deliveredTransport(t)

	processing, err := f.svc.CreateProcessing(ctx, f.processor, CreateProcessingParams{
		TransportID:       transport.ID,
		QuantityProcessed: oil + meal + 10,
		OilExtracted:      oil,
		MealExtracted:     meal,
		StartedAt:         time.Now().Add(-4 * time.Hour),
		EndedAt:           time.Now(),
		Attestations:      f.attest(t, f.processor),
	})
	if err != nil {
		t.Fatalf("create processing: %v", err)
	}
	verified, err := f.svc.ReviewProcessing(ctx, f.admin, processing.ID, true)
	if err != nil {
		t.Fatalf("review processing: %v", err)
	}
	return verified
}

func TestFullCustodyChain(t *testing.T) {
	f := newCustodyFixture(t)
	ctx := context.Background()

	processing := f.verifiedProcessing(t, 100, 50)

	disposal, err := f.svc.CreateDisposal(ctx, f.seller, CreateDisposalParams{
		ProcessingID:  processing.ID,
		CustomerName:  "Lagos Oils Ltd",
		ProductType:   domain.ProductOil,
		Quantity:      60,
		UnitPrice:     1200,
		PaymentMethod: domain.PaymentTransfer,
		Attestations:  f.attest(t, f.seller),
	})
	if err != nil {
		t.Fatalf("create disposal: %v", err)
	}
	if disposal.TotalAmount != 72000 {
		t.Fatalf("total = %.2f, want 72000", disposal.TotalAmount)
	}
	if disposal.InvoiceNumber == "" {
		t.Fatal("expected an invoice number")
	}
	if disposal.PaymentStatus != domain.PaymentStatusPending {
		t.Fatalf("payment status = %s, want PENDING", disposal.PaymentStatus)
	}

	remaining, err := f.svc.GetProcessing(ctx, processing.ID)
	if err != nil {
		t.Fatalf("get processing: %v", err)
	}
	if remaining.OilExtracted != 40 {
		t.Fatalf("oil balance = %.2f, want 40", remaining.OilExtracted)
	}
	if remaining.MealExtracted != 50 {
		t.Fatalf("meal balance = %.2f, want 50 (untouched)", remaining.MealExtracted)
	}

	chain, err := f.svc.TraceChain(ctx, remainingChainRoot(t, f, processing))
	if err != nil {
		t.Fatalf("trace chain: %v", err)
	}
	if chain.Transport == nil || chain.Processing == nil || len(chain.Disposals) != 1 {
		t.Fatal("chain is missing stages")
	}
	if !chain.Complete {
		t.Fatal("chain with a disposal should be complete")
	}
	if chain.Acquisition.Status != domain.AcquisitionStatusInTransit {
		t.Fatalf("acquisition status = %s, want IN_TRANSIT", chain.Acquisition.Status)
	}
	if chain.Transport.Status != domain.TransportStatusProcessed {
		t.Fatalf("transport status = %s, want PROCESSED", chain.Transport.Status)
	}
}

// remainingChainRoot walks back to the acquisition id for the chain report.
func remainingChainRoot(t *testing.T, f *custodyFixture, processing *domain.ProcessingRecord) string {
	t.Helper()
	transport, err := f.svc.GetTransport(context.Background(), processing.TransportID)
	if err != nil {
		t.Fatalf("get transport: %v", err)
	}
	return transport.AcquisitionID
}

func TestTransportConsumesAcquisitionOnce(t *testing.T) {
	f := newCustodyFixture(t)
	ctx := context.Background()
	acquisition := f.verifiedAcquisition(t)

	params := CreateTransportParams{
		AcquisitionID:    acquisition.ID,
		ReceiverName:     "Factory Gate",
		QuantityReceived: 500,
	}
	params.Attestations = f.attest(t, f.hauler)
	if _, err := f.svc.CreateTransport(ctx, f.hauler, params); err != nil {
		t.Fatalf("first transport: %v", err)
	}

	params.Attestations = f.attest(t, f.hauler)
	_, err := f.svc.CreateTransport(ctx, f.hauler, params)
	assertCode(t, err, "CONFLICT")
}

func TestTransportRejectsPendingAcquisition(t *testing.T) {
	f := newCustodyFixture(t)
	acquisition := f.createAcquisition(t)

	_, err := f.svc.CreateTransport(context.Background(), f.hauler, CreateTransportParams{
		AcquisitionID:    acquisition.ID,
		ReceiverName:     "Factory Gate",
		QuantityReceived: 500,
		Attestations:     f.attest(t, f.hauler),
	})
	assertCode(t, err, "CONFLICT")
}

func TestTransportUnknownAcquisition(t *testing.T) {
	f := newCustodyFixture(t)
	_, err := f.svc.CreateTransport(context.Background(), f.hauler, CreateTransportParams{
		AcquisitionID:    uuid.NewString(),
		ReceiverName:     "Factory Gate",
		QuantityReceived: 500,
		Attestations:     f.attest(t, f.hauler),
	})
	assertCode(t, err, "NOT_FOUND")
}

func TestReviewForwardOnly(t *testing.T) {
	f := newCustodyFixture(t)
	ctx := context.Background()
	acquisition := f.verifiedAcquisition(t)

	_, err := f.svc.ReviewAcquisition(ctx, f.admin, acquisition.ID, false)
	assertCode(t, err, "CONFLICT")

	_, err = f.svc.ReviewAcquisition(ctx, f.admin, uuid.NewString(), true)
	assertCode(t, err, "NOT_FOUND")
}

func TestDisposalInventoryGuard(t *testing.T) {
	f := newCustodyFixture(t)
	ctx := context.Background()
	processing := f.verifiedProcessing(t, 100, 50)

	_, err := f.svc.CreateDisposal(ctx, f.seller, CreateDisposalParams{
		ProcessingID:  processing.ID,
		CustomerName:  "Greedy Buyer",
		ProductType:   domain.ProductOil,
		Quantity:      150,
		UnitPrice:     1000,
		PaymentMethod: domain.PaymentCash,
		Attestations:  f.attest(t, f.seller),
	})
	assertCode(t, err, "INSUFFICIENT_INVENTORY")

	// A failed draw must leave the balances untouched.
	current, err := f.svc.GetProcessing(ctx, processing.ID)
	if err != nil {
		t.Fatalf("get processing: %v", err)
	}
	if current.OilExtracted != 100 || current.MealExtracted != 50 {
		t.Fatalf("balances = %.2f/%.2f, want 100/50", current.OilExtracted, current.MealExtracted)
	}

	// BOTH draws each balance by the full quantity.
	_, err = f.svc.CreateDisposal(ctx, f.seller, CreateDisposalParams{
		ProcessingID:  processing.ID,
		CustomerName:  "Bulk Buyer",
		ProductType:   domain.ProductBoth,
		Quantity:      75,
		UnitPrice:     900,
		PaymentMethod: domain.PaymentCash,
		Attestations:  f.attest(t, f.seller),
	})
	assertCode(t, err, "INSUFFICIENT_INVENTORY")
}

func TestConcurrentDisposalsNeverOversell(t *testing.T) {
	f := newCustodyFixture(t)
	ctx := context.Background()
	processing := f.verifiedProcessing(t, 100, 100)

	var wg sync.WaitGroup
	results := make([]error, 4)
	for i := 0; i < 4; i++ {
		att := f.attest(t, f.seller)
		wg.Add(1)
		go func(n int, att Attestations) {
			defer wg.Done()
			_, results[n] = f.svc.CreateDisposal(ctx, f.seller, CreateDisposalParams{
				ProcessingID:  processing.ID,
				CustomerName:  "Racing Buyer",
				ProductType:   domain.ProductOil,
				Quantity:      30,
				UnitPrice:     1000,
				PaymentMethod: domain.PaymentCash,
				Attestations:  att,
			})
		}(i, att)
	}
	wg.Wait()

	var successes int
	for _, err := range results {
		if err == nil {
			successes++
		}
	}
	if successes != 3 {
		t.Fatalf("successes = %d, want exactly 3 of 4 sales of 30 from 100", successes)
	}

	current, err := f.svc.GetProcessing(ctx, processing.ID)
	if err != nil {
		t.Fatalf("get processing: %v", err)
	}
	if current.OilExtracted != 10 {
		t.Fatalf("oil balance = %.2f, want 10", current.OilExtracted)
	}
}

func TestAttestationSubjectMismatch(t *testing.T) {
	f := newCustodyFixture(t)

	// A proof issued to someone else must not authorize this actor's write.
	att := f.attest(t, f.hauler)
	_, err := f.svc.CreateAcquisition(context.Background(), f.acquirer, CreateAcquisitionParams{
		SupplierName: "Okonkwo Farms",
		Quantity:     500,
		Unit:         domain.UnitKG,
		Price:        250000,
		Attestations: att,
	})
	assertCode(t, err, "FORBIDDEN")
}

func TestRawSampleRejectedAsSeal(t *testing.T) {
	f := newCustodyFixture(t)

	att := f.attest(t, f.acquirer)
	att.CounterpartySeal = "raw-fingerprint-data"
	_, err := f.svc.CreateAcquisition(context.Background(), f.acquirer, CreateAcquisitionParams{
		SupplierName: "Okonkwo Farms",
		Quantity:     500,
		Unit:         domain.UnitKG,
		Price:        250000,
		Attestations: att,
	})
	assertCode(t, err, "VALIDATION_FAILED")
}

func TestCorrectionWhitelist(t *testing.T) {
	f := newCustodyFixture(t)
	ctx := context.Background()
	acquisition := f.verifiedAcquisition(t)

	_, err := f.svc.CorrectAcquisition(ctx, f.admin, acquisition.ID, map[string]any{"status": "VERIFIED"})
	assertCode(t, err, "VALIDATION_FAILED")

	corrected, err := f.svc.CorrectAcquisition(ctx, f.admin, acquisition.ID, map[string]any{
		"quantity":      float64(480),
		"supplier_name": "Okonkwo Farms Ltd",
	})
	if err != nil {
		t.Fatalf("correct: %v", err)
	}
	if corrected.Status != domain.AcquisitionStatusCorrected {
		t.Fatalf("status = %s, want CORRECTED", corrected.Status)
	}
	if corrected.Quantity != 480 {
		t.Fatalf("quantity = %.2f, want 480", corrected.Quantity)
	}

	// A corrected acquisition is still eligible for transport.
	if _, err := f.svc.CreateTransport(ctx, f.hauler, CreateTransportParams{
		AcquisitionID:    acquisition.ID,
		ReceiverName:     "Factory Gate",
		QuantityReceived: 480,
		Attestations:     f.attest(t, f.hauler),
	}); err != nil {
		t.Fatalf("transport from corrected acquisition: %v", err)
	}

	// Once consumed it can no longer be corrected.
	_, err = f.svc.CorrectAcquisition(ctx, f.admin, acquisition.ID, map[string]any{"quantity": float64(470)})
	assertCode(t, err, "CONFLICT")
}

func TestDisposalLifecycle(t *testing.T) {
	f := newCustodyFixture(t)
	ctx := context.Background()
	processing := f.verifiedProcessing(t, 100, 50)

	disposal, err := f.svc.CreateDisposal(ctx, f.seller, CreateDisposalParams{
		ProcessingID:  processing.ID,
		CustomerName:  "Lagos Oils Ltd",
		ProductType:   domain.ProductMeal,
		Quantity:      20,
		UnitPrice:     500,
		PaymentMethod: domain.PaymentCredit,
		Attestations:  f.attest(t, f.seller),
	})
	if err != nil {
		t.Fatalf("create disposal: %v", err)
	}

	paid, err := f.svc.UpdatePaymentStatus(ctx, disposal.ID, domain.PaymentStatusComplete)
	if err != nil {
		t.Fatalf("update payment: %v", err)
	}
	if paid.PaymentStatus != domain.PaymentStatusComplete {
		t.Fatalf("payment status = %s, want COMPLETE", paid.PaymentStatus)
	}

	fulfilled, err := f.svc.FulfilDisposal(ctx, f.seller, disposal.ID)
	if err != nil {
		t.Fatalf("fulfil: %v", err)
	}
	if fulfilled.Status != domain.DisposalStatusFulfilled {
		t.Fatalf("status = %s, want FULFILLED", fulfilled.Status)
	}

	// Fulfilled sales cannot be cancelled.
	_, err = f.svc.CancelDisposal(ctx, f.seller, disposal.ID)
	assertCode(t, err, "CONFLICT")
}

func TestProcessingValidation(t *testing.T) {
	f := newCustodyFixture(t)
	transport := f.deliveredTransport(t)

	_, err := f.svc.CreateProcessing(context.Background(), f.processor, CreateProcessingParams{
		TransportID:       transport.ID,
		QuantityProcessed: 100,
		OilExtracted:      80,
		MealExtracted:     40,
		StartedAt:         time.Now().Add(-time.Hour),
		EndedAt:           time.Now(),
		Attestations:      f.attest(t, f.processor),
	})
	assertCode(t, err, "VALIDATION_FAILED")
}
