package domain

import "time"

// DisposalStatus enumerates lifecycle states for disposal records.
type DisposalStatus string

const (
	DisposalStatusPending   DisposalStatus = "PENDING"
	DisposalStatusFulfilled DisposalStatus = "FULFILLED"
	DisposalStatusCancelled DisposalStatus = "CANCELLED"
)

// ProductType identifies which extracted balance a disposal draws from.
type ProductType string

const (
	ProductOil  ProductType = "OIL"
	ProductMeal ProductType = "MEAL"
	ProductBoth ProductType = "BOTH"
)

// PaymentMethod enumerates accepted settlement instruments.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentTransfer PaymentMethod = "TRANSFER"
	PaymentCheque   PaymentMethod = "CHEQUE"
	PaymentCredit   PaymentMethod = "CREDIT"
)

// PaymentStatus tracks settlement progress of a disposal.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPartial  PaymentStatus = "PARTIAL"
	PaymentStatusComplete PaymentStatus = "COMPLETE"
)

// DisposalRecord is the final link of a custody chain: product sold out of a
// processing batch. Several disposals may consume one batch until the
// extracted balances are exhausted.
type DisposalRecord struct {
	ID                      string
	ProcessingID            string
	StaffID                 string
	CustomerName            string
	CustomerPhone           string
	ProductType             ProductType
	Quantity                float64
	UnitPrice               float64
	TotalAmount             float64
	PaymentMethod           PaymentMethod
	PaymentStatus           PaymentStatus
	DeliveryAddress         string
	InvoiceNumber           string
	StaffAttestation        string
	CounterpartyAttestation string
	Status                  DisposalStatus
	CreatedAt               time.Time
	UpdatedAt               time.Time
}
