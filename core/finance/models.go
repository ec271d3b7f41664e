package finance

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Invoice statuses
const (
	InvoiceDraft   = "draft"
	InvoiceOpen    = "open"
	InvoicePartial = "partial"
	InvoicePaid    = "paid"
	InvoiceVoid    = "void" // terminal soft state; nothing sets it yet
)

// Payment statuses
const (
	PaymentPending   = "pending"
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Payment methods
const (
	MethodCard = "card"
	MethodBank = "bank"
	MethodCash = "cash"
)

type (
	// InvoiceItem amounts are in minor currency units.
	InvoiceItem struct {
		Head        string `json:"head"`
		Amount      int64  `json:"amount"`
		Description string `json:"description,omitempty"`
	}

	Invoice struct {
		ID        string        `json:"id"`
		StudentID string        `json:"student_id"`
		InvoiceNo string        `json:"invoice_no"`
		DueDate   time.Time     `json:"due_date"`
		Currency  string        `json:"currency"`
		Items     []InvoiceItem `json:"items"`
		Total     int64         `json:"total"`   // fixed at creation
		Balance   int64         `json:"balance"` // 0 <= balance <= total
		Status    string        `json:"status"`
		CreatedAt time.Time     `json:"created_at"` // UTC
		UpdatedAt time.Time     `json:"updated_at"` // UTC
	}

	Payment struct {
		ID             string     `json:"id"`
		InvoiceID      string     `json:"invoice_id"`
		Method         string     `json:"method"`
		Amount         int64      `json:"amount"`
		Currency       string     `json:"currency"`
		TxnRef         string     `json:"txn_ref"`
		Status         string     `json:"status"`
		ReceivedAt     *time.Time `json:"received_at,omitempty"` // UTC
		IdempotencyKey string     `json:"idempotency_key,omitempty"`
		CreatedAt      time.Time  `json:"created_at"` // UTC
		UpdatedAt      time.Time  `json:"updated_at"` // UTC
	}
)

// StatusForBalance derives the invoice status from its balance. It never
// touches the balance itself: balance == 0 is paid, a partly consumed
// balance is partial, anything else keeps the current status.
func StatusForBalance(total, balance int64, current string) string {
	switch {
	case balance == 0:
		return InvoicePaid
	case balance > 0 && balance < total:
		return InvoicePartial
	default:
		return current
	}
}

// NewInvoice contains information needed to issue a new Invoice.
type NewInvoice struct {
	StudentID string           `json:"student_id" validate:"required"`
	Items     []NewInvoiceItem `json:"items" validate:"required,min=1,dive"`
	DueDate   time.Time        `json:"due_date" validate:"required"`
	Currency  string           `json:"currency"`
}

type NewInvoiceItem struct {
	Head        string `json:"head" validate:"required"`
	Amount      int64  `json:"amount" validate:"gte=0"`
	Description string `json:"description"`
}

func (ni *NewInvoice) Validate(validate *validator.Validate) error {
	ni.Currency = strings.ToUpper(core.CleanString(ni.Currency))
	if ni.Currency == "" {
		ni.Currency = "USD"
	}
	return validate.Struct(ni)
}

// Total sums the item amounts.
func (ni *NewInvoice) Total() int64 {
	var total int64
	for _, item := range ni.Items {
		total += item.Amount
	}
	return total
}

// NewPayment contains information needed to apply a payment to an invoice.
// When IdempotencyKey is empty a fresh key is minted, which means retries
// of the same logical request will NOT be deduplicated; callers that need
// safe retries must supply a stable key.
type NewPayment struct {
	InvoiceID      string `json:"invoice_id" validate:"required"`
	Method         string `json:"method" validate:"required,oneof=card bank cash"`
	Amount         int64  `json:"amount" validate:"gte=0"`
	Currency       string `json:"currency"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.Currency = strings.ToUpper(core.CleanString(np.Currency))
	if np.Currency == "" {
		np.Currency = "USD"
	}
	np.IdempotencyKey = core.CleanString(np.IdempotencyKey)
	return validate.Struct(np)
}

type InvoiceQueryFilter struct {
	StudentID string `query:"student_id"`
	Status    string `query:"status"`
	Page      core.Page
}

type PaymentQueryFilter struct {
	InvoiceID string `query:"invoice_id"`
}
