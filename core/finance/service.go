package finance

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
)

var (
	// errors
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrOverpayment     = errors.New("payment amount exceeds invoice balance")
	// ErrDuplicateIdempotencyKey is the store's unique-index rejection; the
	// service resolves it by returning the already-stored payment.
	ErrDuplicateIdempotencyKey = errors.New("a payment with this idempotency key already exists")
)

type (
	Repository interface {
		CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
		GetInvoiceByID(ctx context.Context, id string) (Invoice, error)
		FilterInvoices(ctx context.Context, filter InvoiceQueryFilter) ([]Invoice, int, error)
		// ApplyToInvoiceBalance atomically decrements the invoice balance by
		// amount and recomputes the status per StatusForBalance. The
		// decrement and the balance check must be a single compare-and-swap:
		// ErrOverpayment when amount exceeds the balance at commit time.
		ApplyToInvoiceBalance(ctx context.Context, invoiceID string, amount int64) (Invoice, error)

		GetPaymentByIdempotencyKey(ctx context.Context, key string) (Payment, error)
		// CreatePayment fails with ErrDuplicateIdempotencyKey when the key is
		// already taken (unique-index enforced).
		CreatePayment(ctx context.Context, pmt Payment) (Payment, error)
		UpdatePayment(ctx context.Context, pmt Payment) (Payment, error)
		FilterPayments(ctx context.Context, filter PaymentQueryFilter) ([]Payment, error)
	}

	// StudentDirectory resolves invoice owners for receipt emails.
	StudentDirectory interface {
		GetByID(ctx context.Context, id string) (student.Student, error)
	}

	// ConfirmFunc settles a pending payment with an external gateway.
	// The default confirmation is synchronous and always succeeds; a real
	// gateway integration replaces it without touching the ledger flow.
	ConfirmFunc func(ctx context.Context, pmt Payment) error

	Service struct {
		repo     Repository
		students StudentDirectory
		mailSvc  core.EmailService
		confirm  ConfirmFunc
	}
)

func NewService(repo Repository, students StudentDirectory, mailSvc core.EmailService, confirm ...ConfirmFunc) *Service {
	svc := &Service{
		repo:     repo,
		students: students,
		mailSvc:  mailSvc,
		confirm:  func(context.Context, Payment) error { return nil },
	}
	if len(confirm) > 0 && confirm[0] != nil {
		svc.confirm = confirm[0]
	}
	return svc
}

// CreateInvoice issues an open invoice: total fixed to the sum of the item
// amounts, balance starting equal to total.
func (svc *Service) CreateInvoice(ctx context.Context, ni NewInvoice) (Invoice, error) {
	items := make([]InvoiceItem, 0, len(ni.Items))
	for _, item := range ni.Items {
		items = append(items, InvoiceItem{Head: item.Head, Amount: item.Amount, Description: item.Description})
	}

	now := time.Now().UTC()
	total := ni.Total()
	inv := Invoice{
		StudentID: ni.StudentID,
		InvoiceNo: "INV-" + uuid.New().String(),
		DueDate:   ni.DueDate,
		Currency:  ni.Currency,
		Items:     items,
		Total:     total,
		Balance:   total,
		Status:    InvoiceOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateInvoice(ctx, inv)
}

func (svc *Service) GetInvoiceByID(ctx context.Context, id string) (Invoice, error) {
	return svc.repo.GetInvoiceByID(ctx, id)
}

func (svc *Service) FilterInvoices(ctx context.Context, filter InvoiceQueryFilter) ([]Invoice, int, error) {
	filter.Page.Clean()
	return svc.repo.FilterInvoices(ctx, filter)
}

func (svc *Service) FilterPayments(ctx context.Context, filter PaymentQueryFilter) ([]Payment, error) {
	return svc.repo.FilterPayments(ctx, filter)
}

// ApplyPayment applies a payment against an invoice exactly once per
// idempotency key:
//   - a payment already stored under the key is returned as-is, with no
//     further side effects;
//   - the amount may equal the balance (drives the invoice to paid) but
//     never exceed it;
//   - the balance decrement is a store-side compare-and-swap, so two
//     concurrent payments cannot both consume the same balance.
func (svc *Service) ApplyPayment(ctx context.Context, np NewPayment) (Payment, error) {
	if np.IdempotencyKey == "" {
		np.IdempotencyKey = uuid.New().String()
	}

	if pmt, err := svc.repo.GetPaymentByIdempotencyKey(ctx, np.IdempotencyKey); err == nil {
		return pmt, nil
	} else if errors.Cause(err) != ErrPaymentNotFound {
		return Payment{}, errors.Wrap(err, "checking idempotency key")
	}

	inv, err := svc.repo.GetInvoiceByID(ctx, np.InvoiceID)
	if err != nil {
		return Payment{}, err
	}
	if np.Amount > inv.Balance {
		return Payment{}, ErrOverpayment
	}

	now := time.Now().UTC()
	pmt := Payment{
		InvoiceID:      inv.ID,
		Method:         np.Method,
		Amount:         np.Amount,
		Currency:       np.Currency,
		TxnRef:         "TXN-" + uuid.New().String(),
		Status:         PaymentPending,
		IdempotencyKey: np.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	pmt, err = svc.repo.CreatePayment(ctx, pmt)
	if err != nil {
		if errors.Cause(err) == ErrDuplicateIdempotencyKey {
			// lost the insert race; the other writer's payment wins
			return svc.repo.GetPaymentByIdempotencyKey(ctx, np.IdempotencyKey)
		}
		return Payment{}, errors.Wrap(err, "creating payment")
	}

	if err = svc.confirm(ctx, pmt); err != nil {
		pmt.Status = PaymentFailed
		pmt.UpdatedAt = time.Now().UTC()
		if _, uerr := svc.repo.UpdatePayment(ctx, pmt); uerr != nil {
			return Payment{}, errors.Wrap(uerr, "marking payment failed")
		}
		return Payment{}, errors.Wrap(err, "confirming payment")
	}

	inv, err = svc.repo.ApplyToInvoiceBalance(ctx, inv.ID, np.Amount)
	if err != nil {
		// the balance moved under us; the payment must not stay pending
		pmt.Status = PaymentFailed
		pmt.UpdatedAt = time.Now().UTC()
		if _, uerr := svc.repo.UpdatePayment(ctx, pmt); uerr != nil {
			return Payment{}, errors.Wrap(uerr, "marking payment failed")
		}
		return Payment{}, err
	}

	received := time.Now().UTC()
	pmt.Status = PaymentSucceeded
	pmt.ReceivedAt = &received
	pmt.UpdatedAt = received
	pmt, err = svc.repo.UpdatePayment(ctx, pmt)
	if err != nil {
		return Payment{}, errors.Wrap(err, "marking payment succeeded")
	}

	svc.sendReceipt(ctx, inv, pmt)
	return pmt, nil
}

// sendReceipt emails the invoice owner; failures are swallowed by the mail
// service which logs them.
func (svc *Service) sendReceipt(ctx context.Context, inv Invoice, pmt Payment) {
	if svc.mailSvc == nil || svc.students == nil {
		return
	}
	std, err := svc.students.GetByID(ctx, inv.StudentID)
	if err != nil || len(std.Emails) == 0 {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: std.FirstName + " " + std.LastName, Address: std.Emails[0]}},
		Subject:      fmt.Sprintf("Payment received for invoice %s", inv.InvoiceNo),
		TemplateName: "payment-receipt",
		TemplateContext: map[string]interface{}{
			"Student": std,
			"Invoice": inv,
			"Payment": pmt,
		},
	})
}
