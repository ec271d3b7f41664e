package finance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/finance"
	dummydb "github.com/trezcool/academia/storage/database/dummy"
)

func newTestService(t *testing.T, confirm ...finance.ConfirmFunc) (*finance.Service, finance.Repository) {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewFinanceRepository(db)
	return finance.NewService(repo, nil, nil, confirm...), repo
}

func newTestInvoice(t *testing.T, svc *finance.Service, amounts ...int64) finance.Invoice {
	t.Helper()
	items := make([]finance.NewInvoiceItem, 0, len(amounts))
	for _, a := range amounts {
		items = append(items, finance.NewInvoiceItem{Head: "Tuition", Amount: a})
	}
	inv, err := svc.CreateInvoice(context.Background(), finance.NewInvoice{
		StudentID: "std-1",
		Items:     items,
		DueDate:   time.Now().Add(30 * 24 * time.Hour),
		Currency:  "USD",
	})
	require.NoError(t, err)
	return inv
}

func TestService_CreateInvoice(t *testing.T) {
	svc, _ := newTestService(t)

	inv := newTestInvoice(t, svc, 1000, 200)
	assert.Equal(t, int64(1200), inv.Total)
	assert.Equal(t, int64(1200), inv.Balance)
	assert.Equal(t, finance.InvoiceOpen, inv.Status)
	assert.NotEmpty(t, inv.InvoiceNo)
}

func TestService_ApplyPayment(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	inv := newTestInvoice(t, svc, 1200)

	// partial payment
	pmt, err := svc.ApplyPayment(ctx, finance.NewPayment{InvoiceID: inv.ID, Method: finance.MethodCard, Amount: 600})
	require.NoError(t, err)
	assert.Equal(t, finance.PaymentSucceeded, pmt.Status)
	assert.NotNil(t, pmt.ReceivedAt)
	assert.NotEmpty(t, pmt.TxnRef)

	inv, err = svc.GetInvoiceByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), inv.Balance)
	assert.Equal(t, finance.InvoicePartial, inv.Status)

	// exact payoff
	_, err = svc.ApplyPayment(ctx, finance.NewPayment{InvoiceID: inv.ID, Method: finance.MethodBank, Amount: 600})
	require.NoError(t, err)

	inv, err = svc.GetInvoiceByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), inv.Balance)
	assert.Equal(t, finance.InvoicePaid, inv.Status)

	// anything more is an overpayment
	_, err = svc.ApplyPayment(ctx, finance.NewPayment{InvoiceID: inv.ID, Method: finance.MethodCash, Amount: 1})
	assert.Equal(t, finance.ErrOverpayment, errors.Cause(err))
}

func TestService_ApplyPayment_overpaymentLeavesInvoiceUntouched(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	inv := newTestInvoice(t, svc, 500)

	_, err := svc.ApplyPayment(ctx, finance.NewPayment{InvoiceID: inv.ID, Method: finance.MethodCard, Amount: 501})
	assert.Equal(t, finance.ErrOverpayment, errors.Cause(err))

	inv, err = svc.GetInvoiceByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), inv.Balance)
	assert.Equal(t, finance.InvoiceOpen, inv.Status)
}

func TestService_ApplyPayment_idempotency(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	inv := newTestInvoice(t, svc, 1000)

	np := finance.NewPayment{
		InvoiceID:      inv.ID,
		Method:         finance.MethodCard,
		Amount:         400,
		IdempotencyKey: "retry-key-1",
	}
	first, err := svc.ApplyPayment(ctx, np)
	require.NoError(t, err)

	// replay with the same key: same payment back, no second deduction
	second, err := svc.ApplyPayment(ctx, np)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.TxnRef, second.TxnRef)

	inv, err = svc.GetInvoiceByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), inv.Balance)

	payments, err := svc.FilterPayments(ctx, finance.PaymentQueryFilter{InvoiceID: inv.ID})
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestService_ApplyPayment_unknownInvoice(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ApplyPayment(context.Background(), finance.NewPayment{
		InvoiceID: "nope", Method: finance.MethodCash, Amount: 10,
	})
	assert.Equal(t, finance.ErrInvoiceNotFound, errors.Cause(err))
}

func TestService_ApplyPayment_confirmFailure(t *testing.T) {
	ctx := context.Background()
	confirmErr := errors.New("gateway declined")
	svc, repo := newTestService(t, func(context.Context, finance.Payment) error { return confirmErr })
	inv := newTestInvoice(t, svc, 800)

	_, err := svc.ApplyPayment(ctx, finance.NewPayment{InvoiceID: inv.ID, Method: finance.MethodCard, Amount: 300})
	require.Error(t, err)
	assert.Equal(t, confirmErr, errors.Cause(err))

	// balance untouched, payment kept as failed
	inv, err = svc.GetInvoiceByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(800), inv.Balance)

	payments, err := repo.FilterPayments(ctx, finance.PaymentQueryFilter{InvoiceID: inv.ID})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, finance.PaymentFailed, payments[0].Status)
}

func TestService_ApplyPayment_concurrent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	inv := newTestInvoice(t, svc, 500)

	// every payment wants the whole balance; the CAS lets exactly one through
	const n = 8
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyPayment(ctx, finance.NewPayment{InvoiceID: inv.ID, Method: finance.MethodCard, Amount: 500})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, overpaid int
	for err := range errs {
		switch errors.Cause(err) {
		case nil:
			succeeded++
		case finance.ErrOverpayment:
			overpaid++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, overpaid)

	inv, err := svc.GetInvoiceByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), inv.Balance)
	assert.Equal(t, finance.InvoicePaid, inv.Status)
}

func TestService_ApplyPayment_lostBalanceRaceMarksPaymentFailed(t *testing.T) {
	ctx := context.Background()
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewFinanceRepository(db)

	// a competing payment lands while ours awaits confirmation
	drain := func(ctx context.Context, pmt finance.Payment) error {
		_, err := repo.ApplyToInvoiceBalance(ctx, pmt.InvoiceID, pmt.Amount)
		return err
	}
	svc := finance.NewService(repo, nil, nil, drain)
	inv := newTestInvoice(t, svc, 500)

	_, err = svc.ApplyPayment(ctx, finance.NewPayment{InvoiceID: inv.ID, Method: finance.MethodCard, Amount: 500})
	assert.Equal(t, finance.ErrOverpayment, errors.Cause(err))

	payments, err := repo.FilterPayments(ctx, finance.PaymentQueryFilter{InvoiceID: inv.ID})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, finance.PaymentFailed, payments[0].Status)
}

func TestStatusForBalance(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		balance int64
		current string
		want    string
	}{
		{"zero balance is paid", 100, 0, finance.InvoiceOpen, finance.InvoicePaid},
		{"partly consumed is partial", 100, 40, finance.InvoiceOpen, finance.InvoicePartial},
		{"untouched keeps current", 100, 100, finance.InvoiceOpen, finance.InvoiceOpen},
		{"zero total is paid", 0, 0, finance.InvoiceOpen, finance.InvoicePaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, finance.StatusForBalance(tt.total, tt.balance, tt.current))
		})
	}
}
