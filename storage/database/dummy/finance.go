package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core/finance"
)

type financeRepository struct {
	db *financeTable
}

var _ finance.Repository = (*financeRepository)(nil) // interface compliance check

func NewFinanceRepository(db *DB) finance.Repository {
	return &financeRepository{db: db.finance}
}

func (repo *financeRepository) CreateInvoice(_ context.Context, inv finance.Invoice) (finance.Invoice, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	inv.ID = uuid.New().String()
	repo.db.invoices[inv.ID] = &inv
	return inv, nil
}

func (repo *financeRepository) GetInvoiceByID(_ context.Context, id string) (finance.Invoice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if inv, ok := repo.db.invoices[id]; ok {
		return *inv, nil
	}
	return finance.Invoice{}, finance.ErrInvoiceNotFound
}

func (repo *financeRepository) FilterInvoices(_ context.Context, filter finance.InvoiceQueryFilter) ([]finance.Invoice, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matched []finance.Invoice
	for _, inv := range repo.db.invoices {
		if filter.StudentID != "" && inv.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		matched = append(matched, *inv)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].DueDate.Before(matched[j].DueDate) })

	total := len(matched)
	start := filter.Page.Offset()
	if start > total {
		start = total
	}
	end := start + filter.Page.Size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// ApplyToInvoiceBalance checks and swaps the balance under the write lock,
// the in-memory equivalent of the store-side compare-and-swap.
func (repo *financeRepository) ApplyToInvoiceBalance(_ context.Context, invoiceID string, amount int64) (finance.Invoice, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	inv, ok := repo.db.invoices[invoiceID]
	if !ok {
		return finance.Invoice{}, finance.ErrInvoiceNotFound
	}
	if amount > inv.Balance {
		return finance.Invoice{}, finance.ErrOverpayment
	}
	inv.Balance -= amount
	inv.Status = finance.StatusForBalance(inv.Total, inv.Balance, inv.Status)
	return *inv, nil
}

func (repo *financeRepository) GetPaymentByIdempotencyKey(_ context.Context, key string) (finance.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, pmt := range repo.db.payments {
		if pmt.IdempotencyKey != "" && pmt.IdempotencyKey == key {
			return *pmt, nil
		}
	}
	return finance.Payment{}, finance.ErrPaymentNotFound
}

func (repo *financeRepository) CreatePayment(_ context.Context, pmt finance.Payment) (finance.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if pmt.IdempotencyKey != "" {
		for _, existing := range repo.db.payments {
			if existing.IdempotencyKey == pmt.IdempotencyKey {
				return finance.Payment{}, finance.ErrDuplicateIdempotencyKey
			}
		}
	}
	pmt.ID = uuid.New().String()
	repo.db.payments[pmt.ID] = &pmt
	return pmt, nil
}

func (repo *financeRepository) UpdatePayment(_ context.Context, pmt finance.Payment) (finance.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.payments[pmt.ID]; !ok {
		return finance.Payment{}, finance.ErrPaymentNotFound
	}
	repo.db.payments[pmt.ID] = &pmt
	return pmt, nil
}

func (repo *financeRepository) FilterPayments(_ context.Context, filter finance.PaymentQueryFilter) ([]finance.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matched []finance.Payment
	for _, pmt := range repo.db.payments {
		if filter.InvoiceID != "" && pmt.InvoiceID != filter.InvoiceID {
			continue
		}
		matched = append(matched, *pmt)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	return matched, nil
}
