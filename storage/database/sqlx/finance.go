package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/finance"
)

type invoiceRow struct {
	ID        string    `db:"id"`
	StudentID string    `db:"student_id"`
	InvoiceNo string    `db:"invoice_no"`
	DueDate   time.Time `db:"due_date"`
	Currency  string    `db:"currency"`
	Items     []byte    `db:"items"`
	Total     int64     `db:"total"`
	Balance   int64     `db:"balance"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r invoiceRow) unpack() (finance.Invoice, error) {
	inv := finance.Invoice{
		ID:        r.ID,
		StudentID: r.StudentID,
		InvoiceNo: r.InvoiceNo,
		DueDate:   r.DueDate,
		Currency:  r.Currency,
		Total:     r.Total,
		Balance:   r.Balance,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if err := jsonbScan(r.Items, &inv.Items); err != nil {
		return finance.Invoice{}, err
	}
	return inv, nil
}

type paymentRow struct {
	ID             string      `db:"id"`
	InvoiceID      string      `db:"invoice_id"`
	Method         string      `db:"method"`
	Amount         int64       `db:"amount"`
	Currency       string      `db:"currency"`
	TxnRef         string      `db:"txn_ref"`
	Status         string      `db:"status"`
	ReceivedAt     null.Time   `db:"received_at"`
	IdempotencyKey null.String `db:"idempotency_key"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func (r paymentRow) unpack() finance.Payment {
	return finance.Payment{
		ID:             r.ID,
		InvoiceID:      r.InvoiceID,
		Method:         r.Method,
		Amount:         r.Amount,
		Currency:       r.Currency,
		TxnRef:         r.TxnRef,
		Status:         r.Status,
		ReceivedAt:     r.ReceivedAt.Ptr(),
		IdempotencyKey: r.IdempotencyKey.String,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func packPayment(pmt finance.Payment) paymentRow {
	return paymentRow{
		ID:             pmt.ID,
		InvoiceID:      pmt.InvoiceID,
		Method:         pmt.Method,
		Amount:         pmt.Amount,
		Currency:       pmt.Currency,
		TxnRef:         pmt.TxnRef,
		Status:         pmt.Status,
		ReceivedAt:     null.TimeFromPtr(pmt.ReceivedAt),
		IdempotencyKey: null.NewString(pmt.IdempotencyKey, pmt.IdempotencyKey != ""),
		CreatedAt:      pmt.CreatedAt.UTC(),
		UpdatedAt:      pmt.UpdatedAt.UTC(),
	}
}

type financeRepository struct {
	db *sqlx.DB
}

var _ finance.Repository = (*financeRepository)(nil) // interface compliance check

func NewFinanceRepository(db *sqlx.DB) *financeRepository {
	return &financeRepository{db: db}
}

func (repo financeRepository) CreateInvoice(ctx context.Context, inv finance.Invoice) (finance.Invoice, error) {
	inv.ID = uuid.New().String()
	items, err := jsonbValue(inv.Items)
	if err != nil {
		return finance.Invoice{}, err
	}
	row := invoiceRow{
		ID:        inv.ID,
		StudentID: inv.StudentID,
		InvoiceNo: inv.InvoiceNo,
		DueDate:   inv.DueDate.UTC(),
		Currency:  inv.Currency,
		Items:     items,
		Total:     inv.Total,
		Balance:   inv.Balance,
		Status:    inv.Status,
		CreatedAt: inv.CreatedAt.UTC(),
		UpdatedAt: inv.UpdatedAt.UTC(),
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO invoice (id, student_id, invoice_no, due_date, currency, items, total, balance, status, created_at, updated_at)
		VALUES (:id, :student_id, :invoice_no, :due_date, :currency, :items, :total, :balance, :status, :created_at, :updated_at)`,
		row)
	if err != nil {
		return finance.Invoice{}, errors.Wrap(err, "inserting invoice")
	}
	return inv, nil
}

func (repo financeRepository) GetInvoiceByID(ctx context.Context, id string) (finance.Invoice, error) {
	var row invoiceRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM invoice WHERE id = $1`, id); err != nil {
		return finance.Invoice{}, trapNoRowsErr(err, finance.ErrInvoiceNotFound, "getting invoice by ID")
	}
	return row.unpack()
}

func (repo financeRepository) FilterInvoices(ctx context.Context, filter finance.InvoiceQueryFilter) ([]finance.Invoice, int, error) {
	where := []string{"true"}
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.StudentID != "" {
		where = append(where, "student_id = "+arg(filter.StudentID))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT count(*) FROM invoice WHERE "+cond, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting invoices")
	}

	query := fmt.Sprintf(
		"SELECT * FROM invoice WHERE %s ORDER BY due_date LIMIT %s OFFSET %s",
		cond, arg(filter.Page.Size), arg(filter.Page.Offset()),
	)
	var rows []invoiceRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering invoices")
	}

	invoices := make([]finance.Invoice, 0, len(rows))
	for _, row := range rows {
		inv, err := row.unpack()
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, nil
}

// ApplyToInvoiceBalance is the ledger's compare-and-swap: the balance guard
// sits in the UPDATE's WHERE clause so two concurrent payments can never
// both consume the same balance. The status CASE mirrors
// finance.StatusForBalance.
func (repo financeRepository) ApplyToInvoiceBalance(ctx context.Context, invoiceID string, amount int64) (finance.Invoice, error) {
	var row invoiceRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE invoice
		SET balance = balance - $2,
		    status = CASE
		        WHEN balance - $2 = 0 THEN 'paid'
		        WHEN balance - $2 > 0 AND balance - $2 < total THEN 'partial'
		        ELSE status
		    END,
		    updated_at = now()
		WHERE id = $1 AND balance >= $2
		RETURNING *`,
		invoiceID, amount)
	if err == nil {
		return row.unpack()
	}

	// no row: either the invoice is gone or the swap lost to a leaner balance
	if _, gerr := repo.GetInvoiceByID(ctx, invoiceID); gerr != nil {
		return finance.Invoice{}, gerr
	}
	return finance.Invoice{}, trapNoRowsErr(err, finance.ErrOverpayment, "applying payment to invoice")
}

func (repo financeRepository) GetPaymentByIdempotencyKey(ctx context.Context, key string) (finance.Payment, error) {
	var row paymentRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM payment WHERE idempotency_key = $1`, key)
	if err != nil {
		return finance.Payment{}, trapNoRowsErr(err, finance.ErrPaymentNotFound, "getting payment by idempotency key")
	}
	return row.unpack(), nil
}

func (repo financeRepository) CreatePayment(ctx context.Context, pmt finance.Payment) (finance.Payment, error) {
	pmt.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO payment (id, invoice_id, method, amount, currency, txn_ref, status, received_at, idempotency_key, created_at, updated_at)
		VALUES (:id, :invoice_id, :method, :amount, :currency, :txn_ref, :status, :received_at, :idempotency_key, :created_at, :updated_at)`,
		packPayment(pmt))
	if err != nil {
		if isUniqueViolation(err, "payment_idempotency_key_key") {
			return finance.Payment{}, finance.ErrDuplicateIdempotencyKey
		}
		return finance.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return pmt, nil
}

func (repo financeRepository) UpdatePayment(ctx context.Context, pmt finance.Payment) (finance.Payment, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE payment
		SET status = :status, received_at = :received_at, updated_at = :updated_at
		WHERE id = :id`,
		packPayment(pmt))
	if err != nil {
		return finance.Payment{}, errors.Wrap(err, "updating payment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return finance.Payment{}, finance.ErrPaymentNotFound
	}
	return pmt, nil
}

func (repo financeRepository) FilterPayments(ctx context.Context, filter finance.PaymentQueryFilter) ([]finance.Payment, error) {
	where := []string{"true"}
	var args []interface{}
	if filter.InvoiceID != "" {
		args = append(args, filter.InvoiceID)
		where = append(where, fmt.Sprintf("invoice_id = $%d", len(args)))
	}

	var rows []paymentRow
	query := "SELECT * FROM payment WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at"
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering payments")
	}

	payments := make([]finance.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.unpack())
	}
	return payments, nil
}
