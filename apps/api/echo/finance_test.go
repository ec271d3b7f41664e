package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/academia/core/finance"
	"github.com/trezcool/academia/core/user"
)

func Test_financeApi(t *testing.T) {
	app := setup(t)
	finToken := getToken(t, app.createUser(t, "finance@test.com", user.RoleFinance))
	stdToken := getToken(t, app.createUser(t, "student@test.com", user.RoleStudent))

	newInv := finance.NewInvoice{
		StudentID: "std-1",
		Items: []finance.NewInvoiceItem{
			{Head: "Tuition", Amount: 1000},
			{Head: "Transport", Amount: 200},
		},
		DueDate: time.Now().Add(30 * 24 * time.Hour),
	}

	t.Run("auth required", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/invoices", "", marchallObj(t, newInv))
		checkErrCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
	})

	t.Run("finance role required", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/invoices", stdToken, marchallObj(t, newInv))
		checkErrCode(t, rec, http.StatusForbidden, "FORBIDDEN")
	})

	var inv finance.Invoice
	t.Run("create invoice", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/invoices", finToken, marchallObj(t, newInv))
		checkCode(t, rec, http.StatusCreated)
		decode(t, rec, &inv)
		if inv.Total != 1200 || inv.Balance != 1200 || inv.Status != finance.InvoiceOpen {
			t.Errorf("unexpected invoice: %+v", inv)
		}
		if inv.Currency != "USD" {
			t.Errorf("currency = %q; want default USD", inv.Currency)
		}
	})

	t.Run("list invoices", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/invoices?student_id=std-1", stdToken)
		checkCode(t, rec, http.StatusOK)
		var res struct {
			Data []finance.Invoice `json:"data"`
			Meta pageMeta          `json:"meta"`
		}
		decode(t, rec, &res)
		if len(res.Data) != 1 || res.Meta.Total != 1 {
			t.Errorf("unexpected page: %+v", res)
		}
	})

	t.Run("partial payment", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/payments", finToken, marchallObj(t, finance.NewPayment{
			InvoiceID: inv.ID, Method: finance.MethodCard, Amount: 700,
		}))
		checkCode(t, rec, http.StatusCreated)
		var pmt finance.Payment
		decode(t, rec, &pmt)
		if pmt.Status != finance.PaymentSucceeded || pmt.TxnRef == "" {
			t.Errorf("unexpected payment: %+v", pmt)
		}

		rec = app.do(http.MethodGet, "/v1/invoices/"+inv.ID, finToken)
		checkCode(t, rec, http.StatusOK)
		decode(t, rec, &inv)
		if inv.Balance != 500 || inv.Status != finance.InvoicePartial {
			t.Errorf("unexpected invoice: %+v", inv)
		}
	})

	t.Run("overpayment", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/payments", finToken, marchallObj(t, finance.NewPayment{
			InvoiceID: inv.ID, Method: finance.MethodCash, Amount: 501,
		}))
		checkErrCode(t, rec, http.StatusBadRequest, "OVERPAYMENT")
	})

	t.Run("invoice payments", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/invoices/"+inv.ID+"/payments", finToken)
		checkCode(t, rec, http.StatusOK)
		var payments []finance.Payment
		decode(t, rec, &payments)
		if len(payments) != 1 {
			t.Errorf("payments = %d; want 1", len(payments))
		}
	})

	t.Run("students can pay their invoices", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/payments", stdToken, marchallObj(t, finance.NewPayment{
			InvoiceID: inv.ID, Method: finance.MethodCash, Amount: 500,
		}))
		checkCode(t, rec, http.StatusCreated)

		rec = app.do(http.MethodGet, "/v1/invoices/"+inv.ID, stdToken)
		checkCode(t, rec, http.StatusOK)
		decode(t, rec, &inv)
		if inv.Balance != 0 || inv.Status != finance.InvoicePaid {
			t.Errorf("unexpected invoice: %+v", inv)
		}
	})

	t.Run("unknown invoice", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/invoices/nope", finToken)
		checkErrCode(t, rec, http.StatusNotFound, "NOT_FOUND")
	})

	t.Run("invalid method", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/payments", finToken, marchallObj(t, finance.NewPayment{
			InvoiceID: inv.ID, Method: "barter", Amount: 1,
		}))
		checkErrCode(t, rec, http.StatusBadRequest, "VALIDATION")
	})
}
