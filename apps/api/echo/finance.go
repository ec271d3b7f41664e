package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/finance"
	"github.com/trezcool/academia/core/user"
)

type financeApi struct {
	svc      *finance.Service
	validate *validator.Validate
}

func registerFinanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *finance.Service, validate *validator.Validate) {
	api := financeApi{svc: svc, validate: validate}
	write := permissionMiddleware(user.ActionWriteInvoices)

	ig := g.Group("/invoices", jwt)
	ig.POST("", api.createInvoice, write)
	ig.GET("", api.queryInvoices)
	ig.GET("/:id", api.retrieveInvoice)
	ig.GET("/:id/payments", api.queryInvoicePayments)

	// any authenticated user may pay; parents settle their own invoices
	pg := g.Group("/payments", jwt)
	pg.POST("", api.applyPayment)
}

func (api *financeApi) createInvoice(ctx echo.Context) error {
	var data finance.NewInvoice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInvoice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	inv, err := api.svc.CreateInvoice(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating invoice")
	}
	return ctx.JSON(http.StatusCreated, inv)
}

func (api *financeApi) queryInvoices(ctx echo.Context) error {
	filter := new(finance.InvoiceQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to InvoiceQueryFilter")
	}
	filter.Page = bindPage(ctx)

	invoices, total, err := api.svc.FilterInvoices(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "filtering invoices")
	}
	if invoices == nil {
		invoices = []finance.Invoice{}
	}
	return ctx.JSON(http.StatusOK, newPageResponse(invoices, filter.Page, total))
}

func (api *financeApi) retrieveInvoice(ctx echo.Context) error {
	inv, err := api.svc.GetInvoiceByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *financeApi) queryInvoicePayments(ctx echo.Context) error {
	payments, err := api.svc.FilterPayments(ctx.Request().Context(), finance.PaymentQueryFilter{InvoiceID: ctx.Param("id")})
	if err != nil {
		return errors.Wrap(err, "filtering payments")
	}
	if payments == nil {
		payments = []finance.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *financeApi) applyPayment(ctx echo.Context) error {
	var data finance.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	pmt, err := api.svc.ApplyPayment(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, pmt)
}
