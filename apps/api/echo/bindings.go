package echoapi

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/exam"
)

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	// pageResponse is the paginated list envelope.
	pageResponse struct {
		Data interface{}   `json:"data"`
		Meta core.PageMeta `json:"meta"`
	}

	// submitRequest is a student's answer sheet for an exam. The submitting
	// student is the authenticated caller, never a body field.
	submitRequest struct {
		Answers []exam.Answer `json:"answers" validate:"required,dive"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (sr *submitRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(sr)
}

func newPageResponse(data interface{}, page core.Page, total int) pageResponse {
	return pageResponse{Data: data, Meta: core.NewPageMeta(page, total)}
}

// bindPage reads the page and pageSize query params; Clean applies defaults.
func bindPage(ctx echo.Context) core.Page {
	number, _ := strconv.Atoi(ctx.QueryParam("page"))
	size, _ := strconv.Atoi(ctx.QueryParam("pageSize"))
	page := core.Page{Number: number, Size: size}
	page.Clean()
	return page
}
