package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

type studentApi struct {
	svc      *student.Service
	validate *validator.Validate
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *student.Service, validate *validator.Validate) {
	api := studentApi{svc: svc, validate: validate}

	sg := g.Group("/students", jwt)
	sg.POST("", api.create, permissionMiddleware(user.ActionWriteStudents))
	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update, permissionMiddleware(user.ActionWriteStudents))
	sg.DELETE("/:id", api.archive, permissionMiddleware(user.ActionDeleteStudents))

	gg := sg.Group("/:id/guardians")
	gg.GET("", api.queryGuardians)
	gg.POST("", api.addGuardian, permissionMiddleware(user.ActionWriteStudents))
	gg.PUT("/:guardianID", api.updateGuardian, permissionMiddleware(user.ActionWriteStudents))
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	std, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Page = bindPage(ctx)

	students, total, err := api.svc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "filtering students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, newPageResponse(students, filter.Page, total))
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	std, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	std, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}

	var data student.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = data.Validate(std, api.validate); err != nil {
		return err
	}

	std, err = api.svc.Update(reqCtx, std.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) archive(ctx echo.Context) error {
	std, err := api.svc.Archive(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) queryGuardians(ctx echo.Context) error {
	guardians, err := api.svc.QueryGuardians(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying guardians")
	}
	if guardians == nil {
		guardians = []student.Guardian{}
	}
	return ctx.JSON(http.StatusOK, guardians)
}

func (api *studentApi) addGuardian(ctx echo.Context) error {
	var data student.NewGuardian
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGuardian")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grd, err := api.svc.AddGuardian(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, grd)
}

func (api *studentApi) updateGuardian(ctx echo.Context) error {
	var data student.NewGuardian
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGuardian")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grd, err := api.svc.UpdateGuardian(ctx.Request().Context(), ctx.Param("id"), ctx.Param("guardianID"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, grd)
}
