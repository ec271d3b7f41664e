package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/user"
)

type academicApi struct {
	svc      *academic.Service
	validate *validator.Validate
}

func registerAcademicAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *academic.Service, validate *validator.Validate) {
	api := academicApi{svc: svc, validate: validate}
	write := permissionMiddleware(user.ActionWriteAcademics)

	cg := g.Group("/classes", jwt)
	cg.POST("", api.createClass, write)
	cg.GET("", api.queryClasses)
	cg.GET("/:id", api.retrieveClass)

	sg := g.Group("/subjects", jwt)
	sg.POST("", api.createSubject, write)
	sg.GET("", api.querySubjects)

	tg := g.Group("/timetables", jwt)
	tg.POST("", api.createTimetable, write)
	tg.GET("", api.queryTimetables)
}

func (api *academicApi) createClass(ctx echo.Context) error {
	var data academic.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	cls, err := api.svc.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *academicApi) queryClasses(ctx echo.Context) error {
	filter := new(academic.ClassQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to ClassQueryFilter")
	}
	filter.Page = bindPage(ctx)

	classes, total, err := api.svc.FilterClasses(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "filtering classes")
	}
	if classes == nil {
		classes = []academic.Class{}
	}
	return ctx.JSON(http.StatusOK, newPageResponse(classes, filter.Page, total))
}

func (api *academicApi) retrieveClass(ctx echo.Context) error {
	cls, err := api.svc.GetClassByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *academicApi) createSubject(ctx echo.Context) error {
	var data academic.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	sub, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *academicApi) querySubjects(ctx echo.Context) error {
	subjects, err := api.svc.QueryAllSubjects(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []academic.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *academicApi) createTimetable(ctx echo.Context) error {
	var data academic.NewTimetable
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTimetable")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tt, err := api.svc.CreateTimetable(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, tt)
}

func (api *academicApi) queryTimetables(ctx echo.Context) error {
	filter := new(academic.TimetableQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to TimetableQueryFilter")
	}

	timetables, err := api.svc.FilterTimetables(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "filtering timetables")
	}
	if timetables == nil {
		timetables = []academic.Timetable{}
	}
	return ctx.JSON(http.StatusOK, timetables)
}
