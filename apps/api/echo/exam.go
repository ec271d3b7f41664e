package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/exam"
	"github.com/trezcool/academia/core/user"
)

type examApi struct {
	svc      *exam.Service
	validate *validator.Validate
}

func registerExamAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *exam.Service, validate *validator.Validate) {
	api := examApi{svc: svc, validate: validate}
	write := permissionMiddleware(user.ActionWriteExams)

	eg := g.Group("/exams", jwt)
	eg.POST("", api.create, write)
	eg.GET("", api.query)
	eg.GET("/:id", api.retrieve)
	eg.POST("/:id/publish", api.publish, write)
	eg.POST("/:id/submissions", api.submit, permissionMiddleware(user.ActionSubmitExams))

	qg := g.Group("/questions", jwt)
	qg.POST("", api.createQuestion, write)
	qg.GET("", api.queryQuestions, write)

	gg := g.Group("/grades", jwt)
	gg.GET("", api.queryGrades)
}

func (api *examApi) create(ctx echo.Context) error {
	var data exam.NewExam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExam")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ex, err := api.svc.Create(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating exam")
	}
	return ctx.JSON(http.StatusCreated, ex)
}

func (api *examApi) query(ctx echo.Context) error {
	filter := new(exam.ExamQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to ExamQueryFilter")
	}

	exams, err := api.svc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "filtering exams")
	}
	if exams == nil {
		exams = []exam.Exam{}
	}
	return ctx.JSON(http.StatusOK, exams)
}

func (api *examApi) retrieve(ctx echo.Context) error {
	ex, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ex)
}

func (api *examApi) publish(ctx echo.Context) error {
	ex, err := api.svc.Publish(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ex)
}

func (api *examApi) submit(ctx echo.Context) error {
	var data submitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to submitRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"), claims.Subject, exam.SubmitExam{Answers: data.Answers})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *examApi) createQuestion(ctx echo.Context) error {
	var data exam.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.CreateQuestion(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *examApi) queryQuestions(ctx echo.Context) error {
	filter := new(exam.QuestionQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QuestionQueryFilter")
	}

	questions, err := api.svc.FilterQuestions(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "filtering questions")
	}
	if questions == nil {
		questions = []exam.Question{}
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (api *examApi) queryGrades(ctx echo.Context) error {
	filter := new(exam.GradeQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to GradeQueryFilter")
	}

	grades, err := api.svc.FilterGrades(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "filtering grades")
	}
	if grades == nil {
		grades = []exam.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}
