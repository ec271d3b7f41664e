package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/exam"
	"github.com/trezcool/academia/core/finance"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()
	dbx := sqlx.NewDb(db, conf.Database.Engine)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(dbx))
	stdSvc := student.NewService(sqlxrepos.NewStudentRepository(dbx))
	acaSvc := academic.NewService(sqlxrepos.NewAcademicRepository(dbx))
	attSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(dbx))
	examSvc := exam.NewService(sqlxrepos.NewExamRepository(dbx))
	finSvc := finance.NewService(sqlxrepos.NewFinanceRepository(dbx), stdSvc, mailSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(&echoapi.Options{
		Conf:          conf,
		Logger:        logger,
		UserSvc:       usrSvc,
		StudentSvc:    stdSvc,
		AcademicSvc:   acaSvc,
		AttendanceSvc: attSvc,
		ExamSvc:       examSvc,
		FinanceSvc:    finSvc,
		Validate:      validate,
		Translator:    translator,
	})

	go server.Start()
	logger.Info(fmt.Sprintf("API server listening on %s", conf.Server.Address()))

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		if err = server.Stop(ctx); err != nil {
			logger.Error("graceful shutdown failed, killing server", err)
			if err = server.Stop(context.Background()); err != nil {
				logger.Fatal("could not stop server", err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
