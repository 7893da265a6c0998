package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/cclient/apps/api/echo"
	"github.com/trezcool/cclient/assets"
	"github.com/trezcool/cclient/core"
	"github.com/trezcool/cclient/core/admin"
	"github.com/trezcool/cclient/core/course"
	"github.com/trezcool/cclient/core/dashboard"
	"github.com/trezcool/cclient/core/invoice"
	"github.com/trezcool/cclient/core/learner"
	"github.com/trezcool/cclient/core/session"
	"github.com/trezcool/cclient/core/track"
	emailsvc "github.com/trezcool/cclient/services/email"
	logsvc "github.com/trezcool/cclient/services/logger"
	smssvc "github.com/trezcool/cclient/services/sms"
	"github.com/trezcool/cclient/storage/database"
	sqlxrepos "github.com/trezcool/cclient/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	std := logsvc.NewStdLogger(conf)
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	if err := conf.Validate(); err != nil {
		logger.Fatal(fmt.Sprintf("invalid configuration: %v", err), err)
	}

	// set up DB
	db, err := setUpDB(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	tmpls, err := core.ParseEmailTemplates(assets.FS, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, tmpls, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, tmpls)
	}
	var smsSvc core.SMSService
	if conf.SMSEnabled() {
		smsSvc = smssvc.NewTwilioService(conf)
	} else if conf.Debug {
		smsSvc = smssvc.NewConsoleService(logger)
	}

	issuer, err := session.NewIssuer(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up session issuer: %v", err), err)
	}
	adminSvc := admin.NewService(admin.Deps{
		DB:      db,
		Repo:    sqlxrepos.NewAdminRepository(db),
		Issuer:  issuer,
		MailSvc: mailSvc,
		SMSSvc:  smsSvc,
		Logger:  logger,
		Conf:    conf,
	})

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	admin.InitValidators(validate, translator)

	admin.LoadCommonPasswords(assets.FS, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			AdminSvc:     adminSvc,
			Tokens:       issuer,
			TrackSvc:     track.NewService(sqlxrepos.NewTrackRepository(db)),
			CourseSvc:    course.NewService(sqlxrepos.NewCourseRepository(db)),
			LearnerSvc:   learner.NewService(sqlxrepos.NewLearnerRepository(db)),
			InvoiceSvc:   invoice.NewService(sqlxrepos.NewInvoiceRepository(db)),
			DashboardSvc: dashboard.NewService(sqlxrepos.NewDashboardRepository(db)),
			Validate:     validate,
			Translator:   translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config, logger core.Logger) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout*10)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
