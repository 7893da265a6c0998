package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"golang.org/x/time/rate"

	"github.com/trezcool/cclient/core"
	"github.com/trezcool/cclient/core/admin"
	"github.com/trezcool/cclient/core/course"
	"github.com/trezcool/cclient/core/dashboard"
	"github.com/trezcool/cclient/core/invoice"
	"github.com/trezcool/cclient/core/learner"
	"github.com/trezcool/cclient/core/track"
)

type (
	// TokenVerifier resolves a session token to the admin id it was issued for.
	TokenVerifier interface {
		Verify(token string) (int, error)
	}

	ServerDeps struct {
		Conf         *core.Config
		Logger       core.Logger
		AdminSvc     admin.Service
		Tokens       TokenVerifier
		TrackSvc     track.Service
		CourseSvc    course.Service
		LearnerSvc   learner.Service
		InvoiceSvc   invoice.Service
		DashboardSvc dashboard.Service
		Validate     *validator.Validate
		Translator   ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: conf.Server.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	g := s.app.Group("/api")
	auth := authorizer(s.deps.Tokens, s.deps.AdminSvc)

	var limiter []echo.MiddlewareFunc
	if conf.Server.AuthRateLimit > 0 {
		limiter = append(limiter, middleware.RateLimiter(
			middleware.NewRateLimiterMemoryStore(rate.Limit(conf.Server.AuthRateLimit)),
		))
	}

	registerAdminAPI(g, auth, limiter, s.deps.AdminSvc, s.deps.Logger, s.deps.Validate)
	registerTrackAPI(g, auth, s.deps.TrackSvc, s.deps.Validate)
	registerCourseAPI(g, auth, s.deps.CourseSvc, s.deps.Validate)
	registerLearnerAPI(g, auth, s.deps.LearnerSvc, s.deps.Validate)
	registerInvoiceAPI(g, auth, s.deps.InvoiceSvc, s.deps.Validate)
	registerDashboardAPI(g, auth, s.deps.DashboardSvc)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Welcome to " + s.deps.Conf.AppName + " API!"})
}
