package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/activity"
	"github.com/trezcool/jamii/core/dashboard"
	"github.com/trezcool/jamii/core/event"
	"github.com/trezcool/jamii/core/post"
	"github.com/trezcool/jamii/core/resource"
	"github.com/trezcool/jamii/core/user"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		DisableReqLogs bool

		UserSvc      user.Service
		ActivitySvc  *activity.Service
		EventSvc     *event.Service
		ResourceSvc  *resource.Service
		PostSvc      *post.Service
		DashboardSvc *dashboard.Service

		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server struct {
		ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
		done     chan struct{}
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
		done:       make(chan struct{}),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.Conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestID())
	if !s.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.Conf.Debug || s.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metricsMiddleware)

	s.app.GET("/", s.home)
	s.app.GET("/health", s.health)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	authLimit := rate.Limit(s.Conf.Server.AuthRateLimit)
	if authLimit <= 0 {
		authLimit = rate.Inf
	}
	authLimiter := newIPLimiterStore(authLimit, s.Conf.Server.AuthRateBurst, 10*time.Minute)
	go authLimiter.janitor(time.Minute, s.done)

	v1 := s.app.Group("/v1")
	authed := []echo.MiddlewareFunc{jwtMiddleware(s.Conf), actorMiddleware}

	registerUserAPI(v1, authed, rateLimitMiddleware(authLimiter), s.UserSvc, s.Conf, s.Validate)
	registerActivityAPI(v1, authed, s.ActivitySvc, s.Validate)
	registerEventAPI(v1, authed, s.EventSvc, s.Conf, s.Validate)
	registerResourceAPI(v1, authed, s.ResourceSvc, s.Conf, s.Validate)
	registerPostAPI(v1, authed, s.PostSvc, s.UserSvc, s.Validate)
	registerDashboardAPI(v1, authed, s.DashboardSvc)
}

// Start listens on the configured address. Listening errors are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	s.stop()
	return s.app.Close()
}

func (s *Server) stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
		signal.Stop(s.shutdown)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.Conf.AppName+" API!")
}

func (s *Server) health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok", "build": s.Conf.Build})
}
