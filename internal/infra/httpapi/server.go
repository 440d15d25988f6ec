package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"learnhub/internal/app"
	"learnhub/internal/domain/progress"
	"learnhub/internal/domain/schedule"
)

// Options wires the HTTP server.
type Options struct {
	Addr       string
	Enrollment *app.EnrollmentService
	Progress   progress.Store
	Jobs       schedule.JobTable
	Channel    string // notify channel; selects which form field is the recipient
	Logger     *logrus.Entry
}

// Server exposes the enrollment and progress endpoints plus the operational
// surface (health, debug, metrics).
type Server struct {
	opts *Options
	app  *echo.Echo
}

func NewServer(opts *Options) *Server {
	s := &Server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.Recover())
	s.app.Validator = newRequestValidator()

	s.app.GET("/", home)
	s.app.GET("/health", s.handleHealth)
	s.app.GET("/debug", s.handleDebug)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.app.Group("/v1")
	v1.POST("/enroll", s.handleEnroll)
	v1.GET("/progress", s.handleProgress)
	v1.GET("/courses", handleCourses)
}

func (s *Server) Start() error {
	err := s.app.Start(s.opts.Addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

// ServeHTTP makes the server usable with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

func home(c echo.Context) error {
	return c.String(http.StatusOK, "Welcome to the LearnHub API!")
}

type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New()
	// lessontime: the enrollment form's time-of-day format, e.g. "09:00 AM".
	_ = v.RegisterValidation("lessontime", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("03:04 PM", fl.Field().String())
		return err == nil
	})
	return &requestValidator{v: v}
}

func (rv *requestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}
