package httpapi

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"learnhub/internal/app"
	"learnhub/internal/domain/course"
	"learnhub/internal/domain/schedule"
)

type enrollRequest struct {
	Course string `json:"course" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Phone  string `json:"phone" validate:"omitempty"`
	Days   int    `json:"days" validate:"required,min=1"`
	Time   string `json:"time" validate:"required,lessontime"`
	Mode   string `json:"mode" validate:"omitempty,oneof=PRODUCTION TEST"`
}

type progressResponse struct {
	Course           string `json:"course"`
	TotalLessons     int    `json:"totalLessons"`
	CompletedLessons int    `json:"completedLessons"`
	ProgressPercent  int    `json:"progressPercent"`
}

func (s *Server) handleEnroll(c echo.Context) error {
	var req enrollRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := c.Validate(&req); err != nil {
		return validationHTTPError(err)
	}

	recipient := req.Phone
	if s.opts.Channel == "email" {
		recipient = req.Email
	}
	if recipient == "" {
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{
			"phone": "WhatsApp number with country code is required",
		})
	}

	handle, err := s.opts.Enrollment.Enroll(c.Request().Context(), schedule.Request{
		Recipient: recipient,
		Course:    req.Course,
		Lessons:   req.Days,
		TimeOfDay: req.Time,
		Mode:      schedule.Mode(req.Mode),
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidLessonCount),
			errors.Is(err, app.ErrInvalidTimeOfDay),
			errors.Is(err, app.ErrInvalidRecipient),
			errors.Is(err, app.ErrUnknownMode):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			s.opts.Logger.WithError(err).Error("Enrollment failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "enrollment failed, please try again")
		}
	}
	return c.JSON(http.StatusCreated, handle)
}

func (s *Server) handleProgress(c echo.Context) error {
	recipient := c.QueryParam("recipient")
	courseName := c.QueryParam("course")
	if recipient == "" || courseName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "recipient and course query parameters are required")
	}

	handle, ok := s.opts.Enrollment.Lookup(recipient, courseName)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no active schedule for this recipient and course")
	}

	completed, err := s.opts.Progress.Get(c.Request().Context(), recipient, courseName)
	if err != nil {
		s.opts.Logger.WithError(err).Error("Failed to read progress")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read progress")
	}

	percent := 0
	if handle.TotalLessons > 0 {
		percent = int(math.Round(float64(completed) / float64(handle.TotalLessons) * 100))
	}
	return c.JSON(http.StatusOK, progressResponse{
		Course:           handle.Course,
		TotalLessons:     handle.TotalLessons,
		CompletedLessons: completed,
		ProgressPercent:  percent,
	})
}

func handleCourses(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"courses": course.Catalog})
}

func (s *Server) handleHealth(c echo.Context) error {
	jobCount, err := s.opts.Jobs.Count(c.Request().Context())
	if err != nil {
		s.opts.Logger.WithError(err).Error("Failed to count jobs for health check")
		return echo.NewHTTPError(http.StatusInternalServerError, "unhealthy")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"jobCount":  jobCount,
	})
}

type debugJob struct {
	ID          string    `json:"id"`
	Recipient   string    `json:"recipient"`
	Course      string    `json:"course"`
	LessonIndex int       `json:"lessonIndex"`
	FireAt      time.Time `json:"fireAt"`
	Attempt     int       `json:"attempt"`
	State       string    `json:"state"`
}

type debugProgress struct {
	Recipient string `json:"recipient"`
	Course    string `json:"course"`
	Completed int    `json:"completed"`
}

// handleDebug exposes job and progress snapshots for operational visibility.
// Not a stable API contract.
func (s *Server) handleDebug(c echo.Context) error {
	ctx := c.Request().Context()

	jobs, err := s.opts.Jobs.Snapshot(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to snapshot jobs")
	}
	progressSnap, err := s.opts.Progress.Snapshot(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to snapshot progress")
	}

	jobDTOs := make([]debugJob, 0, len(jobs))
	for _, j := range jobs {
		jobDTOs = append(jobDTOs, debugJob{
			ID:          j.ID,
			Recipient:   j.Recipient,
			Course:      j.Course,
			LessonIndex: j.LessonIndex,
			FireAt:      j.FireAt,
			Attempt:     j.Attempt,
			State:       string(j.State),
		})
	}
	progressDTOs := make([]debugProgress, 0, len(progressSnap))
	for k, v := range progressSnap {
		progressDTOs = append(progressDTOs, debugProgress{Recipient: k.Recipient, Course: k.Course, Completed: v})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"jobs":     jobDTOs,
		"progress": progressDTOs,
	})
}

// validationHTTPError flattens validator errors into a per-field message map.
func validationHTTPError(err error) error {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		fields := make(map[string]string, len(vErrs))
		for _, f := range vErrs {
			fields[f.Field()] = fmt.Sprintf("failed validation rule %q", f.Tag())
		}
		return echo.NewHTTPError(http.StatusBadRequest, fields)
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
