package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/schoolnotes/gradesync/core"
	"github.com/schoolnotes/gradesync/core/grades"
	"github.com/schoolnotes/gradesync/core/portal"
	"github.com/schoolnotes/gradesync/storage/state"
)

type (
	loginRequest struct {
		Device  string          `json:"device" validate:"required"`
		Session portal.Snapshot `json:"session"`
	}

	tokenResponse struct {
		Token string `json:"token"`
	}

	courseResponse struct {
		portal.Course
		GradeBand string `json:"grade_band,omitempty"`
	}

	completionRequest struct {
		Done *bool `json:"done" validate:"required"`
	}

	settingsResponse struct {
		NotificationsEnabled bool `json:"notifications_enabled"`
	}

	settingsRequest struct {
		NotificationsEnabled *bool `json:"notifications_enabled" validate:"required"`
	}
)

func (s *Server) registerGradeAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	// un-authed endpoints
	g.POST("/session/login", s.sessionLogin)

	// authed endpoints
	ag := g.Group("", jwt)
	ag.POST("/token-refresh", s.tokenRefresh)
	ag.GET("/courses", s.courseQuery)
	ag.GET("/courses/:pk/assignments", s.courseAssignments)
	ag.POST("/sync", s.syncNow)
	ag.POST("/assignments/:scoreID/read", s.assignmentMarkRead)
	ag.PUT("/assignments/:scoreID/completion", s.assignmentSetCompletion)
	ag.GET("/completion", s.completionQuery)
	ag.GET("/settings", s.settingsRetrieve)
	ag.PUT("/settings", s.settingsUpdate)
	ag.GET("/status", s.statusRetrieve)
}

// Handlers

// sessionLogin imports a portal session snapshot (exported from an
// interactive browser sign-in) and issues a device token on success.
func (s *Server) sessionLogin(ctx echo.Context) error {
	data := new(loginRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := s.deps.Validate.Struct(data); err != nil {
		return err
	}
	if len(data.Session.Cookies) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "session", Error: "at least one cookie is required"})
	}

	if err := s.deps.GradeSvc.ImportSession(data.Session); err != nil {
		return errors.Wrap(err, "importing session")
	}

	token, err := GenerateToken(s.deps.Conf, NewClaims(s.deps.Conf, data.Device))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tokenResponse{Token: token})
}

func (s *Server) tokenRefresh(ctx echo.Context) error {
	token, err := refreshToken(ctx, s.deps.Conf)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tokenResponse{Token: token})
}

func (s *Server) courseQuery(ctx echo.Context) error {
	courses := s.deps.GradeSvc.Courses()
	resp := make([]courseResponse, 0, len(courses))
	for _, course := range courses {
		cr := courseResponse{Course: course}
		if pct, ok := course.GradePercent(); ok {
			cr.GradeBand = portal.GradeBand(pct)
		}
		resp = append(resp, cr)
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (s *Server) courseAssignments(ctx echo.Context) error {
	pk, err := strconv.Atoi(ctx.Param("pk"))
	if err != nil {
		return errHttpNotFound
	}

	assignments, err := s.deps.GradeSvc.CourseAssignments(ctx.Request().Context(), pk)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, assignments)
}

// syncNow runs one foreground cycle: the caller just logged in or resumed,
// so the live jars already hold the authenticated session and there is no
// deadline.
func (s *Server) syncNow(ctx echo.Context) error {
	report, err := s.deps.GradeSvc.Run(ctx.Request().Context(), grades.RunOptions{HasSession: true})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func (s *Server) assignmentMarkRead(ctx echo.Context) error {
	scoreID, err := strconv.Atoi(ctx.Param("scoreID"))
	if err != nil {
		return errHttpNotFound
	}
	if err := s.deps.GradeSvc.MarkRead(ctx.Request().Context(), scoreID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) assignmentSetCompletion(ctx echo.Context) error {
	scoreID, err := strconv.Atoi(ctx.Param("scoreID"))
	if err != nil {
		return errHttpNotFound
	}

	data := new(completionRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := s.deps.Validate.Struct(data); err != nil {
		return err
	}

	if err := s.deps.GradeSvc.SetCompletion(scoreID, *data.Done); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) completionQuery(ctx echo.Context) error {
	completion, err := s.deps.GradeSvc.Completion()
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, completion)
}

func (s *Server) settingsRetrieve(ctx echo.Context) error {
	settings, err := state.LoadSettings(s.deps.Store)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, settingsResponse{NotificationsEnabled: settings.NotifyEnabled()})
}

func (s *Server) settingsUpdate(ctx echo.Context) error {
	data := new(settingsRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := s.deps.Validate.Struct(data); err != nil {
		return err
	}

	settings := state.Settings{NotificationsEnabled: data.NotificationsEnabled}
	if err := state.SaveSettings(s.deps.Store, settings); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, settingsResponse{NotificationsEnabled: settings.NotifyEnabled()})
}

func (s *Server) statusRetrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.deps.GradeSvc.LastReport())
}
