package clinic

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/availability"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/civil"
	"github.com/clinic/clinic/pkg/pagination"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/departments", h.ListDepartments, auth.Require(auth.ReadDepartments))
	api.GET("/departments/:id", h.GetDepartment, auth.Require(auth.ReadDepartments))
	api.POST("/departments", h.CreateDepartment, auth.Require(auth.WriteDepartments))
	api.PUT("/departments/:id", h.UpdateDepartment, auth.Require(auth.WriteDepartments))
	api.DELETE("/departments/:id", h.DeleteDepartment, auth.Require(auth.WriteDepartments))
	api.GET("/department-count", h.CountDepartments, auth.Require(auth.ReadDepartments))

	api.GET("/doctors", h.ListDoctors, auth.Require(auth.ReadDoctors))
	api.GET("/doctors/:id", h.GetDoctor, auth.Require(auth.ReadDoctors))
	api.POST("/doctors", h.CreateDoctor, auth.Require(auth.WriteDoctors))
	api.PUT("/doctors/:id", h.UpdateDoctor, auth.Require(auth.WriteDoctors))
	api.DELETE("/doctors/:id", h.DeleteDoctor, auth.Require(auth.WriteDoctors))
	api.GET("/total-doctors", h.CountDoctors, auth.Require(auth.ReadDoctors))

	api.GET("/appointments", h.ListAppointments, auth.Require(auth.ReadAppointments))
	api.GET("/appointments-list", h.ListAppointments, auth.Require(auth.ReadAppointments))
	api.GET("/appointments/:id", h.GetAppointment, auth.Require(auth.ReadAppointments))
	api.POST("/appointments", h.CreateAppointment, auth.Require(auth.BookAppointment))
	api.PUT("/appointments/:id", h.UpdateAppointment, auth.Require(auth.WriteAppointments))
	api.DELETE("/appointments/:id", h.DeleteAppointment, auth.Require(auth.WriteAppointments))
	api.GET("/total-appointments", h.CountAppointments, auth.Require(auth.ReadAppointments))
}

// fail translates a service error into an HTTP error. Anything unexpected is
// logged and reported as 500 without detail.
func (h *Handler) fail(c echo.Context, resource string, err error) error {
	var rej *availability.Rejection
	var verr *ValidationError
	switch {
	case errors.As(err, &rej):
		return echo.NewHTTPError(http.StatusBadRequest, map[string]string{
			"message": rej.Error(),
			"reason":  string(rej.Reason),
		})
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, resource+" not found")
	case errors.Is(err, ErrInUse):
		return echo.NewHTTPError(http.StatusConflict, ErrInUse.Error())
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	}
	h.logger.Error().Err(err).
		Str("method", c.Request().Method).
		Str("route", c.Path()).
		Msg("request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func queryUUID(c echo.Context, name string) (*uuid.UUID, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &id, nil
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

// -- Department Handlers --

func (h *Handler) CreateDepartment(c echo.Context) error {
	var d Department
	if err := bind(c, &d); err != nil {
		return err
	}
	if err := h.svc.CreateDepartment(c.Request().Context(), &d); err != nil {
		return h.fail(c, "department", err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDepartment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDepartment(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "department", err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateDepartment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var d Department
	if err := bind(c, &d); err != nil {
		return err
	}
	d.ID = id
	if err := h.svc.UpdateDepartment(c.Request().Context(), &d); err != nil {
		return h.fail(c, "department", err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDepartment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteDepartment(c.Request().Context(), id); err != nil {
		return h.fail(c, "department", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListDepartments(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDepartments(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return h.fail(c, "department", err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) CountDepartments(c echo.Context) error {
	n, err := h.svc.CountDepartments(c.Request().Context())
	if err != nil {
		return h.fail(c, "department", err)
	}
	return c.JSON(http.StatusOK, map[string]int{"department_count": n})
}

// -- Doctor Handlers --

func (h *Handler) CreateDoctor(c echo.Context) error {
	var d Doctor
	if err := bind(c, &d); err != nil {
		return err
	}
	if err := h.svc.CreateDoctor(c.Request().Context(), &d); err != nil {
		return h.fail(c, "doctor", err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "doctor", err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var d Doctor
	if err := bind(c, &d); err != nil {
		return err
	}
	d.ID = id
	if err := h.svc.UpdateDoctor(c.Request().Context(), &d); err != nil {
		return h.fail(c, "doctor", err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDoctor(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteDoctor(c.Request().Context(), id); err != nil {
		return h.fail(c, "doctor", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListDoctors lists active doctors, optionally within ?department=.
// Staff may pass include_inactive=true to see everyone.
func (h *Handler) ListDoctors(c echo.Context) error {
	var f DoctorFilter
	var err error
	if f.DepartmentID, err = queryUUID(c, "department"); err != nil {
		return err
	}
	if c.QueryParam("include_inactive") == "true" {
		if !auth.Allowed(auth.ReadInactive, auth.IsAuthenticated(c.Request().Context())) {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		f.IncludeInactive = true
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return h.fail(c, "doctor", err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) CountDoctors(c echo.Context) error {
	n, err := h.svc.CountDoctors(c.Request().Context())
	if err != nil {
		return h.fail(c, "doctor", err)
	}
	return c.JSON(http.StatusOK, map[string]int{"total_doctors": n})
}

// -- Appointment Handlers --

func (h *Handler) CreateAppointment(c echo.Context) error {
	var a Appointment
	if err := bind(c, &a); err != nil {
		return err
	}
	if err := h.svc.CreateAppointment(c.Request().Context(), &a); err != nil {
		return h.fail(c, "appointment", err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "appointment", err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var a Appointment
	if err := bind(c, &a); err != nil {
		return err
	}
	a.ID = id
	if err := h.svc.UpdateAppointment(c.Request().Context(), &a); err != nil {
		return h.fail(c, "appointment", err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteAppointment(c.Request().Context(), id); err != nil {
		return h.fail(c, "appointment", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListAppointments supports ?doctor=, ?department= and ?date=YYYY-MM-DD.
func (h *Handler) ListAppointments(c echo.Context) error {
	var f AppointmentFilter
	var err error
	if f.DoctorID, err = queryUUID(c, "doctor"); err != nil {
		return err
	}
	if f.DepartmentID, err = queryUUID(c, "department"); err != nil {
		return err
	}
	if v := c.QueryParam("date"); v != "" {
		d, err := civil.ParseDate(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		f.Date = &d
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAppointments(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return h.fail(c, "appointment", err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) CountAppointments(c echo.Context) error {
	n, err := h.svc.CountAppointments(c.Request().Context())
	if err != nil {
		return h.fail(c, "appointment", err)
	}
	return c.JSON(http.StatusOK, map[string]int{"total_appointments": n})
}
