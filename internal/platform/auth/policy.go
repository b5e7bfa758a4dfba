package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Operation names an action on a clinic resource.
type Operation string

const (
	ReadDepartments   Operation = "department:read"
	WriteDepartments  Operation = "department:write"
	ReadDoctors       Operation = "doctor:read"
	ReadInactive      Operation = "doctor:read-inactive"
	WriteDoctors      Operation = "doctor:write"
	ReadAppointments  Operation = "appointment:read"
	BookAppointment   Operation = "appointment:create"
	WriteAppointments Operation = "appointment:write"
	SubscribeFeed     Operation = "feed:subscribe"
)

// Operations anonymous callers may perform. Anything else needs staff
// credentials.
var public = map[Operation]bool{
	ReadDepartments:  true,
	ReadDoctors:      true,
	ReadAppointments: true,
	BookAppointment:  true,
}

// Allowed is the whole access policy: public operations are open to
// everyone, the rest require an authenticated caller.
func Allowed(op Operation, authenticated bool) bool {
	return authenticated || public[op]
}

// Require rejects the request with 401 unless the caller may perform op.
func Require(op Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !Allowed(op, IsAuthenticated(c.Request().Context())) {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			return next(c)
		}
	}
}
