// Package availability decides whether a doctor can accept a proposed
// appointment. It performs no I/O: callers load the doctor record and supply
// the current date, which keeps every decision deterministic.
package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/pkg/civil"
)

// Reason identifies why a booking was refused.
type Reason string

const (
	TooSoon             Reason = "too_soon"
	WeekdayUnavailable  Reason = "weekday_unavailable"
	TimeOutOfWindow     Reason = "time_out_of_window"
	NoFixedHoursTooSoon Reason = "no_fixed_hours_too_soon"
	DepartmentMismatch  Reason = "department_mismatch"
	Inactive            Reason = "inactive"
)

var messages = map[Reason]string{
	TooSoon:             "Appointment must be booked at least one day in advance.",
	WeekdayUnavailable:  "Doctor not available on selected day.",
	TimeOutOfWindow:     "Doctor not available at this time.",
	NoFixedHoursTooSoon: "This doctor has no fixed hours. Please contact reception by phone to arrange an appointment at least two days in advance.",
	DepartmentMismatch:  "Doctor and department mismatch.",
	Inactive:            "Doctor is currently not available.",
}

// Message is the user-facing explanation for r.
func (r Reason) Message() string {
	if m, ok := messages[r]; ok {
		return m
	}
	return string(r)
}

// Rejection is returned when a booking fails a check.
type Rejection struct {
	Reason Reason
}

func (e *Rejection) Error() string { return e.Reason.Message() }

// ReasonOf extracts the rejection reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

// Request is the part of an appointment that availability depends on.
type Request struct {
	DepartmentID uuid.UUID
	Date         civil.Date
	Time         civil.TimeOfDay
}

// Doctor is the availability profile of a doctor.
type Doctor struct {
	DepartmentID  uuid.UUID
	AvailableDays string
	StartTime     *civil.TimeOfDay
	EndTime       *civil.TimeOfDay
	Active        bool
}

// HasFixedHours reports whether both ends of the working window are set.
func (d Doctor) HasFixedHours() bool {
	return d.StartTime != nil && d.EndTime != nil
}

// ParseDays splits a comma separated day list, trimming whitespace and
// dropping empty entries.
func ParseDays(s string) []string {
	var days []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			days = append(days, p)
		}
	}
	return days
}

// UnknownDays returns the entries of s that are not English weekday names.
func UnknownDays(s string) []string {
	var unknown []string
	for _, d := range ParseDays(s) {
		if _, ok := civil.ParseWeekday(d); !ok {
			unknown = append(unknown, d)
		}
	}
	return unknown
}

// AvailableOn reports whether the day list s includes wd.
func AvailableOn(s string, wd time.Weekday) bool {
	for _, d := range ParseDays(s) {
		if got, ok := civil.ParseWeekday(d); ok && got == wd {
			return true
		}
	}
	return false
}

// Policy selects how strictly the schedule checks are enforced.
type Policy string

const (
	// Strict rejects on every failed check.
	Strict Policy = "strict"
	// Lenient downgrades weekday and working-hours violations to warnings.
	Lenient Policy = "lenient"
)

// ParsePolicy validates a policy name. The empty string means Strict.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Strict:
		return Strict, nil
	case Lenient:
		return Lenient, nil
	}
	return "", fmt.Errorf("unknown availability policy %q (want %q or %q)", s, Strict, Lenient)
}

func (p Policy) relaxes(r Reason) bool {
	return p == Lenient && (r == WeekdayUnavailable || r == TimeOutOfWindow)
}

type check func(req Request, doc Doctor, today civil.Date) (Reason, bool)

// Checks run in this order and the first failure wins.
var checks = []check{
	checkLeadTime,
	checkWeekday,
	checkWindow,
	checkDepartment,
	checkActive,
}

func checkLeadTime(req Request, _ Doctor, today civil.Date) (Reason, bool) {
	return TooSoon, !req.Date.After(today)
}

func checkWeekday(req Request, doc Doctor, _ civil.Date) (Reason, bool) {
	return WeekdayUnavailable, !AvailableOn(doc.AvailableDays, req.Date.Weekday())
}

func checkWindow(req Request, doc Doctor, today civil.Date) (Reason, bool) {
	if doc.HasFixedHours() {
		inside := !req.Time.Before(*doc.StartTime) && !req.Time.After(*doc.EndTime)
		return TimeOutOfWindow, !inside
	}
	// Doctors without fixed hours need two days for reception to arrange.
	if doc.Active && req.Date.Before(today.AddDays(2)) {
		return NoFixedHoursTooSoon, true
	}
	return "", false
}

func checkDepartment(req Request, doc Doctor, _ civil.Date) (Reason, bool) {
	return DepartmentMismatch, req.DepartmentID != doc.DepartmentID
}

func checkActive(_ Request, doc Doctor, _ civil.Date) (Reason, bool) {
	return Inactive, !doc.Active
}

// Validator applies the checks under a policy. It holds no mutable state and
// is safe for concurrent use.
type Validator struct {
	policy Policy
}

func NewValidator(policy Policy) *Validator {
	if policy == "" {
		policy = Strict
	}
	return &Validator{policy: policy}
}

func (v *Validator) Policy() Policy { return v.policy }

// Check returns the relaxed violations as warnings and the first
// non-relaxed violation as a *Rejection.
func (v *Validator) Check(req Request, doc Doctor, today civil.Date) ([]Reason, error) {
	var warnings []Reason
	for _, c := range checks {
		reason, failed := c(req, doc, today)
		if !failed {
			continue
		}
		if v.policy.relaxes(reason) {
			warnings = append(warnings, reason)
			continue
		}
		return warnings, &Rejection{Reason: reason}
	}
	return warnings, nil
}

// Validate is the strict check: nil means the booking may be persisted.
func Validate(req Request, doc Doctor, today civil.Date) error {
	_, err := NewValidator(Strict).Check(req, doc, today)
	return err
}

// Clock supplies the current date.
type Clock interface {
	Today() civil.Date
}

// SystemClock reads the wall clock in the clinic's time zone.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Today() civil.Date {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(time.Now().In(loc))
}

// FixedClock always reports the same date.
type FixedClock civil.Date

func (c FixedClock) Today() civil.Date { return civil.Date(c) }
