package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/availability"
	"github.com/clinic/clinic/internal/platform/metrics"
	"github.com/clinic/clinic/internal/platform/websocket"
)

const (
	maxNameLen  = 100
	maxPhoneLen = 15
	maxDaysLen  = 100
)

type Service struct {
	departments  DepartmentRepository
	doctors      DoctorRepository
	appointments AppointmentRepository
	validator    *availability.Validator
	clock        availability.Clock
	events       websocket.EventPublisher
	metrics      *metrics.BookingMetrics
	logger       zerolog.Logger
}

type Option func(*Service)

// WithEvents publishes appointment changes to p.
func WithEvents(p websocket.EventPublisher) Option { return func(s *Service) { s.events = p } }

func WithMetrics(m *metrics.BookingMetrics) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.logger = l } }

func NewService(dept DepartmentRepository, doc DoctorRepository, appt AppointmentRepository,
	validator *availability.Validator, clock availability.Clock, opts ...Option) *Service {
	s := &Service{
		departments:  dept,
		doctors:      doc,
		appointments: appt,
		validator:    validator,
		clock:        clock,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func requireText(field, v string, max int) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalid(field, "is required")
	}
	if utf8.RuneCountInString(v) > max {
		return "", invalid(field, "must be at most %d characters", max)
	}
	return v, nil
}

// -- Department --

func (s *Service) CreateDepartment(ctx context.Context, d *Department) error {
	name, err := requireText("name", d.Name, maxNameLen)
	if err != nil {
		return err
	}
	d.Name = name
	return s.departments.Create(ctx, d)
}

func (s *Service) GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error) {
	return s.departments.GetByID(ctx, id)
}

func (s *Service) UpdateDepartment(ctx context.Context, d *Department) error {
	name, err := requireText("name", d.Name, maxNameLen)
	if err != nil {
		return err
	}
	d.Name = name
	return s.departments.Update(ctx, d)
}

// DeleteDepartment removes a department and its doctors. It fails with
// ErrInUse while any appointment references either.
func (s *Service) DeleteDepartment(ctx context.Context, id uuid.UUID) error {
	return s.departments.Delete(ctx, id)
}

func (s *Service) ListDepartments(ctx context.Context, limit, offset int) ([]*Department, int, error) {
	return s.departments.List(ctx, limit, offset)
}

func (s *Service) CountDepartments(ctx context.Context) (int, error) {
	return s.departments.Count(ctx)
}

// -- Doctor --

func (s *Service) validateDoctor(ctx context.Context, d *Doctor) error {
	name, err := requireText("name", d.Name, maxNameLen)
	if err != nil {
		return err
	}
	d.Name = name

	days, err := requireText("available_days", d.AvailableDays, maxDaysLen)
	if err != nil {
		return err
	}
	if unknown := availability.UnknownDays(days); len(unknown) > 0 {
		return invalid("available_days", "unrecognised day names: %s", strings.Join(unknown, ", "))
	}
	d.AvailableDays = days

	if d.StartTime != nil && d.EndTime != nil && d.StartTime.After(*d.EndTime) {
		return invalid("start_time", "must not be after end_time")
	}

	if d.DepartmentID == uuid.Nil {
		return invalid("department_id", "is required")
	}
	if _, err := s.departments.GetByID(ctx, d.DepartmentID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalid("department_id", "department not found")
		}
		return fmt.Errorf("load department: %w", err)
	}
	return nil
}

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if err := s.validateDoctor(ctx, d); err != nil {
		return err
	}
	if d.Active == nil {
		active := true
		d.Active = &active
	}
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

// UpdateDoctor replaces a doctor. An omitted active flag keeps the stored
// value.
func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	existing, err := s.doctors.GetByID(ctx, d.ID)
	if err != nil {
		return err
	}
	if err := s.validateDoctor(ctx, d); err != nil {
		return err
	}
	if d.Active == nil {
		d.Active = existing.Active
	}
	return s.doctors.Update(ctx, d)
}

func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	return s.doctors.Delete(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, f, limit, offset)
}

func (s *Service) CountDoctors(ctx context.Context) (int, error) {
	return s.doctors.Count(ctx)
}

// -- Appointment --

func validateAppointmentFields(a *Appointment) error {
	name, err := requireText("patient_name", a.PatientName, maxNameLen)
	if err != nil {
		return err
	}
	a.PatientName = name

	phone, err := requireText("phone", a.Phone, maxPhoneLen)
	if err != nil {
		return err
	}
	a.Phone = phone

	if a.DoctorID == uuid.Nil {
		return invalid("doctor_id", "is required")
	}
	if a.Date.IsZero() {
		return invalid("date", "is required")
	}
	if a.Time == nil {
		return invalid("time", "is required")
	}
	a.Reason = strings.TrimSpace(a.Reason)
	return nil
}

// prepareBooking loads the doctor, fills in the department when omitted and
// runs the availability checks. Nothing is written.
func (s *Service) prepareBooking(ctx context.Context, op string, a *Appointment) error {
	if err := validateAppointmentFields(a); err != nil {
		return err
	}

	doc, err := s.doctors.GetByID(ctx, a.DoctorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalid("doctor_id", "doctor not found")
		}
		return fmt.Errorf("load doctor: %w", err)
	}

	if a.DepartmentID == uuid.Nil {
		a.DepartmentID = doc.DepartmentID
	} else if a.DepartmentID != doc.DepartmentID {
		if _, err := s.departments.GetByID(ctx, a.DepartmentID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return invalid("department_id", "department not found")
			}
			return fmt.Errorf("load department: %w", err)
		}
	}

	warnings, err := s.validator.Check(a.availabilityRequest(), doc.Availability(), s.clock.Today())
	for _, w := range warnings {
		s.metrics.ObserveWarning(string(w))
		s.logger.Warn().
			Str("reason", string(w)).
			Str("doctor_id", a.DoctorID.String()).
			Str("date", a.Date.String()).
			Str("time", a.Time.String()).
			Msg("booking accepted outside doctor's schedule")
	}
	if err != nil {
		reason, _ := availability.ReasonOf(err)
		s.metrics.ObserveRejected(op, string(reason))
		s.logger.Info().
			Str("operation", op).
			Str("reason", string(reason)).
			Str("doctor_id", a.DoctorID.String()).
			Msg("booking rejected")
		return err
	}
	s.metrics.ObserveAccepted(op)
	return nil
}

// CreateAppointment books an appointment after it passes every availability
// check. Rejections are returned as *availability.Rejection.
func (s *Service) CreateAppointment(ctx context.Context, a *Appointment) error {
	if err := s.prepareBooking(ctx, "create", a); err != nil {
		return err
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	s.publish(ctx, "created", a, uuid.Nil)
	return nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// UpdateAppointment replaces an appointment. The result is checked exactly
// as a new booking would be.
func (s *Service) UpdateAppointment(ctx context.Context, a *Appointment) error {
	existing, err := s.appointments.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	if err := s.prepareBooking(ctx, "update", a); err != nil {
		return err
	}
	if err := s.appointments.Update(ctx, a); err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	s.publish(ctx, "updated", a, existing.DoctorID)
	return nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	existing, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.appointments.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, "deleted", existing, uuid.Nil)
	return nil
}

func (s *Service) ListAppointments(ctx context.Context, f AppointmentFilter, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.List(ctx, f, limit, offset)
}

func (s *Service) CountAppointments(ctx context.Context) (int, error) {
	return s.appointments.Count(ctx)
}

// publish notifies the appointments topic and the doctor's topic. When an
// update moved the appointment, the previous doctor is notified too.
func (s *Service) publish(ctx context.Context, kind string, a *Appointment, previousDoctor uuid.UUID) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(a)
	if err != nil {
		s.logger.Error().Err(err).Msg("marshal appointment event")
		return
	}

	topics := []string{websocket.TopicAppointments, websocket.DoctorTopic(a.DoctorID.String())}
	if previousDoctor != uuid.Nil && previousDoctor != a.DoctorID {
		topics = append(topics, websocket.DoctorTopic(previousDoctor.String()))
	}
	now := time.Now().UTC()
	for _, topic := range topics {
		ev := websocket.Event{
			Type:         kind,
			Topic:        topic,
			ResourceType: "appointment",
			ResourceID:   a.ID.String(),
			Timestamp:    now,
			Data:         data,
		}
		if err := s.events.Publish(ctx, ev); err != nil {
			s.logger.Warn().Err(err).Str("topic", topic).Msg("publish appointment event")
		}
	}
}
