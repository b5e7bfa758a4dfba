package clinic

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinic/clinic/pkg/civil"
)

type DepartmentRepository interface {
	Create(ctx context.Context, d *Department) error
	GetByID(ctx context.Context, id uuid.UUID) (*Department, error)
	Update(ctx context.Context, d *Department) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Department, int, error)
	Count(ctx context.Context) (int, error)
}

// DoctorFilter narrows a doctor listing. Zero values match everything.
type DoctorFilter struct {
	DepartmentID    *uuid.UUID
	IncludeInactive bool
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error)
	Count(ctx context.Context) (int, error)
}

type AppointmentFilter struct {
	DoctorID     *uuid.UUID
	DepartmentID *uuid.UUID
	Date         *civil.Date
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f AppointmentFilter, limit, offset int) ([]*Appointment, int, error)
	Count(ctx context.Context) (int, error)
}
