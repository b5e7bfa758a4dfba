package clinic

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/availability"
	"github.com/clinic/clinic/pkg/civil"
)

// Department maps to the department table.
type Department struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Doctor maps to the doctor table. AvailableDays is a comma separated list
// of English weekday names, e.g. "Mon,Wed,Fri". A doctor without both
// StartTime and EndTime has no fixed hours.
type Doctor struct {
	ID            uuid.UUID        `db:"id" json:"id"`
	Name          string           `db:"name" json:"name"`
	Photo         string           `db:"photo" json:"photo"`
	DepartmentID  uuid.UUID        `db:"department_id" json:"department_id"`
	Description   string           `db:"description" json:"description"`
	AvailableDays string           `db:"available_days" json:"available_days"`
	StartTime     *civil.TimeOfDay `db:"start_time" json:"start_time"`
	EndTime       *civil.TimeOfDay `db:"end_time" json:"end_time"`
	Active        *bool            `db:"active" json:"active,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// IsActive treats an unset flag as active, matching the column default.
func (d *Doctor) IsActive() bool { return d.Active == nil || *d.Active }

// Availability returns the profile the booking checks run against.
func (d *Doctor) Availability() availability.Doctor {
	return availability.Doctor{
		DepartmentID:  d.DepartmentID,
		AvailableDays: d.AvailableDays,
		StartTime:     d.StartTime,
		EndTime:       d.EndTime,
		Active:        d.IsActive(),
	}
}

// Appointment maps to the appointment table. DepartmentID duplicates the
// doctor's department and must agree with it.
type Appointment struct {
	ID           uuid.UUID        `db:"id" json:"id"`
	PatientName  string           `db:"patient_name" json:"patient_name"`
	Phone        string           `db:"phone" json:"phone"`
	DepartmentID uuid.UUID        `db:"department_id" json:"department_id"`
	DoctorID     uuid.UUID        `db:"doctor_id" json:"doctor_id"`
	Date         civil.Date       `db:"appointment_date" json:"date"`
	Time         *civil.TimeOfDay `db:"appointment_time" json:"time"`
	Reason       string           `db:"reason" json:"reason"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// availabilityRequest expects Time to be set.
func (a *Appointment) availabilityRequest() availability.Request {
	return availability.Request{DepartmentID: a.DepartmentID, Date: a.Date, Time: *a.Time}
}
