package clinic

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/pkg/civil"
)

func pgTime(t civil.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: t.Seconds() * 1e6, Valid: true}
}

func pgTimePtr(t *civil.TimeOfDay) pgtype.Time {
	if t == nil {
		return pgtype.Time{}
	}
	return pgTime(*t)
}

func fromPGTime(t pgtype.Time) *civil.TimeOfDay {
	if !t.Valid {
		return nil
	}
	tod := civil.TimeOfDayFromSeconds(t.Microseconds / 1e6)
	return &tod
}

func pgDate(d civil.Date) pgtype.Date {
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

// readErr maps a missing row to ErrNotFound.
func readErr(err error) error {
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	return err
}

// writeErr maps a missing row to ErrNotFound and a dangling reference to a
// validation error.
func writeErr(err error) error {
	if db.IsForeignKeyViolation(err) {
		return &ValidationError{Message: "referenced department or doctor does not exist"}
	}
	return readErr(err)
}

// deleteErr maps a restricted delete to ErrInUse.
func deleteErr(err error) error {
	if db.IsForeignKeyViolation(err) {
		return ErrInUse
	}
	return err
}

func execDelete(ctx context.Context, q db.Querier, table string, id uuid.UUID) error {
	tag, err := q.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return deleteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func count(ctx context.Context, q db.Querier, table string) (int, error) {
	var n int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// =========== Department Repository ===========

type departmentRepoPG struct{ db db.Querier }

func NewDepartmentRepoPG(q db.Querier) DepartmentRepository { return &departmentRepoPG{db: q} }

const deptCols = `id, name, created_at, updated_at`

func scanDepartment(row pgx.Row) (*Department, error) {
	var d Department
	if err := row.Scan(&d.ID, &d.Name, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *departmentRepoPG) Create(ctx context.Context, d *Department) error {
	d.ID = uuid.New()
	err := r.db.QueryRow(ctx, `
		INSERT INTO department (id, name) VALUES ($1, $2)
		RETURNING created_at, updated_at`,
		d.ID, d.Name).Scan(&d.CreatedAt, &d.UpdatedAt)
	return writeErr(err)
}

func (r *departmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Department, error) {
	d, err := scanDepartment(r.db.QueryRow(ctx, `SELECT `+deptCols+` FROM department WHERE id = $1`, id))
	return d, readErr(err)
}

func (r *departmentRepoPG) Update(ctx context.Context, d *Department) error {
	err := r.db.QueryRow(ctx, `
		UPDATE department SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		d.ID, d.Name).Scan(&d.CreatedAt, &d.UpdatedAt)
	return writeErr(err)
}

func (r *departmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return execDelete(ctx, r.db, "department", id)
}

func (r *departmentRepoPG) List(ctx context.Context, limit, offset int) ([]*Department, int, error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+deptCols+` FROM department ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *departmentRepoPG) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, "department")
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ db db.Querier }

func NewDoctorRepoPG(q db.Querier) DoctorRepository { return &doctorRepoPG{db: q} }

const doctorCols = `id, name, photo, department_id, description, available_days,
	start_time, end_time, active, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var start, end pgtype.Time
	var active bool
	if err := row.Scan(&d.ID, &d.Name, &d.Photo, &d.DepartmentID, &d.Description, &d.AvailableDays,
		&start, &end, &active, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.StartTime = fromPGTime(start)
	d.EndTime = fromPGTime(end)
	d.Active = &active
	return &d, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	err := r.db.QueryRow(ctx, `
		INSERT INTO doctor (id, name, photo, department_id, description, available_days,
			start_time, end_time, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		d.ID, d.Name, d.Photo, d.DepartmentID, d.Description, d.AvailableDays,
		pgTimePtr(d.StartTime), pgTimePtr(d.EndTime), d.IsActive()).Scan(&d.CreatedAt, &d.UpdatedAt)
	return writeErr(err)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := scanDoctor(r.db.QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
	return d, readErr(err)
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	err := r.db.QueryRow(ctx, `
		UPDATE doctor SET name=$2, photo=$3, department_id=$4, description=$5, available_days=$6,
			start_time=$7, end_time=$8, active=$9, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		d.ID, d.Name, d.Photo, d.DepartmentID, d.Description, d.AvailableDays,
		pgTimePtr(d.StartTime), pgTimePtr(d.EndTime), d.IsActive()).Scan(&d.CreatedAt, &d.UpdatedAt)
	return writeErr(err)
}

// Delete removes a doctor. Appointments restrict the delete.
func (r *doctorRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return execDelete(ctx, r.db, "doctor", id)
}

func (r *doctorRepoPG) List(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if !f.IncludeInactive {
		where += ` AND active`
	}
	if f.DepartmentID != nil {
		where += fmt.Sprintf(` AND department_id = $%d`, idx)
		args = append(args, *f.DepartmentID)
		idx++
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM doctor`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + doctorCols + ` FROM doctor` + where +
		fmt.Sprintf(` ORDER BY name, id LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *doctorRepoPG) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, "doctor")
}

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ db db.Querier }

func NewAppointmentRepoPG(q db.Querier) AppointmentRepository { return &appointmentRepoPG{db: q} }

const apptCols = `id, patient_name, phone, department_id, doctor_id,
	appointment_date, appointment_time, reason, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date pgtype.Date
	var tm pgtype.Time
	if err := row.Scan(&a.ID, &a.PatientName, &a.Phone, &a.DepartmentID, &a.DoctorID,
		&date, &tm, &a.Reason, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Date = civil.DateOf(date.Time)
	a.Time = fromPGTime(tm)
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.db.QueryRow(ctx, `
		INSERT INTO appointment (id, patient_name, phone, department_id, doctor_id,
			appointment_date, appointment_time, reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientName, a.Phone, a.DepartmentID, a.DoctorID,
		pgDate(a.Date), pgTimePtr(a.Time), a.Reason).Scan(&a.CreatedAt, &a.UpdatedAt)
	return writeErr(err)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.db.QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
	return a, readErr(err)
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	err := r.db.QueryRow(ctx, `
		UPDATE appointment SET patient_name=$2, phone=$3, department_id=$4, doctor_id=$5,
			appointment_date=$6, appointment_time=$7, reason=$8, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		a.ID, a.PatientName, a.Phone, a.DepartmentID, a.DoctorID,
		pgDate(a.Date), pgTimePtr(a.Time), a.Reason).Scan(&a.CreatedAt, &a.UpdatedAt)
	return writeErr(err)
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return execDelete(ctx, r.db, "appointment", id)
}

func (r *appointmentRepoPG) List(ctx context.Context, f AppointmentFilter, limit, offset int) ([]*Appointment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.DoctorID != nil {
		where += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		args = append(args, *f.DoctorID)
		idx++
	}
	if f.DepartmentID != nil {
		where += fmt.Sprintf(` AND department_id = $%d`, idx)
		args = append(args, *f.DepartmentID)
		idx++
	}
	if f.Date != nil {
		where += fmt.Sprintf(` AND appointment_date = $%d`, idx)
		args = append(args, pgDate(*f.Date))
		idx++
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM appointment`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + apptCols + ` FROM appointment` + where +
		fmt.Sprintf(` ORDER BY appointment_date, appointment_time, id LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *appointmentRepoPG) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, "appointment")
}
