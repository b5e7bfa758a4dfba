package clinic

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"

	"github.com/clinic/clinic/pkg/civil"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		mock.Close()
	})
	return mock
}

var fkViolation = &pgconn.PgError{Code: "23503", ConstraintName: "appointment_doctor_id_fkey"}

var doctorColumns = []string{"id", "name", "photo", "department_id", "description", "available_days",
	"start_time", "end_time", "active", "created_at", "updated_at"}

var apptColumns = []string{"id", "patient_name", "phone", "department_id", "doctor_id",
	"appointment_date", "appointment_time", "reason", "created_at", "updated_at"}

func TestDepartmentRepoPG_Create(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery("INSERT INTO department").
		WithArgs(pgxmock.AnyArg(), "Cardiology").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	d := &Department{Name: "Cardiology"}
	if err := NewDepartmentRepoPG(mock).Create(context.Background(), d); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.ID == uuid.Nil || !d.CreatedAt.Equal(now) {
		t.Errorf("expected id and timestamps, got %+v", d)
	}
}

func TestDepartmentRepoPG_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()
	mock.ExpectQuery("FROM department WHERE id").WithArgs(id).WillReturnError(pgx.ErrNoRows)

	if _, err := NewDepartmentRepoPG(mock).GetByID(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDepartmentRepoPG_Update_NotFound(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()
	mock.ExpectQuery("UPDATE department SET name").WithArgs(id, "Renamed").WillReturnError(pgx.ErrNoRows)

	err := NewDepartmentRepoPG(mock).Update(context.Background(), &Department{ID: id, Name: "Renamed"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDepartmentRepoPG_Delete(t *testing.T) {
	mock := newMock(t)
	used, missing, free := uuid.New(), uuid.New(), uuid.New()
	mock.ExpectExec("DELETE FROM department").WithArgs(used).WillReturnError(fkViolation)
	mock.ExpectExec("DELETE FROM department").WithArgs(missing).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM department").WithArgs(free).WillReturnResult(pgxmock.NewResult("DELETE", 1))

	repo := NewDepartmentRepoPG(mock)
	if err := repo.Delete(context.Background(), used); !errors.Is(err, ErrInUse) {
		t.Errorf("expected ErrInUse, got %v", err)
	}
	if err := repo.Delete(context.Background(), missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(context.Background(), free); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDepartmentRepoPG_ListAndCount(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM department")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("FROM department ORDER BY name, id LIMIT").WithArgs(1, 1).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
			AddRow(uuid.NewString(), "Oncology", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM department")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	repo := NewDepartmentRepoPG(mock)
	items, total, err := repo.List(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(items) != 1 || items[0].Name != "Oncology" {
		t.Errorf("unexpected page %v (total %d)", items, total)
	}
	if n, err := repo.Count(context.Background()); err != nil || n != 2 {
		t.Errorf("Count = %d, %v", n, err)
	}
}

func TestDoctorRepoPG_GetByID_NullableHours(t *testing.T) {
	mock := newMock(t)
	id, dept := uuid.New(), uuid.New()
	now := time.Now()
	mock.ExpectQuery("FROM doctor WHERE id").WithArgs(id).
		WillReturnRows(pgxmock.NewRows(doctorColumns).
			AddRow(id.String(), "Dr. Rao", "", dept.String(), "", "Mon,Wed", "09:30:00", nil, false, now, now))

	d, err := NewDoctorRepoPG(mock).GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if d.StartTime == nil || *d.StartTime != (civil.TimeOfDay{Hour: 9, Minute: 30}) {
		t.Errorf("unexpected start time %v", d.StartTime)
	}
	if d.EndTime != nil {
		t.Errorf("expected no end time, got %v", d.EndTime)
	}
	if d.IsActive() || d.DepartmentID != dept {
		t.Errorf("unexpected doctor %+v", d)
	}
}

func TestDoctorRepoPG_Create_UnknownDepartment(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("INSERT INTO doctor").WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).WillReturnError(&pgconn.PgError{Code: "23503"})

	err := NewDoctorRepoPG(mock).Create(context.Background(), &Doctor{Name: "Dr. X", DepartmentID: uuid.New(), AvailableDays: "Mon"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDoctorRepoPG_Delete_InUse(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()
	mock.ExpectExec("DELETE FROM doctor").WithArgs(id).WillReturnError(fkViolation)

	if err := NewDoctorRepoPG(mock).Delete(context.Background(), id); !errors.Is(err, ErrInUse) {
		t.Fatalf("expected ErrInUse, got %v", err)
	}
}

func TestDoctorRepoPG_List_Filters(t *testing.T) {
	mock := newMock(t)
	dept := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM doctor WHERE 1=1 AND active")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND active ORDER BY name, id LIMIT $1 OFFSET $2")).
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows(doctorColumns))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM doctor WHERE 1=1 AND department_id = $1")).
		WithArgs(dept).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND department_id = $1 ORDER BY name, id LIMIT $2 OFFSET $3")).
		WithArgs(dept, 10, 30).
		WillReturnRows(pgxmock.NewRows(doctorColumns))

	repo := NewDoctorRepoPG(mock)
	if _, _, err := repo.List(context.Background(), DoctorFilter{}, 20, 0); err != nil {
		t.Fatalf("List active: %v", err)
	}
	if _, _, err := repo.List(context.Background(), DoctorFilter{DepartmentID: &dept, IncludeInactive: true}, 10, 30); err != nil {
		t.Fatalf("List by department: %v", err)
	}
}

func TestAppointmentRepoPG_Create(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	a := &Appointment{
		PatientName:  "Asha",
		Phone:        "5550100",
		DepartmentID: uuid.New(),
		DoctorID:     uuid.New(),
		Date:         civil.Date{Year: 2026, Month: time.March, Day: 6},
		Time:         &civil.TimeOfDay{Hour: 10},
	}
	mock.ExpectQuery("INSERT INTO appointment").
		WithArgs(pgxmock.AnyArg(), "Asha", "5550100", a.DepartmentID, a.DoctorID,
			pgxmock.AnyArg(), pgxmock.AnyArg(), "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectQuery("INSERT INTO appointment").WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).WillReturnError(fkViolation)

	repo := NewAppointmentRepoPG(mock)
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ID == uuid.Nil {
		t.Error("expected id to be assigned")
	}

	var verr *ValidationError
	if err := repo.Create(context.Background(), &Appointment{}); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for a dangling reference, got %v", err)
	}
}

func TestAppointmentRepoPG_List(t *testing.T) {
	mock := newMock(t)
	doc, dept := uuid.New(), uuid.New()
	date := civil.Date{Year: 2026, Month: time.March, Day: 6}
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM appointment WHERE 1=1 AND doctor_id = $1 AND appointment_date = $2")).
		WithArgs(doc, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY appointment_date, appointment_time, id LIMIT $3 OFFSET $4")).
		WithArgs(doc, pgxmock.AnyArg(), 20, 0).
		WillReturnRows(pgxmock.NewRows(apptColumns).
			AddRow(uuid.NewString(), "Asha", "5550100", dept.String(), doc.String(),
				"2026-03-06", "10:15:00", "checkup", now, now))

	items, total, err := NewAppointmentRepoPG(mock).List(context.Background(),
		AppointmentFilter{DoctorID: &doc, Date: &date}, 20, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("unexpected result %v (total %d)", items, total)
	}
	got := items[0]
	if got.Date != date || got.Time == nil || *got.Time != (civil.TimeOfDay{Hour: 10, Minute: 15}) {
		t.Errorf("unexpected date/time %s %v", got.Date, got.Time)
	}
	if got.DoctorID != doc || got.DepartmentID != dept {
		t.Errorf("unexpected references %+v", got)
	}
}

func TestAppointmentRepoPG_Update_NotFound(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()
	mock.ExpectQuery("UPDATE appointment SET").WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).WillReturnError(pgx.ErrNoRows)

	err := NewAppointmentRepoPG(mock).Update(context.Background(), &Appointment{ID: id})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppointmentRepoPG_Count(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM appointment")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := NewAppointmentRepoPG(mock).Count(context.Background())
	if err != nil || n != 7 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}
