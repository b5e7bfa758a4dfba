package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestCheckHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"connected", nil, http.StatusOK, "connected"},
		{"unavailable", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable, "unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/api/db-check", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := CheckHandler(fakePinger{err: tt.err})(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["database"] != tt.wantBody {
				t.Errorf("expected database=%s, got %v", tt.wantBody, body)
			}
		})
	}
}

func TestErrorClassification(t *testing.T) {
	fk := fkError()
	if !IsForeignKeyViolation(fk) {
		t.Error("expected foreign key violation")
	}
	if IsUniqueViolation(fk) {
		t.Error("did not expect unique violation")
	}
	if IsForeignKeyViolation(errors.New("boom")) {
		t.Error("plain errors are not FK violations")
	}
}
