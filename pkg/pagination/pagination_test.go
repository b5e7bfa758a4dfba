package pagination

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(query string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/doctors?"+query, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		query string
		want  Params
	}{
		{"", Params{Limit: DefaultLimit, Offset: 0}},
		{"limit=5&offset=10", Params{Limit: 5, Offset: 10}},
		{"limit=1000", Params{Limit: MaxLimit, Offset: 0}},
		{"limit=-3&offset=-1", Params{Limit: DefaultLimit, Offset: 0}},
		{"limit=abc", Params{Limit: DefaultLimit, Offset: 0}},
		{"page=3&page_size=10", Params{Limit: 10, Offset: 20}},
		{"page=0", Params{Limit: DefaultLimit, Offset: 0}},
		{"page=4&offset=1", Params{Limit: DefaultLimit, Offset: 1}},
	}
	for _, tt := range tests {
		if got := paramsFor(tt.query); got != tt.want {
			t.Errorf("FromContext(%q) = %+v, want %+v", tt.query, got, tt.want)
		}
	}
}

func TestNewResponse(t *testing.T) {
	r := NewResponse([]string{"a", "b"}, 5, Params{Limit: 2, Offset: 0})
	if !r.HasMore || r.Total != 5 {
		t.Errorf("expected more pages, got %+v", r)
	}
	r = NewResponse([]string{"e"}, 5, Params{Limit: 2, Offset: 4})
	if r.HasMore {
		t.Errorf("expected last page, got %+v", r)
	}
}

func TestNewResponse_NilIsEmptyList(t *testing.T) {
	var items []int
	out, err := json.Marshal(NewResponse(items, 0, Params{Limit: 20}))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"data":[],"total":0,"limit":20,"offset":0,"has_more":false}`
	if string(out) != want {
		t.Errorf("got %s, want %s", out, want)
	}
}
