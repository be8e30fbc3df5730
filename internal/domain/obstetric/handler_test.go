package obstetric

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/obstetric/obstetric/internal/platform/signedid"
)

func newTestHandler() (*Handler, *Service, *echo.Echo) {
	svc, _ := newTestService()
	return NewHandler(svc, signedid.New("test", true)), svc, echo.New()
}

func TestHandler_Create(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"patient_id":1,"expected_babies":2}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"record_number":"FO-2025-00001"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_Create_BadBabies(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"patient_id":1,"expected_babies":9}`))
	req.Header.Set("Content-Type", "application/json")
	err := h.Create(e.NewContext(req, httptest.NewRecorder()))
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_GestationalAge(t *testing.T) {
	h, svc, e := newTestHandler()
	r := &Record{PatientID: 1, LastMenstrualPeriod: date(2025, 1, 1)}
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?at=2025-01-11", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(r.ID, 10))
	if err := h.GestationalAge(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"weeks":1`) || !strings.Contains(rec.Body.String(), `"days":3`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/?at=yesterday", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(r.ID, 10))
	if err := h.GestationalAge(c); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestHandler_List_BadPatientRef(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?patient=zzz", nil), httptest.NewRecorder())
	err := h.List(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}
