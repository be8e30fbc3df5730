package patient

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
	svc, _, _ := newTestService()
	return NewHandler(svc, signedid.New("test", true)), svc, echo.New()
}

func TestHandler_Intake(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"person":{"rut":"12.345.678-5","first_names":"Ana","last_names":"Muñoz"},"blood_type":"A+"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	if err := h.Intake(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ref":"`) {
		t.Errorf("expected signed ref in response: %s", rec.Body.String())
	}
}

func TestHandler_Intake_Duplicate(t *testing.T) {
	h, svc, e := newTestHandler()
	_, _ = svc.Intake(context.Background(), sampleIntake("12345678-5"))

	body := `{"person":{"rut":"12345678-5","first_names":"Ana","last_names":"Muñoz"}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	err := h.Intake(e.NewContext(req, httptest.NewRecorder()))
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestHandler_GetAndDischarge(t *testing.T) {
	h, svc, e := newTestHandler()
	p, _ := svc.Intake(context.Background(), sampleIntake("12345678-5"))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(p.ID, 10))
	if err := h.Get(c); err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(p.ID, 10))
	if err := h.Discharge(c); err != nil {
		t.Fatalf("discharge: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ALTA"`) {
		t.Errorf("expected ALTA status: %s", rec.Body.String())
	}
}

func TestHandler_Get_InvalidID(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("abc")
	err := h.Get(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_GetByRUT_Invalid(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("rut")
	c.SetParamValues("12345678-0")
	err := h.GetByRUT(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}
