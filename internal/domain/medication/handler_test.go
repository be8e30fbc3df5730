package medication

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/obstetric/obstetric/internal/platform/signedid"
)

func newTestHandler() (*Handler, *fixture, *echo.Echo) {
	f := newTestService()
	return NewHandler(f.svc, signedid.New("test", false)), f, echo.New()
}

func TestHandler_CreateOrder(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"obstetric_record_id":1,"medication_id":1,"frequency_hours":6}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	if err := h.CreateOrder(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"dose":"5 UI"`) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_CreateOrder_ClosedRecord(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"obstetric_record_id":2,"medication_id":1,"frequency_hours":6}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	err := h.CreateOrder(e.NewContext(req, httptest.NewRecorder()))
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestHandler_RecordAdministration(t *testing.T) {
	h, f, e := newTestHandler()
	o := f.activeOrder(t, fixedNow.Add(-time.Hour), 8)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"notes":"sin incidentes"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.RecordAdministration(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated || len(f.admins.store) != 1 || f.admins.store[0].OrderID != o.ID {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_ListDue_BadTime(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?at=yesterday", nil), httptest.NewRecorder())
	err := h.ListDue(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_ListDue(t *testing.T) {
	h, f, e := newTestHandler()
	f.activeOrder(t, fixedNow.Add(-time.Hour), 8)
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?at="+fixedNow.Format(time.RFC3339), nil), rec)
	if err := h.ListDue(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"medication_name":"Oxitocina"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_GetOrder_BadID(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("abc")
	err := h.GetOrder(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
