package labor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/obstetric/obstetric/internal/domain/rooms"
	"github.com/obstetric/obstetric/internal/platform/signedid"
)

func newTestHandler() (*Handler, *fixture, *echo.Echo) {
	f := newFixture()
	return NewHandler(f.svc, signedid.New("test", false)), f, echo.New()
}

func TestHandler_Admit_WithRoomRef(t *testing.T) {
	h, f, e := newTestHandler()
	body := `{"obstetric_record_id":1,"room_ref":"` + h.ids.Encode(10) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	if err := h.Admit(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if f.rooms.status[10] != rooms.StatusOccupied {
		t.Error("expected room decoded from ref to be occupied")
	}
}

func TestHandler_Admit_TamperedRoomRef(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"obstetric_record_id":1,"room_ref":"MTA6ZGVhZGJlZWY"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	err := h.Admit(e.NewContext(req, httptest.NewRecorder()))
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_Finalize(t *testing.T) {
	h, f, e := newTestHandler()
	a := &Admission{ObstetricRecordID: 1}
	_ = f.svc.Admit(context.Background(), a)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(a.ID, 10))
	if err := h.Finalize(c); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"FINALIZADO"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(a.ID, 10))
	err := h.Finalize(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestHandler_List_InvalidStatus(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?status=PAUSADO", nil), httptest.NewRecorder())
	err := h.List(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}
