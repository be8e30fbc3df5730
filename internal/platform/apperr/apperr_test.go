package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
)

var errRoomMissing = NotFound("room not found")

func TestToHTTP(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", Invalid("weight_grams must be between %d and %d", 300, 7000), http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("occupy: %w", errRoomMissing), http.StatusNotFound},
		{"conflict", Conflict("room occupied"), http.StatusConflict},
		{"forbidden", Forbidden("not your invitation"), http.StatusForbidden},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
		{"already http", echo.NewHTTPError(http.StatusTeapot), http.StatusTeapot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he, ok := ToHTTP(tt.err).(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected *echo.HTTPError")
			}
			if he.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, he.Code)
			}
		})
	}
}

func TestToHTTP_Nil(t *testing.T) {
	if ToHTTP(nil) != nil {
		t.Error("expected nil")
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(fmt.Errorf("x: %w", errRoomMissing)) != KindNotFound {
		t.Error("expected KindNotFound through wrapping")
	}
	if !errors.Is(fmt.Errorf("x: %w", errRoomMissing), errRoomMissing) {
		t.Error("expected sentinel identity to survive wrapping")
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Error("expected zero kind for plain errors")
	}
}
