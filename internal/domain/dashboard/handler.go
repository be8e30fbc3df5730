package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/obstetric/obstetric/internal/platform/apperr"
	"github.com/obstetric/obstetric/internal/platform/auth"
	"github.com/obstetric/obstetric/internal/platform/signedid"
	"github.com/obstetric/obstetric/internal/platform/websocket"
)

type Handler struct {
	svc *Service
	ids *signedid.Signer
	ws  *websocket.Handler
}

func NewHandler(svc *Service, ids *signedid.Signer, ws *websocket.Handler) *Handler {
	return &Handler{svc: svc, ids: ids, ws: ws}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard", h.Summary)
	if h.ws != nil {
		api.GET("/dashboard/ws", h.ws.Connect)
	}
}

// Summary answers for the caller's primary role. ?role= lets an ADMIN look
// at another role's view.
func (h *Handler) Summary(c echo.Context) error {
	ctx := c.Request().Context()
	role := auth.PrimaryRole(ctx)
	if as := c.QueryParam("role"); as != "" && as != role {
		if role != auth.RoleAdmin || !auth.IsValidRole(as) {
			return echo.NewHTTPError(http.StatusForbidden, "cannot view another role's dashboard")
		}
		role = as
	}
	sum, err := h.svc.Summary(ctx, auth.UserIDFromContext(ctx), role)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if sum.Clinical != nil {
		for _, a := range sum.Clinical.ActiveAdmissions {
			a.Ref = h.ids.Encode(a.ID)
		}
		for _, r := range sum.Clinical.HighRiskRecords {
			r.Ref = h.ids.Encode(r.ID)
		}
	}
	if sum.TENS != nil {
		for _, d := range sum.TENS.DueMedications {
			d.Ref = h.ids.Encode(d.OrderID)
		}
	}
	return c.JSON(http.StatusOK, sum)
}
