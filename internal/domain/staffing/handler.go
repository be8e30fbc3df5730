package staffing

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/obstetric/obstetric/internal/platform/apperr"
	"github.com/obstetric/obstetric/internal/platform/auth"
	"github.com/obstetric/obstetric/internal/platform/signedid"
	"github.com/obstetric/obstetric/pkg/pagination"
)

type Handler struct {
	svc *Service
	ids *signedid.Signer
}

func NewHandler(svc *Service, ids *signedid.Signer) *Handler {
	return &Handler{svc: svc, ids: ids}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	sid := signedid.Middleware(h.ids, "id")
	clinical := auth.RequireRole(auth.ClinicalRoles...)
	admin := auth.RequireRole(auth.RoleAdmin)
	leads := auth.RequireRole(auth.RoleMatrona, auth.RoleMedico)

	// Shifts
	api.GET("/shifts", h.ListShifts, clinical)
	api.GET("/shifts/on-duty", h.ListOnShift, clinical)
	api.GET("/shifts/:id", h.GetShift, clinical, sid)
	api.POST("/shifts", h.CreateShift, admin)
	api.PUT("/shifts/:id", h.UpdateShift, admin, sid)
	api.DELETE("/shifts/:id", h.DeleteShift, admin, sid)
	api.POST("/shifts/activate", h.ActivateShifts, admin)

	// Team assembly
	api.GET("/labor/:id/team", h.TeamStatus, clinical, sid)
	api.POST("/labor/:id/team", h.RequestTeam, leads, sid)
	api.GET("/labor/:id/team/pin", h.IssuePIN, leads, sid)
	api.POST("/labor/:id/team/confirm", h.ConfirmPIN, clinical, sid)
	api.POST("/labor/:id/team/pin/reset", h.ResetPIN, admin, sid)
	api.POST("/assignments/:id/respond", h.Respond, clinical, sid)
	api.GET("/me/invitations", h.MyInvitations)

	// Notifications
	api.GET("/me/notifications", h.MyNotifications)
	api.POST("/notifications/:id/read", h.MarkRead)
	api.POST("/notifications/retry", h.RetryFailed, admin)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return id, nil
}

func (h *Handler) presentShift(s *Shift) *Shift {
	s.Ref = h.ids.Encode(s.ID)
	return s
}

func (h *Handler) presentAssignment(a *Assignment) *Assignment {
	a.Ref = h.ids.Encode(a.ID)
	return a
}

// -- Shifts --

type shiftRequest struct {
	Shift
	StaffRef string `json:"staff_ref,omitempty"`
}

func (h *Handler) CreateShift(c echo.Context) error {
	var req shiftRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sh := req.Shift
	if req.StaffRef != "" {
		id, err := h.ids.Decode(req.StaffRef)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid staff_ref")
		}
		sh.StaffID = id
	}
	if err := h.svc.CreateShift(c.Request().Context(), &sh); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, h.presentShift(&sh))
}

func (h *Handler) GetShift(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	sh, err := h.svc.GetShift(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, h.presentShift(sh))
}

func (h *Handler) UpdateShift(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var sh Shift
	if err := c.Bind(&sh); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sh.ID = id
	if err := h.svc.UpdateShift(c.Request().Context(), &sh); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, h.presentShift(&sh))
}

func (h *Handler) DeleteShift(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteShift(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListShifts(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ShiftFilter{Role: c.QueryParam("role"), Status: c.QueryParam("status")}
	if ref := c.QueryParam("staff"); ref != "" {
		id, err := h.ids.Decode(ref)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid staff")
		}
		f.StaffID = id
	}
	items, total, err := h.svc.ListShifts(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	for _, s := range items {
		h.presentShift(s)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListOnShift(c echo.Context) error {
	items, err := h.svc.ListOnShift(c.Request().Context(), c.QueryParam("role"), time.Now())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	for _, s := range items {
		h.presentShift(s)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ActivateShifts(c echo.Context) error {
	res, err := h.svc.ActivateShifts(c.Request().Context(), time.Now())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

// -- Team --

func (h *Handler) TeamStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	st, err := h.svc.TeamStatus(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	st.Ref = h.ids.Encode(id)
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) RequestTeam(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	res, err := h.svc.RequestTeam(ctx, id, auth.UserIDFromContext(ctx))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	for _, a := range res.Invitations {
		h.presentAssignment(a)
	}
	res.Team.Ref = h.ids.Encode(id)
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) IssuePIN(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	pin, err := h.svc.IssuePIN(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pin)
}

type confirmRequest struct {
	PIN string `json:"pin"`
}

func (h *Handler) ConfirmPIN(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req confirmRequest
	if err := c.Bind(&req); err != nil || req.PIN == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "pin is required")
	}
	st, err := h.svc.ConfirmPIN(c.Request().Context(), id, req.PIN)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	st.Ref = h.ids.Encode(id)
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) ResetPIN(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	pin, err := h.svc.ResetPIN(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pin)
}

type respondRequest struct {
	Accept bool `json:"accept"`
}

func (h *Handler) Respond(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req respondRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	a, err := h.svc.Respond(ctx, id, auth.UserIDFromContext(ctx), req.Accept)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, h.presentAssignment(a))
}

func (h *Handler) MyInvitations(c echo.Context) error {
	ctx := c.Request().Context()
	items, err := h.svc.PendingInvitations(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	for _, a := range items {
		h.presentAssignment(a)
	}
	return c.JSON(http.StatusOK, items)
}

// -- Notifications --

func (h *Handler) MyNotifications(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListNotifications(ctx, auth.UserIDFromContext(ctx), c.QueryParam("unread") == "true",
		pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) MarkRead(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.MarkRead(ctx, id, auth.UserIDFromContext(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RetryFailed(c echo.Context) error {
	limit := 100
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	n, err := h.svc.RetryFailed(c.Request().Context(), limit)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"delivered": n})
}
