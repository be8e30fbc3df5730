package labor

import (
	"net/http"
	"strconv"

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

	read := api.Group("", auth.RequireRole(auth.ClinicalRoles...))
	read.GET("/labor", h.List)
	read.GET("/labor/:id", h.Get, sid)
	read.GET("/labor/:id/delivery", h.GetDeliveryByAdmission, sid)
	read.GET("/deliveries/:id", h.GetDelivery, sid)

	write := api.Group("", auth.RequireRole(auth.RoleMatrona, auth.RoleMedico))
	write.POST("/labor", h.Admit)
	write.PUT("/labor/:id", h.UpdateProgress, sid)
	write.POST("/labor/:id/expulsive", h.AdvanceToExpulsive, sid)
	write.POST("/labor/:id/delivery", h.RegisterDelivery, sid)
	write.POST("/labor/:id/finalize", h.Finalize, sid)
}

func (h *Handler) present(a *Admission) *Admission {
	a.Ref = h.ids.Encode(a.ID)
	return a
}

func (h *Handler) presentDelivery(d *Delivery) *Delivery {
	d.Ref = h.ids.Encode(d.ID)
	return d
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return id, nil
}

type admitRequest struct {
	Admission
	// RoomRef lets clients pass the signed room id they received from /rooms.
	RoomRef string `json:"room_ref,omitempty"`
}

func (h *Handler) Admit(c echo.Context) error {
	var req admitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a := req.Admission
	if req.RoomRef != "" {
		roomID, err := h.ids.Decode(req.RoomRef)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid room_ref")
		}
		a.RoomID = &roomID
	}
	if err := h.svc.Admit(c.Request().Context(), &a); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, h.present(&a))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, h.present(a))
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{Status: c.QueryParam("status")}
	if ref := c.QueryParam("record"); ref != "" {
		id, err := h.ids.Decode(ref)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid record")
		}
		f.ObstetricRecordID = id
	}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	for _, a := range items {
		h.present(a)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateProgress(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in ProgressInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.UpdateProgress(c.Request().Context(), id, in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, h.present(a))
}

func (h *Handler) AdvanceToExpulsive(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.AdvanceToExpulsive(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, h.present(a))
}

func (h *Handler) RegisterDelivery(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var d Delivery
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.RegisterDelivery(c.Request().Context(), id, &d); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, h.presentDelivery(&d))
}

func (h *Handler) GetDelivery(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDelivery(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, h.presentDelivery(d))
}

func (h *Handler) GetDeliveryByAdmission(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDeliveryByAdmission(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, h.presentDelivery(d))
}

func (h *Handler) Finalize(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Finalize(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, h.present(a))
}
