package newborn

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/obstetric/obstetric/internal/platform/apperr"
	"github.com/obstetric/obstetric/internal/platform/auth"
	"github.com/obstetric/obstetric/internal/platform/signedid"
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
	read.GET("/newborns/:id", h.Get, sid)
	read.GET("/deliveries/:id/newborns", h.ListByDelivery, sid)

	write := api.Group("", auth.RequireRole(auth.RoleMatrona, auth.RoleMedico, auth.RoleNeonatologo))
	write.POST("/deliveries/:id/newborns", h.Create, sid)
	write.PUT("/newborns/:id", h.Update, sid)
}

func (h *Handler) present(r *Record) *Record {
	r.Ref = h.ids.Encode(r.ID)
	return r
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	deliveryID, err := parseID(c)
	if err != nil {
		return err
	}
	var r Record
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	r.DeliveryRecordID = deliveryID
	if err := h.svc.Create(c.Request().Context(), &r); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, h.present(&r))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, h.present(r))
}

func (h *Handler) ListByDelivery(c echo.Context) error {
	deliveryID, err := parseID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListByDelivery(c.Request().Context(), deliveryID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	for _, r := range items {
		h.present(r)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	r, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, h.present(r))
}
