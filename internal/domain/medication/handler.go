package medication

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

	// Catalog
	api.GET("/medications", h.ListMedications)
	api.GET("/medications/:id", h.GetMedication, sid)
	catalog := api.Group("/medications", auth.RequireRole(auth.RoleAdmin))
	catalog.POST("", h.CreateMedication)
	catalog.PUT("/:id", h.UpdateMedication, sid)
	catalog.DELETE("/:id", h.DeactivateMedication, sid)

	// Orders
	clinical := api.Group("", auth.RequireRole(auth.ClinicalRoles...))
	clinical.GET("/medication-orders", h.ListOrders)
	clinical.GET("/medication-orders/due", h.ListDue)
	clinical.GET("/medication-orders/:id", h.GetOrder, sid)
	clinical.GET("/medication-orders/:id/administrations", h.ListAdministrations, sid)

	prescribe := api.Group("/medication-orders", auth.RequireRole(auth.RoleMedico, auth.RoleMatrona))
	prescribe.POST("", h.CreateOrder)
	prescribe.POST("/:id/suspend", h.SuspendOrder, sid)
	prescribe.POST("/:id/complete", h.CompleteOrder, sid)

	administer := api.Group("/medication-orders", auth.RequireRole(auth.RoleTENS, auth.RoleMatrona))
	administer.POST("/:id/administrations", h.RecordAdministration, sid)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return id, nil
}

// -- Catalog --

func (h *Handler) CreateMedication(c echo.Context) error {
	var m Medication
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreateMedication(c.Request().Context(), &m); err != nil {
		return apperr.ToHTTP(err)
	}
	m.Ref = h.ids.Encode(m.ID)
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) GetMedication(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	m, err := h.svc.GetMedication(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	m.Ref = h.ids.Encode(m.ID)
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListMedications(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListMedications(c.Request().Context(), c.QueryParam("all") != "true", pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	for _, m := range items {
		m.Ref = h.ids.Encode(m.ID)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateMedication(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var m Medication
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m.ID = id
	if err := h.svc.UpdateMedication(c.Request().Context(), &m); err != nil {
		return apperr.ToHTTP(err)
	}
	m.Ref = h.ids.Encode(m.ID)
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) DeactivateMedication(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeactivateMedication(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Orders --

func (h *Handler) CreateOrder(c echo.Context) error {
	var o Order
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreateOrder(c.Request().Context(), &o); err != nil {
		return apperr.ToHTTP(err)
	}
	o.Ref = h.ids.Encode(o.ID)
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) GetOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	o, err := h.svc.GetOrder(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	o.Ref = h.ids.Encode(o.ID)
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) ListOrders(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := OrderFilter{Status: c.QueryParam("status")}
	if ref := c.QueryParam("record"); ref != "" {
		id, err := h.ids.Decode(ref)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid record")
		}
		f.ObstetricRecordID = id
	}
	items, total, err := h.svc.ListOrders(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	for _, o := range items {
		o.Ref = h.ids.Encode(o.ID)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) SuspendOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	o, err := h.svc.SuspendOrder(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	o.Ref = h.ids.Encode(o.ID)
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) CompleteOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	o, err := h.svc.CompleteOrder(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	o.Ref = h.ids.Encode(o.ID)
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) RecordAdministration(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var a Administration
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a.OrderID = id
	if err := h.svc.RecordAdministration(c.Request().Context(), &a); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) ListAdministrations(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListAdministrations(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

// ListDue answers for ?at=<RFC3339>, defaulting to now.
func (h *Handler) ListDue(c echo.Context) error {
	at := time.Now()
	if s := c.QueryParam("at"); s != "" {
		var err error
		if at, err = time.Parse(time.RFC3339, s); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "at must be RFC3339")
		}
	}
	items, err := h.svc.ListDue(c.Request().Context(), at)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	for _, it := range items {
		it.Ref = h.ids.Encode(it.ID)
	}
	return c.JSON(http.StatusOK, items)
}
