package obstetric

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

	read := api.Group("/obstetric-records", auth.RequireRole(auth.ClinicalRoles...))
	read.GET("", h.List)
	read.GET("/:id", h.Get, sid)
	read.GET("/:id/gestational-age", h.GestationalAge, sid)

	write := api.Group("/obstetric-records", auth.RequireRole(auth.RoleMatrona, auth.RoleMedico))
	write.POST("", h.Create)
	write.PUT("/:id", h.Update, sid)
	write.POST("/:id/close", h.Close, sid)
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
	var r Record
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
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

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{Status: c.QueryParam("status"), RiskLevel: c.QueryParam("risk_level")}
	if ref := c.QueryParam("patient"); ref != "" {
		id, err := h.ids.Decode(ref)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient")
		}
		f.PatientID = id
	}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	for _, r := range items {
		h.present(r)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
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

func (h *Handler) Close(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.Close(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, h.present(r))
}

// GestationalAge answers for ?at=YYYY-MM-DD, defaulting to today.
func (h *Handler) GestationalAge(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	at := time.Now()
	if s := c.QueryParam("at"); s != "" {
		if at, err = time.Parse(time.DateOnly, s); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "at must be YYYY-MM-DD")
		}
	}
	ga, err := h.svc.GestationalAge(c.Request().Context(), id, at)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, ga)
}
