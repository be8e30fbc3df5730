package patient

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

	read := api.Group("/patients", auth.RequireRole(auth.RoleAdministrativo, auth.RoleMedico, auth.RoleMatrona,
		auth.RoleTENS, auth.RoleNeonatologo))
	read.GET("", h.List)
	read.GET("/by-rut/:rut", h.GetByRUT)
	read.GET("/:id", h.Get, sid)

	write := api.Group("/patients", auth.RequireRole(auth.RoleAdministrativo, auth.RoleMatrona, auth.RoleMedico))
	write.POST("", h.Intake)
	write.PUT("/:id", h.Update, sid)
	write.POST("/:id/discharge", h.Discharge, sid)
}

func (h *Handler) present(p *Patient) *Patient {
	p.Ref = h.ids.Encode(p.ID)
	return p
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return id, nil
}

func (h *Handler) Intake(c echo.Context) error {
	var in IntakeInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.Intake(c.Request().Context(), in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, h.present(p))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, h.present(p))
}

func (h *Handler) GetByRUT(c echo.Context) error {
	p, err := h.svc.GetByRUT(c.Request().Context(), c.Param("rut"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, h.present(p))
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{Query: c.QueryParam("q"), Status: c.QueryParam("status")}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	for _, p := range items {
		h.present(p)
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
	p, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, h.present(p))
}

func (h *Handler) Discharge(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Discharge(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, h.present(p))
}
