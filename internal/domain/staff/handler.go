package staff

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
	svc     *Service
	ids     *signedid.Signer
	revoked *auth.TokenRevocationStore
}

func NewHandler(svc *Service, ids *signedid.Signer, revoked *auth.TokenRevocationStore) *Handler {
	return &Handler{svc: svc, ids: ids, revoked: revoked}
}

// RegisterAuthRoutes mounts login/logout. loginMW wraps the login route only
// (rate limiting).
func (h *Handler) RegisterAuthRoutes(api *echo.Group, loginMW ...echo.MiddlewareFunc) {
	api.POST("/auth/login", h.Login, loginMW...)
	api.POST("/auth/logout", h.Logout)
	api.GET("/auth/me", h.Me)
	api.POST("/me/telegram-link", h.CreateLinkCode)
	api.DELETE("/me/telegram-link", h.Unlink)
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	sid := signedid.Middleware(h.ids, "id")
	admin := api.Group("/staff", auth.RequireRole(auth.RoleAdmin))
	admin.POST("", h.Create)
	admin.GET("", h.List)
	admin.GET("/:id", h.Get, sid)
	admin.PUT("/:id", h.Update, sid)
	admin.DELETE("/:id", h.Deactivate, sid)
}

func (h *Handler) present(u *User) *User {
	u.Ref = h.ids.Encode(u.ID)
	return u
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return id, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	h.present(res.User)
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Logout(c echo.Context) error {
	claims, ok := c.Get("jwt_claims").(*auth.Claims)
	if ok && h.revoked != nil && claims.ExpiresAt != nil {
		h.revoked.Revoke(claims.ID, claims.ExpiresAt.Time)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Me(c echo.Context) error {
	uid := auth.UserIDFromContext(c.Request().Context())
	if uid == 0 {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"username": auth.UsernameFromContext(c.Request().Context()),
			"role":     auth.PrimaryRole(c.Request().Context()),
		})
	}
	u, err := h.svc.Get(c.Request().Context(), uid)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, h.present(u))
}

func (h *Handler) CreateLinkCode(c echo.Context) error {
	uid := auth.UserIDFromContext(c.Request().Context())
	if uid == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "a staff account is required")
	}
	lc, err := h.svc.NewLinkCode(c.Request().Context(), uid)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, lc)
}

func (h *Handler) Unlink(c echo.Context) error {
	uid := auth.UserIDFromContext(c.Request().Context())
	if uid == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "a staff account is required")
	}
	if err := h.svc.UnlinkTelegram(c.Request().Context(), uid); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateUserInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.svc.CreateUser(c.Request().Context(), in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, h.present(u))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	u, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, h.present(u))
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{Role: c.QueryParam("role"), ActiveOnly: c.QueryParam("active") == "true"}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	for _, u := range items {
		h.present(u)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in UpdateUserInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, h.present(u))
}

func (h *Handler) Deactivate(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if id == auth.UserIDFromContext(c.Request().Context()) {
		return echo.NewHTTPError(http.StatusConflict, "cannot deactivate your own account")
	}
	if err := h.svc.Deactivate(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
