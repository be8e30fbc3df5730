package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	RoleAdmin          = "ADMIN"
	RoleMedico         = "MEDICO"
	RoleMatrona        = "MATRONA"
	RoleTENS           = "TENS"
	RoleNeonatologo    = "NEONATOLOGO"
	RoleAdministrativo = "ADMINISTRATIVO"
)

// Roles lists every staff role in display order.
var Roles = []string{RoleAdmin, RoleMedico, RoleMatrona, RoleTENS, RoleNeonatologo, RoleAdministrativo}

// Clinical roles take part in a delivery team.
var ClinicalRoles = []string{RoleMedico, RoleMatrona, RoleTENS, RoleNeonatologo}

func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasRole reports whether roles satisfy any of required. ADMIN satisfies all.
func HasRole(roles []string, required ...string) bool {
	for _, has := range roles {
		if has == RoleAdmin {
			return true
		}
		for _, r := range required {
			if has == r {
				return true
			}
		}
	}
	return false
}

// RequireRole rejects callers holding none of roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if HasRole(RolesFromContext(c.Request().Context()), roles...) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
