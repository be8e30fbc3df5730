package signedid

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Middleware decodes the named route params in place, replacing each token
// with its decimal id so handlers can parse it normally. Tampered or
// malformed tokens answer 404.
func Middleware(s *Signer, params ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			names := c.ParamNames()
			values := c.ParamValues()
			for i, name := range names {
				if i >= len(values) || !contains(params, name) {
					continue
				}
				id, err := s.Decode(values[i])
				if err != nil {
					return echo.NewHTTPError(http.StatusNotFound, "not found")
				}
				values[i] = strconv.FormatInt(id, 10)
			}
			c.SetParamValues(values...)
			return next(c)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
