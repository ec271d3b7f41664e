package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/user"
)

// permissionMiddleware gates an endpoint on the role policy table.
func permissionMiddleware(action user.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if user.Allowed(claims.Role, action) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
