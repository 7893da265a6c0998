package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cclient/core/admin"
)

const (
	bearerPrefix    = "Bearer "
	contextAdminKey = "admin"
)

// authorizer verifies the bearer token, then loads the admin it was issued for on every request.
// A missing token or a vanished account is a 401; a token that fails verification is a 403.
func authorizer(tokens TokenVerifier, svc admin.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, bearerPrefix) {
				return errTokenRequired
			}
			token := strings.TrimSpace(header[len(bearerPrefix):])
			if token == "" {
				return errTokenRequired
			}

			adminID, err := tokens.Verify(token)
			if err != nil {
				return errTokenInvalidExpired
			}
			adm, err := svc.GetByID(ctx.Request().Context(), adminID)
			if err != nil {
				if errors.Cause(err) == admin.ErrNotFound {
					return errTokenInvalid
				}
				return errors.Wrap(err, "loading authenticated admin")
			}
			ctx.Set(contextAdminKey, adm)
			return next(ctx)
		}
	}
}

func getContextAdmin(ctx echo.Context) (admin.Admin, bool) {
	adm, ok := ctx.Get(contextAdminKey).(admin.Admin)
	return adm, ok
}
