package echoapi

import (
	"context"

	"github.com/labstack/echo/v4"
)

const contextObjectKey = "object"

// objectMiddleware loads the record addressed by `:id` and stores it in the context under "object".
func objectMiddleware(load func(ctx context.Context, id int) (interface{}, error)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := pathID(ctx)
			if err != nil {
				return err
			}
			obj, err := load(ctx.Request().Context(), id)
			if err != nil {
				return err
			}
			ctx.Set(contextObjectKey, obj)
			return next(ctx)
		}
	}
}
