package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cclient/core/dashboard"
)

func registerDashboardAPI(g *echo.Group, auth echo.MiddlewareFunc, svc dashboard.Service) {
	g.GET("/dashboard/stats", func(ctx echo.Context) error {
		stats, err := svc.Stats(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "computing dashboard stats")
		}
		return ctx.JSON(http.StatusOK, stats)
	}, auth)
}
