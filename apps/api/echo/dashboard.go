package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core/dashboard"
)

func registerDashboardAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *dashboard.Service) {
	g.GET("/dashboard", func(ctx echo.Context) error {
		overview, err := svc.Overview(ctx.Request().Context(), time.Now())
		if err != nil {
			return errors.Wrap(err, "building dashboard overview")
		}
		return ctx.JSON(http.StatusOK, overview)
	}, authed...)
}
