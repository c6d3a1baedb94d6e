package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core/activity"
)

type activityApi struct {
	svc      *activity.Service
	validate *validator.Validate
}

func registerActivityAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *activity.Service, validate *validator.Validate) {
	api := activityApi{svc: svc, validate: validate}

	ag := g.Group("/activities", authed...)
	ag.GET("", api.query)
	ag.POST("", api.create)
	ag.GET("/stats", api.stats)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update, managerMiddleware)
	ag.DELETE("/:id", api.destroy, managerMiddleware)
}

func (api *activityApi) query(ctx echo.Context) error {
	filter, err := bindActivityFilter(ctx)
	if err != nil {
		return err
	}
	acts, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying activities")
	}
	return ctx.JSON(http.StatusOK, acts)
}

func (api *activityApi) stats(ctx echo.Context) error {
	counts, err := api.svc.CountByType(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "counting activities")
	}
	return ctx.JSON(http.StatusOK, counts)
}

func (api *activityApi) retrieve(ctx echo.Context) error {
	act, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "fetching activity")
	}
	return ctx.JSON(http.StatusOK, act)
}

func (api *activityApi) create(ctx echo.Context) error {
	var data activity.NewActivity
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewActivity")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	act, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating activity")
	}
	return ctx.JSON(http.StatusCreated, act)
}

func (api *activityApi) update(ctx echo.Context) error {
	var data activity.UpdateActivity
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateActivity")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	act, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating activity")
	}
	return ctx.JSON(http.StatusOK, act)
}

func (api *activityApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting activity")
	}
	return ctx.NoContent(http.StatusNoContent)
}
