package echoapi

import (
	"bytes"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/event"
)

const icsReminderMinutes = 60

type eventApi struct {
	svc      *event.Service
	conf     *core.Config
	validate *validator.Validate
}

func registerEventAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *event.Service, conf *core.Config, validate *validator.Validate) {
	api := eventApi{svc: svc, conf: conf, validate: validate}

	eg := g.Group("/events", authed...)
	eg.GET("", api.query)
	eg.POST("", api.create, managerMiddleware)
	eg.GET("/calendar", api.calendar)
	eg.GET("/calendar.ics", api.exportICS)
	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id", api.update, managerMiddleware)
	eg.DELETE("/:id", api.destroy, managerMiddleware)
}

func (api *eventApi) query(ctx echo.Context) error {
	filter, err := bindEventFilter(ctx, api.svc.Location())
	if err != nil {
		return err
	}
	events, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	return ctx.JSON(http.StatusOK, events)
}

// calendar returns the month grid of ?year=&month= (current month by default).
func (api *eventApi) calendar(ctx echo.Context) error {
	now := time.Now().In(api.svc.Location())

	year, err := queryInt(ctx, "year", now.Year())
	if err != nil {
		return err
	}
	month, err := queryInt(ctx, "month", int(now.Month()))
	if err != nil {
		return err
	}
	if month < 1 || month > 12 {
		return queryError("month", "must be between 1 and 12")
	}

	grid, err := api.svc.MonthGrid(ctx.Request().Context(), year, time.Month(month))
	if err != nil {
		return errors.Wrap(err, "building calendar")
	}
	return ctx.JSON(http.StatusOK, grid)
}

func (api *eventApi) exportICS(ctx echo.Context) error {
	filter, err := bindEventFilter(ctx, api.svc.Location())
	if err != nil {
		return err
	}
	events, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}

	domain := "localhost"
	if u, err := url.Parse(api.conf.FrontendBaseURL); err == nil && u.Hostname() != "" {
		domain = u.Hostname()
	}

	var buf bytes.Buffer
	opts := event.ICSOptions{
		CalendarName:    api.conf.AppName + " Events",
		Domain:          domain,
		ReminderMinutes: icsReminderMinutes,
	}
	if err := event.WriteICS(&buf, events, opts, time.Now()); err != nil {
		return errors.Wrap(err, "writing calendar")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="events.ics"`)
	return ctx.Blob(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	evt, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "fetching event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) create(ctx echo.Context) error {
	var data event.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	evt, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, evt)
}

func (api *eventApi) update(ctx echo.Context) error {
	var data event.UpdateEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	evt, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}
