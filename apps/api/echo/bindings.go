package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/activity"
	"github.com/trezcool/jamii/core/event"
	"github.com/trezcool/jamii/core/resource"
	"github.com/trezcool/jamii/core/user"
)

const (
	orderingParam = "ordering"
	dateLayout    = "2006-01-02"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	ord.Orderings = append(ord.Orderings, core.ParseOrderings(ctx.QueryParam(orderingParam))...)
}

// queryError returns a validation error on a query parameter.
func queryError(param, msg string) error {
	return core.NewFieldError(param, msg)
}

func queryInt(ctx echo.Context, param string, def int) (int, error) {
	val := ctx.QueryParam(param)
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0, queryError(param, "must be a positive integer")
	}
	return n, nil
}

func queryBool(ctx echo.Context, param string) (*bool, error) {
	val := ctx.QueryParam(param)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, queryError(param, "must be a boolean")
	}
	return &b, nil
}

// queryDate parses a YYYY-MM-DD or RFC 3339 date in loc.
func queryDate(ctx echo.Context, param string, loc *time.Location) (time.Time, error) {
	val := ctx.QueryParam(param)
	if val == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(dateLayout, val, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, queryError(param, "must be a date (YYYY-MM-DD)")
	}
	return t, nil
}

func queryTime(ctx echo.Context, param string) (time.Time, error) {
	val := ctx.QueryParam(param)
	if val == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, queryError(param, "must be an RFC 3339 timestamp")
	}
	return t, nil
}

func bindActivityFilter(ctx echo.Context) (activity.Filter, error) {
	filter := activity.Filter{
		Type:   core.CleanString(ctx.QueryParam("type")),
		Status: core.CleanString(ctx.QueryParam("status")),
	}
	var err error
	if filter.Limit, err = queryInt(ctx, "limit", 0); err != nil {
		return filter, err
	}
	filter.Offset, err = queryInt(ctx, "offset", 0)
	return filter, err
}

func bindEventFilter(ctx echo.Context, loc *time.Location) (event.Filter, error) {
	filter := event.Filter{
		Type:     core.CleanString(ctx.QueryParam("type")),
		Location: core.CleanString(ctx.QueryParam("location")),
	}
	var err error
	filter.Date, err = queryDate(ctx, "date", loc)
	return filter, err
}

func bindResourceFilter(ctx echo.Context) (resource.Filter, error) {
	filter := resource.Filter{
		Category: core.CleanString(ctx.QueryParam("category")),
		Type:     core.CleanString(ctx.QueryParam("type")),
		Search:   core.CleanString(ctx.QueryParam("search")),
		Sort:     core.CleanString(ctx.QueryParam("sort"), true /* lower */),
	}
	var err error
	filter.Featured, err = queryBool(ctx, "featured")
	return filter, err
}

func bindUserFilter(ctx echo.Context) (*user.QueryFilter, error) {
	filter := &user.QueryFilter{
		Search: ctx.QueryParam("search"),
		Roles:  ctx.QueryParams()["role"],
	}
	filter.Clean()

	var err error
	if filter.IsActive, err = queryBool(ctx, "is_active"); err != nil {
		return nil, err
	}
	if filter.CreatedFrom, err = queryTime(ctx, "created_from"); err != nil {
		return nil, err
	}
	if filter.CreatedTo, err = queryTime(ctx, "created_to"); err != nil {
		return nil, err
	}
	return filter, nil
}
