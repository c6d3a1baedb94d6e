package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core/post"
	"github.com/trezcool/jamii/core/user"
)

const defaultFeedLimit = 20

type postApi struct {
	svc      *post.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerPostAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *post.Service, userSvc user.Service, validate *validator.Validate) {
	api := postApi{svc: svc, userSvc: userSvc, validate: validate}

	pg := g.Group("/posts", authed...)
	pg.GET("", api.query)
	pg.POST("", api.create)
	pg.POST("/:id/like", api.toggleLike)
	pg.DELETE("/:id", api.destroy)
}

// query returns the feed, newest first, with whether the current user likes each post.
func (api *postApi) query(ctx echo.Context) error {
	claims, err := ctxClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	limit, err := queryInt(ctx, "limit", defaultFeedLimit)
	if err != nil {
		return err
	}

	posts, err := api.svc.Query(ctx.Request().Context(), claims.Subject, limit)
	if err != nil {
		return errors.Wrap(err, "querying posts")
	}
	return ctx.JSON(http.StatusOK, posts)
}

func (api *postApi) create(ctx echo.Context) error {
	usr, err := ctxUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	var data post.NewPost
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPost")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Create(ctx.Request().Context(), data, post.Author{ID: usr.ID, Name: usr.Name})
	if err != nil {
		return errors.Wrap(err, "creating post")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *postApi) toggleLike(ctx echo.Context) error {
	claims, err := ctxClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	state, err := api.svc.ToggleLike(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "toggling post like")
	}
	return ctx.JSON(http.StatusOK, state)
}

// destroy deletes a post. Only its author or an admin may do so.
func (api *postApi) destroy(ctx echo.Context) error {
	claims, err := ctxClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	c := ctx.Request().Context()
	p, err := api.svc.Get(c, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "fetching post")
	}
	if p.Author != claims.Subject && !claims.IsAdmin {
		return errHttpForbidden
	}

	if err := api.svc.Delete(c, p.ID); err != nil {
		return errors.Wrap(err, "deleting post")
	}
	return ctx.NoContent(http.StatusNoContent)
}
