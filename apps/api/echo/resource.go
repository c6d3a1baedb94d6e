package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/resource"
)

// room for the multipart envelope & form fields around the file
const multipartOverhead = 1 << 20

type resourceApi struct {
	svc      *resource.Service
	validate *validator.Validate
}

type (
	DownloadResponse struct {
		URL string `json:"url"`
	}

	uploadForm struct {
		Title       string `json:"title" validate:"required,notblank"`
		Description string `json:"description"`
		Category    string `json:"category" validate:"required,notblank"`
	}
)

func registerResourceAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *resource.Service, conf *core.Config, validate *validator.Validate) {
	api := resourceApi{svc: svc, validate: validate}

	uploadMiddleware := []echo.MiddlewareFunc{managerMiddleware}
	if conf.Files.MaxSize > 0 {
		limit := strconv.FormatInt(conf.Files.MaxSize+multipartOverhead, 10)
		uploadMiddleware = append(uploadMiddleware, middleware.BodyLimit(limit))
	}

	rg := g.Group("/resources", authed...)
	rg.GET("", api.query)
	rg.POST("", api.create, managerMiddleware)
	rg.GET("/categories", api.categories)
	rg.POST("/upload", api.upload, uploadMiddleware...)
	rg.GET("/:id", api.retrieve)
	rg.GET("/:id/download", api.download)
	rg.PUT("/:id", api.update, managerMiddleware)
	rg.DELETE("/:id", api.destroy, managerMiddleware)
}

func (api *resourceApi) query(ctx echo.Context) error {
	filter, err := bindResourceFilter(ctx)
	if err != nil {
		return err
	}
	resources, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying resources")
	}
	return ctx.JSON(http.StatusOK, resources)
}

func (api *resourceApi) categories(ctx echo.Context) error {
	counts, err := api.svc.Categories(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "counting resource categories")
	}
	return ctx.JSON(http.StatusOK, counts)
}

func (api *resourceApi) retrieve(ctx echo.Context) error {
	res, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "fetching resource")
	}
	return ctx.JSON(http.StatusOK, res)
}

// download returns a temporary download URL, or redirects to it with ?redirect=true.
func (api *resourceApi) download(ctx echo.Context) error {
	redirect, err := queryBool(ctx, "redirect")
	if err != nil {
		return err
	}
	url, err := api.svc.DownloadURL(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting download URL")
	}
	if redirect != nil && *redirect {
		return ctx.Redirect(http.StatusFound, url)
	}
	return ctx.JSON(http.StatusOK, DownloadResponse{URL: url})
}

func (api *resourceApi) create(ctx echo.Context) error {
	var data resource.NewResource
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResource")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating resource")
	}
	return ctx.JSON(http.StatusCreated, res)
}

// upload publishes a document resource from a multipart form: title, description, category, featured & file.
func (api *resourceApi) upload(ctx echo.Context) error {
	form := uploadForm{
		Title:       core.CleanString(ctx.FormValue("title")),
		Description: core.CleanString(ctx.FormValue("description")),
		Category:    core.CleanString(ctx.FormValue("category")),
	}
	if err := api.validate.Struct(form); err != nil {
		return err
	}
	featured := false
	if val := ctx.FormValue("featured"); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return core.NewFieldError("featured", "must be a boolean")
		}
		featured = b
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return core.NewFieldError("file", "this field is required")
		}
		return errors.Wrap(err, "reading uploaded file")
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	res, err := api.svc.Upload(ctx.Request().Context(), resource.NewUpload{
		Title:       form.Title,
		Description: form.Description,
		Category:    form.Category,
		Featured:    featured,
		Filename:    fh.Filename,
		Size:        fh.Size,
		File:        file,
	})
	if err != nil {
		return errors.Wrap(err, "uploading resource")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *resourceApi) update(ctx echo.Context) error {
	var data resource.UpdateResource
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateResource")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating resource")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *resourceApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting resource")
	}
	return ctx.NoContent(http.StatusNoContent)
}
