package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cclient/core/track"
)

var errNoTrackInCtx = errors.New("track object not found in echo.Context")

type trackApi struct {
	svc      track.Service
	validate *validator.Validate
}

func registerTrackAPI(g *echo.Group, auth echo.MiddlewareFunc, svc track.Service, validate *validator.Validate) {
	api := trackApi{svc: svc, validate: validate}

	rg := g.Group("/tracks", auth)
	rg.GET("", api.query)
	rg.POST("", api.create)

	// detail endpoints
	dg := rg.Group("/:id", objectMiddleware(func(ctx context.Context, id int) (interface{}, error) {
		return svc.GetByID(ctx, id)
	}))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

func (api *trackApi) getObject(ctx echo.Context) (track.Track, error) {
	obj, ok := ctx.Get(contextObjectKey).(track.Track)
	if !ok {
		return track.Track{}, errors.Wrap(errNoTrackInCtx, "retrieving object from context")
	}
	return obj, nil
}

// Handlers

func (api *trackApi) query(ctx echo.Context) error {
	filter := new(track.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errInvalidQuery
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	tracks, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying tracks")
	}
	return ctx.JSON(http.StatusOK, tracks)
}

func (api *trackApi) create(ctx echo.Context) error {
	var data track.Input
	if err := ctx.Bind(&data); err != nil {
		return errInvalidBody
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	obj, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating track")
	}
	return ctx.JSON(http.StatusCreated, obj)
}

func (api *trackApi) retrieve(ctx echo.Context) error {
	obj, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, obj)
}

// update applies a partial update: fields absent from the body keep their stored value.
func (api *trackApi) update(ctx echo.Context) error {
	obj, err := api.getObject(ctx)
	if err != nil {
		return err
	}

	data := track.InputFrom(obj)
	if err = ctx.Bind(&data); err != nil {
		return errInvalidBody
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	obj, err = api.svc.Update(ctx.Request().Context(), obj.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating track")
	}
	return ctx.JSON(http.StatusOK, obj)
}

func (api *trackApi) destroy(ctx echo.Context) error {
	obj, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), obj.ID); err != nil {
		return errors.Wrap(err, "deleting track")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Track deleted successfully"})
}
