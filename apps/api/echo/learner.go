package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cclient/core/learner"
)

var errNoLearnerInCtx = errors.New("learner object not found in echo.Context")

type learnerApi struct {
	svc      learner.Service
	validate *validator.Validate
}

func registerLearnerAPI(g *echo.Group, auth echo.MiddlewareFunc, svc learner.Service, validate *validator.Validate) {
	api := learnerApi{svc: svc, validate: validate}

	rg := g.Group("/learners", auth)
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

func (api *learnerApi) getObject(ctx echo.Context) (learner.Learner, error) {
	obj, ok := ctx.Get(contextObjectKey).(learner.Learner)
	if !ok {
		return learner.Learner{}, errors.Wrap(errNoLearnerInCtx, "retrieving object from context")
	}
	return obj, nil
}

// Handlers

func (api *learnerApi) query(ctx echo.Context) error {
	filter := new(learner.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errInvalidQuery
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	learners, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying learners")
	}
	return ctx.JSON(http.StatusOK, learners)
}

func (api *learnerApi) create(ctx echo.Context) error {
	var data learner.Input
	if err := ctx.Bind(&data); err != nil {
		return errInvalidBody
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	obj, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating learner")
	}
	return ctx.JSON(http.StatusCreated, obj)
}

func (api *learnerApi) retrieve(ctx echo.Context) error {
	obj, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, obj)
}

// update applies a partial update: fields absent from the body keep their stored value.
func (api *learnerApi) update(ctx echo.Context) error {
	obj, err := api.getObject(ctx)
	if err != nil {
		return err
	}

	data := learner.InputFrom(obj)
	if err = ctx.Bind(&data); err != nil {
		return errInvalidBody
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	obj, err = api.svc.Update(ctx.Request().Context(), obj.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating learner")
	}
	return ctx.JSON(http.StatusOK, obj)
}

func (api *learnerApi) destroy(ctx echo.Context) error {
	obj, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), obj.ID); err != nil {
		return errors.Wrap(err, "deleting learner")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Learner deleted successfully"})
}
