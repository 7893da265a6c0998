package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cclient/core/invoice"
)

var errNoInvoiceInCtx = errors.New("invoice object not found in echo.Context")

type invoiceApi struct {
	svc      invoice.Service
	validate *validator.Validate
}

func registerInvoiceAPI(g *echo.Group, auth echo.MiddlewareFunc, svc invoice.Service, validate *validator.Validate) {
	api := invoiceApi{svc: svc, validate: validate}

	rg := g.Group("/invoices", auth)
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

func (api *invoiceApi) getObject(ctx echo.Context) (invoice.Invoice, error) {
	obj, ok := ctx.Get(contextObjectKey).(invoice.Invoice)
	if !ok {
		return invoice.Invoice{}, errors.Wrap(errNoInvoiceInCtx, "retrieving object from context")
	}
	return obj, nil
}

// Handlers

func (api *invoiceApi) query(ctx echo.Context) error {
	filter := new(invoice.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errInvalidQuery
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	invoices, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying invoices")
	}
	return ctx.JSON(http.StatusOK, invoices)
}

func (api *invoiceApi) create(ctx echo.Context) error {
	var data invoice.Input
	if err := ctx.Bind(&data); err != nil {
		return errInvalidBody
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	obj, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating invoice")
	}
	return ctx.JSON(http.StatusCreated, obj)
}

func (api *invoiceApi) retrieve(ctx echo.Context) error {
	obj, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, obj)
}

// update applies a partial update: fields absent from the body keep their stored value.
func (api *invoiceApi) update(ctx echo.Context) error {
	obj, err := api.getObject(ctx)
	if err != nil {
		return err
	}

	data := invoice.InputFrom(obj)
	if err = ctx.Bind(&data); err != nil {
		return errInvalidBody
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	obj, err = api.svc.Update(ctx.Request().Context(), obj.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating invoice")
	}
	return ctx.JSON(http.StatusOK, obj)
}

func (api *invoiceApi) destroy(ctx echo.Context) error {
	obj, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), obj.ID); err != nil {
		return errors.Wrap(err, "deleting invoice")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Invoice deleted successfully"})
}
