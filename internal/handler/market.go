package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/service"
)

// MarketHandler serves /marketplace.
type MarketHandler struct {
	Market *service.MarketService
}

func NewMarketHandler(s *service.MarketService) *MarketHandler {
	return &MarketHandler{Market: s}
}

func (h *MarketHandler) CreateListing(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var in service.ProductListingInput
	if err := bind(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	l, err := h.Market.CreateListing(ctx, uid, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, presentProductListing(l))
}

func (h *MarketHandler) BrowseListings(c echo.Context) error {
	p := parsePage(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Market.BrowseListings(ctx, listingFilter(c), p)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, presentProductListings(rows), total, p)
}

func (h *MarketHandler) MyListings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	p := parsePage(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Market.MyListings(ctx, uid, listingFilter(c), p)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, presentProductListings(rows), total, p)
}

func (h *MarketHandler) GetListing(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	uid, _ := getUserID(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	l, err := h.Market.GetListing(ctx, uid, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, presentProductListing(l))
}

func (h *MarketHandler) UpdateListing(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	var in service.ProductListingInput
	if err := bind(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	l, err := h.Market.UpdateListing(ctx, uid, id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, presentProductListing(l))
}

func (h *MarketHandler) DeleteListing(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Market.DeleteListing(ctx, uid, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *MarketHandler) PlaceOrder(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var in service.OrderInput
	if err := bind(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.Market.PlaceOrder(ctx, uid, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *MarketHandler) ListOrders(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	p := parsePage(c)
	party, status := orderQuery(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Market.ListOrders(ctx, uid, party, status, p)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, rows, total, p)
}

func (h *MarketHandler) GetOrder(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.Market.GetOrder(ctx, uid, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *MarketHandler) TransitionOrder(ev model.OrderEvent) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, id, err := ownerAndID(c)
		if err != nil {
			return paramError(c, err)
		}
		var in service.TransitionInput
		if c.Request().ContentLength != 0 {
			if err := bind(c, &in); err != nil {
				return badRequest(c, err.Error())
			}
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		o, err := h.Market.TransitionOrder(ctx, uid, id, ev, in)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, o)
	}
}

func (h *MarketHandler) RateOrder(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	var in service.RateInput
	if err := bind(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.Market.RateOrder(ctx, uid, id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}
