package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/repository"
	"github.com/iliyamo/farmhub/internal/service"
)

// SupplyHandler serves /supply_chain.
type SupplyHandler struct {
	Supply *service.SupplyService
}

func NewSupplyHandler(s *service.SupplyService) *SupplyHandler {
	return &SupplyHandler{Supply: s}
}

// listingFilter reads the browse filters shared by both marketplaces.
func listingFilter(c echo.Context) repository.ListingFilter {
	return repository.ListingFilter{
		Status:   c.QueryParam("status"),
		Category: c.QueryParam("category"),
		Query:    c.QueryParam("q"),
	}
}

// orderQuery reads ?as= and ?status= of the order lists.
func orderQuery(c echo.Context) (model.Party, model.OrderStatus) {
	return service.ParseParty(c.QueryParam("as")), model.OrderStatus(c.QueryParam("status"))
}

func (h *SupplyHandler) CreateListing(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var in service.ListingInput
	if err := bind(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	l, err := h.Supply.CreateListing(ctx, uid, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, l)
}

// BrowseListings is public: active listings of every supplier.
func (h *SupplyHandler) BrowseListings(c echo.Context) error {
	p := parsePage(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Supply.BrowseListings(ctx, listingFilter(c), p)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, rows, total, p)
}

func (h *SupplyHandler) MyListings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	p := parsePage(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Supply.MyListings(ctx, uid, listingFilter(c), p)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, rows, total, p)
}

// GetListing is public for active listings; owners also see inactive ones.
func (h *SupplyHandler) GetListing(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	uid, _ := getUserID(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	l, err := h.Supply.GetListing(ctx, uid, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *SupplyHandler) UpdateListing(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	var in service.ListingInput
	if err := bind(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	l, err := h.Supply.UpdateListing(ctx, uid, id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *SupplyHandler) DeleteListing(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Supply.DeleteListing(ctx, uid, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SupplyHandler) PlaceOrder(c echo.Context) error {
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
	o, err := h.Supply.PlaceOrder(ctx, uid, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *SupplyHandler) ListOrders(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	p := parsePage(c)
	party, status := orderQuery(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Supply.ListOrders(ctx, uid, party, status, p)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, rows, total, p)
}

func (h *SupplyHandler) GetOrder(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.Supply.GetOrder(ctx, uid, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// TransitionOrder returns the handler of POST /supply_chain/orders/:id/<event>.
func (h *SupplyHandler) TransitionOrder(ev model.OrderEvent) echo.HandlerFunc {
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
		res, err := h.Supply.TransitionOrder(ctx, uid, id, ev, in)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, presentSupplyResult(res))
	}
}
