package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/farmhub/internal/handler"
	"github.com/iliyamo/farmhub/internal/middleware"
	"github.com/iliyamo/farmhub/internal/model"
)

// orderEvents are the transitions exposed as POST /orders/:id/<event>.
var orderEvents = []model.OrderEvent{
	model.OrderEventConfirm,
	model.OrderEventReject,
	model.OrderEventShip,
	model.OrderEventDeliver,
	model.OrderEventComplete,
	model.OrderEventCancel,
}

// stockEvents change a listing's available quantity.
var stockEvents = map[model.OrderEvent]bool{
	model.OrderEventConfirm: true,
	model.OrderEventCancel:  true,
}

// RegisterTrade registers /supply_chain and /marketplace.  Listing
// browse is public and goes through the response cache; writes that
// change what browse returns invalidate it.  Middleware is attached per
// route because public and authenticated routes share a prefix.
func RegisterTrade(e *echo.Echo, s *handler.SupplyHandler, m *handler.MarketHandler, o Options) {
	auth := middleware.JWTAuth(o.JWTSecret)
	optional := middleware.OptionalJWT(o.JWTSecret)
	supplier := middleware.RequireRole(model.RoleSupplier)
	farmer := middleware.RequireRole(model.RoleFarmer)

	cache := middleware.NewResponseCache(o.Cache, o.Redis)
	supplyChanged := cache.Invalidate(middleware.CacheSupplyListings)
	productChanged := cache.Invalidate(middleware.CacheProductListings)

	// ---- Supply chain ----
	sc := e.Group("/supply_chain")
	sc.GET("/listings", s.BrowseListings, cache.Browse(middleware.CacheSupplyListings))
	sc.POST("/listings", s.CreateListing, auth, supplier, supplyChanged)
	sc.GET("/listings/mine", s.MyListings, auth, supplier)
	sc.GET("/listings/:id", s.GetListing, optional)
	sc.PATCH("/listings/:id", s.UpdateListing, auth, supplier, supplyChanged)
	sc.DELETE("/listings/:id", s.DeleteListing, auth, supplier, supplyChanged)

	sc.POST("/orders", s.PlaceOrder, auth, farmer)
	sc.GET("/orders", s.ListOrders, auth)
	sc.GET("/orders/:id", s.GetOrder, auth)
	for _, ev := range orderEvents {
		mw := []echo.MiddlewareFunc{auth}
		if stockEvents[ev] {
			mw = append(mw, supplyChanged)
		}
		sc.POST("/orders/:id/"+string(ev), s.TransitionOrder(ev), mw...)
	}

	// ---- Marketplace ----
	mk := e.Group("/marketplace")
	mk.GET("/listings", m.BrowseListings, cache.Browse(middleware.CacheProductListings))
	mk.POST("/listings", m.CreateListing, auth, farmer, productChanged)
	mk.GET("/listings/mine", m.MyListings, auth, farmer)
	mk.GET("/listings/:id", m.GetListing, optional)
	mk.PATCH("/listings/:id", m.UpdateListing, auth, farmer, productChanged)
	mk.DELETE("/listings/:id", m.DeleteListing, auth, farmer, productChanged)

	mk.POST("/orders", m.PlaceOrder, auth)
	mk.GET("/orders", m.ListOrders, auth)
	mk.GET("/orders/:id", m.GetOrder, auth)
	for _, ev := range orderEvents {
		mw := []echo.MiddlewareFunc{auth}
		if stockEvents[ev] {
			mw = append(mw, productChanged)
		}
		mk.POST("/orders/:id/"+string(ev), m.TransitionOrder(ev), mw...)
	}
	mk.POST("/orders/:id/rate", m.RateOrder, auth, productChanged)
}
