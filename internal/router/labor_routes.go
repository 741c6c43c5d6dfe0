package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/farmhub/internal/handler"
	"github.com/iliyamo/farmhub/internal/middleware"
	"github.com/iliyamo/farmhub/internal/model"
)

// RegisterLabor registers /labor.  Workers manage their profile and apply
// to paid requests; farmers act as households that post requests, offer
// household workers and keep exchange balances.
func RegisterLabor(e *echo.Echo, l *handler.LaborHandler, jwtSecret string) {
	g := e.Group("/labor", middleware.JWTAuth(jwtSecret))
	farmer := middleware.RequireRole(model.RoleFarmer)
	worker := middleware.RequireRole(model.RoleWorker)
	either := middleware.RequireRole(model.RoleFarmer, model.RoleWorker)

	// ---- Worker profiles ----
	g.PUT("/worker_profile", l.SaveProfile, worker)
	g.GET("/worker_profile", l.GetProfile, worker)
	g.GET("/workers", l.ListWorkers)

	// ---- Household workers ----
	g.POST("/household_workers", l.CreateHouseholdWorker, farmer)
	g.GET("/household_workers", l.ListHouseholdWorkers, farmer)
	g.PATCH("/household_workers/:id", l.UpdateHouseholdWorker, farmer)
	g.DELETE("/household_workers/:id", l.DeleteHouseholdWorker, farmer)

	// ---- Requests ----
	g.POST("/requests", l.CreateRequest, farmer)
	g.GET("/requests", l.BrowseRequests, either)
	g.GET("/requests/mine", l.MyRequests, farmer)
	g.GET("/requests/:id", l.GetRequest, either)
	g.POST("/requests/:id/start", l.StartRequest, farmer)
	g.POST("/requests/:id/cancel", l.CancelRequest, farmer)

	// ---- Assignments ----
	g.POST("/requests/:id/assignments", l.Offer, either)
	g.GET("/requests/:id/assignments", l.RequestAssignments, farmer)
	g.GET("/assignments/mine", l.MyAssignments, either)
	g.POST("/assignments/:id/accept", l.Accept(), farmer)
	g.POST("/assignments/:id/decline", l.Decline(), farmer)
	g.POST("/assignments/:id/withdraw", l.Withdraw(), either)
	g.POST("/assignments/:id/complete", l.Complete(), farmer)
	g.POST("/assignments/:id/rate", l.Rate(), farmer)

	// ---- Exchange ----
	g.GET("/exchanges", l.Balances, farmer)
	g.GET("/exchanges/:household_id/transactions", l.Transactions, farmer)
	g.POST("/exchanges/:household_id/settle", l.Settle, farmer)
}
