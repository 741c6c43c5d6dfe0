package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/farmhub/internal/handler"
	"github.com/iliyamo/farmhub/internal/middleware"
	"github.com/iliyamo/farmhub/internal/model"
)

// RegisterFarming registers FARMER-scoped endpoints under /farming.
func RegisterFarming(e *echo.Echo, f *handler.FarmingHandler, jwtSecret string) {
	g := e.Group(
		"/farming",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleFarmer),
	)

	// ---- Fields ----
	g.POST("/fields", f.CreateField)
	g.GET("/fields", f.ListFields)
	g.GET("/fields/:id", f.GetField)
	g.PATCH("/fields/:id", f.UpdateField)
	g.DELETE("/fields/:id", f.DeleteField)

	// ---- Activities ----
	g.POST("/activities", f.CreateActivity)
	g.GET("/activities", f.ListActivities)
	g.GET("/activities/:id", f.GetActivity)
	g.PATCH("/activities/:id", f.UpdateActivity)
	g.DELETE("/activities/:id", f.DeleteActivity)
	for _, ev := range []string{"start", "complete", "cancel"} {
		g.POST("/activities/:id/"+ev, f.TransitionActivity(ev))
	}

	// ---- Harvests ----
	g.POST("/harvests", f.CreateHarvest)
	g.GET("/harvests", f.ListHarvests)
	g.GET("/harvests/export", f.ExportHarvests) // static segment wins over :id
	g.GET("/harvests/:id", f.GetHarvest)
	g.PATCH("/harvests/:id", f.UpdateHarvest)
	g.DELETE("/harvests/:id", f.DeleteHarvest)

	// ---- Materials ----
	g.POST("/materials", f.CreateMaterial)
	g.GET("/materials", f.ListMaterials)
	g.GET("/materials/low_stock", f.LowStockMaterials)
	g.PATCH("/materials/:id", f.UpdateMaterial)
	g.DELETE("/materials/:id", f.DeleteMaterial)
	g.POST("/materials/:id/adjust", f.AdjustMaterial)
}
