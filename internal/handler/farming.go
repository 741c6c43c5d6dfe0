package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/report"
	"github.com/iliyamo/farmhub/internal/repository"
	"github.com/iliyamo/farmhub/internal/service"
)

// FarmingHandler serves /farming: fields, activities, harvests and
// materials.  Every route is scoped to the calling farmer.
type FarmingHandler struct {
	Farming *service.FarmingService
}

func NewFarmingHandler(s *service.FarmingService) *FarmingHandler {
	return &FarmingHandler{Farming: s}
}

// ---- fields ----

func (h *FarmingHandler) CreateField(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var in service.FieldInput
	if err := bind(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	f, err := h.Farming.CreateField(ctx, uid, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *FarmingHandler) ListFields(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	p := parsePage(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Farming.ListFields(ctx, uid, p)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, rows, total, p)
}

func (h *FarmingHandler) GetField(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	f, err := h.Farming.GetField(ctx, uid, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *FarmingHandler) UpdateField(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	var in service.FieldInput
	if err := bind(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	f, err := h.Farming.UpdateField(ctx, uid, id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *FarmingHandler) DeleteField(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Farming.DeleteField(ctx, uid, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- activities ----

func (h *FarmingHandler) CreateActivity(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var in service.ActivityInput
	if err := bind(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Farming.CreateActivity(ctx, uid, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *FarmingHandler) ListActivities(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	p := parsePage(c)
	f := repository.ActivityFilter{
		FieldID: queryUint(c, "field_id"),
		Status:  model.ActivityStatus(c.QueryParam("status")),
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Farming.ListActivities(ctx, uid, f, p)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, rows, total, p)
}

func (h *FarmingHandler) GetActivity(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Farming.GetActivity(ctx, uid, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *FarmingHandler) UpdateActivity(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	var in service.ActivityInput
	if err := bind(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Farming.UpdateActivity(ctx, uid, id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// TransitionActivity returns a handler firing event ("start", "complete"
// or "cancel") on the activity.
func (h *FarmingHandler) TransitionActivity(event string) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, id, err := ownerAndID(c)
		if err != nil {
			return paramError(c, err)
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		a, err := h.Farming.TransitionActivity(ctx, uid, id, event)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, a)
	}
}

func (h *FarmingHandler) DeleteActivity(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Farming.DeleteActivity(ctx, uid, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- harvests ----

// harvestFilter reads field_id, crop_type, from and to (YYYY-MM-DD).
func harvestFilter(c echo.Context) (repository.HarvestFilter, error) {
	f := repository.HarvestFilter{FieldID: queryUint(c, "field_id"), CropType: c.QueryParam("crop_type")}
	for name, dst := range map[string]*time.Time{"from": &f.From, "to": &f.To} {
		if v := c.QueryParam(name); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				return f, fmt.Errorf("%s must be YYYY-MM-DD", name)
			}
			*dst = t
		}
	}
	return f, nil
}

func (h *FarmingHandler) CreateHarvest(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var in service.HarvestInput
	if err := bind(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	hv, err := h.Farming.CreateHarvest(ctx, uid, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, hv)
}

func (h *FarmingHandler) ListHarvests(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	f, err := harvestFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	p := parsePage(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Farming.ListHarvests(ctx, uid, f, p)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, rows, total, p)
}

// ExportHarvests streams the caller's harvests as an xlsx workbook.
func (h *FarmingHandler) ExportHarvests(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	f, err := harvestFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	exp, err := h.Farming.ExportHarvests(ctx, uid, f)
	if err != nil {
		return respondError(c, err)
	}
	var buf bytes.Buffer
	if err := report.WriteHarvestWorkbook(&buf, exp.Harvests, exp.FieldNames); err != nil {
		return respondError(c, err)
	}
	name := fmt.Sprintf("harvests-%s.xlsx", time.Now().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, report.XLSXContentType, buf.Bytes())
}

func (h *FarmingHandler) GetHarvest(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	hv, err := h.Farming.GetHarvest(ctx, uid, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, hv)
}

func (h *FarmingHandler) UpdateHarvest(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	var in service.HarvestInput
	if err := bind(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	hv, err := h.Farming.UpdateHarvest(ctx, uid, id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, hv)
}

func (h *FarmingHandler) DeleteHarvest(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Farming.DeleteHarvest(ctx, uid, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- materials ----

func (h *FarmingHandler) CreateMaterial(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var in service.MaterialInput
	if err := bind(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Farming.CreateMaterial(ctx, uid, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, presentMaterial(m))
}

func (h *FarmingHandler) listMaterials(c echo.Context, lowOnly bool) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	p := parsePage(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Farming.ListMaterials(ctx, uid, lowOnly, p)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, presentMaterials(rows), total, p)
}

func (h *FarmingHandler) ListMaterials(c echo.Context) error { return h.listMaterials(c, false) }

func (h *FarmingHandler) LowStockMaterials(c echo.Context) error { return h.listMaterials(c, true) }

func (h *FarmingHandler) UpdateMaterial(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	var in service.MaterialInput
	if err := bind(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Farming.UpdateMaterial(ctx, uid, id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, presentMaterial(m))
}

type adjustReq struct {
	Delta *float64 `json:"delta"`
}

// AdjustMaterial adds delta (negative to consume) to the stock.
func (h *FarmingHandler) AdjustMaterial(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	var req adjustReq
	if err := bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.Delta == nil || *req.Delta == 0 {
		return badRequest(c, "delta must be a non-zero number")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Farming.AdjustMaterial(ctx, uid, id, *req.Delta)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, presentMaterial(m))
}

func (h *FarmingHandler) DeleteMaterial(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Farming.DeleteMaterial(ctx, uid, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
