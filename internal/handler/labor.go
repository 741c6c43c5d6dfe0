package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/farmhub/internal/middleware"
	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/service"
)

// LaborHandler serves /labor: worker profiles, household workers, labor
// requests, assignments and the exchange balances.
type LaborHandler struct {
	Labor    *service.LaborService
	Exchange *service.ExchangeService
}

func NewLaborHandler(l *service.LaborService, x *service.ExchangeService) *LaborHandler {
	return &LaborHandler{Labor: l, Exchange: x}
}

// ---- worker profiles ----

func (h *LaborHandler) SaveProfile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var in service.WorkerProfileInput
	if err := bind(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Labor.SaveProfile(ctx, uid, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, presentWorkerProfile(p))
}

func (h *LaborHandler) GetProfile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Labor.GetProfile(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, presentWorkerProfile(p))
}

// ListWorkers lists available workers, best rated first.
func (h *LaborHandler) ListWorkers(c echo.Context) error {
	p := parsePage(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Labor.ListWorkers(ctx, c.QueryParam("skill"), p)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, presentWorkerProfiles(rows), total, p)
}

// ---- household workers ----

func (h *LaborHandler) CreateHouseholdWorker(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var in service.HouseholdWorkerInput
	if err := bind(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	w, err := h.Labor.CreateHouseholdWorker(ctx, uid, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *LaborHandler) ListHouseholdWorkers(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	p := parsePage(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Labor.ListHouseholdWorkers(ctx, uid, p)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, rows, total, p)
}

func (h *LaborHandler) UpdateHouseholdWorker(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	var in service.HouseholdWorkerInput
	if err := bind(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	w, err := h.Labor.UpdateHouseholdWorker(ctx, uid, id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, w)
}

func (h *LaborHandler) DeleteHouseholdWorker(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Labor.DeleteHouseholdWorker(ctx, uid, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- labor requests ----

func (h *LaborHandler) CreateRequest(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var in service.LaborRequestInput
	if err := bind(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	lr, err := h.Labor.CreateRequest(ctx, uid, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, lr)
}

// BrowseRequests lists open requests of other farmers.
func (h *LaborHandler) BrowseRequests(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	p := parsePage(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Labor.BrowseRequests(ctx, uid, c.QueryParam("compensation"), p)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, rows, total, p)
}

func (h *LaborHandler) MyRequests(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	p := parsePage(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Labor.MyRequests(ctx, uid, model.LaborRequestStatus(c.QueryParam("status")), p)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, rows, total, p)
}

func (h *LaborHandler) GetRequest(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	lr, err := h.Labor.GetRequest(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, lr)
}

func (h *LaborHandler) StartRequest(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	lr, err := h.Labor.StartRequest(ctx, uid, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, lr)
}

func (h *LaborHandler) CancelRequest(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	lr, err := h.Labor.CancelRequest(ctx, uid, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, lr)
}

// ---- assignments ----

// Offer attaches the caller to a request: a WORKER applies with their
// profile, a FARMER offers one of their household workers.
func (h *LaborHandler) Offer(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	var in service.OfferInput
	if c.Request().ContentLength != 0 {
		if err := bind(c, &in); err != nil {
			return badRequest(c, err.Error())
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Labor.Offer(ctx, uid, middleware.Role(c), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *LaborHandler) RequestAssignments(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	p := parsePage(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Labor.RequestAssignments(ctx, uid, id, p)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, rows, total, p)
}

func (h *LaborHandler) MyAssignments(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	p := parsePage(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Labor.MyAssignments(ctx, uid, p)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, rows, total, p)
}

type assignmentAction func(s *service.LaborService, c echo.Context, uid, id uint64) (model.LaborAssignment, error)

// assignment wraps one assignment action in the usual parse/respond steps.
func (h *LaborHandler) assignment(act assignmentAction) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, id, err := ownerAndID(c)
		if err != nil {
			return paramError(c, err)
		}
		a, err := act(h.Labor, c, uid, id)
		if err != nil {
			if errors.Is(err, errBadBody) {
				return badRequest(c, err.Error())
			}
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, a)
	}
}

func (h *LaborHandler) Accept() echo.HandlerFunc {
	return h.assignment(func(s *service.LaborService, c echo.Context, uid, id uint64) (model.LaborAssignment, error) {
		ctx, cancel := reqCtx(c)
		defer cancel()
		return s.Accept(ctx, uid, id)
	})
}

func (h *LaborHandler) Decline() echo.HandlerFunc {
	return h.assignment(func(s *service.LaborService, c echo.Context, uid, id uint64) (model.LaborAssignment, error) {
		ctx, cancel := reqCtx(c)
		defer cancel()
		return s.Decline(ctx, uid, id)
	})
}

func (h *LaborHandler) Withdraw() echo.HandlerFunc {
	return h.assignment(func(s *service.LaborService, c echo.Context, uid, id uint64) (model.LaborAssignment, error) {
		ctx, cancel := reqCtx(c)
		defer cancel()
		return s.Withdraw(ctx, uid, id)
	})
}

func (h *LaborHandler) Complete() echo.HandlerFunc {
	return h.assignment(func(s *service.LaborService, c echo.Context, uid, id uint64) (model.LaborAssignment, error) {
		var in service.CompleteInput
		if err := bind(c, &in); err != nil {
			return model.LaborAssignment{}, errBadBody
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		return s.Complete(ctx, uid, id, in)
	})
}

func (h *LaborHandler) Rate() echo.HandlerFunc {
	return h.assignment(func(s *service.LaborService, c echo.Context, uid, id uint64) (model.LaborAssignment, error) {
		var in service.RateInput
		if err := bind(c, &in); err != nil {
			return model.LaborAssignment{}, errBadBody
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		return s.RateAssignment(ctx, uid, id, in)
	})
}

// ---- exchange ----

func (h *LaborHandler) Balances(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Exchange.Balances(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	if rows == nil {
		rows = []service.Balance{}
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

func (h *LaborHandler) counterparty(c echo.Context) (uint64, uint64, error) {
	uid, err := getUserID(c)
	if err != nil {
		return 0, 0, err
	}
	other, err := parseID(c, "household_id")
	return uid, other, err
}

func (h *LaborHandler) Transactions(c echo.Context) error {
	uid, other, err := h.counterparty(c)
	if err != nil {
		return paramError(c, err)
	}
	p := parsePage(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Exchange.Transactions(ctx, uid, other, p)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, rows, total, p)
}

func (h *LaborHandler) Settle(c echo.Context) error {
	uid, other, err := h.counterparty(c)
	if err != nil {
		return paramError(c, err)
	}
	var in service.SettleInput
	if err := bind(c, &in); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Exchange.Settle(ctx, uid, other, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}
