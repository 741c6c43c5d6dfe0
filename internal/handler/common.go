package handler // HTTP handlers: bind input, call a service, map the result

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/farmhub/internal/middleware"
	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/repository"
	"github.com/iliyamo/farmhub/internal/service"
)

// reqTimeout bounds the service call behind every handler.
const reqTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), reqTimeout)
}

var errNoUser = errors.New("missing user in context")

// getUserID returns the authenticated caller set by middleware.JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, errNoUser
	}
	return id, nil
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

// ownerAndID reads the caller and the :id path parameter.
func ownerAndID(c echo.Context) (uint64, uint64, error) {
	uid, err := getUserID(c)
	if err != nil {
		return 0, 0, err
	}
	id, err := parseID(c, "id")
	return uid, id, err
}

func queryUint(c echo.Context, name string) uint64 {
	n, _ := strconv.ParseUint(c.QueryParam(name), 10, 64)
	return n
}

// parsePage reads ?page= and ?per_page=; model.NewPage clamps them.
func parsePage(c echo.Context) model.Page {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	per, _ := strconv.Atoi(c.QueryParam("per_page"))
	return model.NewPage(page, per)
}

// listResponse is the envelope of every paginated endpoint.
type listResponse[T any] struct {
	Data []T            `json:"data"`
	Meta model.PageMeta `json:"meta"`
}

func respondList[T any](c echo.Context, items []T, total int, p model.Page) error {
	if items == nil {
		items = []T{}
	}
	return c.JSON(http.StatusOK, listResponse[T]{Data: items, Meta: p.Meta(total)})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// paramError answers 401 for a missing caller and 400 for a bad path
// parameter.
func paramError(c echo.Context, err error) error {
	if errors.Is(err, errNoUser) {
		return unauthorized(c)
	}
	return badRequest(c, err.Error())
}

var errBadBody = errors.New("invalid body")

// bind decodes the request body into v.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return errBadBody
	}
	return nil
}

// respondError maps service and repository errors to HTTP responses.
// Unknown errors become a 500 whose cause is kept on the echo.HTTPError
// for the request logger.
func respondError(c echo.Context, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "errors": verr.Errors})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, repository.ErrInsufficientStock),
		errors.Is(err, repository.ErrInvalidTransition),
		errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	case errors.Is(err, errNoUser):
		return unauthorized(c)
	case errors.Is(err, context.DeadlineExceeded):
		return &echo.HTTPError{Code: http.StatusGatewayTimeout, Message: echo.Map{"error": "timeout"}, Internal: err}
	}
	return &echo.HTTPError{Code: http.StatusInternalServerError, Message: echo.Map{"error": "internal error"}, Internal: err}
}
