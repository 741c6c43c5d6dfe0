package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/farmhub/internal/middleware"
	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/repository"
	"github.com/iliyamo/farmhub/internal/service"
)

func newCtx(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{&service.ValidationError{Errors: []string{"name is required"}}, http.StatusBadRequest},
		{repository.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", repository.ErrNotFound), http.StatusNotFound},
		{repository.ErrForbidden, http.StatusForbidden},
		{repository.ErrEmailExists, http.StatusConflict},
		{repository.ErrConflict, http.StatusConflict},
		{repository.ErrInvalidTransition, http.StatusConflict},
		{repository.ErrInsufficientStock, http.StatusConflict},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrInvalidToken, http.StatusUnauthorized},
		{errNoUser, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		c, rec := newCtx(http.MethodGet, "/")
		require.NoError(t, respondError(c, tc.err))
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
	}
}

func TestRespondErrorValidationDetails(t *testing.T) {
	c, rec := newCtx(http.MethodPost, "/")
	require.NoError(t, respondError(c, &service.ValidationError{Errors: []string{"a", "b"}}))
	assert.JSONEq(t, `{"error":"validation failed","errors":["a","b"]}`, rec.Body.String())
}

func TestRespondErrorUnknownKeepsCause(t *testing.T) {
	c, _ := newCtx(http.MethodGet, "/")
	cause := errors.New("db exploded")
	err := respondError(c, cause)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusInternalServerError, he.Code)
	assert.Equal(t, cause, he.Internal)

	err = respondError(c, fmt.Errorf("query: %w", context.DeadlineExceeded))
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusGatewayTimeout, he.Code)
}

func TestParsePageClamps(t *testing.T) {
	c, _ := newCtx(http.MethodGet, "/?page=0&per_page=1000")
	p := parsePage(c)
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, model.MaxPerPage, p.PerPage)

	c, _ = newCtx(http.MethodGet, "/?page=3")
	p = parsePage(c)
	assert.Equal(t, 3, p.Number)
	assert.Equal(t, model.DefaultPerPage, p.PerPage)

	c, _ = newCtx(http.MethodGet, "/?page=9223372036854775807&per_page=100")
	p = parsePage(c)
	assert.Equal(t, model.MaxPage, p.Number)
	assert.Positive(t, p.Offset())
}

func TestRespondListEnvelope(t *testing.T) {
	c, rec := newCtx(http.MethodGet, "/")
	require.NoError(t, respondList[string](c, nil, 45, model.NewPage(2, 20)))
	assert.JSONEq(t, `{"data":[],"meta":{"page":2,"per_page":20,"total":45,"total_pages":3}}`, rec.Body.String())
}

func TestOwnerAndID(t *testing.T) {
	c, rec := newCtx(http.MethodGet, "/")
	c.SetParamNames("id")
	c.SetParamValues("7")
	_, _, err := ownerAndID(c)
	require.ErrorIs(t, err, errNoUser)
	require.NoError(t, paramError(c, err))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newCtx(http.MethodGet, "/")
	c.Set(middleware.CtxUserID, uint64(4))
	c.SetParamNames("id")
	c.SetParamValues("abc")
	_, _, err = ownerAndID(c)
	require.Error(t, err)
	require.NoError(t, paramError(c, err))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, _ = newCtx(http.MethodGet, "/")
	c.Set(middleware.CtxUserID, uint64(4))
	c.SetParamNames("id")
	c.SetParamValues("7")
	uid, id, err := ownerAndID(c)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), uid)
	assert.Equal(t, uint64(7), id)
}
