package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	c, rec := newCtx(http.MethodGet, "/healthz")
	require.NoError(t, Health(db)(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	c, rec = newCtx(http.MethodGet, "/healthz")
	require.NoError(t, Health(db)(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}
