package handler

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expeditor/backoffice/internal/repository"
)

func deleteRoleRequest(t *testing.T, h *RoleHandler, id string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/v1/roles/"+id, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, h.Delete(c))
	return rec
}

func TestRoleDeleteHandlerBaselineConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id,name,description FROM roles WHERE id=? LIMIT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}).
			AddRow(2, "user", "Regular user"))

	h := NewRoleHandler(repository.NewRoleRepo(db))
	rec := deleteRoleRequest(t, h, "2")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "baseline role")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleDeleteHandlerNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id,name,description FROM roles WHERE id=? LIMIT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}))

	h := NewRoleHandler(repository.NewRoleRepo(db))
	rec := deleteRoleRequest(t, h, "42")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
