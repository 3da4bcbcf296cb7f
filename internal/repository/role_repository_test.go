package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expeditor/backoffice/internal/model"
)

const (
	selectRoleByID   = "SELECT id,name,description FROM roles WHERE id=? LIMIT 1"
	selectRoleByName = "SELECT id,name,description FROM roles WHERE name=? LIMIT 1"
)

func roleRows(id uint64, name, desc string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "description"}).AddRow(id, name, desc)
}

func TestRoleDeleteBaselineRejected(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectRoleByID)).
		WillReturnRows(roleRows(1, model.RoleAdmin, "Administrator"))

	err = NewRoleRepo(db).Delete(context.Background(), 1)
	assert.ErrorIs(t, err, ErrIntegrity)

	// No transaction was opened: memberships and sessions stay untouched.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleDeleteUnknownRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectRoleByID)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}))

	err = NewRoleRepo(db).Delete(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleDeleteCascadeCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectRoleByID)).
		WillReturnRows(roleRows(5, "accountant", ""))
	mock.ExpectQuery(regexp.QuoteMeta(selectRoleByName)).
		WillReturnRows(roleRows(3, model.RoleGuest, "Guest"))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE user_sessions SET session_end=NOW").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE users SET role_id=").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM roles WHERE id=?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = NewRoleRepo(db).Delete(context.Background(), 5)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleDeleteCascadeRollsBackMidBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectRoleByID)).
		WillReturnRows(roleRows(5, "accountant", ""))
	mock.ExpectQuery(regexp.QuoteMeta(selectRoleByName)).
		WillReturnRows(roleRows(3, model.RoleGuest, "Guest"))

	// Sessions close, then the member reassignment dies: the whole cascade
	// must roll back so the closed sessions reappear with the role intact.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE user_sessions SET session_end=NOW").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE users SET role_id=").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err = NewRoleRepo(db).Delete(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reassign members")
	assert.NoError(t, mock.ExpectationsWereMet())
}
