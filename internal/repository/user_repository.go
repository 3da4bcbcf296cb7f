package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/expeditor/backoffice/internal/model"
)

// UserRepo persists identity records in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// bootstrapUserID is the id of the auto-created admin; that row can never
// be deleted.
const bootstrapUserID = 1

const userColumns = "id,username,email,password_hash,first_name,last_name,phone,address,company,role_id,is_active,is_verified,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.Phone, &u.Address, &u.Company,
		&u.RoleID, &u.IsActive, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// Create inserts a user and returns its id. Username and email collisions
// surface as ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u model.User) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (username,email,password_hash,first_name,last_name,phone,address,company,role_id,is_active,is_verified)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName,
		u.Phone, u.Address, u.Company, u.RoleID, u.IsActive, u.IsVerified)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns users ordered by id with offset/limit paging.
func (r *UserRepo) List(ctx context.Context, offset, limit int) ([]model.User, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
			&u.FirstName, &u.LastName, &u.Phone, &u.Address, &u.Company,
			&u.RoleID, &u.IsActive, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UserPatch is a typed partial update. Only non-nil fields are applied, so
// the merge is checked at compile time instead of reflecting over a map of
// changed attributes.
type UserPatch struct {
	Username     *string
	Email        *string
	PasswordHash *string
	FirstName    *string
	LastName     *string
	Phone        *string
	Address      *string
	Company      *string
	RoleID       *uint64
	IsActive     *bool
	IsVerified   *bool
}

// Update applies the present patch fields to one user row. Uniqueness
// collisions on username/email surface as ErrConflict; an empty patch is a
// no-op.
func (r *UserRepo) Update(ctx context.Context, id uint64, p UserPatch) error {
	sets := make([]string, 0, 11)
	args := make([]interface{}, 0, 12)
	add := func(col string, v interface{}) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if p.Username != nil {
		add("username", *p.Username)
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.PasswordHash != nil {
		add("password_hash", *p.PasswordHash)
	}
	if p.FirstName != nil {
		add("first_name", *p.FirstName)
	}
	if p.LastName != nil {
		add("last_name", *p.LastName)
	}
	if p.Phone != nil {
		add("phone", *p.Phone)
	}
	if p.Address != nil {
		add("address", *p.Address)
	}
	if p.Company != nil {
		add("company", *p.Company)
	}
	if p.RoleID != nil {
		add("role_id", *p.RoleID)
	}
	if p.IsActive != nil {
		add("is_active", *p.IsActive)
	}
	if p.IsVerified != nil {
		add("is_verified", *p.IsVerified)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ",")+", updated_at=NOW() WHERE id=?", args...)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Row may exist with identical values; confirm presence.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a user. The bootstrap admin (id 1) is protected and
// yields ErrIntegrity.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	if id == bootstrapUserID {
		return ErrIntegrity
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Empty reports whether the users table has no rows at all. Used once at
// startup to decide whether the bootstrap admin must be created.
func (r *UserRepo) Empty(ctx context.Context) (bool, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx, "SELECT id FROM users LIMIT 1").Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	return false, err
}
