package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/expeditor/backoffice/internal/model"
)

// RoleRepo persists roles and implements the baseline seeding and the
// delete cascade.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// GetByID fetches a role by id.
func (r *RoleRepo) GetByID(ctx context.Context, id uint64) (model.Role, error) {
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,description FROM roles WHERE id=? LIMIT 1", id).
		Scan(&role.ID, &role.Name, &role.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Role{}, ErrNotFound
	}
	return role, err
}

// GetByName fetches a role by its unique name.
func (r *RoleRepo) GetByName(ctx context.Context, name string) (model.Role, error) {
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,description FROM roles WHERE name=? LIMIT 1", name).
		Scan(&role.ID, &role.Name, &role.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Role{}, ErrNotFound
	}
	return role, err
}

// GetOrSeed returns the role with the given name, creating it when absent.
// The first lookup against an empty roles table seeds all three baseline
// roles in one transaction; later lookups of unknown names insert just that
// name. This mirrors lazy dictionary initialization: no migration step is
// required before the first login.
func (r *RoleRepo) GetOrSeed(ctx context.Context, name string) (model.Role, error) {
	role, err := r.GetByName(ctx, name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.Role{}, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Role{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var any uint64
	err = tx.QueryRowContext(ctx, "SELECT id FROM roles LIMIT 1 FOR UPDATE").Scan(&any)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Empty table: seed the full baseline set once.
		seed := []model.Role{
			{Name: model.RoleAdmin, Description: "Administrator"},
			{Name: model.RoleUser, Description: "Regular user"},
			{Name: model.RoleGuest, Description: "Guest"},
		}
		for _, s := range seed {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO roles (name,description) VALUES (?,?)", s.Name, s.Description); err != nil {
				return model.Role{}, err
			}
		}
		if !model.BaselineRole(name) {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO roles (name,description) VALUES (?,?)", name, ""); err != nil {
				return model.Role{}, err
			}
		}
	case err != nil:
		return model.Role{}, err
	default:
		// Table already populated, only the requested name is missing.
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO roles (name,description) VALUES (?,?)", name, ""); err != nil {
			// A concurrent seeder may have won the race; fall through to re-read.
			if !strings.Contains(strings.ToLower(err.Error()), "1062") {
				return model.Role{}, err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Role{}, err
	}
	return r.GetByName(ctx, name)
}

// List returns roles ordered by id with offset/limit paging.
func (r *RoleRepo) List(ctx context.Context, offset, limit int) ([]model.Role, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,name,description FROM roles ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// Create inserts a new role; duplicate names surface as ErrConflict.
func (r *RoleRepo) Create(ctx context.Context, name, description string) (model.Role, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO roles (name,description) VALUES (?,?)", name, description)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.Role{}, ErrConflict
		}
		return model.Role{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Role{}, err
	}
	return model.Role{ID: uint64(id), Name: name, Description: description}, nil
}

// Delete removes a role. Baseline roles are protected (ErrIntegrity). For
// any other role, every member's active session is closed and the member is
// reassigned to "guest" before the role row goes away; the whole cascade is
// one transaction, so a failure mid-batch rolls everything back.
func (r *RoleRepo) Delete(ctx context.Context, id uint64) error {
	role, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if model.BaselineRole(role.Name) {
		return ErrIntegrity
	}

	guest, err := r.GetOrSeed(ctx, model.RoleGuest)
	if err != nil {
		return fmt.Errorf("resolve guest role: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Terminate sessions of every member first: their tokens carry the old
	// role name and must not stay refreshable.
	if _, err := tx.ExecContext(ctx,
		`UPDATE user_sessions SET session_end=NOW(), refresh_token=''
		 WHERE session_end IS NULL AND user_id IN (SELECT id FROM users WHERE role_id=?)`, id); err != nil {
		return fmt.Errorf("close member sessions: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET role_id=?, updated_at=NOW() WHERE role_id=?", guest.ID, id); err != nil {
		return fmt.Errorf("reassign members: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM roles WHERE id=?", id); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return tx.Commit()
}
