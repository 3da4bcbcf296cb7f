package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/expeditor/backoffice/internal/model"
)

// CurrencyRepo serves the `currencies` dictionary. Bulk synchronization
// from 1C goes through ImportRepo; this repository backs the API's own
// reads and the occasional manual correction.
type CurrencyRepo struct{ DB *sql.DB }

func NewCurrencyRepo(db *sql.DB) *CurrencyRepo { return &CurrencyRepo{DB: db} }

// List returns currencies ordered by name with offset/limit paging.
func (r *CurrencyRepo) List(ctx context.Context, offset, limit int) ([]model.Currency, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,guid,name,full_name,code FROM currencies ORDER BY name LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Currency
	for rows.Next() {
		var c model.Currency
		if err := rows.Scan(&c.ID, &c.GUID, &c.Name, &c.FullName, &c.Code); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByID fetches one currency.
func (r *CurrencyRepo) GetByID(ctx context.Context, id uint64) (model.Currency, error) {
	var c model.Currency
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,guid,name,full_name,code FROM currencies WHERE id=? LIMIT 1", id).
		Scan(&c.ID, &c.GUID, &c.Name, &c.FullName, &c.Code)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Currency{}, ErrNotFound
	}
	return c, err
}

// Create inserts a new currency row; a duplicate GUID or code surfaces as
// ErrConflict.
func (r *CurrencyRepo) Create(ctx context.Context, c model.Currency) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO currencies (guid,name,full_name,code) VALUES (?,?,?,?)",
		c.GUID, c.Name, c.FullName, c.Code)
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

// Update overwrites a currency row by id.
func (r *CurrencyRepo) Update(ctx context.Context, c model.Currency) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE currencies SET name=?, full_name=?, code=? WHERE id=?",
		c.Name, c.FullName, c.Code, c.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, c.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a currency row.
func (r *CurrencyRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM currencies WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
