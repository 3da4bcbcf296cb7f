package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/expeditor/backoffice/internal/model"
)

// CountryRepo serves reads of the `countries` dictionary; rows arrive
// exclusively through the 1C import (ImportRepo).
type CountryRepo struct{ DB *sql.DB }

func NewCountryRepo(db *sql.DB) *CountryRepo { return &CountryRepo{DB: db} }

// List returns countries ordered by name with offset/limit paging.
func (r *CountryRepo) List(ctx context.Context, offset, limit int) ([]model.Country, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,guid,name,full_name,code FROM countries ORDER BY name LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Country
	for rows.Next() {
		var c model.Country
		if err := rows.Scan(&c.ID, &c.GUID, &c.Name, &c.FullName, &c.Code); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByID fetches one country.
func (r *CountryRepo) GetByID(ctx context.Context, id uint64) (model.Country, error) {
	var c model.Country
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,guid,name,full_name,code FROM countries WHERE id=? LIMIT 1", id).
		Scan(&c.ID, &c.GUID, &c.Name, &c.FullName, &c.Code)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Country{}, ErrNotFound
	}
	return c, err
}
