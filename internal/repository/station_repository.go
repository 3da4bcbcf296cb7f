package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/expeditor/backoffice/internal/model"
)

// StationRepo serves reads of the `stations` railway dictionary; rows are
// created and refreshed by the dislocation import (ImportRepo).
type StationRepo struct{ DB *sql.DB }

func NewStationRepo(db *sql.DB) *StationRepo { return &StationRepo{DB: db} }

// List returns stations ordered by name with offset/limit paging.
func (r *StationRepo) List(ctx context.Context, offset, limit int) ([]model.Station, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,guid,name,code FROM stations ORDER BY name LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Station
	for rows.Next() {
		var s model.Station
		if err := rows.Scan(&s.ID, &s.GUID, &s.Name, &s.Code); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByID fetches one station.
func (r *StationRepo) GetByID(ctx context.Context, id uint64) (model.Station, error) {
	var s model.Station
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,guid,name,code FROM stations WHERE id=? LIMIT 1", id).
		Scan(&s.ID, &s.GUID, &s.Name, &s.Code)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Station{}, ErrNotFound
	}
	return s, err
}
