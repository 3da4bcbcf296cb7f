package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/expeditor/backoffice/internal/model"
)

// WagonRepo serves reads of the `wagons` table. Dislocation imports
// (ImportRepo) upsert wagons keyed by their eight-digit number and refresh
// the last known station and operation.
type WagonRepo struct{ DB *sql.DB }

func NewWagonRepo(db *sql.DB) *WagonRepo { return &WagonRepo{DB: db} }

const wagonColumns = "id,number,type_name,current_station,last_operation,last_operation_at,updated_at"

// List returns wagons ordered by number with offset/limit paging.
func (r *WagonRepo) List(ctx context.Context, offset, limit int) ([]model.Wagon, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+wagonColumns+" FROM wagons ORDER BY number LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Wagon
	for rows.Next() {
		var w model.Wagon
		var opAt sql.NullTime
		if err := rows.Scan(&w.ID, &w.Number, &w.TypeName, &w.CurrentStation,
			&w.LastOperation, &opAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		if opAt.Valid {
			t := opAt.Time
			w.LastOperationAt = &t
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetByNumber fetches one wagon by its wagon number.
func (r *WagonRepo) GetByNumber(ctx context.Context, number string) (model.Wagon, error) {
	var w model.Wagon
	var opAt sql.NullTime
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+wagonColumns+" FROM wagons WHERE number=? LIMIT 1", number).
		Scan(&w.ID, &w.Number, &w.TypeName, &w.CurrentStation,
			&w.LastOperation, &opAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Wagon{}, ErrNotFound
	}
	if opAt.Valid {
		t := opAt.Time
		w.LastOperationAt = &t
	}
	return w, err
}
