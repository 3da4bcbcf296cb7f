package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/expeditor/backoffice/internal/model"
)

// ImportRepo applies bulk dictionary imports. Each Apply* call runs in a
// single transaction: either every row of the batch lands or none do, so a
// half-synchronized dictionary can never be observed. Rows are matched by
// their source key (1C GUID, station code, wagon number) with an explicit
// probe deciding between insert and update.
type ImportRepo struct{ DB *sql.DB }

func NewImportRepo(db *sql.DB) *ImportRepo { return &ImportRepo{DB: db} }

// Apply1C upserts the currencies and countries of one 1C payload.
// Returned counts are total rows written per dictionary.
func (r *ImportRepo) Apply1C(ctx context.Context, currencies []model.Currency, countries []model.Country) (int, int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range currencies {
		if err := upsertByGUID(ctx, tx, "currencies", c.GUID,
			"INSERT INTO currencies (guid,name,full_name,code) VALUES (?,?,?,?)",
			"UPDATE currencies SET name=?, full_name=?, code=? WHERE guid=?",
			c.Name, c.FullName, c.Code); err != nil {
			return 0, 0, fmt.Errorf("currency %s: %w", c.GUID, err)
		}
	}
	for _, c := range countries {
		if err := upsertByGUID(ctx, tx, "countries", c.GUID,
			"INSERT INTO countries (guid,name,full_name,code) VALUES (?,?,?,?)",
			"UPDATE countries SET name=?, full_name=?, code=? WHERE guid=?",
			c.Name, c.FullName, c.Code); err != nil {
			return 0, 0, fmt.Errorf("country %s: %w", c.GUID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return len(currencies), len(countries), nil
}

// upsertByGUID probes for an existing row by guid and then either inserts
// (guid first) or updates (guid last). args are the non-key columns in
// statement order.
func upsertByGUID(ctx context.Context, tx *sql.Tx, table, guid, insertQ, updateQ string, args ...interface{}) error {
	var id uint64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM "+table+" WHERE guid=? LIMIT 1", guid).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, insertQ, append([]interface{}{guid}, args...)...)
		return err
	case err != nil:
		return err
	default:
		_, err = tx.ExecContext(ctx, updateQ, append(args, guid)...)
		return err
	}
}

// ApplyDislocation upserts one tracking-provider snapshot: wagons keyed by
// number, stations keyed by railway code.
func (r *ImportRepo) ApplyDislocation(ctx context.Context, wagons []model.Wagon, stations []model.Station) (int, int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range stations {
		if s.Code == "" {
			continue
		}
		var id uint64
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM stations WHERE code=? LIMIT 1", s.Code).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO stations (guid,name,code) VALUES (?,?,?)", s.GUID, s.Name, s.Code); err != nil {
				return 0, 0, fmt.Errorf("station %s: %w", s.Code, err)
			}
		case err != nil:
			return 0, 0, err
		default:
			if _, err := tx.ExecContext(ctx,
				"UPDATE stations SET name=? WHERE code=?", s.Name, s.Code); err != nil {
				return 0, 0, fmt.Errorf("station %s: %w", s.Code, err)
			}
		}
	}

	for _, w := range wagons {
		var id uint64
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM wagons WHERE number=? LIMIT 1", w.Number).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO wagons (number,type_name,current_station,last_operation,last_operation_at,updated_at)
				 VALUES (?,?,?,?,?,NOW())`,
				w.Number, w.TypeName, w.CurrentStation, w.LastOperation, importNullTime(w.LastOperationAt)); err != nil {
				return 0, 0, fmt.Errorf("wagon %s: %w", w.Number, err)
			}
		case err != nil:
			return 0, 0, err
		default:
			if _, err := tx.ExecContext(ctx,
				`UPDATE wagons SET type_name=?, current_station=?, last_operation=?, last_operation_at=?, updated_at=NOW()
				 WHERE number=?`,
				w.TypeName, w.CurrentStation, w.LastOperation, importNullTime(w.LastOperationAt), w.Number); err != nil {
				return 0, 0, fmt.Errorf("wagon %s: %w", w.Number, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return len(wagons), len(stations), nil
}

func importNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
