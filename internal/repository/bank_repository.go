package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/expeditor/backoffice/internal/model"
)

// BankRepo persists the `banks` dictionary.
type BankRepo struct{ DB *sql.DB }

func NewBankRepo(db *sql.DB) *BankRepo { return &BankRepo{DB: db} }

// List returns banks ordered by name with offset/limit paging.
func (r *BankRepo) List(ctx context.Context, offset, limit int) ([]model.Bank, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,guid,name,bic,address FROM banks ORDER BY name LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Bank
	for rows.Next() {
		var b model.Bank
		if err := rows.Scan(&b.ID, &b.GUID, &b.Name, &b.BIC, &b.Address); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetByID fetches one bank.
func (r *BankRepo) GetByID(ctx context.Context, id uint64) (model.Bank, error) {
	var b model.Bank
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,guid,name,bic,address FROM banks WHERE id=? LIMIT 1", id).
		Scan(&b.ID, &b.GUID, &b.Name, &b.BIC, &b.Address)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bank{}, ErrNotFound
	}
	return b, err
}

// Create inserts a new bank row; duplicate BIC/GUID surface as ErrConflict.
func (r *BankRepo) Create(ctx context.Context, b model.Bank) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO banks (guid,name,bic,address) VALUES (?,?,?,?)",
		b.GUID, b.Name, b.BIC, b.Address)
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

// Update overwrites a bank row by id.
func (r *BankRepo) Update(ctx context.Context, b model.Bank) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE banks SET name=?, bic=?, address=? WHERE id=?",
		b.Name, b.BIC, b.Address, b.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, b.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a bank row.
func (r *BankRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM banks WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
