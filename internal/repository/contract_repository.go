package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/expeditor/backoffice/internal/model"
)

// ContractRepo reads the `contracts` table. Contracts arrive through the
// 1C import; the API only lists and fetches them.
type ContractRepo struct{ DB *sql.DB }

func NewContractRepo(db *sql.DB) *ContractRepo { return &ContractRepo{DB: db} }

const contractColumns = "id,guid,number,name,signed_at,expires_at"

// List returns contracts ordered by number with offset/limit paging.
func (r *ContractRepo) List(ctx context.Context, offset, limit int) ([]model.Contract, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+contractColumns+" FROM contracts ORDER BY number LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Contract
	for rows.Next() {
		c, err := scanContract(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByID fetches one contract.
func (r *ContractRepo) GetByID(ctx context.Context, id uint64) (model.Contract, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+contractColumns+" FROM contracts WHERE id=? LIMIT 1", id)
	c, err := scanContract(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contract{}, ErrNotFound
	}
	return c, err
}

func scanContract(scan func(...interface{}) error) (model.Contract, error) {
	var c model.Contract
	var signed, expires sql.NullTime
	if err := scan(&c.ID, &c.GUID, &c.Number, &c.Name, &signed, &expires); err != nil {
		return model.Contract{}, err
	}
	if signed.Valid {
		t := signed.Time
		c.SignedAt = &t
	}
	if expires.Valid {
		t := expires.Time
		c.ExpiresAt = &t
	}
	return c, nil
}
