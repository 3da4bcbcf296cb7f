package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/expeditor/backoffice/internal/model"
)

// SessionRepo persists login sessions in `user_sessions`. The invariant it
// guards: for every user at most one row has session_end IS NULL. Upsert
// holds a row lock (SELECT ... FOR UPDATE) for the duration of its
// transaction so two concurrent logins for the same user serialize instead
// of racing into two active rows.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

const sessionColumns = "id,user_id,refresh_token,session_start,session_end,traffic,ip_address,device_info"

// GetActive returns the user's session row with a null end timestamp, or
// ErrNotFound when the user is logged out.
func (r *SessionRepo) GetActive(ctx context.Context, userID uint64) (model.Session, error) {
	var s model.Session
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM user_sessions WHERE user_id=? AND session_end IS NULL LIMIT 1",
		userID).
		Scan(&s.ID, &s.UserID, &s.RefreshToken, &s.SessionStart, &s.SessionEnd,
			&s.Traffic, &s.IPAddress, &s.DeviceInfo)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotFound
	}
	return s, err
}

// Upsert opens or refreshes the user's session in one atomic
// read-modify-write. An existing row (active or closed) is updated in
// place: new refresh token, reset start, cleared end marker, traffic
// accumulated. Absent a row, a fresh one is inserted. The FOR UPDATE read
// serializes concurrent logins for the same user at the database.
func (r *SessionRepo) Upsert(ctx context.Context, userID uint64, refreshToken, ip, userAgent string, trafficDelta int64) (model.Session, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Session{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var id uint64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM user_sessions WHERE user_id=? ORDER BY id LIMIT 1 FOR UPDATE",
		userID).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx,
			`INSERT INTO user_sessions (user_id,refresh_token,session_start,session_end,traffic,ip_address,device_info)
			 VALUES (?,?,NOW(),NULL,?,?,?)`,
			userID, refreshToken, trafficDelta, ip, userAgent)
		if err != nil {
			return model.Session{}, err
		}
		newID, err := res.LastInsertId()
		if err != nil {
			return model.Session{}, err
		}
		id = uint64(newID)
	case err != nil:
		return model.Session{}, err
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE user_sessions
			 SET refresh_token=?, session_start=NOW(), session_end=NULL,
			     traffic=traffic+?, ip_address=?, device_info=?
			 WHERE id=?`,
			refreshToken, trafficDelta, ip, userAgent, id); err != nil {
			return model.Session{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Session{}, err
	}
	return r.GetActive(ctx, userID)
}

// Close ends the user's active session: end timestamp set, refresh token
// cleared. Idempotent; closing an already-closed or missing session is a
// no-op.
func (r *SessionRepo) Close(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE user_sessions SET session_end=NOW(), refresh_token='' WHERE user_id=? AND session_end IS NULL",
		userID)
	return err
}

// AddTraffic adds delta bytes to the active session identified by its
// refresh token. A request carrying an already-invalidated token silently
// accounts nothing; traffic bookkeeping must never fail a request.
func (r *SessionRepo) AddTraffic(ctx context.Context, refreshToken string, delta int64) error {
	if refreshToken == "" || delta == 0 {
		return nil
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE user_sessions SET traffic=traffic+? WHERE refresh_token=? AND session_end IS NULL",
		delta, refreshToken)
	return err
}
