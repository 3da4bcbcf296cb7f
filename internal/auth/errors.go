// Package auth implements the session-and-token core: credential
// verification, token issuing and the login/refresh/logout state machine.
// These sentinel values let handlers map failures onto HTTP statuses
// without inspecting error strings.
package auth

import "errors"

// ErrInvalidCredentials is returned when the username does not exist or
// the password does not match. The two cases are deliberately collapsed so
// the response does not reveal which part was wrong.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrAccountDisabled is returned when credentials are correct but the
// account's is_active flag is off.
var ErrAccountDisabled = errors.New("account disabled")

// ErrSessionNotFound is returned when a refresh is attempted for a user
// with no active session.
var ErrSessionNotFound = errors.New("no active session")

// ErrRefreshMismatch is returned when a presented refresh token does not
// match the one stored on the active session. A valid signature is not
// enough: the stored copy is the single source of truth.
var ErrRefreshMismatch = errors.New("refresh token mismatch")

// ErrReauthRequired is returned when the stored refresh token itself is
// expired or invalid. The session is closed as a side effect and the
// client has to log in again.
var ErrReauthRequired = errors.New("re-authentication required")
