// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrConflict signals a uniqueness violation on create or
// update, while ErrIntegrity marks an operation blocked by referential
// protection (deleting a baseline role, deleting the bootstrap user).
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist. Handlers
// should translate this into an HTTP 404 response (or 401 on auth paths).
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert or update collides with an
// existing unique value such as a username or email. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrIntegrity is returned when a delete is blocked by protection rules:
// baseline roles and the bootstrap admin user can never be removed.
// Handlers should translate this into an HTTP 403 or 409 response.
var ErrIntegrity = errors.New("integrity violation")
