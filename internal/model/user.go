package model

import "time"

// User represents an account record in the `users` table. Each field
// corresponds to a column. JSON tags are omitted on purpose: handlers
// define their own response types with the fields they want to expose,
// so the password hash never leaks through serialization by accident.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  FirstName    – optional given name.
//  LastName     – optional family name.
//  Phone        – optional contact phone.
//  Address      – optional postal address.
//  Company      – optional company the user acts for.
//  RoleID       – foreign key into the roles table.
//  IsActive     – whether the account may log in.
//  IsVerified   – whether the account passed verification.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Address      string
	Company      string
	RoleID       uint64
	IsActive     bool
	IsVerified   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role represents a row in the `roles` table. Users reference a role via
// User.RoleID. The three baseline roles ("admin", "user", "guest") are
// seeded once and protected from deletion.
type Role struct {
	ID          uint64
	Name        string
	Description string
}

// Baseline role names. Seeded lazily on first lookup against an empty
// roles table; never deletable afterwards.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
	RoleGuest = "guest"
)

// BaselineRole reports whether name is one of the seeded, protected roles.
func BaselineRole(name string) bool {
	return name == RoleAdmin || name == RoleUser || name == RoleGuest
}

// Session models a row in the `user_sessions` table. At most one session
// per user has a null SessionEnd (the "active" session); the session
// repository enforces that inside a transaction.
//
// Fields:
//  ID           – primary key identifier.
//  UserID       – owner of the session.
//  RefreshToken – current refresh token; cleared when the session closes.
//  SessionStart – when the session was (re)opened.
//  SessionEnd   – when the session was closed (nil while active).
//  Traffic      – accumulated request+response bytes for the session.
//  IPAddress    – client address captured at login.
//  DeviceInfo   – User-Agent string captured at login.
type Session struct {
	ID           uint64
	UserID       uint64
	RefreshToken string
	SessionStart time.Time
	SessionEnd   *time.Time
	Traffic      int64
	IPAddress    string
	DeviceInfo   string
}

// Active reports whether the session is still open.
func (s Session) Active() bool { return s.SessionEnd == nil }
