package model

import "time"

// Dictionary rows are reference data synchronized from the 1C ERP or the
// railway tracking provider. Every imported row carries the source system's
// GUID so repeated imports update in place instead of duplicating.

// Currency mirrors the `currencies` table (1C dictionary).
type Currency struct {
	ID       uint64
	GUID     string
	Name     string
	FullName string
	Code     string
}

// Country mirrors the `countries` table (1C dictionary).
type Country struct {
	ID       uint64
	GUID     string
	Name     string
	FullName string
	Code     string
}

// Bank mirrors the `banks` table.
type Bank struct {
	ID      uint64
	GUID    string
	Name    string
	BIC     string
	Address string
}

// Station mirrors the `stations` table (railway dictionary). Code is the
// station's railway network code as reported by the tracking provider.
type Station struct {
	ID   uint64
	GUID string
	Name string
	Code string
}

// Wagon mirrors the `wagons` table. Number is the eight-digit wagon number;
// dislocation imports update the last known station and operation.
type Wagon struct {
	ID              uint64
	Number          string
	TypeName        string
	CurrentStation  string
	LastOperation   string
	LastOperationAt *time.Time
	UpdatedAt       time.Time
}

// Contract mirrors the `contracts` table.
type Contract struct {
	ID        uint64
	GUID      string
	Number    string
	Name      string
	SignedAt  *time.Time
	ExpiresAt *time.Time
}
