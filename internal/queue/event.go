// Package queue defines message payloads exchanged over the message broker.
package queue

// DislocationImportedEvent is published after a wagon tracking snapshot has
// been applied to the database. Downstream consumers can log or notify
// without querying the primary database.
type DislocationImportedEvent struct {
	Provider    string `json:"provider"`
	Wagons      int    `json:"wagons"`
	Stations    int    `json:"stations"`
	RequestedBy uint64 `json:"requested_by"`
	ImportedAt  string `json:"imported_at"`
}
