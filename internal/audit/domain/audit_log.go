package domain

import "time"

// AuditLog is one recorded session transition.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Role      string
	Source    string
	Metadata  string // JSON; empty when none
	CreatedAt time.Time
}
