package repository

import (
	"context"

	"github.com/LAZYDOINDIA/LazyUI/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// List returns the newest entries first. An empty userID lists every user.
	List(ctx context.Context, userID string, limit int32) ([]*domain.AuditLog, error)
}
