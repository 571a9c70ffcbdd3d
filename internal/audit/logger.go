// Package audit keeps a durable trail of session transitions alongside the session record.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LAZYDOINDIA/LazyUI/internal/audit/domain"
	auditrepo "github.com/LAZYDOINDIA/LazyUI/internal/audit/repository"
	"github.com/LAZYDOINDIA/LazyUI/internal/telemetry"
)

// Logger writes session events to the audit repository. It satisfies telemetry.EventEmitter so
// it can sit next to the OTel emitter.
type Logger struct {
	repo auditrepo.Repository
	now  func() time.Time
}

// NewLogger returns a Logger that persists to repo. A nil repo makes Emit a no-op.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Emit writes one audit log entry. The error is returned for EmitAsync to log; callers never
// depend on it.
func (l *Logger) Emit(ctx context.Context, event *telemetry.SessionEvent) error {
	if l == nil || l.repo == nil || event == nil {
		return nil
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = l.now()
	}
	source := event.Source
	if source == "" {
		source = "lazydo"
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    event.UserID,
		Action:    event.Type,
		Role:      event.Role,
		Source:    source,
		Metadata:  string(event.Metadata),
		CreatedAt: createdAt,
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("audit: record %s: %w", event.Type, err)
	}
	return nil
}

// Recent returns the newest entries for userID (all users when empty).
func (l *Logger) Recent(ctx context.Context, userID string, limit int32) ([]*domain.AuditLog, error) {
	if l == nil || l.repo == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	return l.repo.List(ctx, userID, limit)
}
