package repository

import (
	"context"
	"database/sql"

	"github.com/LAZYDOINDIA/LazyUI/internal/audit/domain"
)

// PostgresRepository stores audit logs in the session_audit table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	uid := sql.NullString{String: a.UserID, Valid: a.UserID != ""}
	role := sql.NullString{String: a.Role, Valid: a.Role != ""}
	meta := sql.NullString{String: a.Metadata, Valid: a.Metadata != ""}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO session_audit (id, user_id, action, role, source, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)`,
		a.ID, uid, a.Action, role, a.Source, meta, a.CreatedAt)
	return err
}

// List returns up to limit entries, newest first. Returns (nil, error) only on database errors.
func (r *PostgresRepository) List(ctx context.Context, userID string, limit int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, action, role, source, metadata::text, created_at
FROM session_audit
WHERE $1 = '' OR user_id = $1
ORDER BY created_at DESC
LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditLog
	for rows.Next() {
		var (
			a               domain.AuditLog
			uid, role, meta sql.NullString
		)
		if err := rows.Scan(&a.ID, &uid, &a.Action, &role, &a.Source, &meta, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.UserID, a.Role, a.Metadata = uid.String, role.String, meta.String
		out = append(out, &a)
	}
	return out, rows.Err()
}
