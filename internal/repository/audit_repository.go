package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/acadsys/teaching-load-api/internal/models"
)

// AuditRepository persists the workflow audit trail.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog appends one audit row.
func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `
INSERT INTO audit_logs (user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at)
VALUES (:user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// ListByResource returns the trail for one resource, newest first.
func (r *AuditRepository) ListByResource(ctx context.Context, resource string, resourceID int64) ([]models.AuditLog, error) {
	const query = `
SELECT id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at
FROM audit_logs
WHERE resource = $1 AND resource_id = $2
ORDER BY created_at DESC`
	var logs []models.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, resource, resourceID); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
