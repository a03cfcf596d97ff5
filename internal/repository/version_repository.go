package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/acadsys/teaching-load-api/internal/models"
)

// VersionRepository persists the append-only assignment version ledger.
type VersionRepository struct {
	db *sqlx.DB
}

// NewVersionRepository constructs the repository.
func NewVersionRepository(db *sqlx.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// Create appends a version, assigning the next sequence number for the
// assignment. The row is never updated afterwards.
func (r *VersionRepository) Create(ctx context.Context, version *models.Version) error {
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}
	const query = `
INSERT INTO assignment_versions (assignment_id, sequence, teacher_id, state, approval_state, notes, reason, created_by, created_at)
VALUES ($1, (SELECT COALESCE(MAX(sequence), 0) + 1 FROM assignment_versions WHERE assignment_id = $1), $2, $3, $4, $5, $6, $7, $8)
RETURNING id, sequence`
	row := r.db.QueryRowxContext(ctx, query,
		version.AssignmentID,
		version.TeacherID,
		version.State,
		version.ApprovalState,
		version.Notes,
		version.Reason,
		version.CreatedBy,
		version.CreatedAt,
	)
	if err := row.Scan(&version.ID, &version.Sequence); err != nil {
		return fmt.Errorf("create assignment version: %w", err)
	}
	return nil
}

// ListByAssignment returns all versions ordered by sequence ascending. Each
// call is a fresh read.
func (r *VersionRepository) ListByAssignment(ctx context.Context, assignmentID int64) ([]models.Version, error) {
	const query = `
SELECT id, assignment_id, sequence, teacher_id, state, approval_state, notes, reason, created_by, created_at
FROM assignment_versions
WHERE assignment_id = $1
ORDER BY sequence ASC`
	var versions []models.Version
	if err := r.db.SelectContext(ctx, &versions, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list assignment versions: %w", err)
	}
	return versions, nil
}

// GetByID returns one version scoped to its assignment.
func (r *VersionRepository) GetByID(ctx context.Context, assignmentID, versionID int64) (*models.Version, error) {
	const query = `
SELECT id, assignment_id, sequence, teacher_id, state, approval_state, notes, reason, created_by, created_at
FROM assignment_versions
WHERE assignment_id = $1 AND id = $2`
	var version models.Version
	if err := r.db.GetContext(ctx, &version, query, assignmentID, versionID); err != nil {
		return nil, err
	}
	return &version, nil
}
