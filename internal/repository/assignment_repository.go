package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/acadsys/teaching-load-api/internal/models"
)

// AssignmentRepository persists teaching-load assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentDetailColumns = `
a.id, a.group_id, a.course_id, a.teacher_id, a.state, a.approval_state,
a.current_version, a.creator_id, a.notes, a.created_at,
g.code AS group_code, g.plan_id AS plan_id,
co.name AS course_name, co.code AS course_code,
t.full_name AS teacher_name,
ca.id AS career_id, ca.name AS career_name, ca.code AS career_code`

const assignmentDetailJoins = `
FROM assignments a
JOIN course_groups g ON g.id = a.group_id
LEFT JOIN courses co ON co.id = a.course_id
LEFT JOIN teachers t ON t.id = a.teacher_id
LEFT JOIN careers ca ON ca.id = g.career_id`

// Create inserts a new draft assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.State == "" {
		assignment.State = models.AssignmentActive
	}
	if assignment.ApprovalState == "" {
		assignment.ApprovalState = models.ApprovalDraft
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `
INSERT INTO assignments (group_id, course_id, teacher_id, state, approval_state, current_version, creator_id, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`
	if err := r.db.GetContext(ctx, &assignment.ID, query,
		assignment.GroupID,
		assignment.CourseID,
		assignment.TeacherID,
		assignment.State,
		assignment.ApprovalState,
		assignment.CurrentVersion,
		assignment.CreatorID,
		assignment.Notes,
		assignment.CreatedAt,
	); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// GetByID returns the bare assignment row.
func (r *AssignmentRepository) GetByID(ctx context.Context, id int64) (*models.Assignment, error) {
	const query = `
SELECT id, group_id, course_id, teacher_id, state, approval_state, current_version, creator_id, notes, created_at
FROM assignments WHERE id = $1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// GetDetailByID returns one assignment with display relations.
func (r *AssignmentRepository) GetDetailByID(ctx context.Context, id int64) (*models.AssignmentDetail, error) {
	query := "SELECT " + assignmentDetailColumns + assignmentDetailJoins + " WHERE a.id = $1"
	var detail models.AssignmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns assignments matching the filter plus a total count.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.GroupID != nil {
		where += " AND a.group_id = " + arg(*filter.GroupID)
	}
	if filter.TeacherID != nil {
		where += " AND a.teacher_id = " + arg(*filter.TeacherID)
	}
	if filter.ApprovalState != nil {
		where += " AND a.approval_state = " + arg(string(*filter.ApprovalState))
	}

	var total int
	countQuery := "SELECT COUNT(*)" + assignmentDetailJoins + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}

	query := "SELECT " + assignmentDetailColumns + assignmentDetailJoins + where + " ORDER BY g.code ASC, a.id ASC"
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += " LIMIT " + arg(filter.PageSize) + " OFFSET " + arg((page-1)*filter.PageSize)
	}

	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, total, nil
}

// ExistsByGroupCourse checks whether the group already has an assignment for
// the course.
func (r *AssignmentRepository) ExistsByGroupCourse(ctx context.Context, groupID, courseID int64) (bool, error) {
	const query = `SELECT 1 FROM assignments WHERE group_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, groupID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check assignment uniqueness: %w", err)
	}
	return true, nil
}

// UpdateDraft persists draft edits (teacher, state, notes). Workflow columns
// are untouched.
func (r *AssignmentRepository) UpdateDraft(ctx context.Context, assignment *models.Assignment) error {
	const query = `UPDATE assignments SET teacher_id = $1, state = $2, notes = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, assignment.TeacherID, assignment.State, assignment.Notes, assignment.ID)
	if err != nil {
		return fmt.Errorf("update draft assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated draft rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApplyTransition persists the outcome of a successful workflow transition:
// the new approval state, the bumped version counter, and any reviewer
// changes already applied to the in-memory assignment.
func (r *AssignmentRepository) ApplyTransition(ctx context.Context, assignment *models.Assignment) error {
	const query = `
UPDATE assignments
SET approval_state = :approval_state,
    current_version = :current_version,
    teacher_id = :teacher_id,
    state = :state,
    notes = :notes
WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, assignment)
	if err != nil {
		return fmt.Errorf("apply assignment transition: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check transitioned rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
