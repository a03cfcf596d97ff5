package dto

import "github.com/acadsys/teaching-load-api/internal/models"

// CreateAssignmentRequest creates a draft assignment.
type CreateAssignmentRequest struct {
	GroupID   int64                   `json:"group_id" validate:"required"`
	CourseID  int64                   `json:"course_id" validate:"required"`
	TeacherID int64                   `json:"teacher_id" validate:"required"`
	State     *models.AssignmentState `json:"state,omitempty"`
	Notes     *string                 `json:"notes,omitempty"`
}

// UpdateDraftRequest edits a draft or rejected assignment prior to
// (re-)submission. Draft edits do not create versions.
type UpdateDraftRequest struct {
	TeacherID *int64                  `json:"teacher_id,omitempty"`
	State     *models.AssignmentState `json:"state,omitempty"`
	Notes     *string                 `json:"notes,omitempty"`
}

// ChangeSet is the optional partial change-set a reviewer may apply. The
// field set is closed: teacher, operational state, notes.
type ChangeSet struct {
	TeacherID *int64                  `json:"teacher_id,omitempty"`
	State     *models.AssignmentState `json:"state,omitempty"`
	Notes     *string                 `json:"notes,omitempty"`
}

// Empty reports whether no change is requested.
func (c *ChangeSet) Empty() bool {
	return c == nil || (c.TeacherID == nil && c.State == nil && c.Notes == nil)
}

// ReviewRequest carries the Department Head's review decision.
type ReviewRequest struct {
	Approved *bool      `json:"approved" validate:"required"`
	Notes    string     `json:"notes,omitempty"`
	Changes  *ChangeSet `json:"changes,omitempty"`
}

// DecisionRequest carries optional notes for final approval or explicit
// rejection.
type DecisionRequest struct {
	Notes string `json:"notes,omitempty"`
}

// AssignmentQuery filters assignment listings.
type AssignmentQuery struct {
	GroupID       *int64
	TeacherID     *int64
	ApprovalState string
	Page          int
	PageSize      int
}
