package models

import "time"

// AssignmentState is the operational lifecycle, independent of approval.
type AssignmentState string

const (
	AssignmentActive    AssignmentState = "activa"
	AssignmentFinalized AssignmentState = "finalizada"
	AssignmentCancelled AssignmentState = "cancelada"
)

// Valid reports whether the state belongs to the closed set.
func (s AssignmentState) Valid() bool {
	switch s {
	case AssignmentActive, AssignmentFinalized, AssignmentCancelled:
		return true
	}
	return false
}

// ApprovalState is the workflow status of an assignment.
type ApprovalState string

const (
	ApprovalDraft           ApprovalState = "borrador"
	ApprovalPendingReview   ApprovalState = "pendiente_revision"
	ApprovalReviewed        ApprovalState = "revisada"
	ApprovalPendingApproval ApprovalState = "pendiente_aprobacion"
	ApprovalApproved        ApprovalState = "aprobada"
	ApprovalRejected        ApprovalState = "rechazada"
)

// Valid reports whether the state belongs to the closed set.
func (s ApprovalState) Valid() bool {
	switch s {
	case ApprovalDraft, ApprovalPendingReview, ApprovalReviewed,
		ApprovalPendingApproval, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// WorkflowAction enumerates the transition actions of the approval workflow.
type WorkflowAction string

const (
	ActionSubmitForReview WorkflowAction = "submit_for_review"
	ActionReview          WorkflowAction = "review"
	ActionFinalApprove    WorkflowAction = "final_approve"
	ActionReject          WorkflowAction = "reject"
	ActionRestoreVersion  WorkflowAction = "restore_version"
)

// Assignment binds a teacher to a course within a course group. ApprovalState
// and CurrentVersion change only as a side effect of a successful workflow
// transition, never directly.
type Assignment struct {
	ID             int64           `db:"id" json:"id"`
	GroupID        int64           `db:"group_id" json:"group_id"`
	CourseID       int64           `db:"course_id" json:"course_id"`
	TeacherID      int64           `db:"teacher_id" json:"teacher_id"`
	State          AssignmentState `db:"state" json:"state"`
	ApprovalState  ApprovalState   `db:"approval_state" json:"approval_state"`
	CurrentVersion int             `db:"current_version" json:"current_version"`
	CreatorID      *int64          `db:"creator_id" json:"creator_id,omitempty"`
	Notes          *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// AssignmentDetail enriches an assignment with read-only display relations.
type AssignmentDetail struct {
	Assignment
	GroupCode   string  `db:"group_code" json:"group_code"`
	CourseName  *string `db:"course_name" json:"course_name,omitempty"`
	CourseCode  *string `db:"course_code" json:"course_code,omitempty"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
	CareerID    *int64  `db:"career_id" json:"career_id,omitempty"`
	CareerName  *string `db:"career_name" json:"career_name,omitempty"`
	CareerCode  *string `db:"career_code" json:"career_code,omitempty"`
	PlanID      *int64  `db:"plan_id" json:"plan_id,omitempty"`
}

// AssignmentFilter constrains listing queries.
type AssignmentFilter struct {
	GroupID       *int64
	TeacherID     *int64
	ApprovalState *ApprovalState
	Page          int
	PageSize      int
}

// AssignmentSummary is the lightweight per-assignment entry inside a grouped
// view.
type AssignmentSummary struct {
	ID            int64           `json:"id"`
	CourseID      int64           `json:"course_id"`
	CourseName    string          `json:"course_name"`
	TeacherID     int64           `json:"teacher_id"`
	TeacherName   string          `json:"teacher_name"`
	State         AssignmentState `json:"state"`
	ApprovalState ApprovalState   `json:"approval_state"`
	Version       int             `json:"version"`
}

// GroupedAssignments is a derived, non-persisted aggregation of assignments
// by course group. The composite (GroupID, GroupCode) key guards against two
// in-flight records sharing a numeric id during transient states.
type GroupedAssignments struct {
	GroupID     int64               `json:"group_id"`
	GroupCode   string              `json:"group_code"`
	Career      Career              `json:"career"`
	Assignments []AssignmentSummary `json:"assignments"`
}
