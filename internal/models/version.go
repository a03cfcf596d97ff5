package models

import (
	"strconv"
	"time"
)

// Version is an immutable snapshot of an assignment's tracked fields at one
// workflow event. Versions are append-only: restore reads a snapshot and
// produces a new version, never mutating history.
type Version struct {
	ID            int64           `db:"id" json:"id"`
	AssignmentID  int64           `db:"assignment_id" json:"assignment_id"`
	Sequence      int             `db:"sequence" json:"sequence"`
	TeacherID     int64           `db:"teacher_id" json:"teacher_id"`
	State         AssignmentState `db:"state" json:"state"`
	ApprovalState ApprovalState   `db:"approval_state" json:"approval_state"`
	Notes         *string         `db:"notes" json:"notes,omitempty"`
	Reason        string          `db:"reason" json:"reason"`
	CreatedBy     int64           `db:"created_by" json:"created_by"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// VersionField names one entry of the fixed comparison field set.
type VersionField string

const (
	FieldTeacher       VersionField = "teacher"
	FieldState         VersionField = "state"
	FieldApprovalState VersionField = "approval_state"
	FieldNotes         VersionField = "notes"
)

// VersionFields is the closed, ordered field set every comparison reports.
var VersionFields = []VersionField{FieldTeacher, FieldState, FieldApprovalState, FieldNotes}

// FieldDiff reports one field of a pairwise version comparison.
type FieldDiff struct {
	Field   VersionField `json:"field"`
	Old     string       `json:"old"`
	New     string       `json:"new"`
	Changed bool         `json:"changed"`
}

// VersionDiff is the field-level comparison of two versions, directed from
// the first argument to the second regardless of chronological order.
type VersionDiff struct {
	AssignmentID  int64          `json:"assignment_id"`
	FromSequence  int            `json:"from_sequence"`
	ToSequence    int            `json:"to_sequence"`
	Fields        []FieldDiff    `json:"fields"`
	ChangedFields []VersionField `json:"changed_fields"`
}

// fieldValue renders a tracked field for comparison and display.
func (v *Version) fieldValue(field VersionField) string {
	switch field {
	case FieldTeacher:
		return strconv.FormatInt(v.TeacherID, 10)
	case FieldState:
		return string(v.State)
	case FieldApprovalState:
		return string(v.ApprovalState)
	case FieldNotes:
		if v.Notes == nil {
			return ""
		}
		return *v.Notes
	}
	return ""
}

// Diff compares v against other over the fixed field set.
func (v *Version) Diff(other *Version) VersionDiff {
	diff := VersionDiff{
		AssignmentID: v.AssignmentID,
		FromSequence: v.Sequence,
		ToSequence:   other.Sequence,
	}
	for _, field := range VersionFields {
		oldVal := v.fieldValue(field)
		newVal := other.fieldValue(field)
		fd := FieldDiff{Field: field, Old: oldVal, New: newVal, Changed: oldVal != newVal}
		diff.Fields = append(diff.Fields, fd)
		if fd.Changed {
			diff.ChangedFields = append(diff.ChangedFields, field)
		}
	}
	return diff
}
