package models

// BulkBatch is a transient request creating several assignments against one
// group and curriculum plan. Items maps course id to teacher id, so a course
// can appear at most once by construction.
type BulkBatch struct {
	GroupID int64            `json:"group_id" validate:"required"`
	PlanID  int64            `json:"plan_id"`
	Items   map[int64]int64  `json:"items" validate:"required"`
	Notes   *string          `json:"notes,omitempty"`
	State   *AssignmentState `json:"state,omitempty"`
}

// BulkFailure reports one failed pair of a bulk creation.
type BulkFailure struct {
	CourseID  int64  `json:"course_id"`
	TeacherID int64  `json:"teacher_id"`
	Error     string `json:"error"`
}

// BulkResult itemizes the outcome of a bulk creation. Partial success is not
// an error: the call succeeds and the failures are listed per pair.
type BulkResult struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []BulkFailure `json:"failures"`
	Created   []Assignment  `json:"created"`
}
