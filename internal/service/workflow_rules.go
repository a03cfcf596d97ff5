package service

import (
	"fmt"
	"strings"

	"github.com/acadsys/teaching-load-api/internal/models"
	appErrors "github.com/acadsys/teaching-load-api/pkg/errors"
)

// Actor identifies a caller for workflow guard evaluation.
type Actor struct {
	UserID int64
	Role   models.RoleID
}

// Decision is the outcome of pure guard evaluation.
type Decision int

const (
	DecisionDenied Decision = iota
	DecisionAllowed
	// DecisionDeferred allows submission of a draft whose creator is unknown.
	// The persistence-side check stays the authoritative gate; the audit row
	// records the deferral.
	DecisionDeferred
)

// actionRoles maps each action to the exact role set allowed to perform it.
// No role hierarchy or inheritance applies.
var actionRoles = map[models.WorkflowAction][]models.RoleID{
	models.ActionSubmitForReview: {models.RoleCoordinator},
	models.ActionReview:          {models.RoleDepartmentHead},
	models.ActionFinalApprove:    {models.RoleDirector},
	models.ActionReject:          {models.RoleDepartmentHead, models.RoleDirector},
	models.ActionRestoreVersion:  {models.RoleCoordinator, models.RoleDirector},
}

// actionStates lists the approval states each action may start from. The
// table is closed: no implicit transitions.
var actionStates = map[models.WorkflowAction][]models.ApprovalState{
	models.ActionSubmitForReview: {models.ApprovalDraft, models.ApprovalRejected},
	models.ActionReview:          {models.ApprovalPendingReview},
	models.ActionFinalApprove:    {models.ApprovalReviewed, models.ApprovalPendingApproval},
	models.ActionReject:          {models.ApprovalPendingReview, models.ApprovalReviewed, models.ApprovalPendingApproval},
	models.ActionRestoreVersion:  {models.ApprovalApproved},
}

// workflowActions is the fixed evaluation order for permitted-action queries.
var workflowActions = []models.WorkflowAction{
	models.ActionSubmitForReview,
	models.ActionReview,
	models.ActionFinalApprove,
	models.ActionReject,
	models.ActionRestoreVersion,
}

// Decide evaluates the transition guards in order: assignment and approval
// state sanity, exact role match, then creator identity for submission. It
// never mutates the assignment. Denials come back as typed errors so
// authorization failures and state conflicts surface distinctly.
func Decide(assignment *models.Assignment, actor Actor, action models.WorkflowAction) (Decision, error) {
	if assignment == nil {
		return DecisionDenied, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	if !assignment.ApprovalState.Valid() {
		return DecisionDenied, appErrors.Clone(appErrors.ErrStateConflict, "assignment has no approval state")
	}

	roles, ok := actionRoles[action]
	if !ok {
		return DecisionDenied, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("unknown workflow action %q", action))
	}
	if !containsRole(roles, actor.Role) {
		return DecisionDenied, appErrors.Clone(appErrors.ErrForbiddenRole,
			fmt.Sprintf("action %s requires role %s", action, roleNames(roles)))
	}
	if !containsState(actionStates[action], assignment.ApprovalState) {
		return DecisionDenied, appErrors.Clone(appErrors.ErrStateConflict,
			fmt.Sprintf("action %s is not permitted from state %s", action, assignment.ApprovalState))
	}

	if action == models.ActionSubmitForReview {
		if assignment.CreatorID == nil {
			return DecisionDeferred, nil
		}
		if *assignment.CreatorID != actor.UserID {
			return DecisionDenied, appErrors.Clone(appErrors.ErrForbiddenRole,
				"only the creating coordinator may submit this assignment")
		}
	}

	return DecisionAllowed, nil
}

// PermittedActions returns the actions the actor may take from the
// assignment's current state. Deferred allowance counts as permitted.
func PermittedActions(assignment *models.Assignment, actor Actor) []models.WorkflowAction {
	permitted := make([]models.WorkflowAction, 0, len(workflowActions))
	for _, action := range workflowActions {
		if decision, err := Decide(assignment, actor, action); err == nil && decision != DecisionDenied {
			permitted = append(permitted, action)
		}
	}
	return permitted
}

func containsRole(roles []models.RoleID, role models.RoleID) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func containsState(states []models.ApprovalState, state models.ApprovalState) bool {
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

func roleNames(roles []models.RoleID) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.DisplayName()
	}
	return strings.Join(names, " or ")
}
