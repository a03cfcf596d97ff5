package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acadsys/teaching-load-api/internal/models"
	appErrors "github.com/acadsys/teaching-load-api/pkg/errors"
)

func draftAssignment(creatorID int64) *models.Assignment {
	return &models.Assignment{
		ID:            1,
		GroupID:       10,
		CourseID:      20,
		TeacherID:     30,
		State:         models.AssignmentActive,
		ApprovalState: models.ApprovalDraft,
		CreatorID:     &creatorID,
	}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, code, appErr.Code)
}

func TestDecideSubmitByCreatorAllowed(t *testing.T) {
	assignment := draftAssignment(7)
	decision, err := Decide(assignment, Actor{UserID: 7, Role: models.RoleCoordinator}, models.ActionSubmitForReview)
	require.NoError(t, err)
	require.Equal(t, DecisionAllowed, decision)
}

func TestDecideSubmitWrongRoleDenied(t *testing.T) {
	assignment := draftAssignment(7)
	_, err := Decide(assignment, Actor{UserID: 7, Role: models.RoleDepartmentHead}, models.ActionSubmitForReview)
	requireCode(t, err, appErrors.ErrForbiddenRole.Code)
}

func TestDecideSubmitWrongCreatorDenied(t *testing.T) {
	assignment := draftAssignment(7)
	_, err := Decide(assignment, Actor{UserID: 8, Role: models.RoleCoordinator}, models.ActionSubmitForReview)
	requireCode(t, err, appErrors.ErrForbiddenRole.Code)
}

func TestDecideSubmitUnknownCreatorDeferred(t *testing.T) {
	assignment := draftAssignment(0)
	assignment.CreatorID = nil
	decision, err := Decide(assignment, Actor{UserID: 8, Role: models.RoleCoordinator}, models.ActionSubmitForReview)
	require.NoError(t, err)
	require.Equal(t, DecisionDeferred, decision)
}

func TestDecideSubmitFromRejectedAllowed(t *testing.T) {
	assignment := draftAssignment(7)
	assignment.ApprovalState = models.ApprovalRejected
	decision, err := Decide(assignment, Actor{UserID: 7, Role: models.RoleCoordinator}, models.ActionSubmitForReview)
	require.NoError(t, err)
	require.Equal(t, DecisionAllowed, decision)
}

func TestDecideRoleCheckedBeforeState(t *testing.T) {
	// When both guards would fail, the role error wins.
	assignment := draftAssignment(7)
	assignment.ApprovalState = models.ApprovalApproved

	_, err := Decide(assignment, Actor{UserID: 9, Role: models.RoleCoordinator}, models.ActionReview)
	requireCode(t, err, appErrors.ErrForbiddenRole.Code)

	_, err = Decide(assignment, Actor{UserID: 9, Role: models.RoleDepartmentHead}, models.ActionReview)
	requireCode(t, err, appErrors.ErrStateConflict.Code)
}

func TestDecideReviewRequiresPendingState(t *testing.T) {
	assignment := draftAssignment(7)
	_, err := Decide(assignment, Actor{UserID: 9, Role: models.RoleDepartmentHead}, models.ActionReview)
	requireCode(t, err, appErrors.ErrStateConflict.Code)

	assignment.ApprovalState = models.ApprovalPendingReview
	decision, err := Decide(assignment, Actor{UserID: 9, Role: models.RoleDepartmentHead}, models.ActionReview)
	require.NoError(t, err)
	require.Equal(t, DecisionAllowed, decision)
}

func TestDecideFinalApproveFromReviewedStates(t *testing.T) {
	director := Actor{UserID: 3, Role: models.RoleDirector}

	for _, state := range []models.ApprovalState{models.ApprovalReviewed, models.ApprovalPendingApproval} {
		assignment := draftAssignment(7)
		assignment.ApprovalState = state
		decision, err := Decide(assignment, director, models.ActionFinalApprove)
		require.NoError(t, err)
		require.Equal(t, DecisionAllowed, decision)
	}

	assignment := draftAssignment(7)
	assignment.ApprovalState = models.ApprovalDraft
	_, err := Decide(assignment, director, models.ActionFinalApprove)
	requireCode(t, err, appErrors.ErrStateConflict.Code)
}

func TestDecideRejectByHeadOrDirector(t *testing.T) {
	assignment := draftAssignment(7)
	assignment.ApprovalState = models.ApprovalPendingReview

	for _, role := range []models.RoleID{models.RoleDepartmentHead, models.RoleDirector} {
		decision, err := Decide(assignment, Actor{UserID: 4, Role: role}, models.ActionReject)
		require.NoError(t, err)
		require.Equal(t, DecisionAllowed, decision)
	}

	_, err := Decide(assignment, Actor{UserID: 4, Role: models.RoleCoordinator}, models.ActionReject)
	requireCode(t, err, appErrors.ErrForbiddenRole.Code)
}

func TestDecideRestoreOnlyFromApproved(t *testing.T) {
	assignment := draftAssignment(7)
	assignment.ApprovalState = models.ApprovalApproved

	decision, err := Decide(assignment, Actor{UserID: 7, Role: models.RoleCoordinator}, models.ActionRestoreVersion)
	require.NoError(t, err)
	require.Equal(t, DecisionAllowed, decision)

	assignment.ApprovalState = models.ApprovalReviewed
	_, err = Decide(assignment, Actor{UserID: 7, Role: models.RoleCoordinator}, models.ActionRestoreVersion)
	requireCode(t, err, appErrors.ErrStateConflict.Code)
}

func TestDecideUnknownRoleDeniedEverything(t *testing.T) {
	assignment := draftAssignment(7)
	for _, action := range workflowActions {
		_, err := Decide(assignment, Actor{UserID: 7, Role: models.RoleNone}, action)
		requireCode(t, err, appErrors.ErrForbiddenRole.Code)

		_, err = Decide(assignment, Actor{UserID: 7, Role: models.RoleID(42)}, action)
		requireCode(t, err, appErrors.ErrForbiddenRole.Code)
	}
}

func TestDecideNilAssignment(t *testing.T) {
	_, err := Decide(nil, Actor{UserID: 7, Role: models.RoleCoordinator}, models.ActionSubmitForReview)
	requireCode(t, err, appErrors.ErrNotFound.Code)
}

func TestPermittedActionsPerRole(t *testing.T) {
	assignment := draftAssignment(7)
	assignment.ApprovalState = models.ApprovalPendingReview

	head := PermittedActions(assignment, Actor{UserID: 9, Role: models.RoleDepartmentHead})
	require.Equal(t, []models.WorkflowAction{models.ActionReview, models.ActionReject}, head)

	coordinator := PermittedActions(assignment, Actor{UserID: 7, Role: models.RoleCoordinator})
	require.Empty(t, coordinator)

	assignment.ApprovalState = models.ApprovalApproved
	director := PermittedActions(assignment, Actor{UserID: 3, Role: models.RoleDirector})
	require.Equal(t, []models.WorkflowAction{models.ActionRestoreVersion}, director)
}
