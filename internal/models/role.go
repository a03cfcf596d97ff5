package models

// RoleID identifies a workflow role with a fixed, closed integer code. Any
// code outside the known set denies every workflow action. Free-text role
// names exist for display only and are never consulted for authorization.
type RoleID int

const (
	RoleDepartmentHead RoleID = 1
	RoleCoordinator    RoleID = 2
	RoleDirector       RoleID = 5

	// RoleNone is the deny-all value used when resolution fails.
	RoleNone RoleID = 0
)

// Known reports whether the code belongs to the closed role set.
func (r RoleID) Known() bool {
	switch r {
	case RoleDepartmentHead, RoleCoordinator, RoleDirector:
		return true
	}
	return false
}

// DisplayName returns a human-readable label. Display only.
func (r RoleID) DisplayName() string {
	switch r {
	case RoleDepartmentHead:
		return "Department Head"
	case RoleCoordinator:
		return "Career Coordinator"
	case RoleDirector:
		return "Department Director"
	}
	return "Unknown"
}
