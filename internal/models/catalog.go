package models

import (
	"strings"
	"time"
)

// Department groups careers under one administrative unit.
type Department struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Career is a degree program owned by a department.
type Career struct {
	ID           int64  `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	Code         string `db:"code" json:"code"`
	DepartmentID int64  `db:"department_id" json:"department_id"`
}

// SentinelCareer is the placeholder used whenever a group's career cannot be
// resolved, so downstream filtering and display never see a null career.
var SentinelCareer = Career{ID: 0, Name: "unspecified", Code: "N/A"}

// CurriculumPlan versions the course catalog of a career.
type CurriculumPlan struct {
	ID       int64  `db:"id" json:"id"`
	CareerID int64  `db:"career_id" json:"career_id"`
	Name     string `db:"name" json:"name"`
	Year     int    `db:"year" json:"year"`
}

// Course belongs to exactly one career.
type Course struct {
	ID       int64  `db:"id" json:"id"`
	CareerID int64  `db:"career_id" json:"career_id"`
	Name     string `db:"name" json:"name"`
	Code     string `db:"code" json:"code"`
	Credits  int    `db:"credits" json:"credits"`
}

// Teacher is a member of the academic staff.
type Teacher struct {
	ID           int64  `db:"id" json:"id"`
	FullName     string `db:"full_name" json:"full_name"`
	Email        string `db:"email" json:"email"`
	DepartmentID int64  `db:"department_id" json:"department_id"`
	Active       bool   `db:"active" json:"active"`
}

// Group is a course group (section) tied to a career and curriculum plan.
// Career and Plan are optional denormalized relations.
type Group struct {
	ID       int64           `json:"id"`
	Code     string          `json:"code"`
	CareerID *int64          `json:"career_id,omitempty"`
	PlanID   *int64          `json:"plan_id,omitempty"`
	Career   *Career         `json:"career,omitempty"`
	Plan     *CurriculumPlan `json:"plan,omitempty"`
}

// NormalizeCareer is the single normalization step for the group's nested
// career: a missing or blank-named career becomes the sentinel. Consumers can
// rely on Career being non-nil afterwards.
func (g *Group) NormalizeCareer() {
	if g.Career != nil && strings.TrimSpace(g.Career.Name) != "" {
		return
	}
	c := SentinelCareer
	g.Career = &c
}

// ResolvePlanID returns the group's curriculum plan: the direct reference
// wins, then the plan nested in the denormalized relation.
func (g *Group) ResolvePlanID() (int64, bool) {
	if g.PlanID != nil && *g.PlanID != 0 {
		return *g.PlanID, true
	}
	if g.Plan != nil && g.Plan.ID != 0 {
		return g.Plan.ID, true
	}
	return 0, false
}
