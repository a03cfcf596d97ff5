package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/acadsys/teaching-load-api/internal/models"
)

// GroupRepository reads course groups with their denormalized relations.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs the repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

type groupRow struct {
	ID           int64          `db:"id"`
	Code         string         `db:"code"`
	CareerID     sql.NullInt64  `db:"career_id"`
	PlanID       sql.NullInt64  `db:"plan_id"`
	CareerName   sql.NullString `db:"career_name"`
	CareerCode   sql.NullString `db:"career_code"`
	DepartmentID sql.NullInt64  `db:"department_id"`
	PlanName     sql.NullString `db:"plan_name"`
	PlanYear     sql.NullInt64  `db:"plan_year"`
	PlanCareerID sql.NullInt64  `db:"plan_career_id"`
}

// GetByID returns one group with its career and plan relations populated when
// present. Career normalization is left to the caller's boundary adapter.
func (r *GroupRepository) GetByID(ctx context.Context, id int64) (*models.Group, error) {
	const query = `
SELECT g.id, g.code, g.career_id, g.plan_id,
       ca.name AS career_name, ca.code AS career_code, ca.department_id,
       p.name AS plan_name, p.year AS plan_year, p.career_id AS plan_career_id
FROM course_groups g
LEFT JOIN careers ca ON ca.id = g.career_id
LEFT JOIN curriculum_plans p ON p.id = g.plan_id
WHERE g.id = $1`
	var row groupRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return row.toGroup(), nil
}

func (row *groupRow) toGroup() *models.Group {
	group := &models.Group{ID: row.ID, Code: row.Code}
	if row.CareerID.Valid {
		id := row.CareerID.Int64
		group.CareerID = &id
		if row.CareerName.Valid {
			group.Career = &models.Career{
				ID:           id,
				Name:         row.CareerName.String,
				Code:         row.CareerCode.String,
				DepartmentID: row.DepartmentID.Int64,
			}
		}
	}
	if row.PlanID.Valid {
		id := row.PlanID.Int64
		group.PlanID = &id
		if row.PlanName.Valid {
			group.Plan = &models.CurriculumPlan{
				ID:       id,
				CareerID: row.PlanCareerID.Int64,
				Name:     row.PlanName.String,
				Year:     int(row.PlanYear.Int64),
			}
		}
	}
	return group
}

// ListByIDs fetches several groups at once, keyed by id.
func (r *GroupRepository) ListByIDs(ctx context.Context, ids []int64) (map[int64]*models.Group, error) {
	if len(ids) == 0 {
		return map[int64]*models.Group{}, nil
	}
	query, args, err := sqlx.In(`
SELECT g.id, g.code, g.career_id, g.plan_id,
       ca.name AS career_name, ca.code AS career_code, ca.department_id,
       p.name AS plan_name, p.year AS plan_year, p.career_id AS plan_career_id
FROM course_groups g
LEFT JOIN careers ca ON ca.id = g.career_id
LEFT JOIN curriculum_plans p ON p.id = g.plan_id
WHERE g.id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build group query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []groupRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	groups := make(map[int64]*models.Group, len(rows))
	for i := range rows {
		groups[rows[i].ID] = rows[i].toGroup()
	}
	return groups, nil
}
