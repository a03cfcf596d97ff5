package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/acadsys/teaching-load-api/internal/models"
)

// CourseRepository reads the course catalog.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns one course.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	const query = `SELECT id, career_id, name, code, credits FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns the course catalog, optionally narrowed to one career.
func (r *CourseRepository) List(ctx context.Context, careerID *int64) ([]models.Course, error) {
	query := `SELECT id, career_id, name, code, credits FROM courses`
	args := []interface{}{}
	if careerID != nil {
		query += ` WHERE career_id = $1`
		args = append(args, *careerID)
	}
	query += ` ORDER BY code ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// ListByCareer returns the courses belonging to a career, the only courses
// selectable when building a bulk batch for one of its groups.
func (r *CourseRepository) ListByCareer(ctx context.Context, careerID int64) ([]models.Course, error) {
	const query = `SELECT id, career_id, name, code, credits FROM courses WHERE career_id = $1 ORDER BY code ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, careerID); err != nil {
		return nil, fmt.Errorf("list courses by career: %w", err)
	}
	return courses, nil
}

// TeacherRepository reads the academic staff roster.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs the repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// FindByID returns one teacher.
func (r *TeacherRepository) FindByID(ctx context.Context, id int64) (*models.Teacher, error) {
	const query = `SELECT id, full_name, email, department_id, active FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// List returns active teachers.
func (r *TeacherRepository) List(ctx context.Context) ([]models.Teacher, error) {
	const query = `SELECT id, full_name, email, department_id, active FROM teachers WHERE active = TRUE ORDER BY full_name ASC`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// CareerRepository reads careers.
type CareerRepository struct {
	db *sqlx.DB
}

// NewCareerRepository constructs the repository.
func NewCareerRepository(db *sqlx.DB) *CareerRepository {
	return &CareerRepository{db: db}
}

// FindByID returns one career.
func (r *CareerRepository) FindByID(ctx context.Context, id int64) (*models.Career, error) {
	const query = `SELECT id, name, code, department_id FROM careers WHERE id = $1`
	var career models.Career
	if err := r.db.GetContext(ctx, &career, query, id); err != nil {
		return nil, err
	}
	return &career, nil
}

// List returns every career.
func (r *CareerRepository) List(ctx context.Context) ([]models.Career, error) {
	const query = `SELECT id, name, code, department_id FROM careers ORDER BY name ASC`
	var careers []models.Career
	if err := r.db.SelectContext(ctx, &careers, query); err != nil {
		return nil, fmt.Errorf("list careers: %w", err)
	}
	return careers, nil
}

// DepartmentRepository reads departments.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs the repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// List returns every department.
func (r *DepartmentRepository) List(ctx context.Context) ([]models.Department, error) {
	const query = `SELECT id, name, code, created_at FROM departments ORDER BY name ASC`
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}
