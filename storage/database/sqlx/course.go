package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/cclient/core"
	"github.com/trezcool/cclient/core/course"
)

const courseColumns = "id, title, description, track_id, instructor, image, duration, students, status, technologies, created_at"

type courseRepository struct {
	repository
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{repository{exec: exec}}
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	exe := repo.getExec(exec)

	var id int
	q := rebind(exe, `INSERT INTO courses
		(title, description, track_id, instructor, image, duration, students, status, technologies, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := exe.QueryRowxContext(
		ctx, q,
		crs.Title, crs.Description, crs.TrackID, crs.Instructor, crs.Image, crs.Duration,
		crs.Students, crs.Status, crs.Technologies, crs.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return course.Course{}, trapWriteErr(err, nil, "inserting course")
	}
	return repo.GetCourseByID(ctx, id, exe)
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]course.Course, error) {
	exe := repo.getExec(exec)

	var where whereClause
	if filter != nil {
		where.search(filter.Search, "title", "instructor")
		if filter.TrackID > 0 {
			where.add("track_id = ?", filter.TrackID)
		}
		if filter.Status != "" {
			where.add("status = ?", filter.Status)
		}
	}
	q := "SELECT " + courseColumns + " FROM courses" + where.String() + " ORDER BY " + orderBy(ordering, course.OrderingFields)

	courses := make([]course.Course, 0)
	if err := exe.SelectContext(ctx, &courses, rebind(exe, q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id int, exec ...core.DBExecutor) (course.Course, error) {
	exe := repo.getExec(exec)

	var crs course.Course
	err := exe.GetContext(ctx, &crs, rebind(exe, "SELECT "+courseColumns+" FROM courses WHERE id = ?"), id)
	if err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return crs, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	exe := repo.getExec(exec)

	q := rebind(exe, `UPDATE courses SET
		title = ?, description = ?, track_id = ?, instructor = ?, image = ?, duration = ?,
		students = ?, status = ?, technologies = ?
		WHERE id = ?`)
	res, err := exe.ExecContext(
		ctx, q,
		crs.Title, crs.Description, crs.TrackID, crs.Instructor, crs.Image, crs.Duration,
		crs.Students, crs.Status, crs.Technologies, crs.ID,
	)
	if err != nil {
		return course.Course{}, trapWriteErr(err, nil, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourseByID(ctx, crs.ID, exe)
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return deleteByID(ctx, repo.getExec(exec), "courses", id, course.ErrNotFound)
}
