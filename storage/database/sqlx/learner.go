package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/cclient/core"
	"github.com/trezcool/cclient/core/learner"
)

const learnerColumns = "id, first_name, last_name, email, phone, gender, location, bio, track_id, status, amount_paid, date_joined, created_at"

type learnerRepository struct {
	repository
}

var _ learner.Repository = (*learnerRepository)(nil) // interface compliance check

func NewLearnerRepository(exec core.DBExecutor) *learnerRepository {
	return &learnerRepository{repository{exec: exec}}
}

func (repo learnerRepository) CreateLearner(ctx context.Context, lrn learner.Learner, exec ...core.DBExecutor) (learner.Learner, error) {
	exe := repo.getExec(exec)

	var id int
	q := rebind(exe, `INSERT INTO learners
		(first_name, last_name, email, phone, gender, location, bio, track_id, status, amount_paid, date_joined, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := exe.QueryRowxContext(
		ctx, q,
		lrn.FirstName, lrn.LastName, lrn.Email, lrn.Phone, lrn.Gender, lrn.Location, lrn.Bio,
		lrn.TrackID, lrn.Status, lrn.AmountPaid, lrn.DateJoined.UTC(), lrn.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return learner.Learner{}, trapWriteErr(err, learner.ErrEmailExists, "inserting learner")
	}
	return repo.GetLearnerByID(ctx, id, exe)
}

func (repo learnerRepository) QueryLearners(ctx context.Context, filter *learner.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]learner.Learner, error) {
	exe := repo.getExec(exec)

	var where whereClause
	if filter != nil {
		where.search(filter.Search, "first_name", "last_name", "email")
		if filter.TrackID > 0 {
			where.add("track_id = ?", filter.TrackID)
		}
		if filter.Status != "" {
			where.add("status = ?", filter.Status)
		}
	}
	q := "SELECT " + learnerColumns + " FROM learners" + where.String() + " ORDER BY " + orderBy(ordering, learner.OrderingFields)

	learners := make([]learner.Learner, 0)
	if err := exe.SelectContext(ctx, &learners, rebind(exe, q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying learners")
	}
	return learners, nil
}

func (repo learnerRepository) GetLearnerByID(ctx context.Context, id int, exec ...core.DBExecutor) (learner.Learner, error) {
	exe := repo.getExec(exec)

	var lrn learner.Learner
	err := exe.GetContext(ctx, &lrn, rebind(exe, "SELECT "+learnerColumns+" FROM learners WHERE id = ?"), id)
	if err != nil {
		return learner.Learner{}, trapNoRowsErr(err, learner.ErrNotFound, "finding learner")
	}
	return lrn, nil
}

func (repo learnerRepository) UpdateLearner(ctx context.Context, lrn learner.Learner, exec ...core.DBExecutor) (learner.Learner, error) {
	exe := repo.getExec(exec)

	q := rebind(exe, `UPDATE learners SET
		first_name = ?, last_name = ?, email = ?, phone = ?, gender = ?, location = ?, bio = ?,
		track_id = ?, status = ?, amount_paid = ?, date_joined = ?
		WHERE id = ?`)
	res, err := exe.ExecContext(
		ctx, q,
		lrn.FirstName, lrn.LastName, lrn.Email, lrn.Phone, lrn.Gender, lrn.Location, lrn.Bio,
		lrn.TrackID, lrn.Status, lrn.AmountPaid, lrn.DateJoined.UTC(), lrn.ID,
	)
	if err != nil {
		return learner.Learner{}, trapWriteErr(err, learner.ErrEmailExists, "updating learner")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return learner.Learner{}, learner.ErrNotFound
	}
	return repo.GetLearnerByID(ctx, lrn.ID, exe)
}

func (repo learnerRepository) DeleteLearner(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return deleteByID(ctx, repo.getExec(exec), "learners", id, learner.ErrNotFound)
}
