package learner

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/cclient/core"
)

var (
	// errors
	ErrNotFound    = errors.New("learner not found")
	ErrEmailExists = errors.New("a learner with this email already exists")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CreateLearner returns ErrEmailExists when the email is taken.
		CreateLearner(ctx context.Context, lrn Learner, exec ...core.DBExecutor) (Learner, error)
		QueryLearners(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Learner, error)
		GetLearnerByID(ctx context.Context, id int, exec ...core.DBExecutor) (Learner, error)
		UpdateLearner(ctx context.Context, lrn Learner, exec ...core.DBExecutor) (Learner, error)
		// DeleteLearner returns core.ErrReferenced while invoices still belong to the learner.
		DeleteLearner(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, in Input) (Learner, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Learner, error)
		GetByID(ctx context.Context, id int) (Learner, error)
		Update(ctx context.Context, id int, in Input) (Learner, error)
		Delete(ctx context.Context, id int) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, in Input) (Learner, error) {
	now := nowFunc().UTC()
	lrn := in.toLearner(now)
	lrn.CreatedAt = now
	return svc.repo.CreateLearner(ctx, lrn)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Learner, error) {
	return svc.repo.QueryLearners(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id int) (Learner, error) {
	return svc.repo.GetLearnerByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id int, in Input) (Learner, error) {
	orig, err := svc.repo.GetLearnerByID(ctx, id)
	if err != nil {
		return Learner{}, err
	}
	lrn := in.toLearner(orig.DateJoined)
	lrn.ID = orig.ID
	lrn.CreatedAt = orig.CreatedAt
	return svc.repo.UpdateLearner(ctx, lrn)
}

func (svc *service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteLearner(ctx, id)
}
