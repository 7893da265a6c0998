package track

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/cclient/core"
)

var (
	// errors
	ErrNotFound = errors.New("track not found")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateTrack(ctx context.Context, trk Track, exec ...core.DBExecutor) (Track, error)
		QueryTracks(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Track, error)
		GetTrackByID(ctx context.Context, id int, exec ...core.DBExecutor) (Track, error)
		UpdateTrack(ctx context.Context, trk Track, exec ...core.DBExecutor) (Track, error)
		// DeleteTrack returns core.ErrReferenced while courses still belong to the track.
		DeleteTrack(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, in Input) (Track, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Track, error)
		GetByID(ctx context.Context, id int) (Track, error)
		Update(ctx context.Context, id int, in Input) (Track, error)
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

func (svc *service) Create(ctx context.Context, in Input) (Track, error) {
	trk := in.toTrack()
	trk.CreatedAt = nowFunc().UTC()
	return svc.repo.CreateTrack(ctx, trk)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Track, error) {
	return svc.repo.QueryTracks(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id int) (Track, error) {
	return svc.repo.GetTrackByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id int, in Input) (Track, error) {
	orig, err := svc.repo.GetTrackByID(ctx, id)
	if err != nil {
		return Track{}, err
	}
	trk := in.toTrack()
	trk.ID = orig.ID
	trk.CreatedAt = orig.CreatedAt
	return svc.repo.UpdateTrack(ctx, trk)
}

func (svc *service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteTrack(ctx, id)
}
