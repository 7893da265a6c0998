package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/cclient/core"
	"github.com/trezcool/cclient/core/track"
)

const trackColumns = "id, name, description, price, duration, instructor, image_url, technologies, created_at"

type trackRepository struct {
	repository
}

var _ track.Repository = (*trackRepository)(nil) // interface compliance check

func NewTrackRepository(exec core.DBExecutor) *trackRepository {
	return &trackRepository{repository{exec: exec}}
}

func (repo trackRepository) CreateTrack(ctx context.Context, trk track.Track, exec ...core.DBExecutor) (track.Track, error) {
	exe := repo.getExec(exec)

	var id int
	q := rebind(exe, `INSERT INTO tracks (name, description, price, duration, instructor, image_url, technologies, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := exe.QueryRowxContext(
		ctx, q,
		trk.Name, trk.Description, trk.Price, trk.Duration, trk.Instructor, trk.ImageURL, trk.Technologies, trk.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return track.Track{}, trapWriteErr(err, nil, "inserting track")
	}
	return repo.GetTrackByID(ctx, id, exe)
}

func (repo trackRepository) QueryTracks(ctx context.Context, filter *track.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]track.Track, error) {
	exe := repo.getExec(exec)

	var where whereClause
	if filter != nil {
		where.search(filter.Search, "name", "instructor")
	}
	q := "SELECT " + trackColumns + " FROM tracks" + where.String() + " ORDER BY " + orderBy(ordering, track.OrderingFields)

	tracks := make([]track.Track, 0)
	if err := exe.SelectContext(ctx, &tracks, rebind(exe, q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying tracks")
	}
	return tracks, nil
}

func (repo trackRepository) GetTrackByID(ctx context.Context, id int, exec ...core.DBExecutor) (track.Track, error) {
	exe := repo.getExec(exec)

	var trk track.Track
	err := exe.GetContext(ctx, &trk, rebind(exe, "SELECT "+trackColumns+" FROM tracks WHERE id = ?"), id)
	if err != nil {
		return track.Track{}, trapNoRowsErr(err, track.ErrNotFound, "finding track")
	}
	return trk, nil
}

func (repo trackRepository) UpdateTrack(ctx context.Context, trk track.Track, exec ...core.DBExecutor) (track.Track, error) {
	exe := repo.getExec(exec)

	q := rebind(exe, `UPDATE tracks SET
		name = ?, description = ?, price = ?, duration = ?, instructor = ?, image_url = ?, technologies = ?
		WHERE id = ?`)
	res, err := exe.ExecContext(
		ctx, q,
		trk.Name, trk.Description, trk.Price, trk.Duration, trk.Instructor, trk.ImageURL, trk.Technologies, trk.ID,
	)
	if err != nil {
		return track.Track{}, trapWriteErr(err, nil, "updating track")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return track.Track{}, track.ErrNotFound
	}
	return repo.GetTrackByID(ctx, trk.ID, exe)
}

func (repo trackRepository) DeleteTrack(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return deleteByID(ctx, repo.getExec(exec), "tracks", id, track.ErrNotFound)
}
