package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/cclient/core"
	"github.com/trezcool/cclient/core/dashboard"
)

const statsQuery = `SELECT
	(SELECT COUNT(*) FROM learners) AS total_learners,
	(SELECT COALESCE(SUM(amount), 0) FROM invoices WHERE status = 'paid') AS total_revenue,
	(SELECT COUNT(*) FROM courses WHERE status = 'active') AS active_courses,
	(SELECT COUNT(*) FROM invoices WHERE status = 'pending') AS pending_invoices`

type dashboardRepository struct {
	repository
}

var _ dashboard.Repository = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(exec core.DBExecutor) *dashboardRepository {
	return &dashboardRepository{repository{exec: exec}}
}

func (repo dashboardRepository) GetStats(ctx context.Context, exec ...core.DBExecutor) (dashboard.Stats, error) {
	var stats dashboard.Stats
	if err := repo.getExec(exec).GetContext(ctx, &stats, statsQuery); err != nil {
		return dashboard.Stats{}, errors.Wrap(err, "computing dashboard stats")
	}
	return stats, nil
}
