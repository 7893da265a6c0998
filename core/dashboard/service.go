// Package dashboard aggregates the figures shown on the back-office home page.
package dashboard

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/trezcool/cclient/core"
)

type Stats struct {
	TotalLearners   int             `json:"totalLearners" db:"total_learners"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue" db:"total_revenue"` // sum of paid invoices
	ActiveCourses   int             `json:"activeCourses" db:"active_courses"`
	PendingInvoices int             `json:"pendingInvoices" db:"pending_invoices"`
}

type (
	Repository interface {
		GetStats(ctx context.Context, exec ...core.DBExecutor) (Stats, error)
	}

	Service interface {
		Stats(ctx context.Context) (Stats, error)
	}

	service struct {
		repo Repository
	}
)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Stats returns the current figures, revenue rounded to cents.
func (svc *service) Stats(ctx context.Context) (Stats, error) {
	stats, err := svc.repo.GetStats(ctx)
	if err != nil {
		return Stats{}, err
	}
	// sqlite sums NUMERIC columns as REAL
	stats.TotalRevenue = stats.TotalRevenue.Round(2)
	return stats, nil
}
