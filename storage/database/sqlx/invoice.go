package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/cclient/core"
	"github.com/trezcool/cclient/core/invoice"
)

const invoiceColumns = "id, invoice_number, learner_id, track_id, course_id, amount, status, due_date, paid_date, notes, created_at"

type invoiceRepository struct {
	repository
}

var _ invoice.Repository = (*invoiceRepository)(nil) // interface compliance check

func NewInvoiceRepository(exec core.DBExecutor) *invoiceRepository {
	return &invoiceRepository{repository{exec: exec}}
}

func (repo invoiceRepository) CreateInvoice(ctx context.Context, inv invoice.Invoice, exec ...core.DBExecutor) (invoice.Invoice, error) {
	exe := repo.getExec(exec)

	var id int
	q := rebind(exe, `INSERT INTO invoices
		(invoice_number, learner_id, track_id, course_id, amount, status, due_date, paid_date, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := exe.QueryRowxContext(
		ctx, q,
		inv.InvoiceNumber, inv.LearnerID, inv.TrackID, inv.CourseID, inv.Amount, inv.Status,
		inv.DueDate, inv.PaidDate, inv.Notes, inv.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return invoice.Invoice{}, trapWriteErr(err, invoice.ErrDuplicateNumber, "inserting invoice")
	}
	return repo.GetInvoiceByID(ctx, id, exe)
}

func (repo invoiceRepository) QueryInvoices(ctx context.Context, filter *invoice.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]invoice.Invoice, error) {
	exe := repo.getExec(exec)

	var where whereClause
	if filter != nil {
		where.search(filter.Search, "invoice_number", "notes")
		if filter.Status != "" {
			where.add("status = ?", filter.Status)
		}
		if filter.LearnerID > 0 {
			where.add("learner_id = ?", filter.LearnerID)
		}
	}
	q := "SELECT " + invoiceColumns + " FROM invoices" + where.String() + " ORDER BY " + orderBy(ordering, invoice.OrderingFields)

	invoices := make([]invoice.Invoice, 0)
	if err := exe.SelectContext(ctx, &invoices, rebind(exe, q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying invoices")
	}
	return invoices, nil
}

func (repo invoiceRepository) GetInvoiceByID(ctx context.Context, id int, exec ...core.DBExecutor) (invoice.Invoice, error) {
	exe := repo.getExec(exec)

	var inv invoice.Invoice
	err := exe.GetContext(ctx, &inv, rebind(exe, "SELECT "+invoiceColumns+" FROM invoices WHERE id = ?"), id)
	if err != nil {
		return invoice.Invoice{}, trapNoRowsErr(err, invoice.ErrNotFound, "finding invoice")
	}
	return inv, nil
}

func (repo invoiceRepository) UpdateInvoice(ctx context.Context, inv invoice.Invoice, exec ...core.DBExecutor) (invoice.Invoice, error) {
	exe := repo.getExec(exec)

	q := rebind(exe, `UPDATE invoices SET
		learner_id = ?, track_id = ?, course_id = ?, amount = ?, status = ?, due_date = ?, paid_date = ?, notes = ?
		WHERE id = ?`)
	res, err := exe.ExecContext(
		ctx, q,
		inv.LearnerID, inv.TrackID, inv.CourseID, inv.Amount, inv.Status, inv.DueDate, inv.PaidDate, inv.Notes, inv.ID,
	)
	if err != nil {
		return invoice.Invoice{}, trapWriteErr(err, nil, "updating invoice")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return invoice.Invoice{}, invoice.ErrNotFound
	}
	return repo.GetInvoiceByID(ctx, inv.ID, exe)
}

func (repo invoiceRepository) DeleteInvoice(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return deleteByID(ctx, repo.getExec(exec), "invoices", id, invoice.ErrNotFound)
}
