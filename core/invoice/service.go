package invoice

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/cclient/core"
)

const invoiceNumberPrefix = "INV-"

var (
	// errors
	ErrNotFound        = errors.New("invoice not found")
	ErrDuplicateNumber = errors.New("invoice number already taken")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CreateInvoice returns core.ErrInvalidReference when the learner, track or course does not exist
		// and ErrDuplicateNumber when the invoice number is taken.
		CreateInvoice(ctx context.Context, inv Invoice, exec ...core.DBExecutor) (Invoice, error)
		QueryInvoices(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Invoice, error)
		GetInvoiceByID(ctx context.Context, id int, exec ...core.DBExecutor) (Invoice, error)
		UpdateInvoice(ctx context.Context, inv Invoice, exec ...core.DBExecutor) (Invoice, error)
		DeleteInvoice(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, in Input) (Invoice, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Invoice, error)
		GetByID(ctx context.Context, id int) (Invoice, error)
		Update(ctx context.Context, id int, in Input) (Invoice, error)
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

// NewInvoiceNumber returns a random, human friendly invoice number such as INV-3F9A1C2B.
func NewInvoiceNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return invoiceNumberPrefix + strings.ToUpper(id[:8])
}

func (svc *service) Create(ctx context.Context, in Input) (Invoice, error) {
	now := nowFunc().UTC()
	inv := in.toInvoice(now)
	inv.CreatedAt = now

	// numbers are random; retry the rare collision
	for attempt := 0; ; attempt++ {
		inv.InvoiceNumber = NewInvoiceNumber()
		created, err := svc.repo.CreateInvoice(ctx, inv)
		if errors.Cause(err) == ErrDuplicateNumber && attempt < 3 {
			continue
		}
		return created, err
	}
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Invoice, error) {
	return svc.repo.QueryInvoices(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id int) (Invoice, error) {
	return svc.repo.GetInvoiceByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id int, in Input) (Invoice, error) {
	orig, err := svc.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	inv := in.toInvoice(nowFunc().UTC())
	inv.ID = orig.ID
	inv.InvoiceNumber = orig.InvoiceNumber
	inv.CreatedAt = orig.CreatedAt
	return svc.repo.UpdateInvoice(ctx, inv)
}

func (svc *service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteInvoice(ctx, id)
}
