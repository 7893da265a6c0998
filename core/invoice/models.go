package invoice

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cclient/core"
)

// Statuses
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusOverdue   = "overdue"
	StatusCancelled = "cancelled"
)

// OrderingFields are the fields lists may be ordered by.
var OrderingFields = []string{"createdAt", "invoiceNumber", "amount", "status", "dueDate", "paidDate"}

type Invoice struct {
	ID            int             `json:"id" db:"id"`
	InvoiceNumber string          `json:"invoiceNumber" db:"invoice_number"`
	LearnerID     int             `json:"learnerId" db:"learner_id"`
	TrackID       null.Int        `json:"trackId" db:"track_id"`
	CourseID      null.Int        `json:"courseId" db:"course_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Status        string          `json:"status" db:"status"`
	DueDate       null.Time       `json:"dueDate" db:"due_date"`
	PaidDate      null.Time       `json:"paidDate" db:"paid_date"`
	Notes         null.String     `json:"notes" db:"notes"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"` // UTC
}

// Input holds what may be provided to create or modify an Invoice.
// The invoice number is generated and never provided.
type Input struct {
	LearnerID int             `json:"learnerId" validate:"required,gt=0"`
	TrackID   *int            `json:"trackId" validate:"omitempty,gt=0"`
	CourseID  *int            `json:"courseId" validate:"omitempty,gt=0"`
	Amount    decimal.Decimal `json:"amount" validate:"positive_amount"`
	Status    string          `json:"status" validate:"oneof=pending paid overdue cancelled"`
	DueDate   *time.Time      `json:"dueDate"`
	PaidDate  *time.Time      `json:"paidDate"`
	Notes     string          `json:"notes" validate:"max=5000"`
}

// InputFrom pre-fills an Input with inv so that binding a partial body only overrides provided fields.
func InputFrom(inv Invoice) Input {
	return Input{
		LearnerID: inv.LearnerID,
		TrackID:   inv.TrackID.Ptr(),
		CourseID:  inv.CourseID.Ptr(),
		Amount:    inv.Amount,
		Status:    inv.Status,
		DueDate:   inv.DueDate.Ptr(),
		PaidDate:  inv.PaidDate.Ptr(),
		Notes:     inv.Notes.String,
	}
}

func (in *Input) Validate(validate *validator.Validate) error {
	in.Status = core.CleanString(in.Status, true /* lower */)
	if in.Status == "" {
		in.Status = StatusPending
	}
	in.Notes = core.CleanString(in.Notes)

	return validate.Struct(in)
}

// toInvoice builds an Invoice; paid invoices without a paid date are stamped with now.
func (in Input) toInvoice(now time.Time) Invoice {
	inv := Invoice{
		LearnerID: in.LearnerID,
		TrackID:   null.IntFromPtr(in.TrackID),
		CourseID:  null.IntFromPtr(in.CourseID),
		Amount:    in.Amount.Round(2),
		Status:    in.Status,
		DueDate:   utcTimeFromPtr(in.DueDate),
		PaidDate:  utcTimeFromPtr(in.PaidDate),
		Notes:     null.NewString(in.Notes, in.Notes != ""),
	}
	if inv.Status == StatusPaid && !inv.PaidDate.Valid {
		inv.PaidDate = null.TimeFrom(now)
	}
	return inv
}

func utcTimeFromPtr(t *time.Time) null.Time {
	if t == nil || t.IsZero() {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

type QueryFilter struct {
	// Search does a case-insensitive match on one of Invoice.InvoiceNumber or Invoice.Notes.
	Search    string `query:"search"`
	Status    string `query:"status"`
	LearnerID int    `query:"learnerId"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
