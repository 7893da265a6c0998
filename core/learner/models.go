package learner

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cclient/core"
)

// Statuses
const (
	StatusActive   = "active"
	StatusPending  = "pending"
	StatusInactive = "inactive"
)

// OrderingFields are the fields lists may be ordered by.
var OrderingFields = []string{"createdAt", "firstName", "lastName", "email", "dateJoined", "amountPaid", "status"}

type Learner struct {
	ID         int             `json:"id" db:"id"`
	FirstName  string          `json:"firstName" db:"first_name"`
	LastName   string          `json:"lastName" db:"last_name"`
	Email      string          `json:"email" db:"email"`
	Phone      null.String     `json:"phone" db:"phone"`
	Gender     null.String     `json:"gender" db:"gender"`
	Location   null.String     `json:"location" db:"location"`
	Bio        null.String     `json:"bio" db:"bio"`
	TrackID    null.Int        `json:"trackId" db:"track_id"`
	Status     string          `json:"status" db:"status"`
	AmountPaid decimal.Decimal `json:"amountPaid" db:"amount_paid"`
	DateJoined time.Time       `json:"dateJoined" db:"date_joined"` // UTC
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`   // UTC
}

func (l Learner) FullName() string {
	return l.FirstName + " " + l.LastName
}

// Input holds what may be provided to create or modify a Learner.
type Input struct {
	FirstName  string          `json:"firstName" validate:"required,max=100"`
	LastName   string          `json:"lastName" validate:"required,max=100"`
	Email      string          `json:"email" validate:"required,email,max=254"`
	Phone      string          `json:"phone" validate:"max=30"`
	Gender     string          `json:"gender" validate:"max=30"`
	Location   string          `json:"location" validate:"max=200"`
	Bio        string          `json:"bio" validate:"max=5000"`
	TrackID    *int            `json:"trackId" validate:"omitempty,gt=0"`
	Status     string          `json:"status" validate:"oneof=active pending inactive"`
	AmountPaid decimal.Decimal `json:"amountPaid" validate:"nonneg_amount"`
	DateJoined *time.Time      `json:"dateJoined"`
}

// InputFrom pre-fills an Input with lrn so that binding a partial body only overrides provided fields.
func InputFrom(lrn Learner) Input {
	dateJoined := lrn.DateJoined
	return Input{
		FirstName:  lrn.FirstName,
		LastName:   lrn.LastName,
		Email:      lrn.Email,
		Phone:      lrn.Phone.String,
		Gender:     lrn.Gender.String,
		Location:   lrn.Location.String,
		Bio:        lrn.Bio.String,
		TrackID:    lrn.TrackID.Ptr(),
		Status:     lrn.Status,
		AmountPaid: lrn.AmountPaid,
		DateJoined: &dateJoined,
	}
}

func (in *Input) Validate(validate *validator.Validate) error {
	in.FirstName = core.CleanString(in.FirstName)
	in.LastName = core.CleanString(in.LastName)
	in.Email = core.CleanString(in.Email, true /* lower */)
	in.Phone = core.CleanString(in.Phone)
	in.Gender = core.CleanString(in.Gender)
	in.Location = core.CleanString(in.Location)
	in.Bio = core.CleanString(in.Bio)
	in.Status = core.CleanString(in.Status, true /* lower */)
	if in.Status == "" {
		in.Status = StatusActive
	}

	return validate.Struct(in)
}

func (in Input) toLearner(now time.Time) Learner {
	dateJoined := now
	if in.DateJoined != nil && !in.DateJoined.IsZero() {
		dateJoined = in.DateJoined.UTC()
	}
	return Learner{
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Email:      in.Email,
		Phone:      null.NewString(in.Phone, in.Phone != ""),
		Gender:     null.NewString(in.Gender, in.Gender != ""),
		Location:   null.NewString(in.Location, in.Location != ""),
		Bio:        null.NewString(in.Bio, in.Bio != ""),
		TrackID:    null.IntFromPtr(in.TrackID),
		Status:     in.Status,
		AmountPaid: in.AmountPaid.Round(2),
		DateJoined: dateJoined,
	}
}

type QueryFilter struct {
	// Search does a case-insensitive match on one of Learner.FirstName, Learner.LastName or Learner.Email.
	Search  string `query:"search"`
	TrackID int    `query:"trackId"`
	Status  string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
