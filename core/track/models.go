package track

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cclient/core"
)

// OrderingFields are the fields lists may be ordered by.
var OrderingFields = []string{"createdAt", "name", "price", "instructor"}

type Track struct {
	ID           int             `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Description  null.String     `json:"description" db:"description"`
	Price        decimal.Decimal `json:"price" db:"price"`
	Duration     string          `json:"duration" db:"duration"`
	Instructor   string          `json:"instructor" db:"instructor"`
	ImageURL     null.String     `json:"imageUrl" db:"image_url"`
	Technologies core.StringList `json:"technologies" db:"technologies"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"` // UTC
}

// Input holds what may be provided to create or modify a Track.
type Input struct {
	Name         string          `json:"name" validate:"required,max=200"`
	Description  string          `json:"description" validate:"max=5000"`
	Price        decimal.Decimal `json:"price" validate:"nonneg_amount"`
	Duration     string          `json:"duration" validate:"required,max=100"`
	Instructor   string          `json:"instructor" validate:"required,max=200"`
	ImageURL     string          `json:"imageUrl" validate:"omitempty,url"`
	Technologies []string        `json:"technologies" validate:"dive,max=50"`
}

// InputFrom pre-fills an Input with trk so that binding a partial body only overrides provided fields.
func InputFrom(trk Track) Input {
	return Input{
		Name:         trk.Name,
		Description:  trk.Description.String,
		Price:        trk.Price,
		Duration:     trk.Duration,
		Instructor:   trk.Instructor,
		ImageURL:     trk.ImageURL.String,
		Technologies: trk.Technologies,
	}
}

func (in *Input) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	in.Description = core.CleanString(in.Description)
	in.Duration = core.CleanString(in.Duration)
	in.Instructor = core.CleanString(in.Instructor)
	in.ImageURL = core.CleanString(in.ImageURL)
	in.Technologies = core.StringList(in.Technologies).Clean()

	return validate.Struct(in)
}

func (in Input) toTrack() Track {
	return Track{
		Name:         in.Name,
		Description:  null.NewString(in.Description, in.Description != ""),
		Price:        in.Price.Round(2),
		Duration:     in.Duration,
		Instructor:   in.Instructor,
		ImageURL:     null.NewString(in.ImageURL, in.ImageURL != ""),
		Technologies: core.StringList(in.Technologies).Clean(),
	}
}

type QueryFilter struct {
	// Search does a case-insensitive match on one of Track.Name or Track.Instructor.
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
