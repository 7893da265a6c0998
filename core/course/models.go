package course

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cclient/core"
)

// Statuses
const (
	StatusActive   = "active"
	StatusDraft    = "draft"
	StatusArchived = "archived"
)

// OrderingFields are the fields lists may be ordered by.
var OrderingFields = []string{"createdAt", "title", "students", "status"}

type Course struct {
	ID           int             `json:"id" db:"id"`
	Title        string          `json:"title" db:"title"`
	Description  null.String     `json:"description" db:"description"`
	TrackID      int             `json:"trackId" db:"track_id"`
	Instructor   string          `json:"instructor" db:"instructor"`
	Image        null.String     `json:"image" db:"image"`
	Duration     null.String     `json:"duration" db:"duration"`
	Students     int             `json:"students" db:"students"`
	Status       string          `json:"status" db:"status"`
	Technologies core.StringList `json:"technologies" db:"technologies"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"` // UTC
}

// Input holds what may be provided to create or modify a Course.
type Input struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Description  string   `json:"description" validate:"max=5000"`
	TrackID      int      `json:"trackId" validate:"required,gt=0"`
	Instructor   string   `json:"instructor" validate:"required,max=200"`
	Image        string   `json:"image" validate:"max=500"`
	Duration     string   `json:"duration" validate:"max=100"`
	Students     int      `json:"students" validate:"min=0"`
	Status       string   `json:"status" validate:"oneof=active draft archived"`
	Technologies []string `json:"technologies" validate:"dive,max=50"`
}

// InputFrom pre-fills an Input with crs so that binding a partial body only overrides provided fields.
func InputFrom(crs Course) Input {
	return Input{
		Title:        crs.Title,
		Description:  crs.Description.String,
		TrackID:      crs.TrackID,
		Instructor:   crs.Instructor,
		Image:        crs.Image.String,
		Duration:     crs.Duration.String,
		Students:     crs.Students,
		Status:       crs.Status,
		Technologies: crs.Technologies,
	}
}

func (in *Input) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	in.Description = core.CleanString(in.Description)
	in.Instructor = core.CleanString(in.Instructor)
	in.Image = core.CleanString(in.Image)
	in.Duration = core.CleanString(in.Duration)
	in.Status = core.CleanString(in.Status, true /* lower */)
	if in.Status == "" {
		in.Status = StatusActive
	}
	in.Technologies = core.StringList(in.Technologies).Clean()
	return validate.Struct(in)
}

func (in Input) toCourse() Course {
	return Course{
		Title:        in.Title,
		Description:  null.NewString(in.Description, in.Description != ""),
		TrackID:      in.TrackID,
		Instructor:   in.Instructor,
		Image:        null.NewString(in.Image, in.Image != ""),
		Duration:     null.NewString(in.Duration, in.Duration != ""),
		Students:     in.Students,
		Status:       in.Status,
		Technologies: core.StringList(in.Technologies).Clean(),
	}
}

type QueryFilter struct {
	// Search does a case-insensitive match on one of Course.Title or Course.Instructor.
	Search  string `query:"search"`
	TrackID int    `query:"trackId"`
	Status  string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
