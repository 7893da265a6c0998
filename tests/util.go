// Package testutil holds the fixtures shared by package tests.
package testutil

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cclient/assets"
	"github.com/trezcool/cclient/core"
	"github.com/trezcool/cclient/core/admin"
	"github.com/trezcool/cclient/core/course"
	"github.com/trezcool/cclient/core/invoice"
	"github.com/trezcool/cclient/core/learner"
	"github.com/trezcool/cclient/core/track"
	logsvc "github.com/trezcool/cclient/services/logger"
	"github.com/trezcool/cclient/storage/database"
)

// Password satisfies the admin password policy.
const Password = "Tr0ub4dor&3x"

// NewConfig returns a TEST configuration backed by a private in-memory sqlite database.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Env = "TEST"
	conf.Debug = false
	conf.TestMode = true
	conf.AppName = "CClient Admin"
	conf.SecretKey = "test-secret-key"
	conf.FrontendBaseURL = "http://localhost:5000"
	conf.RollbarToken = ""
	conf.SetDefaultFromEmail("CClient Admin <noreply@cclient.test>")
	conf.Server.JWTExpirationDelta = 7 * 24 * time.Hour
	conf.Server.DisableReqLogs = true
	conf.Server.AuthRateLimit = 0
	conf.Auth.OTPExpirationDelta = 5 * time.Minute
	conf.Auth.PasswordResetTimeoutDelta = 30 * time.Minute
	conf.Auth.BcryptCost = 4
	conf.Twilio.AccountSID = ""
	conf.Database.Engine = database.EngineSQLite
	conf.Database.Name = ":memory:"
	return conf
}

// NewLogger returns a silent logger.
func NewLogger(conf *core.Config) *logsvc.RollbarLogger {
	std := logrus.New()
	std.SetOutput(io.Discard)
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(false)
	return logger
}

// PrepareDB opens a migrated in-memory database closed at the end of the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, NewLogger(NewConfig())); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidator returns a validator with every custom rule registered.
func NewValidator(conf *core.Config) (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := NewTranslator()
	core.InitValidators(validate, translator)
	admin.InitValidators(validate, translator)
	admin.LoadCommonPasswords(assets.FS, NewLogger(conf))
	return validate, translator
}

func NewEmailTemplates(t *testing.T, conf *core.Config) *core.EmailTemplates {
	t.Helper()
	tmpls, err := core.ParseEmailTemplates(assets.FS, conf)
	if err != nil {
		t.Fatalf("NewEmailTemplates() failed: %v", err)
	}
	return tmpls
}

// CreateAdmin stores an admin with the given password (hashed at the minimum cost).
func CreateAdmin(t *testing.T, repo admin.Repository, first, last, email, pwd string, verified bool) admin.Admin {
	t.Helper()
	adm := admin.Admin{
		FirstName:  first,
		LastName:   last,
		Email:      email,
		IsVerified: verified,
		CreatedAt:  time.Now().UTC(),
	}
	if err := adm.SetPassword(pwd, 4); err != nil {
		t.Fatalf("CreateAdmin() failed: %v", err)
	}
	adm, err := repo.CreateAdmin(context.Background(), adm)
	if err != nil {
		t.Fatalf("CreateAdmin() failed: %v", err)
	}
	return adm
}

func CreateTrack(t *testing.T, repo track.Repository, name, instructor, price string, createdAt ...time.Time) track.Track {
	t.Helper()
	trk := track.Track{
		Name:         name,
		Price:        decimal.RequireFromString(price),
		Duration:     "12 weeks",
		Instructor:   instructor,
		Technologies: core.StringList{"Go"},
		CreatedAt:    stamp(createdAt),
	}
	trk, err := repo.CreateTrack(context.Background(), trk)
	if err != nil {
		t.Fatalf("CreateTrack() failed: %v", err)
	}
	return trk
}

func CreateCourse(t *testing.T, repo course.Repository, trackID int, title, status string, createdAt ...time.Time) course.Course {
	t.Helper()
	crs := course.Course{
		Title:        title,
		TrackID:      trackID,
		Instructor:   "Jane Doe",
		Status:       status,
		Technologies: core.StringList{},
		CreatedAt:    stamp(createdAt),
	}
	crs, err := repo.CreateCourse(context.Background(), crs)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateLearner(t *testing.T, repo learner.Repository, first, last, email string, trackID int, createdAt ...time.Time) learner.Learner {
	t.Helper()
	now := stamp(createdAt)
	lrn := learner.Learner{
		FirstName:  first,
		LastName:   last,
		Email:      email,
		TrackID:    null.NewInt(trackID, trackID > 0),
		Status:     learner.StatusActive,
		AmountPaid: decimal.Zero,
		DateJoined: now,
		CreatedAt:  now,
	}
	lrn, err := repo.CreateLearner(context.Background(), lrn)
	if err != nil {
		t.Fatalf("CreateLearner() failed: %v", err)
	}
	return lrn
}

func CreateInvoice(t *testing.T, repo invoice.Repository, learnerID int, amount, status string, createdAt ...time.Time) invoice.Invoice {
	t.Helper()
	inv := invoice.Invoice{
		InvoiceNumber: invoice.NewInvoiceNumber(),
		LearnerID:     learnerID,
		Amount:        decimal.RequireFromString(amount),
		Status:        status,
		CreatedAt:     stamp(createdAt),
	}
	inv, err := repo.CreateInvoice(context.Background(), inv)
	if err != nil {
		t.Fatalf("CreateInvoice() failed: %v", err)
	}
	return inv
}

func stamp(createdAt []time.Time) time.Time {
	if len(createdAt) > 0 {
		return createdAt[0].UTC()
	}
	return time.Now().UTC()
}
