package admin

import (
	"crypto/subtle"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/cclient/core"
)

type Admin struct {
	ID               int       `json:"id"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone,omitempty"`
	IsVerified       bool      `json:"isVerified"`
	PasswordHash     []byte    `json:"-"`
	OTPCode          string    `json:"-"`
	OTPExpiry        time.Time `json:"-"` // UTC; zero when no code is pending
	ResetTokenHash   string    `json:"-"`
	ResetTokenExpiry time.Time `json:"-"`         // UTC; zero when no reset is pending
	CreatedAt        time.Time `json:"createdAt"` // UTC
}

func (a *Admin) SetPassword(pwd string, cost int) error {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), cost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Admin) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a *Admin) FullName() string {
	return a.FirstName + " " + a.LastName
}

func (a *Admin) setOTP(code string, expiry time.Time) {
	a.OTPCode = code
	a.OTPExpiry = expiry.UTC()
}

func (a *Admin) ClearOTP() {
	a.OTPCode = ""
	a.OTPExpiry = time.Time{}
}

// checkOTP reports whether code matches the pending OTP and is still usable at now.
// A code is usable strictly before its expiry.
func (a *Admin) checkOTP(code string, now time.Time) error {
	if a.OTPCode == "" || subtle.ConstantTimeCompare([]byte(a.OTPCode), []byte(code)) != 1 {
		return ErrInvalidCode
	}
	if a.OTPExpiry.IsZero() || !now.Before(a.OTPExpiry) {
		return ErrCodeExpired
	}
	return nil
}

func (a *Admin) setResetToken(hash string, expiry time.Time) {
	a.ResetTokenHash = hash
	a.ResetTokenExpiry = expiry.UTC()
}

func (a *Admin) ClearResetToken() {
	a.ResetTokenHash = ""
	a.ResetTokenExpiry = time.Time{}
}

func (a *Admin) resetTokenUsable(now time.Time) bool {
	return a.ResetTokenHash != "" && !a.ResetTokenExpiry.IsZero() && now.Before(a.ResetTokenExpiry)
}

// NewAdmin contains information needed to register a new Admin.
type NewAdmin struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Phone     string `json:"phone" validate:"omitempty,e164"`
	Password  string `json:"password" validate:"required"`
}

func (na *NewAdmin) Validate(validate *validator.Validate) error {
	na.FirstName = core.CleanString(na.FirstName)
	na.LastName = core.CleanString(na.LastName)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Phone = core.CleanString(na.Phone)
	return validate.Struct(na)
}

type VerifyOTP struct {
	Email   string `json:"email" validate:"required,email"`
	OTPCode string `json:"otpCode" validate:"required,len=6,numcode"`
}

func (vo *VerifyOTP) Validate(validate *validator.Validate) error {
	vo.Email = core.CleanString(vo.Email, true /* lower */)
	vo.OTPCode = core.CleanString(vo.OTPCode)
	return validate.Struct(vo)
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	return validate.Struct(c)
}

// EmailRequest is the body of resend-otp and forgot-password.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (er *EmailRequest) Validate(validate *validator.Validate) error {
	er.Email = core.CleanString(er.Email, true /* lower */)
	return validate.Struct(er)
}

type ResetPassword struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (rp *ResetPassword) Validate(validate *validator.Validate) error {
	rp.Token = core.CleanString(rp.Token)
	return validate.Struct(rp)
}
