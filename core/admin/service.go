package admin

import (
	"context"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/cclient/core"
)

var (
	// errors
	ErrNotFound           = errors.New("admin not found")
	ErrDuplicateAccount   = errors.New("an admin with this email already exists")
	ErrInvalidCode        = errors.New("invalid OTP code")
	ErrCodeExpired        = errors.New("OTP code has expired")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotVerified        = errors.New("account not verified")
	ErrAlreadyVerified    = errors.New("account already verified")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

// email templates
const (
	tmplVerifyAccount = "verify_account"
	tmplNewOTP        = "new_otp"
	tmplPasswordReset = "password_reset"
)

type (
	// Repository is the credential store. Lookups report a missing record with ErrNotFound.
	Repository interface {
		// CreateAdmin returns ErrDuplicateAccount when the email is taken.
		CreateAdmin(ctx context.Context, adm Admin, exec ...core.DBExecutor) (Admin, error)
		GetAdminByID(ctx context.Context, id int, exec ...core.DBExecutor) (Admin, error)
		GetAdminByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (Admin, error)
		GetAdminByResetToken(ctx context.Context, tokenHash string, exec ...core.DBExecutor) (Admin, error)
		UpdateAdmin(ctx context.Context, adm Admin, exec ...core.DBExecutor) (Admin, error)
		SaveOTP(ctx context.Context, id int, code string, expiry time.Time, exec ...core.DBExecutor) error
		// ConsumeOTP returns ErrInvalidCode when the stored code no longer matches.
		ConsumeOTP(ctx context.Context, id int, code string, exec ...core.DBExecutor) (Admin, error)
		SaveResetToken(ctx context.Context, id int, tokenHash string, expiry time.Time, exec ...core.DBExecutor) error
		// ConsumeResetToken returns ErrInvalidResetToken when the stored token no longer matches.
		ConsumeResetToken(ctx context.Context, id int, tokenHash string, pwdHash []byte, exec ...core.DBExecutor) error
		DeleteAdmin(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	// TokenIssuer mints session tokens for an admin id.
	TokenIssuer interface {
		Issue(adminID int) (string, error)
	}

	Service interface {
		Register(ctx context.Context, na NewAdmin) (Admin, error)
		VerifyOTP(ctx context.Context, data VerifyOTP) (Admin, string, error)
		// ResendOTP returns ErrAlreadyVerified, sending nothing, for verified accounts.
		ResendOTP(ctx context.Context, email string) error
		Login(ctx context.Context, creds Credentials) (Admin, string, error)
		// RequestPasswordReset returns nil for unknown emails.
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetPassword) error
		// VerifyPassword returns the admin only when pwd matches; ErrInvalidCredentials otherwise.
		VerifyPassword(ctx context.Context, email, pwd string) (Admin, error)
		GetByID(ctx context.Context, id int) (Admin, error)
		GetByEmail(ctx context.Context, email string) (Admin, error)
	}

	Deps struct {
		DB      core.DB
		Repo    Repository
		Issuer  TokenIssuer
		MailSvc core.EmailService
		SMSSvc  core.SMSService // optional
		Logger  core.Logger
		Conf    *core.Config
	}

	service struct {
		db      core.DB
		repo    Repository
		issuer  TokenIssuer
		mailSvc core.EmailService
		smsSvc  core.SMSService
		logger  core.Logger
		conf    *core.Config

		dummyHashOnce sync.Once
		dummyHash     []byte
	}

	otpData struct {
		Code      string
		ExpiresIn string
	}

	resetData struct {
		Token     string
		ExpiresIn string
	}
)

var _ Service = (*service)(nil)

func NewService(deps Deps) Service {
	return &service{
		db:      deps.DB,
		repo:    deps.Repo,
		issuer:  deps.Issuer,
		mailSvc: deps.MailSvc,
		smsSvc:  deps.SMSSvc,
		logger:  deps.Logger,
		conf:    deps.Conf,
	}
}

func (svc *service) Register(ctx context.Context, na NewAdmin) (Admin, error) {
	now := nowFunc().UTC()
	adm := Admin{
		FirstName: core.CleanString(na.FirstName),
		LastName:  core.CleanString(na.LastName),
		Email:     core.CleanString(na.Email, true /* lower */),
		Phone:     core.CleanString(na.Phone),
		CreatedAt: now,
	}
	if err := adm.SetPassword(na.Password, svc.conf.Auth.BcryptCost); err != nil {
		return Admin{}, errors.Wrap(err, "hashing password")
	}
	code, err := otpFunc()
	if err != nil {
		return Admin{}, errors.Wrap(err, "generating OTP")
	}
	adm.setOTP(code, now.Add(svc.conf.Auth.OTPExpirationDelta))

	err = core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if adm, err = svc.repo.CreateAdmin(ctx, adm, tx); err != nil {
			return err
		}
		return svc.sendOTP(ctx, adm, code, "Verify Your Account", tmplVerifyAccount)
	})
	if err != nil {
		return Admin{}, errors.Wrap(err, "registering admin")
	}
	return adm, nil
}

func (svc *service) VerifyOTP(ctx context.Context, data VerifyOTP) (Admin, string, error) {
	adm, err := svc.GetByEmail(ctx, data.Email)
	if err != nil {
		return Admin{}, "", err
	}
	code := core.CleanString(data.OTPCode)
	if err = adm.checkOTP(code, nowFunc()); err != nil {
		return Admin{}, "", err
	}

	// sign first: a failure here must leave the OTP usable
	token, err := svc.issuer.Issue(adm.ID)
	if err != nil {
		return Admin{}, "", errors.Wrap(err, "issuing token")
	}

	// a concurrent verification or resend wins the race and this token is dropped
	if adm, err = svc.repo.ConsumeOTP(ctx, adm.ID, code); err != nil {
		if errors.Cause(err) == ErrInvalidCode {
			return Admin{}, "", ErrInvalidCode
		}
		return Admin{}, "", errors.Wrap(err, "marking admin verified")
	}
	return adm, token, nil
}

func (svc *service) ResendOTP(ctx context.Context, email string) error {
	adm, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if adm.IsVerified {
		return ErrAlreadyVerified // verified accounts keep their OTP fields cleared
	}

	code, err := otpFunc()
	if err != nil {
		return errors.Wrap(err, "generating OTP")
	}
	adm.setOTP(code, nowFunc().Add(svc.conf.Auth.OTPExpirationDelta))

	err = core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.repo.SaveOTP(ctx, adm.ID, adm.OTPCode, adm.OTPExpiry, tx); err != nil {
			return err
		}
		return svc.sendOTP(ctx, adm, code, "New Verification Code", tmplNewOTP)
	})
	return errors.Wrap(err, "resending OTP")
}

func (svc *service) Login(ctx context.Context, creds Credentials) (Admin, string, error) {
	adm, err := svc.VerifyPassword(ctx, creds.Email, creds.Password)
	if err != nil {
		return Admin{}, "", err
	}
	if !adm.IsVerified {
		return Admin{}, "", ErrNotVerified
	}
	token, err := svc.issuer.Issue(adm.ID)
	if err != nil {
		return Admin{}, "", errors.Wrap(err, "issuing token")
	}
	return adm, token, nil
}

func (svc *service) VerifyPassword(ctx context.Context, email, pwd string) (Admin, error) {
	adm, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			// spend the same time as a real comparison
			_ = bcrypt.CompareHashAndPassword(svc.getDummyHash(), []byte(pwd))
			return Admin{}, ErrInvalidCredentials
		}
		return Admin{}, err
	}
	if err = adm.CheckPassword(pwd); err != nil {
		return Admin{}, ErrInvalidCredentials
	}
	return adm, nil
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	adm, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return err
	}

	token, hash, err := makeResetToken()
	if err != nil {
		return errors.Wrap(err, "generating reset token")
	}
	adm.setResetToken(hash, nowFunc().Add(svc.conf.Auth.PasswordResetTimeoutDelta))

	err = core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.repo.SaveResetToken(ctx, adm.ID, adm.ResetTokenHash, adm.ResetTokenExpiry, tx); err != nil {
			return err
		}
		msg := &core.EmailMessage{
			To:           []mail.Address{{Name: adm.FullName(), Address: adm.Email}},
			Subject:      "Password Reset",
			TemplateName: tmplPasswordReset,
			TemplateData: resetData{Token: token, ExpiresIn: formatDelta(svc.conf.Auth.PasswordResetTimeoutDelta)},
		}
		return errors.Wrap(svc.mailSvc.SendMessages(ctx, msg), "sending password reset email")
	})
	return errors.Wrap(err, "requesting password reset")
}

func (svc *service) ResetPassword(ctx context.Context, data ResetPassword) error {
	if data.Token == "" {
		return ErrInvalidResetToken
	}
	adm, err := svc.repo.GetAdminByResetToken(ctx, hashResetToken(data.Token))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return ErrInvalidResetToken
		}
		return errors.Wrap(err, "finding admin by reset token")
	}
	if !adm.resetTokenUsable(nowFunc()) {
		return ErrInvalidResetToken
	}

	tokenHash := adm.ResetTokenHash
	if err = adm.SetPassword(data.Password, svc.conf.Auth.BcryptCost); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	if err = svc.repo.ConsumeResetToken(ctx, adm.ID, tokenHash, adm.PasswordHash); err != nil {
		if errors.Cause(err) == ErrInvalidResetToken {
			return ErrInvalidResetToken
		}
		return errors.Wrap(err, "resetting password")
	}
	return nil
}

func (svc *service) GetByID(ctx context.Context, id int) (Admin, error) {
	return svc.repo.GetAdminByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (Admin, error) {
	return svc.repo.GetAdminByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) sendOTP(ctx context.Context, adm Admin, code, subject, tmpl string) error {
	expiresIn := formatDelta(svc.conf.Auth.OTPExpirationDelta)
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: adm.FullName(), Address: adm.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: otpData{Code: code, ExpiresIn: expiresIn},
	}
	if err := svc.mailSvc.SendMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "sending OTP email")
	}

	if adm.Phone != "" && svc.smsSvc != nil {
		sms := core.SMSMessage{
			To:   adm.Phone,
			Body: fmt.Sprintf("Your %s verification code is %s. It expires in %s.", svc.conf.AppName, code, expiresIn),
		}
		if err := svc.smsSvc.SendSMS(ctx, sms); err != nil {
			// secondary channel: the email already went out
			svc.logger.Warn("sending OTP sms", err, adm)
		}
	}
	return nil
}

func (svc *service) getDummyHash() []byte {
	svc.dummyHashOnce.Do(func() {
		svc.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), svc.conf.Auth.BcryptCost)
	})
	return svc.dummyHash
}

// formatDelta renders durations like "5 minutes" or "1 hour".
func formatDelta(d time.Duration) string {
	plural := func(n int64, unit string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s", unit)
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int64(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int64(d/time.Minute), "minute")
	default:
		return plural(int64(d/time.Second), "second")
	}
}
