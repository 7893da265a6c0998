package admin_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cclient/core"
	"github.com/trezcool/cclient/core/admin"
	"github.com/trezcool/cclient/core/session"
	emailsvc "github.com/trezcool/cclient/services/email"
	smssvc "github.com/trezcool/cclient/services/sms"
	sqlxrepos "github.com/trezcool/cclient/storage/database/sqlx"
	testutil "github.com/trezcool/cclient/tests"
)

var resetTokenRegex = regexp.MustCompile(`token=([0-9a-f]{64})`)

type fixture struct {
	db      *sqlx.DB
	conf    *core.Config
	repo    admin.Repository
	issuer  *session.Issuer
	mailSvc *emailsvc.ConsoleService
	smsSvc  *smssvc.ConsoleService
	svc     admin.Service
}

func setup(t *testing.T) *fixture {
	conf := testutil.NewConfig()
	db := testutil.PrepareDB(t)
	issuer, err := session.NewIssuer(conf)
	require.NoError(t, err)

	f := &fixture{
		db:      db,
		conf:    conf,
		repo:    sqlxrepos.NewAdminRepository(db),
		issuer:  issuer,
		mailSvc: emailsvc.NewConsoleServiceMock(conf, testutil.NewEmailTemplates(t, conf)),
		smsSvc:  smssvc.NewConsoleService(nil),
	}
	f.svc = f.newService(issuer)
	return f
}

func (f *fixture) newService(issuer admin.TokenIssuer) admin.Service {
	return admin.NewService(admin.Deps{
		DB:      f.db,
		Repo:    f.repo,
		Issuer:  issuer,
		MailSvc: f.mailSvc,
		SMSSvc:  f.smsSvc,
		Logger:  testutil.NewLogger(f.conf),
		Conf:    f.conf,
	})
}

func (f *fixture) register(t *testing.T, email, phone string) admin.Admin {
	t.Helper()
	adm, err := f.svc.Register(context.Background(), admin.NewAdmin{
		FirstName: "Alice",
		LastName:  "Doe",
		Email:     email,
		Phone:     phone,
		Password:  testutil.Password,
	})
	require.NoError(t, err)
	return adm
}

// freezeTime pins the service clock to the returned pointer's value.
func freezeTime(t *testing.T) *time.Time {
	now := time.Now().UTC().Truncate(time.Second)
	t.Cleanup(admin.SetNowFunc(func() time.Time { return now }))
	return &now
}

func fixOTP(t *testing.T, code string) {
	t.Cleanup(admin.SetOTPFunc(func() (string, error) { return code, nil }))
}

type failingIssuer struct{}

func (failingIssuer) Issue(int) (string, error) { return "", errors.New("signing failed") }

func TestService_Register(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	fixOTP(t, "123456")

	adm := f.register(t, " Alice@X.com ", "")
	assert.NotZero(t, adm.ID)
	assert.Equal(t, "alice@x.com", adm.Email)
	assert.False(t, adm.IsVerified)
	assert.Equal(t, "123456", adm.OTPCode)
	assert.NoError(t, adm.CheckPassword(testutil.Password))

	msg, ok := f.mailSvc.LastMessage()
	require.True(t, ok)
	assert.Equal(t, "Verify Your Account", msg.Subject)
	assert.Equal(t, "alice@x.com", msg.To[0].Address)
	assert.Contains(t, msg.TextContent, "123456")

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.svc.Register(ctx, admin.NewAdmin{
			FirstName: "Other",
			LastName:  "Alice",
			Email:     "ALICE@x.com",
			Password:  testutil.Password,
		})
		assert.Equal(t, admin.ErrDuplicateAccount, errors.Cause(err))
	})

	t.Run("mail failure rolls back", func(t *testing.T) {
		f.mailSvc.FailWith(errors.New("smtp down"))
		defer f.mailSvc.FailWith(nil)

		_, err := f.svc.Register(ctx, admin.NewAdmin{
			FirstName: "Carol",
			LastName:  "Jones",
			Email:     "carol@x.com",
			Password:  testutil.Password,
		})
		assert.Error(t, err)
		_, err = f.svc.GetByEmail(ctx, "carol@x.com")
		assert.Equal(t, admin.ErrNotFound, errors.Cause(err))
	})

	t.Run("sms failure only warns", func(t *testing.T) {
		f.smsSvc.FailWith(errors.New("twilio down"))
		defer f.smsSvc.FailWith(nil)

		adm := f.register(t, "dave@x.com", "+243810000000")
		assert.NotZero(t, adm.ID)
	})

	t.Run("sms sent when phone set", func(t *testing.T) {
		f.register(t, "erin@x.com", "+243810000001")
		sent := f.smsSvc.SentMessages()
		require.NotEmpty(t, sent)
		last := sent[len(sent)-1]
		assert.Equal(t, "+243810000001", last.To)
		assert.Contains(t, last.Body, "123456")
	})
}

func TestService_VerifyOTP(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := freezeTime(t)
	fixOTP(t, "123456")
	registeredAt := *now

	f.register(t, "alice@x.com", "")

	*now = registeredAt.Add(time.Minute)
	_, _, err := f.svc.VerifyOTP(ctx, admin.VerifyOTP{Email: "alice@x.com", OTPCode: "000000"})
	assert.Equal(t, admin.ErrInvalidCode, errors.Cause(err))

	*now = registeredAt.Add(6 * time.Minute)
	_, _, err = f.svc.VerifyOTP(ctx, admin.VerifyOTP{Email: "alice@x.com", OTPCode: "123456"})
	assert.Equal(t, admin.ErrCodeExpired, errors.Cause(err))

	*now = registeredAt.Add(4 * time.Minute)
	_, _, err = f.newService(failingIssuer{}).VerifyOTP(ctx, admin.VerifyOTP{Email: "alice@x.com", OTPCode: "123456"})
	assert.Error(t, err)

	adm, token, err := f.svc.VerifyOTP(ctx, admin.VerifyOTP{Email: "alice@x.com", OTPCode: "123456"})
	require.NoError(t, err)
	assert.True(t, adm.IsVerified)
	assert.Empty(t, adm.OTPCode)
	id, err := f.issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, adm.ID, id)

	_, _, err = f.svc.VerifyOTP(ctx, admin.VerifyOTP{Email: "alice@x.com", OTPCode: "123456"})
	assert.Equal(t, admin.ErrInvalidCode, errors.Cause(err), "codes are single-use")

	_, _, err = f.svc.VerifyOTP(ctx, admin.VerifyOTP{Email: "nobody@x.com", OTPCode: "123456"})
	assert.Equal(t, admin.ErrNotFound, errors.Cause(err))
}

// race runs fn from n goroutines at once and returns their errors.
func race(n int, fn func() error) []error {
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn()
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}

func TestService_VerifyOTP_Concurrent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	freezeTime(t)
	fixOTP(t, "123456")
	f.register(t, "alice@x.com", "")

	// a reset requested before verification must survive it
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@x.com"))
	before, err := f.svc.GetByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, before.ResetTokenHash)

	errs := race(8, func() error {
		_, _, err := f.svc.VerifyOTP(ctx, admin.VerifyOTP{Email: "alice@x.com", OTPCode: "123456"})
		return err
	})
	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, admin.ErrInvalidCode, errors.Cause(err))
	}
	assert.Equal(t, 1, ok, "one code, one session")

	after, err := f.svc.GetByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.True(t, after.IsVerified)
	assert.Empty(t, after.OTPCode)
	assert.Equal(t, before.ResetTokenHash, after.ResetTokenHash)
}

func TestService_ResetPassword_Concurrent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	freezeTime(t)
	testutil.CreateAdmin(t, f.repo, "Bob", "Smith", "bob@x.com", testutil.Password, true)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "bob@x.com"))
	msg, found := f.mailSvc.LastMessage()
	require.True(t, found)
	match := resetTokenRegex.FindStringSubmatch(msg.TextContent)
	require.Len(t, match, 2)

	errs := race(8, func() error {
		return f.svc.ResetPassword(ctx, admin.ResetPassword{Token: match[1], Password: "N3w-Passw0rd!x"})
	})
	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, admin.ErrInvalidResetToken, errors.Cause(err))
	}
	assert.Equal(t, 1, ok, "one token, one reset")

	stored, err := f.svc.GetByEmail(ctx, "bob@x.com")
	require.NoError(t, err)
	assert.Empty(t, stored.ResetTokenHash)
	assert.NoError(t, stored.CheckPassword("N3w-Passw0rd!x"))
}

func TestService_ResendOTP(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	fixOTP(t, "111111")

	f.register(t, "alice@x.com", "")

	err := f.svc.ResendOTP(ctx, "nobody@x.com")
	assert.Equal(t, admin.ErrNotFound, errors.Cause(err))

	fixOTP(t, "222222")
	require.NoError(t, f.svc.ResendOTP(ctx, "ALICE@x.com"))
	msg, ok := f.mailSvc.LastMessage()
	require.True(t, ok)
	assert.Equal(t, "New Verification Code", msg.Subject)
	assert.Contains(t, msg.TextContent, "222222")

	_, _, err = f.svc.VerifyOTP(ctx, admin.VerifyOTP{Email: "alice@x.com", OTPCode: "111111"})
	assert.Equal(t, admin.ErrInvalidCode, errors.Cause(err), "previous code is replaced")
	_, _, err = f.svc.VerifyOTP(ctx, admin.VerifyOTP{Email: "alice@x.com", OTPCode: "222222"})
	require.NoError(t, err)

	f.mailSvc.Reset()
	err = f.svc.ResendOTP(ctx, "alice@x.com")
	assert.Equal(t, admin.ErrAlreadyVerified, errors.Cause(err))
	_, sent := f.mailSvc.LastMessage()
	assert.False(t, sent, "verified accounts get no new code")
}

func TestService_Login(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	testutil.CreateAdmin(t, f.repo, "Pending", "Admin", "pending@x.com", testutil.Password, false)
	verified := testutil.CreateAdmin(t, f.repo, "Bob", "Admin", "bob@x.com", testutil.Password, true)

	tests := []struct {
		name    string
		creds   admin.Credentials
		wantErr error
	}{
		{name: "unknown email", creds: admin.Credentials{Email: "nobody@x.com", Password: testutil.Password}, wantErr: admin.ErrInvalidCredentials},
		{name: "wrong password", creds: admin.Credentials{Email: "bob@x.com", Password: "wrong-password"}, wantErr: admin.ErrInvalidCredentials},
		{name: "not verified", creds: admin.Credentials{Email: "pending@x.com", Password: testutil.Password}, wantErr: admin.ErrNotVerified},
		{name: "success", creds: admin.Credentials{Email: "BOB@x.com", Password: testutil.Password}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adm, token, err := f.svc.Login(ctx, tt.creds)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				assert.Empty(t, token)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, verified.ID, adm.ID)
			id, err := f.issuer.Verify(token)
			require.NoError(t, err)
			assert.Equal(t, verified.ID, id)
		})
	}
}

func TestService_PasswordReset(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := freezeTime(t)

	adm := testutil.CreateAdmin(t, f.repo, "Bob", "Admin", "bob@x.com", testutil.Password, true)

	t.Run("unknown email is silent", func(t *testing.T) {
		f.mailSvc.Reset()
		assert.NoError(t, f.svc.RequestPasswordReset(ctx, "nobody@x.com"))
		_, sent := f.mailSvc.LastMessage()
		assert.False(t, sent)
	})

	requestToken := func(t *testing.T) string {
		require.NoError(t, f.svc.RequestPasswordReset(ctx, "bob@x.com"))
		msg, ok := f.mailSvc.LastMessage()
		require.True(t, ok)
		assert.Equal(t, "Password Reset", msg.Subject)
		match := resetTokenRegex.FindStringSubmatch(msg.TextContent)
		require.Len(t, match, 2)
		return match[1]
	}

	t.Run("token is stored hashed", func(t *testing.T) {
		token := requestToken(t)
		stored, err := f.repo.GetAdminByID(ctx, adm.ID)
		require.NoError(t, err)
		assert.Equal(t, admin.HashResetToken(token), stored.ResetTokenHash)
		assert.NotEqual(t, token, stored.ResetTokenHash)
	})

	t.Run("reset is single-use", func(t *testing.T) {
		token := requestToken(t)
		require.NoError(t, f.svc.ResetPassword(ctx, admin.ResetPassword{Token: token, Password: "N3w-Passw0rd!x"}))

		_, _, err := f.svc.Login(ctx, admin.Credentials{Email: "bob@x.com", Password: "N3w-Passw0rd!x"})
		assert.NoError(t, err)
		_, _, err = f.svc.Login(ctx, admin.Credentials{Email: "bob@x.com", Password: testutil.Password})
		assert.Equal(t, admin.ErrInvalidCredentials, errors.Cause(err))

		err = f.svc.ResetPassword(ctx, admin.ResetPassword{Token: token, Password: "An0ther-Pass!word"})
		assert.Equal(t, admin.ErrInvalidResetToken, errors.Cause(err))
	})

	t.Run("expired token", func(t *testing.T) {
		token := requestToken(t)
		*now = now.Add(f.conf.Auth.PasswordResetTimeoutDelta + time.Minute)
		err := f.svc.ResetPassword(ctx, admin.ResetPassword{Token: token, Password: "An0ther-Pass!word"})
		assert.Equal(t, admin.ErrInvalidResetToken, errors.Cause(err))
	})

	t.Run("unknown token", func(t *testing.T) {
		err := f.svc.ResetPassword(ctx, admin.ResetPassword{Token: "deadbeef", Password: "An0ther-Pass!word"})
		assert.Equal(t, admin.ErrInvalidResetToken, errors.Cause(err))
		err = f.svc.ResetPassword(ctx, admin.ResetPassword{Password: "An0ther-Pass!word"})
		assert.Equal(t, admin.ErrInvalidResetToken, errors.Cause(err))
	})

	t.Run("mail failure rolls back", func(t *testing.T) {
		before, err := f.repo.GetAdminByID(ctx, adm.ID)
		require.NoError(t, err)

		f.mailSvc.FailWith(errors.New("smtp down"))
		defer f.mailSvc.FailWith(nil)
		assert.Error(t, f.svc.RequestPasswordReset(ctx, "bob@x.com"))

		after, err := f.repo.GetAdminByID(ctx, adm.ID)
		require.NoError(t, err)
		assert.Equal(t, before.ResetTokenHash, after.ResetTokenHash)
	})
}

func TestFormatDelta(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{d: time.Second, want: "1 second"},
		{d: 30 * time.Second, want: "30 seconds"},
		{d: time.Minute, want: "1 minute"},
		{d: 5 * time.Minute, want: "5 minutes"},
		{d: 90 * time.Minute, want: "90 minutes"},
		{d: time.Hour, want: "1 hour"},
		{d: 24 * time.Hour, want: "24 hours"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, admin.FormatDelta(tt.d), tt.d.String())
	}
}

func TestMakeOTP(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := admin.MakeOTP()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9]{6}$`, code)
	}
}
