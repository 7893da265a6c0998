package tests

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cclient/core/admin"
	testutil "github.com/trezcool/cclient/tests"
)

var (
	otpRegex   = regexp.MustCompile(`code is: (\d{6})`)
	tokenRegex = regexp.MustCompile(`token=([0-9a-f]{64})`)
)

func lastMailMatch(t *testing.T, ta *testApp, re *regexp.Regexp) string {
	m, ok := ta.mailSvc.LastMessage()
	require.True(t, ok, "no email sent")
	match := re.FindStringSubmatch(m.TextContent)
	require.Len(t, match, 2, "no match in %q", m.TextContent)
	return match[1]
}

func register(t *testing.T, ta *testApp, email string) {
	body := marshalObj(t, map[string]string{
		"firstName": "Alice",
		"lastName":  "Smith",
		"email":     email,
		"password":  testutil.Password,
	})
	req, rec := newRequest(http.MethodPost, "/api/auth/register", body)
	ta.serve(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func Test_authApi_register(t *testing.T) {
	ta := setup(t)
	testutil.CreateAdmin(t, ta.adminRepo, "Taken", "Admin", "taken@x.com", testutil.Password, true)

	body := func(email, pwd string) []byte {
		return marshalObj(t, map[string]string{"firstName": "Alice", "lastName": "Smith", "email": email, "password": pwd})
	}

	tests := []httpTest{
		{
			name:     "invalid body",
			method:   http.MethodPost,
			path:     "/api/auth/register",
			body:     []byte(`{"firstName": 1`),
			wantCode: http.StatusBadRequest,
			wantData: msg(t, "Invalid request body"),
		},
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/api/auth/register",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpMsg{Message: "Validation failed", Errors: map[string]string{
				"firstName": "this field is required",
				"lastName":  "this field is required",
				"email":     "this field is required",
				"password":  "this field is required",
			}}),
		},
		{
			name:     "weak password",
			method:   http.MethodPost,
			path:     "/api/auth/register",
			body:     body("weak@x.com", "password"),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "duplicate email",
			method:   http.MethodPost,
			path:     "/api/auth/register",
			body:     body("TAKEN@x.com", testutil.Password),
			wantCode: http.StatusBadRequest,
			wantData: msg(t, "Admin with this email already exists"),
		},
		{
			name:     "success",
			method:   http.MethodPost,
			path:     "/api/auth/register",
			body:     body("alice@x.com", testutil.Password),
			wantCode: http.StatusCreated,
			wantData: marshalObj(t, map[string]string{
				"message": "Admin registered successfully. Please check your email for verification code.",
				"email":   "alice@x.com",
			}),
		},
	}
	runHTTPTests(t, ta, tests)

	adm, err := ta.adminRepo.GetAdminByEmail(context.Background(), "alice@x.com")
	require.NoError(t, err)
	assert.False(t, adm.IsVerified)
	assert.NotEqual(t, testutil.Password, string(adm.PasswordHash))
	assert.Len(t, adm.OTPCode, 6)

	m, ok := ta.mailSvc.LastMessage()
	require.True(t, ok)
	assert.Equal(t, "Verify Your Account", m.Subject)
	assert.Equal(t, "alice@x.com", m.To[0].Address)
}

func Test_authApi_register_notificationFailure(t *testing.T) {
	ta := setup(t)
	ta.mailSvc.FailWith(errors.New("provider down"))

	body := marshalObj(t, map[string]string{
		"firstName": "Alice", "lastName": "Smith", "email": "alice@x.com", "password": testutil.Password,
	})
	req, rec := newRequest(http.MethodPost, "/api/auth/register", body)
	ta.serve(req, rec)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// nothing persisted
	_, err := ta.adminRepo.GetAdminByEmail(context.Background(), "alice@x.com")
	assert.Equal(t, admin.ErrNotFound, err)
}

func Test_authApi_verifyOTP_login(t *testing.T) {
	ta := setup(t)
	register(t, ta, "alice@x.com")
	code := lastMailMatch(t, ta, otpRegex)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	loginBody := marshalObj(t, map[string]string{"email": "alice@x.com", "password": testutil.Password})

	runHTTPTests(t, ta, []httpTest{
		{
			name:     "login before verification",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     loginBody,
			wantCode: http.StatusUnauthorized,
			wantData: msg(t, "Please verify your account first"),
		},
		{
			name:     "unknown email",
			method:   http.MethodPost,
			path:     "/api/auth/verify-otp",
			body:     marshalObj(t, map[string]string{"email": "nobody@x.com", "otpCode": code}),
			wantCode: http.StatusNotFound,
			wantData: msg(t, "Admin not found"),
		},
		{
			name:     "malformed code",
			method:   http.MethodPost,
			path:     "/api/auth/verify-otp",
			body:     marshalObj(t, map[string]string{"email": "alice@x.com", "otpCode": "12ab56"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "wrong code",
			method:   http.MethodPost,
			path:     "/api/auth/verify-otp",
			body:     marshalObj(t, map[string]string{"email": "alice@x.com", "otpCode": wrong}),
			wantCode: http.StatusBadRequest,
			wantData: msg(t, "Invalid OTP code"),
		},
	})

	// success
	req, rec := newRequest(http.MethodPost, "/api/auth/verify-otp",
		marshalObj(t, map[string]string{"email": "alice@x.com", "otpCode": code}))
	ta.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var verified struct {
		Message string `json:"message"`
		Token   string `json:"token"`
		Admin   struct {
			ID        int    `json:"id"`
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
			Email     string `json:"email"`
		} `json:"admin"`
	}
	unmarshal(t, rec, &verified)
	assert.Equal(t, "Account verified successfully", verified.Message)
	assert.NotEmpty(t, verified.Token)
	assert.Equal(t, "alice@x.com", verified.Admin.Email)
	assert.Equal(t, "Alice", verified.Admin.FirstName)

	id, err := ta.issuer.Verify(verified.Token)
	require.NoError(t, err)
	assert.Equal(t, verified.Admin.ID, id)

	// the code is single-use
	req, rec = newRequest(http.MethodPost, "/api/auth/verify-otp",
		marshalObj(t, map[string]string{"email": "alice@x.com", "otpCode": code}))
	ta.serve(req, rec)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	runHTTPTests(t, ta, []httpTest{
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     marshalObj(t, map[string]string{"email": "alice@x.com", "password": "Wr0ng&Passw0rd"}),
			wantCode: http.StatusUnauthorized,
			wantData: msg(t, "Invalid email or password"),
		},
		{
			name:     "unknown email is indistinguishable",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     marshalObj(t, map[string]string{"email": "nobody@x.com", "password": testutil.Password}),
			wantCode: http.StatusUnauthorized,
			wantData: msg(t, "Invalid email or password"),
		},
	})

	req, rec = newRequest(http.MethodPost, "/api/auth/login", loginBody)
	ta.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var loggedIn struct {
		Message string `json:"message"`
		Token   string `json:"token"`
	}
	unmarshal(t, rec, &loggedIn)
	assert.Equal(t, "Login successful", loggedIn.Message)
	id, err = ta.issuer.Verify(loggedIn.Token)
	require.NoError(t, err)
	assert.Equal(t, verified.Admin.ID, id)
}

func Test_authApi_resendOTP(t *testing.T) {
	ta := setup(t)
	register(t, ta, "alice@x.com")
	first := lastMailMatch(t, ta, otpRegex)
	testutil.CreateAdmin(t, ta.adminRepo, "Vera", "Smith", "verified@x.com", testutil.Password, true)

	runHTTPTests(t, ta, []httpTest{
		{
			name:     "unknown email",
			method:   http.MethodPost,
			path:     "/api/auth/resend-otp",
			body:     marshalObj(t, map[string]string{"email": "nobody@x.com"}),
			wantCode: http.StatusNotFound,
			wantData: msg(t, "Admin not found"),
		},
		{
			name:     "success",
			method:   http.MethodPost,
			path:     "/api/auth/resend-otp",
			body:     marshalObj(t, map[string]string{"email": "alice@x.com"}),
			wantCode: http.StatusOK,
			wantData: msg(t, "New OTP sent successfully"),
		},
	})

	m, ok := ta.mailSvc.LastMessage()
	require.True(t, ok)
	assert.Equal(t, "New Verification Code", m.Subject)

	second := lastMailMatch(t, ta, otpRegex)
	adm, err := ta.adminRepo.GetAdminByEmail(context.Background(), "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, second, adm.OTPCode)
	runHTTPTests(t, ta, []httpTest{
		{
			name:     "verified account gets no new code",
			method:   http.MethodPost,
			path:     "/api/auth/resend-otp",
			body:     marshalObj(t, map[string]string{"email": "verified@x.com"}),
			wantCode: http.StatusOK,
			wantData: msg(t, "Account already verified. No new OTP was sent."),
		},
	})
	last, ok := ta.mailSvc.LastMessage()
	require.True(t, ok)
	assert.Equal(t, "alice@x.com", last.To[0].Address)

	if first != second {
		// the previous code no longer works
		req, rec := newRequest(http.MethodPost, "/api/auth/verify-otp",
			marshalObj(t, map[string]string{"email": "alice@x.com", "otpCode": first}))
		ta.serve(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func Test_authApi_forgotAndResetPassword(t *testing.T) {
	ta := setup(t)
	testutil.CreateAdmin(t, ta.adminRepo, "Alice", "Smith", "alice@x.com", testutil.Password, true)
	generic := msg(t, "If an account with that email exists, we've sent password reset instructions.")

	runHTTPTests(t, ta, []httpTest{
		{
			name:     "unknown email gets the generic answer",
			method:   http.MethodPost,
			path:     "/api/auth/forgot-password",
			body:     marshalObj(t, map[string]string{"email": "nobody@x.com"}),
			wantCode: http.StatusOK,
			wantData: generic,
		},
	})
	assert.Empty(t, ta.mailSvc.SentMessages())

	runHTTPTests(t, ta, []httpTest{
		{
			name:     "known email",
			method:   http.MethodPost,
			path:     "/api/auth/forgot-password",
			body:     marshalObj(t, map[string]string{"email": "alice@x.com"}),
			wantCode: http.StatusOK,
			wantData: generic,
		},
	})
	token := lastMailMatch(t, ta, tokenRegex)

	// the token is stored hashed
	adm, err := ta.adminRepo.GetAdminByEmail(context.Background(), "alice@x.com")
	require.NoError(t, err)
	assert.NotEmpty(t, adm.ResetTokenHash)
	assert.NotEqual(t, token, adm.ResetTokenHash)

	newPwd := "N3w&Secure#Pwd"
	runHTTPTests(t, ta, []httpTest{
		{
			name:     "bad token",
			method:   http.MethodPost,
			path:     "/api/auth/reset-password",
			body:     marshalObj(t, map[string]string{"token": "deadbeef", "password": newPwd}),
			wantCode: http.StatusBadRequest,
			wantData: msg(t, "Invalid or expired reset token"),
		},
		{
			name:     "weak password",
			method:   http.MethodPost,
			path:     "/api/auth/reset-password",
			body:     marshalObj(t, map[string]string{"token": token, "password": "short"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "success",
			method:   http.MethodPost,
			path:     "/api/auth/reset-password",
			body:     marshalObj(t, map[string]string{"token": token, "password": newPwd}),
			wantCode: http.StatusOK,
			wantData: msg(t, "Password reset successfully"),
		},
		{
			name:     "token is single-use",
			method:   http.MethodPost,
			path:     "/api/auth/reset-password",
			body:     marshalObj(t, map[string]string{"token": token, "password": "An0ther&Pwd!"}),
			wantCode: http.StatusBadRequest,
			wantData: msg(t, "Invalid or expired reset token"),
		},
		{
			name:     "old password rejected",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     marshalObj(t, map[string]string{"email": "alice@x.com", "password": testutil.Password}),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "new password accepted",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     marshalObj(t, map[string]string{"email": "alice@x.com", "password": newPwd}),
			wantCode: http.StatusOK,
		},
	})
}

func Test_authApi_forgotPassword_notificationFailure(t *testing.T) {
	ta := setup(t)
	testutil.CreateAdmin(t, ta.adminRepo, "Alice", "Smith", "alice@x.com", testutil.Password, true)
	ta.mailSvc.FailWith(errors.New("provider down"))

	runHTTPTests(t, ta, []httpTest{
		{
			name:     "still generic",
			method:   http.MethodPost,
			path:     "/api/auth/forgot-password",
			body:     marshalObj(t, map[string]string{"email": "alice@x.com"}),
			wantCode: http.StatusOK,
			wantData: msg(t, "If an account with that email exists, we've sent password reset instructions."),
		},
	})

	// rolled back
	adm, err := ta.adminRepo.GetAdminByEmail(context.Background(), "alice@x.com")
	require.NoError(t, err)
	assert.Empty(t, adm.ResetTokenHash)
}
