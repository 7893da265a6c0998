package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cclient/core"
	"github.com/trezcool/cclient/core/admin"
)

const (
	msgRegistered     = "Admin registered successfully. Please check your email for verification code."
	msgVerified       = "Account verified successfully"
	msgLoggedIn       = "Login successful"
	msgLoggedOut      = "Logout successful"
	msgOTPResent      = "New OTP sent successfully"
	msgNoOTPNeeded    = "Account already verified. No new OTP was sent."
	msgResetRequested = "If an account with that email exists, we've sent password reset instructions."
	msgPasswordReset  = "Password reset successfully"
)

type (
	adminApi struct {
		svc      admin.Service
		logger   core.Logger
		validate *validator.Validate
	}

	// AdminSummary is the admin identity handed back with a session token.
	AdminSummary struct {
		ID        int    `json:"id"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}

	RegisterResponse struct {
		Message string `json:"message"`
		Email   string `json:"email"`
	}

	TokenResponse struct {
		Message string       `json:"message"`
		Token   string       `json:"token"`
		Admin   AdminSummary `json:"admin"`
	}

	MeResponse struct {
		Admin admin.Admin `json:"admin"`
	}
)

func newAdminSummary(adm admin.Admin) AdminSummary {
	return AdminSummary{ID: adm.ID, FirstName: adm.FirstName, LastName: adm.LastName, Email: adm.Email}
}

func registerAdminAPI(
	g *echo.Group,
	auth echo.MiddlewareFunc,
	limiter []echo.MiddlewareFunc,
	svc admin.Service,
	logger core.Logger,
	validate *validator.Validate,
) {
	api := adminApi{
		svc:      svc,
		logger:   logger,
		validate: validate,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/register", api.register, limiter...)
	ag.POST("/verify-otp", api.verifyOTP, limiter...)
	ag.POST("/login", api.login, limiter...)
	ag.POST("/resend-otp", api.resendOTP, limiter...)
	ag.POST("/forgot-password", api.forgotPassword, limiter...)
	ag.POST("/reset-password", api.resetPassword, limiter...)

	// authed endpoints
	ag.POST("/logout", api.logout, auth)
	ag.GET("/me", api.me, auth)
}

// Handlers

func (api *adminApi) register(ctx echo.Context) error {
	var data admin.NewAdmin
	if err := ctx.Bind(&data); err != nil {
		return errInvalidBody
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	adm, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering admin")
	}
	return ctx.JSON(http.StatusCreated, RegisterResponse{Message: msgRegistered, Email: adm.Email})
}

func (api *adminApi) verifyOTP(ctx echo.Context) error {
	var data admin.VerifyOTP
	if err := ctx.Bind(&data); err != nil {
		return errInvalidBody
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	adm, token, err := api.svc.VerifyOTP(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "verifying OTP")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Message: msgVerified, Token: token, Admin: newAdminSummary(adm)})
}

func (api *adminApi) login(ctx echo.Context) error {
	var data admin.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errInvalidBody
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	adm, token, err := api.svc.Login(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "logging in")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Message: msgLoggedIn, Token: token, Admin: newAdminSummary(adm)})
}

func (api *adminApi) resendOTP(ctx echo.Context) error {
	var data admin.EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errInvalidBody
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResendOTP(ctx.Request().Context(), data.Email); err != nil {
		if errors.Cause(err) == admin.ErrAlreadyVerified {
			return ctx.JSON(http.StatusOK, MessageResponse{Message: msgNoOTPNeeded})
		}
		return errors.Wrap(err, "resending OTP")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: msgOTPResent})
}

func (api *adminApi) forgotPassword(ctx echo.Context) error {
	var data admin.EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errInvalidBody
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		// do not tell whether the account exists
		api.logger.Error("requesting password reset", err)
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: msgResetRequested})
}

func (api *adminApi) resetPassword(ctx echo.Context) error {
	var data admin.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errInvalidBody
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: msgPasswordReset})
}

// logout keeps no server state: the client discards its token.
func (api *adminApi) logout(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, MessageResponse{Message: msgLoggedOut})
}

func (api *adminApi) me(ctx echo.Context) error {
	adm, ok := getContextAdmin(ctx)
	if !ok {
		return errTokenRequired
	}
	return ctx.JSON(http.StatusOK, MeResponse{Admin: adm})
}
