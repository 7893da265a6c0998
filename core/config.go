package core

import (
	"fmt"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const defaultSecretKey = "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy"

var errInsecureSecret = errors.New("SECRET_KEY must be set outside of DEV and TEST")

type Config struct {
	Env              string
	Build            string
	Debug            bool
	TestMode         bool
	AppName          string
	SecretKey        string
	FrontendBaseURL  string
	SendgridApiKey   string
	RollbarToken     string
	defaultFromEmail string

	Server struct {
		Host               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		CORSOrigins        []string
		AuthRateLimit      float64 // requests per second per IP on /auth; 0 disables
		DisableReqLogs     bool
	}

	Auth struct {
		OTPExpirationDelta        time.Duration
		PasswordResetTimeoutDelta time.Duration
		BcryptCost                int
	}

	Twilio struct {
		AccountSID string
		AuthToken  string
		FromPhone  string
	}

	Database struct {
		Engine        string // postgres | sqlite
		Host          string
		Port          string
		Name          string // file path when Engine is sqlite
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}
}

// NewConfig loads the configuration from defaults, the optional config/.env.<env> file and the environment.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "CClient Admin")
	v.SetDefault("secretKey", defaultSecretKey)
	v.SetDefault("frontendBaseURL", "http://localhost:5000")
	v.SetDefault("defaultFromEmail", "CClient Admin <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "0.0.0.0:8000")
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("corsOrigins", []string{"*"})
	v.SetDefault("authRateLimit", float64(0))
	v.SetDefault("disableReqLogs", false)

	v.SetDefault("otpExpirationDelta", 5*time.Minute)
	v.SetDefault("passwordResetTimeoutDelta", 30*time.Minute)
	v.SetDefault("bcryptCost", 12)

	v.SetDefault("twilioAccountSid", "")
	v.SetDefault("twilioAuthToken", "")
	v.SetDefault("twilioFromPhone", "")

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "cclient")
	v.SetDefault("dbUser", "cclient")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbAdminUser", "")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", false)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("bcryptCost", 4)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			panic(fmt.Sprintf("config.godotenv(%s): %v", dotEnvPath, err))
		}
	} else if !os.IsNotExist(err) {
		panic(fmt.Sprintf("config.os.Stat(%s): %v", dotEnvPath, err))
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
	}

	conf.Server.Host = v.GetString("serverHost")
	conf.Server.DebugHost = v.GetString("serverDebugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("serverShutdownTimeout")
	conf.Server.JWTExpirationDelta = v.GetDuration("jwtExpirationDelta")
	conf.Server.CORSOrigins = v.GetStringSlice("corsOrigins")
	conf.Server.AuthRateLimit = v.GetFloat64("authRateLimit")
	conf.Server.DisableReqLogs = v.GetBool("disableReqLogs")

	conf.Auth.OTPExpirationDelta = v.GetDuration("otpExpirationDelta")
	conf.Auth.PasswordResetTimeoutDelta = v.GetDuration("passwordResetTimeoutDelta")
	conf.Auth.BcryptCost = v.GetInt("bcryptCost")

	conf.Twilio.AccountSID = v.GetString("twilioAccountSid")
	conf.Twilio.AuthToken = v.GetString("twilioAuthToken")
	conf.Twilio.FromPhone = v.GetString("twilioFromPhone")

	conf.Database.Engine = v.GetString("dbEngine")
	conf.Database.Host = v.GetString("dbHost")
	conf.Database.Port = v.GetString("dbPort")
	conf.Database.Name = v.GetString("dbName")
	conf.Database.User = v.GetString("dbUser")
	conf.Database.Password = v.GetString("dbPassword")
	conf.Database.AdminUser = v.GetString("dbAdminUser")
	conf.Database.AdminPassword = v.GetString("dbAdminPassword")
	conf.Database.DisableTLS = v.GetBool("dbDisableTLS")

	return conf
}

// Validate refuses configurations that must never reach production.
func (conf *Config) Validate() error {
	if !(conf.Debug || conf.TestMode) && (conf.SecretKey == "" || conf.SecretKey == defaultSecretKey) {
		return errInsecureSecret
	}
	if conf.Database.Engine != "postgres" && conf.Database.Engine != "sqlite" {
		return errors.Errorf("unsupported database engine %q", conf.Database.Engine)
	}
	return nil
}

func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
	}
	return *addr
}

// SetDefaultFromEmail overrides the sender address, mostly for tests.
func (conf *Config) SetDefaultFromEmail(addr string) {
	conf.defaultFromEmail = addr
}

func (conf *Config) SMSEnabled() bool {
	return conf.Twilio.AccountSID != "" && conf.Twilio.AuthToken != "" && conf.Twilio.FromPhone != ""
}

func (conf *Config) DatabaseAddress() string {
	return net.JoinHostPort(conf.Database.Host, conf.Database.Port)
}
