package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cclient/core/admin"
	sqlxrepos "github.com/trezcool/cclient/storage/database/sqlx"
	testutil "github.com/trezcool/cclient/tests"
)

func setup(t *testing.T) *commandLine {
	conf := testutil.NewConfig()
	db := testutil.PrepareDB(t)
	validate, translator := testutil.NewValidator(conf)

	return &commandLine{
		db:         db,
		conf:       conf,
		logger:     testutil.NewLogger(conf),
		adminRepo:  sqlxrepos.NewAdminRepository(db),
		validate:   validate,
		translator: translator,
		out:        io.Discard,
	}
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), tt.wantErrStr)
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_root(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		if dir != "migrations/sqlite" {
			return fmt.Errorf("unexpected migrations dir %q", dir)
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: `"lol": no such command`},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	existing := testutil.CreateAdmin(t, cli.adminRepo, "Bob", "Smith", "bob@x.com", testutil.Password, false)

	tests := []cliTest{
		{name: "no email", args: []string{"adduser"}, wantErr: errHelp},
		{name: "empty password", args: []string{"adduser", "--email", "carol@x.com"}, wantErr: errHelp},
		{name: "invalid email", args: []string{"adduser", "--email", "carol"}, pwd: "N3w-Passw0rd!x", wantErrStr: "email"},
		{name: "weak password", args: []string{"adduser", "--email", "carol@x.com"}, pwd: "lol", wantErrStr: "password must contain at least 8 characters"},
		{name: "invalid phone", args: []string{"adduser", "--email", "carol@x.com", "--phone", "0812"}, pwd: "N3w-Passw0rd!x", wantErrStr: "phone"},
		{name: "create", args: []string{"adduser", "--email", " Carol@X.com ", "--first-name", "Carol", "--last-name", "Jones"}, pwd: "N3w-Passw0rd!x"},
		{name: "update existing", args: []string{"adduser", "--email", existing.Email, "--first-name", "Robert"}, pwd: "An0ther-Pass!word"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	carol, err := cli.adminRepo.GetAdminByEmail(ctx, "carol@x.com")
	require.NoError(t, err)
	assert.True(t, carol.IsVerified)
	assert.Equal(t, "Carol", carol.FirstName)
	assert.Equal(t, "Jones", carol.LastName)
	assert.NoError(t, carol.CheckPassword("N3w-Passw0rd!x"))

	bob, err := cli.adminRepo.GetAdminByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.True(t, bob.IsVerified)
	assert.Equal(t, "Robert", bob.FirstName)
	assert.Empty(t, bob.OTPCode)
	assert.NoError(t, bob.CheckPassword("An0ther-Pass!word"))
	assert.Equal(t, existing.CreatedAt.Unix(), bob.CreatedAt.Unix())
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	adm := testutil.CreateAdmin(t, cli.adminRepo, "Alice", "Doe", "alice@x.com", testutil.Password, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "--email", adm.Email}, wantErr: errHelp},
		{name: "admin not found", args: []string{"resetpassword", "--email", "lol@x.com"}, pwd: "N3w-Passw0rd!x", wantErr: admin.ErrNotFound},
		{name: "weak password", args: []string{"resetpassword", "--email", adm.Email}, pwd: "12345678", wantErrStr: "password cannot be entirely numeric"},
		{name: "reset", args: []string{"resetpassword", "--email", "ALICE@x.com"}, pwd: "N3w-Passw0rd!x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	refreshed, err := cli.adminRepo.GetAdminByID(ctx, adm.ID)
	require.NoError(t, err)
	assert.NotEqual(t, adm.PasswordHash, refreshed.PasswordHash)
	assert.NoError(t, refreshed.CheckPassword("N3w-Passw0rd!x"))
}
