package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/cclient/core"
	"github.com/trezcool/cclient/core/admin"
)

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset an admin's password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			return cli.resetPassword(cmd.Context(), email, pwd)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The admin's email. The password will be prompted next.")
	return cmd
}

func (cli *commandLine) resetPassword(ctx context.Context, email, pwd string) error {
	adm, err := cli.adminRepo.GetAdminByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}

	// the new password goes through the same policy as registration
	check := admin.NewAdmin{
		FirstName: adm.FirstName,
		LastName:  adm.LastName,
		Email:     adm.Email,
		Password:  pwd,
	}
	if err = check.Validate(cli.validate); err != nil {
		return cli.describe(err)
	}

	if err = adm.SetPassword(pwd, cli.conf.Auth.BcryptCost); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	adm.ClearResetToken()
	_, err = cli.adminRepo.UpdateAdmin(ctx, adm)
	return err
}
