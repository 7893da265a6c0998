package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/cclient/core"
	"github.com/trezcool/cclient/core/admin"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var na admin.NewAdmin

	cmd := &cobra.Command{
		Use:     "adduser",
		Short:   "Create or update a verified admin account",
		Example: "  admin adduser --email alice@example.com --first-name Alice --last-name Doe",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if na.Email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			na.Password = pwd
			adm, err := cli.addUser(cmd.Context(), na)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "admin %q (id %d) is ready\n", adm.Email, adm.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&na.Email, "email", "", "The admin's email. The password will be prompted next.")
	cmd.Flags().StringVar(&na.FirstName, "first-name", "", "The admin's first name (required for new admins)")
	cmd.Flags().StringVar(&na.LastName, "last-name", "", "The admin's last name (required for new admins)")
	cmd.Flags().StringVar(&na.Phone, "phone", "", "The admin's phone number, E.164 formatted")
	return cmd
}

// addUser updates or creates a verified admin.Admin; names left empty keep their stored value.
func (cli *commandLine) addUser(ctx context.Context, na admin.NewAdmin) (admin.Admin, error) {
	email := core.CleanString(na.Email, true /* lower */)
	adm, err := cli.adminRepo.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != admin.ErrNotFound {
			return admin.Admin{}, err
		}
		adm = admin.Admin{CreatedAt: time.Now().UTC()}
	}
	if na.FirstName == "" {
		na.FirstName = adm.FirstName
	}
	if na.LastName == "" {
		na.LastName = adm.LastName
	}
	if na.Phone == "" {
		na.Phone = adm.Phone
	}
	if err = na.Validate(cli.validate); err != nil {
		return admin.Admin{}, cli.describe(err)
	}

	adm.FirstName = na.FirstName
	adm.LastName = na.LastName
	adm.Email = na.Email
	adm.Phone = na.Phone
	adm.IsVerified = true
	adm.ClearOTP()
	if err = adm.SetPassword(na.Password, cli.conf.Auth.BcryptCost); err != nil {
		return admin.Admin{}, errors.Wrap(err, "hashing password")
	}

	if adm.ID == 0 {
		return cli.adminRepo.CreateAdmin(ctx, adm)
	}
	return cli.adminRepo.UpdateAdmin(ctx, adm)
}
