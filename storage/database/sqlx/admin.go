package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cclient/core"
	"github.com/trezcool/cclient/core/admin"
)

const adminColumns = "id, first_name, last_name, email, phone, password, is_verified, otp_code, otp_expiry, reset_token, reset_token_expiry, created_at"

type adminRow struct {
	ID               int         `db:"id"`
	FirstName        string      `db:"first_name"`
	LastName         string      `db:"last_name"`
	Email            string      `db:"email"`
	Phone            null.String `db:"phone"`
	Password         []byte      `db:"password"`
	IsVerified       bool        `db:"is_verified"`
	OTPCode          null.String `db:"otp_code"`
	OTPExpiry        null.Time   `db:"otp_expiry"`
	ResetToken       null.String `db:"reset_token"`
	ResetTokenExpiry null.Time   `db:"reset_token_expiry"`
	CreatedAt        null.Time   `db:"created_at"`
}

type adminRepository struct {
	repository
}

var _ admin.Repository = (*adminRepository)(nil) // interface compliance check

func NewAdminRepository(exec core.DBExecutor) *adminRepository {
	return &adminRepository{repository{exec: exec}}
}

func (repo adminRepository) toRow(adm admin.Admin) adminRow {
	return adminRow{
		ID:               adm.ID,
		FirstName:        adm.FirstName,
		LastName:         adm.LastName,
		Email:            adm.Email,
		Phone:            null.NewString(adm.Phone, adm.Phone != ""),
		Password:         adm.PasswordHash,
		IsVerified:       adm.IsVerified,
		OTPCode:          null.NewString(adm.OTPCode, adm.OTPCode != ""),
		OTPExpiry:        null.NewTime(adm.OTPExpiry.UTC(), !adm.OTPExpiry.IsZero()),
		ResetToken:       null.NewString(adm.ResetTokenHash, adm.ResetTokenHash != ""),
		ResetTokenExpiry: null.NewTime(adm.ResetTokenExpiry.UTC(), !adm.ResetTokenExpiry.IsZero()),
		CreatedAt:        null.NewTime(adm.CreatedAt.UTC(), !adm.CreatedAt.IsZero()),
	}
}

func (repo adminRepository) fromRow(row adminRow) admin.Admin {
	adm := admin.Admin{
		ID:             row.ID,
		FirstName:      row.FirstName,
		LastName:       row.LastName,
		Email:          row.Email,
		Phone:          row.Phone.String,
		IsVerified:     row.IsVerified,
		PasswordHash:   row.Password,
		OTPCode:        row.OTPCode.String,
		ResetTokenHash: row.ResetToken.String,
	}
	if row.OTPExpiry.Valid {
		adm.OTPExpiry = row.OTPExpiry.Time.UTC()
	}
	if row.ResetTokenExpiry.Valid {
		adm.ResetTokenExpiry = row.ResetTokenExpiry.Time.UTC()
	}
	if row.CreatedAt.Valid {
		adm.CreatedAt = row.CreatedAt.Time.UTC()
	}
	return adm
}

func (repo adminRepository) getOne(ctx context.Context, exe core.DBExecutor, where string, arg interface{}) (admin.Admin, error) {
	var row adminRow
	q := rebind(exe, "SELECT "+adminColumns+" FROM admins WHERE "+where+" = ?")
	if err := exe.GetContext(ctx, &row, q, arg); err != nil {
		return admin.Admin{}, trapNoRowsErr(err, admin.ErrNotFound, "finding admin by "+where)
	}
	return repo.fromRow(row), nil
}

func (repo adminRepository) CreateAdmin(ctx context.Context, adm admin.Admin, exec ...core.DBExecutor) (admin.Admin, error) {
	exe := repo.getExec(exec)
	row := repo.toRow(adm)

	var id int
	q := rebind(exe, `INSERT INTO admins
		(first_name, last_name, email, phone, password, is_verified, otp_code, otp_expiry, reset_token, reset_token_expiry, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := exe.QueryRowxContext(
		ctx, q,
		row.FirstName, row.LastName, row.Email, row.Phone, row.Password, row.IsVerified,
		row.OTPCode, row.OTPExpiry, row.ResetToken, row.ResetTokenExpiry, row.CreatedAt,
	).Scan(&id)
	if err != nil {
		return admin.Admin{}, trapWriteErr(err, admin.ErrDuplicateAccount, "inserting admin")
	}
	return repo.getOne(ctx, exe, "id", id)
}

func (repo adminRepository) GetAdminByID(ctx context.Context, id int, exec ...core.DBExecutor) (admin.Admin, error) {
	if id <= 0 {
		return admin.Admin{}, admin.ErrNotFound
	}
	return repo.getOne(ctx, repo.getExec(exec), "id", id)
}

func (repo adminRepository) GetAdminByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (admin.Admin, error) {
	if email == "" {
		return admin.Admin{}, admin.ErrNotFound
	}
	return repo.getOne(ctx, repo.getExec(exec), "email", email)
}

func (repo adminRepository) GetAdminByResetToken(ctx context.Context, tokenHash string, exec ...core.DBExecutor) (admin.Admin, error) {
	if tokenHash == "" {
		return admin.Admin{}, admin.ErrNotFound
	}
	return repo.getOne(ctx, repo.getExec(exec), "reset_token", tokenHash)
}

func (repo adminRepository) UpdateAdmin(ctx context.Context, adm admin.Admin, exec ...core.DBExecutor) (admin.Admin, error) {
	exe := repo.getExec(exec)
	row := repo.toRow(adm)

	q := rebind(exe, `UPDATE admins SET
		first_name = ?, last_name = ?, email = ?, phone = ?, password = ?, is_verified = ?,
		otp_code = ?, otp_expiry = ?, reset_token = ?, reset_token_expiry = ?
		WHERE id = ?`)
	res, err := exe.ExecContext(
		ctx, q,
		row.FirstName, row.LastName, row.Email, row.Phone, row.Password, row.IsVerified,
		row.OTPCode, row.OTPExpiry, row.ResetToken, row.ResetTokenExpiry, row.ID,
	)
	if err != nil {
		return admin.Admin{}, trapWriteErr(err, admin.ErrDuplicateAccount, "updating admin")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return admin.Admin{}, admin.ErrNotFound
	}
	return repo.getOne(ctx, exe, "id", adm.ID)
}

func (repo adminRepository) SaveOTP(ctx context.Context, id int, code string, expiry time.Time, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	q := rebind(exe, "UPDATE admins SET otp_code = ?, otp_expiry = ? WHERE id = ?")
	res, err := exe.ExecContext(ctx, q, code, expiry.UTC(), id)
	if err != nil {
		return errors.Wrap(err, "saving OTP")
	}
	return expectOneRow(res, admin.ErrNotFound)
}

// ConsumeOTP verifies the admin only while otp_code still equals code.
func (repo adminRepository) ConsumeOTP(ctx context.Context, id int, code string, exec ...core.DBExecutor) (admin.Admin, error) {
	exe := repo.getExec(exec)
	q := rebind(exe, `UPDATE admins SET is_verified = ?, otp_code = NULL, otp_expiry = NULL
		WHERE id = ? AND otp_code = ?`)
	res, err := exe.ExecContext(ctx, q, true, id, code)
	if err != nil {
		return admin.Admin{}, errors.Wrap(err, "consuming OTP")
	}
	if err = expectOneRow(res, admin.ErrInvalidCode); err != nil {
		return admin.Admin{}, err
	}
	return repo.getOne(ctx, exe, "id", id)
}

func (repo adminRepository) SaveResetToken(ctx context.Context, id int, tokenHash string, expiry time.Time, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	q := rebind(exe, "UPDATE admins SET reset_token = ?, reset_token_expiry = ? WHERE id = ?")
	res, err := exe.ExecContext(ctx, q, tokenHash, expiry.UTC(), id)
	if err != nil {
		return errors.Wrap(err, "saving reset token")
	}
	return expectOneRow(res, admin.ErrNotFound)
}

// ConsumeResetToken sets the password only while reset_token still equals tokenHash.
func (repo adminRepository) ConsumeResetToken(ctx context.Context, id int, tokenHash string, pwdHash []byte, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	q := rebind(exe, `UPDATE admins SET password = ?, reset_token = NULL, reset_token_expiry = NULL
		WHERE id = ? AND reset_token = ?`)
	res, err := exe.ExecContext(ctx, q, pwdHash, id, tokenHash)
	if err != nil {
		return errors.Wrap(err, "consuming reset token")
	}
	return expectOneRow(res, admin.ErrInvalidResetToken)
}

func (repo adminRepository) DeleteAdmin(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return deleteByID(ctx, repo.getExec(exec), "admins", id, admin.ErrNotFound)
}
