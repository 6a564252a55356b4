package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/andikarp/bus-ticketing/internal/model"
	"github.com/andikarp/bus-ticketing/internal/utils"
)

// ErrEmailExists is returned when registering an email that is already
// taken.
var ErrEmailExists = errors.New("email already exists")

// UserRepo persists accounts and their verification sub-state.  The OTP
// columns (otp_code, otp_issued_at, otp_resend_after) hold the pending
// verification; they are written together on issue and cleared together
// on success so the row is always a consistent snapshot of the state
// machine in the otp package.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts an unverified user and returns its id.
func (r *UserRepo) Create(ctx context.Context, email, password string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, is_verified) VALUES (?,?,FALSE)",
		email, hash)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.get(ctx, "email=?", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.get(ctx, "id=?", id)
}

func (r *UserRepo) get(ctx context.Context, where string, arg interface{}) (model.User, error) {
	var u model.User
	var code sql.NullString
	var issuedAt, resendAfter sql.NullTime
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,is_verified,otp_code,otp_issued_at,otp_resend_after,created_at,updated_at FROM users WHERE "+where+" LIMIT 1",
		arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsVerified,
		&code, &issuedAt, &resendAfter, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	if code.Valid {
		c := code.String
		u.OTPCode = &c
	}
	if issuedAt.Valid {
		t := issuedAt.Time.UTC()
		u.OTPIssuedAt = &t
	}
	if resendAfter.Valid {
		t := resendAfter.Time.UTC()
		u.OTPResendAfter = &t
	}
	return u, nil
}

// StoreOTP writes a freshly issued code and its timestamps, replacing any
// previous pending code.
func (r *UserRepo) StoreOTP(ctx context.Context, userID uint64, code string, issuedAt, resendAfter time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET otp_code=?, otp_issued_at=?, otp_resend_after=? WHERE id=? AND is_verified=FALSE",
		code,
		issuedAt.UTC().Format("2006-01-02 15:04:05"),
		resendAfter.UTC().Format("2006-01-02 15:04:05"),
		userID)
	return err
}

// MarkVerified flips the account to verified and clears the pending code.
// The guard on is_verified keeps redelivered verifications harmless.
func (r *UserRepo) MarkVerified(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_verified=TRUE, otp_code=NULL, otp_issued_at=NULL, otp_resend_after=NULL WHERE id=? AND is_verified=FALSE",
		userID)
	return err
}
