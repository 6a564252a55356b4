package model

import "time"

// User represents an account record as stored in the `users` table.  An
// account is created unverified; a 6-digit OTP is issued to confirm email
// ownership before the account may log in.  While verification is pending
// the current code and its issuance/cooldown timestamps live on the row;
// once verified the code is cleared and never reissued.
//
// Fields:
//  ID             – primary key identifier.
//  Email          – unique email address (stored lowercased).
//  PasswordHash   – bcrypt hashed password.
//  IsVerified     – whether email ownership has been confirmed.
//  OTPCode        – current 6-digit code; nil unless verification pending.
//  OTPIssuedAt    – when the current code was generated.
//  OTPResendAfter – earliest instant a resend is accepted.
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type User struct {
	ID             uint64     // users.id
	Email          string     // users.email
	PasswordHash   string     // users.password_hash
	IsVerified     bool       // users.is_verified
	OTPCode        *string    // users.otp_code (nullable)
	OTPIssuedAt    *time.Time // users.otp_issued_at (nullable)
	OTPResendAfter *time.Time // users.otp_resend_after (nullable)
	CreatedAt      time.Time  // users.created_at
	UpdatedAt      time.Time  // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token value is persisted.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
