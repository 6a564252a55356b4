// Package otp implements the account-verification state machine: an
// account starts unverified, a 6-digit code is issued with a resend
// cooldown, and the account becomes verified once the current code is
// matched before it expires.  The package is pure decision logic over a
// State snapshot; persistence and delivery of the code belong to the
// caller, and the server re-validates the cooldown here on every resend
// regardless of any countdown the client shows.
package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors surfaced to handlers.  All are recoverable and map to
// user-facing responses.
var (
	ErrAlreadyVerified = errors.New("otp: account already verified")
	ErrNotPending      = errors.New("otp: no code pending for account")
	ErrInvalidCode     = errors.New("otp: code does not match")
	ErrExpired         = errors.New("otp: code expired")
	ErrCooldownActive  = errors.New("otp: resend cooldown active")
)

// CodeLength is fixed by the portal's clients and notification templates.
const CodeLength = 6

// State is a snapshot of one account's verification sub-state, loaded from
// the user row.  Verified is terminal: once set, no code is ever pending
// again.
type State struct {
	Verified    bool
	Code        string     // current code; empty unless pending
	IssuedAt    time.Time  // when Code was generated
	ResendAfter time.Time  // earliest accepted resend
}

// Issuance is the result of issuing (or re-issuing) a code: the new code
// with its timestamps, to be persisted on the user row and handed to the
// notification boundary.
type Issuance struct {
	Code        string
	IssuedAt    time.Time
	ResendAfter time.Time
}

// GenerateCode returns a uniformly random code of CodeLength ASCII
// digits.  Bytes of 250 and above are rejected so every digit keeps an
// exactly equal probability.
func GenerateCode() (string, error) {
	code := make([]byte, 0, CodeLength)
	buf := make([]byte, CodeLength)
	for len(code) < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= 250 {
				continue
			}
			code = append(code, '0'+b%10)
			if len(code) == CodeLength {
				break
			}
		}
	}
	return string(code), nil
}

// Issue produces a fresh code for an unverified account, replacing any
// previous one.  cooldown controls how long resends are rejected after
// this issuance.  Fails with ErrAlreadyVerified on a verified account.
func Issue(s State, now time.Time, cooldown time.Duration) (Issuance, error) {
	if s.Verified {
		return Issuance{}, ErrAlreadyVerified
	}
	code, err := GenerateCode()
	if err != nil {
		return Issuance{}, err
	}
	return Issuance{
		Code:        code,
		IssuedAt:    now,
		ResendAfter: now.Add(cooldown),
	}, nil
}

// Resend behaves as Issue but only once the cooldown has elapsed.  Before
// ResendAfter it fails with ErrCooldownActive; use ResendRemaining for the
// seconds to surface to the client.  A successful resend invalidates the
// previous code.
func Resend(s State, now time.Time, cooldown time.Duration) (Issuance, error) {
	if s.Verified {
		return Issuance{}, ErrAlreadyVerified
	}
	if now.Before(s.ResendAfter) {
		return Issuance{}, ErrCooldownActive
	}
	return Issue(s, now, cooldown)
}

// ResendRemaining returns the whole seconds left until a resend is
// accepted, rounded up; zero when a resend would succeed now.
func ResendRemaining(s State, now time.Time) int {
	d := s.ResendAfter.Sub(now)
	if d <= 0 {
		return 0
	}
	secs := int((d + time.Second - 1) / time.Second)
	return secs
}

// Verify checks a submitted code against the pending one.  The match is an
// exact digit-string comparison.  ttl bounds the code's validity from
// IssuedAt; past it the code fails with ErrExpired even if it matches.
// On success the caller marks the account verified and clears the stored
// code.
func Verify(s State, submitted string, now time.Time, ttl time.Duration) error {
	if s.Verified {
		return ErrAlreadyVerified
	}
	if s.Code == "" {
		return ErrNotPending
	}
	if now.After(s.IssuedAt.Add(ttl)) {
		return ErrExpired
	}
	if s.Code != submitted {
		return ErrInvalidCode
	}
	return nil
}

// FormatRef is a small helper for log lines and events: it masks the code,
// keeping only the last two digits.
func FormatRef(code string) string {
	if len(code) < 2 {
		return "****"
	}
	return fmt.Sprintf("****%s", code[len(code)-2:])
}
