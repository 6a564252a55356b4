package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCooldown = 60 * time.Second
	testTTL      = 10 * time.Minute
)

var t0 = time.Date(2025, 4, 12, 9, 0, 0, 0, time.UTC)

func pendingState(iss Issuance) State {
	return State{Code: iss.Code, IssuedAt: iss.IssuedAt, ResendAfter: iss.ResendAfter}
}

func TestGenerateCode(t *testing.T) {
	// Enough iterations that the rejection path (bytes >= 250) is all but
	// guaranteed to be exercised.
	for i := 0; i < 200; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, CodeLength)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "non-digit %q in code", r)
		}
	}
}

func TestIssueSetsCooldown(t *testing.T) {
	iss, err := Issue(State{}, t0, testCooldown)
	require.NoError(t, err)
	assert.Len(t, iss.Code, CodeLength)
	assert.Equal(t, t0, iss.IssuedAt)
	assert.Equal(t, t0.Add(testCooldown), iss.ResendAfter)
}

func TestIssueOnVerifiedAccount(t *testing.T) {
	_, err := Issue(State{Verified: true}, t0, testCooldown)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestResendRejectedDuringCooldown(t *testing.T) {
	iss, err := Issue(State{}, t0, testCooldown)
	require.NoError(t, err)
	s := pendingState(iss)

	// 30s after issuance the 60s cooldown still holds, whatever countdown
	// the client may be showing.
	_, err = Resend(s, t0.Add(30*time.Second), testCooldown)
	assert.ErrorIs(t, err, ErrCooldownActive)
	assert.Equal(t, 30, ResendRemaining(s, t0.Add(30*time.Second)))
}

func TestResendAfterCooldownReplacesCode(t *testing.T) {
	iss, err := Issue(State{}, t0, testCooldown)
	require.NoError(t, err)
	s := pendingState(iss)

	later := t0.Add(61 * time.Second)
	second, err := Resend(s, later, testCooldown)
	require.NoError(t, err)
	assert.Equal(t, later, second.IssuedAt)
	assert.Equal(t, later.Add(testCooldown), second.ResendAfter)
	assert.Equal(t, 0, ResendRemaining(s, later))

	// Only the latest code verifies; the replaced one is dead even inside
	// its original validity window.
	fresh := pendingState(second)
	if iss.Code != second.Code {
		assert.ErrorIs(t, Verify(fresh, iss.Code, later, testTTL), ErrInvalidCode)
	}
	assert.NoError(t, Verify(fresh, second.Code, later, testTTL))
}

func TestResendAtExactBoundary(t *testing.T) {
	iss, err := Issue(State{}, t0, testCooldown)
	require.NoError(t, err)

	_, err = Resend(pendingState(iss), iss.ResendAfter, testCooldown)
	assert.NoError(t, err)
}

func TestVerify(t *testing.T) {
	s := State{Code: "482915", IssuedAt: t0, ResendAfter: t0.Add(testCooldown)}

	assert.NoError(t, Verify(s, "482915", t0.Add(time.Minute), testTTL))
	assert.ErrorIs(t, Verify(s, "000000", t0.Add(time.Minute), testTTL), ErrInvalidCode)
	assert.ErrorIs(t, Verify(s, "482915", t0.Add(testTTL+time.Second), testTTL), ErrExpired)
}

func TestVerifyWithoutPendingCode(t *testing.T) {
	assert.ErrorIs(t, Verify(State{}, "123456", t0, testTTL), ErrNotPending)
	assert.ErrorIs(t, Verify(State{Verified: true}, "123456", t0, testTTL), ErrAlreadyVerified)
}

func TestResendRemainingRoundsUp(t *testing.T) {
	s := State{ResendAfter: t0.Add(59*time.Second + 400*time.Millisecond)}
	assert.Equal(t, 60, ResendRemaining(s, t0))
	assert.Equal(t, 0, ResendRemaining(s, t0.Add(time.Minute)))
}

func TestFormatRefMasksCode(t *testing.T) {
	assert.Equal(t, "****56", FormatRef("123456"))
	assert.Equal(t, "****", FormatRef("7"))
}
