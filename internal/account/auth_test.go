package account

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter2", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)
	assert.True(t, CheckPassword(hash, "hunter2"))
	assert.False(t, CheckPassword(hash, "hunter3"))
}

func TestChallenges(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newChallenges(time.Minute)

	id := c.issue("u1", now)
	user, err := c.peek(id, now.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "u1", user)

	_, err = c.peek(id, now.Add(time.Minute))
	require.ErrorIs(t, err, errChallenge)
	assert.Zero(t, c.len(), "expired challenge is dropped on lookup")

	_, err = c.peek("unknown", now)
	require.ErrorIs(t, err, errChallenge)
}

func TestChallengesDropAfterFailures(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newChallenges(time.Minute)
	id := c.issue("u1", now)

	for range maxChallengeAttempts - 1 {
		c.fail(id)
	}
	_, err := c.peek(id, now)
	require.NoError(t, err, "still live below the limit")

	c.fail(id)
	_, err = c.peek(id, now)
	require.ErrorIs(t, err, errChallenge)

	// Unknown ids are ignored
	c.fail("unknown")
	assert.Zero(t, c.len())
}

func TestChallengesSweepOnIssue(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newChallenges(time.Minute)

	c.issue("u1", now)
	c.issue("u2", now)
	c.issue("u3", now.Add(2*time.Minute))
	assert.Equal(t, 1, c.len())
}

func TestTOTPRoundTrip(t *testing.T) {
	secret, url, err := GenerateTOTP("speed2048", "alice")
	require.NoError(t, err)
	assert.Contains(t, url, "issuer=speed2048")

	now := time.Unix(1_700_000_000, 0)
	code, err := TOTPCode(secret, now)
	require.NoError(t, err)
	assert.Len(t, code, 6)

	assert.True(t, ValidateTOTP(code, secret, now))
	assert.True(t, ValidateTOTP(code, secret, now.Add(30*time.Second)), "one period of skew is allowed")
	assert.False(t, ValidateTOTP(code, secret, now.Add(5*time.Minute)))
	assert.False(t, ValidateTOTP("abc", secret, now))
}

func TestValidateRegistration(t *testing.T) {
	field, _ := validateRegistration(RegisterRequest{Username: "a", Password: "b", Email: "a@b.co"})
	assert.Empty(t, field)

	field, _ = validateRegistration(RegisterRequest{Username: "a", Password: "b", Email: "a@b"})
	assert.Equal(t, "email", field)
}
