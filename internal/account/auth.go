package account

import (
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// errChallenge is returned for unknown or expired login challenges.
var errChallenge = errors.New("account: invalid or expired challenge")

// validateRegistration checks the registration fields and returns the
// offending field name and message when something is wrong.
func validateRegistration(req RegisterRequest) (field, message string) {
	switch {
	case strings.TrimSpace(req.Username) == "":
		return "username", "username is required"
	case req.Password == "":
		return "password", "password is required"
	case req.Email == "":
		return "email", "email is required"
	case !emailPattern.MatchString(req.Email):
		return "email", "email address is invalid"
	}
	return "", ""
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// newToken returns an opaque random token.
func newToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

// maxChallengeAttempts is the number of wrong codes a challenge accepts
// before it is dropped.
const maxChallengeAttempts = 5

// challenges holds pending two-factor logins: password verified, TOTP
// code outstanding. Entries expire after ttl or after too many wrong
// codes, and are single-use.
type challenges struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[string]challenge
}

type challenge struct {
	userID    string
	expiresAt time.Time
	attempts  int
}

func newChallenges(ttl time.Duration) *challenges {
	return &challenges{
		ttl:     ttl,
		pending: make(map[string]challenge),
	}
}

// issue creates a challenge for userID.
func (c *challenges) issue(userID string, now time.Time) string {
	id := uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked(now)
	c.pending[id] = challenge{userID: userID, expiresAt: now.Add(c.ttl)}
	return id
}

// peek returns the user of a live challenge without consuming it.
func (c *challenges) peek(id string, now time.Time) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.pending[id]
	if !ok || !now.Before(ch.expiresAt) {
		delete(c.pending, id)
		return "", errChallenge
	}
	return ch.userID, nil
}

// fail counts a wrong code against a challenge and drops it once
// maxChallengeAttempts is reached.
func (c *challenges) fail(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.pending[id]
	if !ok {
		return
	}
	ch.attempts++
	if ch.attempts >= maxChallengeAttempts {
		delete(c.pending, id)
		return
	}
	c.pending[id] = ch
}

// consume removes a challenge after a successful code check.
func (c *challenges) consume(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *challenges) sweepLocked(now time.Time) {
	for id, ch := range c.pending {
		if !now.Before(ch.expiresAt) {
			delete(c.pending, id)
		}
	}
}

// len returns the number of pending challenges.
func (c *challenges) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
