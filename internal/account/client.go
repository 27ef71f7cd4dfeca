package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vovakirdan/speed2048/internal/session"
	"github.com/vovakirdan/speed2048/internal/speedrun"
)

// Client is a typed client for the account service.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL.
// token may be empty for unauthenticated calls.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy of the client that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Token returns the bearer token in use.
func (c *Client) Token() string {
	return c.token
}

// do sends a request and decodes a successful JSON response into out.
// Failed requests return the decoded *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("account: encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("account: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("account: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var envelope ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error.Type == "" {
			return fmt.Errorf("account: %s %s: status %d", method, path, resp.StatusCode)
		}
		return &envelope.Error
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("account: decode response: %w", err)
	}
	return nil
}

// Health checks that the service is up.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, username, password, email string) error {
	return c.do(ctx, http.MethodPost, "/register", RegisterRequest{
		Username: username,
		Password: password,
		Email:    email,
	}, nil)
}

// Login verifies credentials. When the response carries TwoFactorRequired,
// finish with LoginTwoFactor.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/login", LoginRequest{Username: username, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoginTwoFactor completes a login challenge with a TOTP code.
func (c *Client) LoginTwoFactor(ctx context.Context, challenge, code string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/login/2fa", TwoFactorLoginRequest{Challenge: challenge, Code: code}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the client token.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil)
}

// SetupTwoFactor starts 2FA enrollment and returns the secret and otpauth URL.
func (c *Client) SetupTwoFactor(ctx context.Context) (*TwoFactorSetupResponse, error) {
	var out TwoFactorSetupResponse
	if err := c.do(ctx, http.MethodPost, "/2fa/setup", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnableTwoFactor confirms enrollment with a code from the authenticator.
func (c *Client) EnableTwoFactor(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodPost, "/2fa/enable", TwoFactorEnableRequest{Code: code}, nil)
}

// SaveScore submits a classic score.
func (c *Client) SaveScore(ctx context.Context, score int) (*SaveScoreResponse, error) {
	var out SaveScoreResponse
	if err := c.do(ctx, http.MethodPost, "/save-score", SaveScoreRequest{Score: score}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BestScore returns the stored best classic score.
func (c *Client) BestScore(ctx context.Context) (int, error) {
	var out BestScoreResponse
	if err := c.do(ctx, http.MethodGet, "/best-score", nil, &out); err != nil {
		return 0, err
	}
	return out.BestScore, nil
}

// SaveSpeedrun submits a finished speedrun. bestTime is nil for a lost run.
func (c *Client) SaveSpeedrun(ctx context.Context, bestTime *int64, blocks speedrun.Milestones) (bool, error) {
	var out SaveSpeedrunResponse
	req := SaveSpeedrunRequest{BestTime: bestTime, BestBlockTimes: blocks}
	if err := c.do(ctx, http.MethodPost, "/save-speedrun-result", req, &out); err != nil {
		return false, err
	}
	return out.Updated, nil
}

// UserResults returns the personal bests of the authenticated user.
func (c *Client) UserResults(ctx context.Context) (*UserResultsResponse, error) {
	var out UserResultsResponse
	if err := c.do(ctx, http.MethodGet, "/user-results", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Leaderboard fetches one page of the leaderboard for mode.
func (c *Client) Leaderboard(ctx context.Context, mode string, page, perPage int) (*LeaderboardResponse, error) {
	q := url.Values{}
	q.Set("mode", mode)
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}

	var out LeaderboardResponse
	if err := c.do(ctx, http.MethodGet, "/leaderboard?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitRun reconciles a finished run with the account's personal bests.
// Classic runs submit their score; speedruns submit milestone times and,
// when won, the completion time.
func (c *Client) SubmitRun(ctx context.Context, res session.RunResult) error {
	switch res.Mode {
	case session.ModeSpeedrun:
		var bestTime *int64
		if res.Won {
			t := res.ElapsedMillis
			bestTime = &t
		}
		_, err := c.SaveSpeedrun(ctx, bestTime, res.Milestones)
		return err
	default:
		_, err := c.SaveScore(ctx, res.Score)
		return err
	}
}
