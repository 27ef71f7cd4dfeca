package account

import "github.com/vovakirdan/speed2048/internal/speedrun"

// Error types reported in the error envelope.
const (
	ErrTypeValidation   = "validation_error"
	ErrTypeInvalidJSON  = "invalid_json"
	ErrTypeConflict     = "conflict"
	ErrTypeUnauthorized = "unauthorized"
	ErrTypeInvalidCode  = "invalid_code"
	ErrTypeNotFound     = "not_found"
	ErrTypeInternal     = "internal_error"
)

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by /login and /login/2fa. When the account has
// two-factor login enabled, /login returns only TwoFactorRequired and
// Challenge; the token is issued by /login/2fa.
type LoginResponse struct {
	Success           bool         `json:"success"`
	Token             string       `json:"token,omitempty"`
	User              *UserSummary `json:"user,omitempty"`
	TwoFactorRequired bool         `json:"two_factor_required,omitempty"`
	Challenge         string       `json:"challenge,omitempty"`
}

// UserSummary is the public part of an account.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TwoFactorLoginRequest is the body of POST /login/2fa.
type TwoFactorLoginRequest struct {
	Challenge string `json:"challenge"`
	Code      string `json:"code"`
}

// TwoFactorSetupResponse is returned by POST /2fa/setup.
type TwoFactorSetupResponse struct {
	Success bool   `json:"success"`
	Secret  string `json:"secret"`
	URL     string `json:"url"`
}

// TwoFactorEnableRequest is the body of POST /2fa/enable.
type TwoFactorEnableRequest struct {
	Code string `json:"code"`
}

// SaveScoreRequest is the body of POST /save-score.
type SaveScoreRequest struct {
	Score int `json:"score"`
}

// SaveScoreResponse reports whether the best score changed.
type SaveScoreResponse struct {
	Success   bool `json:"success"`
	Updated   bool `json:"updated"`
	BestScore int  `json:"best_score"`
}

// BestScoreResponse is returned by GET /best-score.
type BestScoreResponse struct {
	Success   bool `json:"success"`
	BestScore int  `json:"best_score"`
}

// SaveSpeedrunRequest is the body of POST /save-speedrun-result.
// BestTime is nil for a run that did not reach the win tile.
type SaveSpeedrunRequest struct {
	BestTime       *int64              `json:"best_time"`
	BestBlockTimes speedrun.Milestones `json:"best_block_times"`
}

// SaveSpeedrunResponse reports whether any stored best changed.
type SaveSpeedrunResponse struct {
	Success bool `json:"success"`
	Updated bool `json:"updated"`
}

// UserResultsResponse is returned by GET /user-results.
type UserResultsResponse struct {
	Success          bool                `json:"success"`
	BestScore        int                 `json:"best_score"`
	BestSpeedrunTime *int64              `json:"best_speedrun_time"`
	BestBlockTimes   speedrun.Milestones `json:"best_block_times"`
}

// LeaderboardEntry is one leaderboard row.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	Username  string `json:"username"`
	BestScore int    `json:"best_score,omitempty"`
	BestTime  int64  `json:"best_time,omitempty"`
}

// LeaderboardResponse is returned by GET /leaderboard.
type LeaderboardResponse struct {
	Success bool               `json:"success"`
	Mode    string             `json:"mode"`
	Page    int                `json:"page"`
	PerPage int                `json:"per_page"`
	Total   int                `json:"total"`
	Entries []LeaderboardEntry `json:"entries"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// MessageResponse is a plain success acknowledgement.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
