package account

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/speed2048/internal/speedrun"
	"github.com/vovakirdan/speed2048/internal/storage"
)

const maxBodyBytes = 64 << 10

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// decode reads a JSON body into v, writing the error envelope on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeInvalidJSON, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: s.now().Sub(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if field, msg := validateRegistration(req); field != "" {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, msg)
		return
	}

	ctx := r.Context()
	exists, err := s.store.UserExists(ctx, req.Username, req.Email)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if exists {
		s.writeError(w, r, http.StatusConflict, ErrTypeConflict, "username or email already registered")
		return
	}

	hash, err := HashPassword(req.Password, s.opts.BcryptCost)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	user := storage.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			s.writeError(w, r, http.StatusConflict, ErrTypeConflict, "username or email already registered")
			return
		}
		s.internalError(w, r, err)
		return
	}

	s.logger.Info("user registered", "user", user.Username)
	writeJSON(w, http.StatusCreated, MessageResponse{Success: true, Message: "registered"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "username and password are required")
		return
	}

	user, err := s.store.UserByName(r.Context(), strings.TrimSpace(req.Username))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.internalError(w, r, err)
		return
	}
	if user == nil {
		// Same bcrypt cost as a real check so timing does not reveal the name
		CheckPassword(s.dummyHash, req.Password)
		s.writeError(w, r, http.StatusUnauthorized, ErrTypeUnauthorized, "invalid username or password")
		return
	}
	if !CheckPassword(user.PasswordHash, req.Password) {
		s.writeError(w, r, http.StatusUnauthorized, ErrTypeUnauthorized, "invalid username or password")
		return
	}

	if user.TOTPEnabled {
		writeJSON(w, http.StatusOK, LoginResponse{
			Success:           true,
			TwoFactorRequired: true,
			Challenge:         s.challenges.issue(user.ID, s.now()),
		})
		return
	}

	s.issueSession(w, r, user)
}

func (s *Server) handleLoginTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req TwoFactorLoginRequest
	if !s.decode(w, r, &req) {
		return
	}

	now := s.now()
	userID, err := s.challenges.peek(req.Challenge, now)
	if err != nil {
		s.writeError(w, r, http.StatusUnauthorized, ErrTypeUnauthorized, "invalid or expired challenge")
		return
	}

	user, err := s.store.UserByID(r.Context(), userID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if !ValidateTOTP(req.Code, user.TOTPSecret, now) {
		s.challenges.fail(req.Challenge)
		s.writeError(w, r, http.StatusUnauthorized, ErrTypeInvalidCode, "invalid two-factor code")
		return
	}

	s.challenges.consume(req.Challenge)
	s.issueSession(w, r, user)
}

func (s *Server) issueSession(w http.ResponseWriter, r *http.Request, user *storage.User) {
	token := newToken()
	if err := s.store.CreateSession(r.Context(), token, user.ID, s.now().Add(s.opts.SessionTTL)); err != nil {
		s.internalError(w, r, err)
		return
	}

	s.logger.Info("user logged in", "user", user.Username)
	writeJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Token:   token,
		User: &UserSummary{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
		},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := r.Context().Value(tokenKey).(string)
	if err := s.store.DeleteSession(r.Context(), token); err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "logged out"})
}

func (s *Server) handleTwoFactorSetup(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	if user.TOTPEnabled {
		s.writeError(w, r, http.StatusConflict, ErrTypeConflict, "two-factor authentication is already enabled")
		return
	}

	secret, url, err := GenerateTOTP(s.opts.Issuer, user.Username)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if err := s.store.SetTOTPSecret(r.Context(), user.ID, secret); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, r, http.StatusConflict, ErrTypeConflict, "two-factor authentication is already enabled")
			return
		}
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, TwoFactorSetupResponse{Success: true, Secret: secret, URL: url})
}

func (s *Server) handleTwoFactorEnable(w http.ResponseWriter, r *http.Request) {
	var req TwoFactorEnableRequest
	if !s.decode(w, r, &req) {
		return
	}

	// Re-read the user: the secret was stored after the session was resolved
	user, err := s.store.UserByID(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if user.TOTPSecret == "" {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "two-factor setup has not been started")
		return
	}
	if !ValidateTOTP(req.Code, user.TOTPSecret, s.now()) {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeInvalidCode, "invalid two-factor code")
		return
	}
	if err := s.store.EnableTOTP(r.Context(), user.ID); err != nil {
		s.internalError(w, r, err)
		return
	}

	s.logger.Info("two-factor enabled", "user", user.Username)
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "two-factor login enabled"})
}

func (s *Server) handleSaveScore(w http.ResponseWriter, r *http.Request) {
	var req SaveScoreRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Score < 0 {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "score must not be negative")
		return
	}

	updated, best, err := s.store.UpdateBestScore(r.Context(), currentUser(r.Context()).ID, req.Score)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SaveScoreResponse{Success: true, Updated: updated, BestScore: best})
}

func (s *Server) handleBestScore(w http.ResponseWriter, r *http.Request) {
	res, err := s.store.UserResults(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BestScoreResponse{Success: true, BestScore: res.BestScore})
}

func (s *Server) handleSaveSpeedrun(w http.ResponseWriter, r *http.Request) {
	var req SaveSpeedrunRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.BestTime != nil && *req.BestTime < 0 {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "best_time must not be negative")
		return
	}
	if msg := validateBlockTimes(req.BestBlockTimes); msg != "" {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, msg)
		return
	}

	updated, err := s.store.UpdateSpeedrunBest(r.Context(), currentUser(r.Context()).ID, req.BestTime, req.BestBlockTimes)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SaveSpeedrunResponse{Success: true, Updated: updated})
}

// validateBlockTimes rejects keys that can never be milestones and negative times.
func validateBlockTimes(m speedrun.Milestones) string {
	for value, ms := range m {
		if value <= 4 || value&(value-1) != 0 {
			return fmt.Sprintf("best_block_times: %d is not a milestone tile", value)
		}
		if ms < 0 {
			return fmt.Sprintf("best_block_times: negative time for %d", value)
		}
	}
	return ""
}

func (s *Server) handleUserResults(w http.ResponseWriter, r *http.Request) {
	res, err := s.store.UserResults(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResultsResponse{
		Success:          true,
		BestScore:        res.BestScore,
		BestSpeedrunTime: res.BestSpeedrunTime,
		BestBlockTimes:   res.BestBlockTimes,
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mode := q.Get("mode")
	if mode == "" {
		mode = storage.LeaderboardClassic
	}
	if mode != storage.LeaderboardClassic && mode != storage.LeaderboardSpeedrun {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "mode must be classic or speedrun")
		return
	}

	page, ok := queryInt(q.Get("page"), 1)
	if !ok || page < 1 {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "page must be a positive integer")
		return
	}
	perPage, ok := queryInt(q.Get("per_page"), defaultPerPage)
	if !ok || perPage < 1 || perPage > maxPerPage {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation,
			fmt.Sprintf("per_page must be between 1 and %d", maxPerPage))
		return
	}

	rows, total, err := s.store.Leaderboard(r.Context(), mode, perPage, (page-1)*perPage)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		e := LeaderboardEntry{Rank: row.Rank, Username: row.Username}
		if mode == storage.LeaderboardClassic {
			e.BestScore = row.BestScore
		} else {
			e.BestTime = row.BestTime
		}
		entries = append(entries, e)
	}

	writeJSON(w, http.StatusOK, LeaderboardResponse{
		Success: true,
		Mode:    mode,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Entries: entries,
	})
}

func queryInt(raw string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	return v, err == nil
}
