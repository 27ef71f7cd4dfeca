// Package account implements the speed2048 account service: registration,
// password and TOTP login, personal bests and the leaderboard, served as
// JSON over HTTP. It also provides a typed client for the same API.
package account

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vovakirdan/speed2048/internal/speedrun"
	"github.com/vovakirdan/speed2048/internal/storage"
)

// Store is the persistence the service needs. *storage.Store implements it.
type Store interface {
	CreateUser(ctx context.Context, u storage.User) error
	UserExists(ctx context.Context, username, email string) (bool, error)
	UserByName(ctx context.Context, username string) (*storage.User, error)
	UserByID(ctx context.Context, id string) (*storage.User, error)
	CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error
	UserBySession(ctx context.Context, token string, now time.Time) (*storage.User, error)
	DeleteSession(ctx context.Context, token string) error
	SetTOTPSecret(ctx context.Context, userID, secret string) error
	EnableTOTP(ctx context.Context, userID string) error
	UpdateBestScore(ctx context.Context, userID string, score int) (bool, int, error)
	UpdateSpeedrunBest(ctx context.Context, userID string, bestTime *int64, blocks speedrun.Milestones) (bool, error)
	UserResults(ctx context.Context, userID string) (*storage.UserResults, error)
	Leaderboard(ctx context.Context, mode string, limit, offset int) ([]storage.LeaderboardEntry, int, error)
}

var _ Store = (*storage.Store)(nil)

// Options configures a Server.
type Options struct {
	SessionTTL     time.Duration // Lifetime of login tokens
	ChallengeTTL   time.Duration // Lifetime of pending 2FA logins
	Issuer         string        // TOTP issuer shown by authenticator apps
	BcryptCost     int           // 0 uses bcrypt.DefaultCost
	RequestTimeout time.Duration
	Logger         *log.Logger
	Now            func() time.Time
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		SessionTTL:     30 * 24 * time.Hour,
		ChallengeTTL:   5 * time.Minute,
		Issuer:         "speed2048",
		RequestTimeout: 30 * time.Second,
	}
}

// Server handles account HTTP requests.
type Server struct {
	store      Store
	opts       Options
	logger     *log.Logger
	challenges *challenges
	dummyHash  string // compared against when a login names no user
	now        func() time.Time
	startTime  time.Time
}

// NewServer creates a new account server. Zero option fields take defaults.
func NewServer(store Store, opts Options) *Server {
	def := DefaultOptions()
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = def.SessionTTL
	}
	if opts.ChallengeTTL <= 0 {
		opts.ChallengeTTL = def.ChallengeTTL
	}
	if opts.Issuer == "" {
		opts.Issuer = def.Issuer
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = def.RequestTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Prefix:          "speed2048-api",
		})
	}

	// Cannot fail for a valid cost; an empty hash still fails every check
	dummyHash, _ := HashPassword("speed2048-no-such-user", opts.BcryptCost)

	return &Server{
		store:      store,
		dummyHash:  dummyHash,
		opts:       opts,
		logger:     logger,
		challenges: newChallenges(opts.ChallengeTTL),
		now:        opts.Now,
		startTime:  opts.Now(),
	}
}

// Routes sets up the HTTP routes with middleware.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))

	r.Get("/health", s.handleHealth)
	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Post("/login/2fa", s.handleLoginTwoFactor)
	r.Get("/leaderboard", s.handleLeaderboard)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Post("/logout", s.handleLogout)
		r.Post("/2fa/setup", s.handleTwoFactorSetup)
		r.Post("/2fa/enable", s.handleTwoFactorEnable)
		r.Post("/save-score", s.handleSaveScore)
		r.Get("/best-score", s.handleBestScore)
		r.Post("/save-speedrun-result", s.handleSaveSpeedrun)
		r.Get("/user-results", s.handleUserResults)
	})

	return r
}

// requestLogger logs one line per request through charmbracelet/log.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
)

// requireAuth resolves the bearer token to a user or rejects the request.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.writeError(w, r, http.StatusUnauthorized, ErrTypeUnauthorized, "missing bearer token")
			return
		}

		user, err := s.store.UserBySession(r.Context(), token, s.now())
		if err != nil {
			s.writeError(w, r, http.StatusUnauthorized, ErrTypeUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

func currentUser(ctx context.Context) *storage.User {
	u, _ := ctx.Value(userKey).(*storage.User)
	return u
}

// ListenAndServe serves the API on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting account service", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down account service")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
