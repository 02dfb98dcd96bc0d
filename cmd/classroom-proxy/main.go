package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/classroom-client/internal/config"
	"github.com/Sternrassler/classroom-client/pkg/classroom"
	"github.com/Sternrassler/classroom-client/pkg/logging"
	"github.com/Sternrassler/classroom-client/pkg/metrics"
	"github.com/Sternrassler/classroom-client/pkg/ratelimit"
)

// Header carrying the caller's refresh token. Optional and never used for refresh.
const refreshTokenHeader = "X-Refresh-Token"

func main() {
	cfg, logger, err := loadConfig(".env")
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Setup Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("redis", cfg.RedisURL).Msg("Redis not reachable, throttle tracking degraded")
	} else {
		logger.Info().Str("redis", cfg.RedisURL).Msg("Connected to Redis")
	}

	srv := newServer(cfg, redisClient, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", httpServer.Addr).
			Str("user_agent", cfg.UserAgent).
			Msg("Starting Classroom proxy server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
	logger.Info().Msg("Server stopped")
}

// loadConfig loads the configuration and sets up logging from it. On error
// the returned logger uses the default logging configuration.
func loadConfig(envFile string) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		logging.Setup(logging.DefaultConfig())
		return config.Config{}, logging.NewLogger("classroom-proxy"), err
	}

	logging.Setup(cfg.Logging())
	return cfg, logging.NewLogger("classroom-proxy"), nil
}

// server serves Classroom data for the bearer token of each request.
type server struct {
	cfg     config.Config
	redis   *redis.Client
	tracker *ratelimit.Tracker
	logger  zerolog.Logger

	// httpClient overrides the transport used by gateways. Nil uses the default.
	httpClient *http.Client
}

func newServer(cfg config.Config, redisClient *redis.Client, logger zerolog.Logger) *server {
	s := &server{
		cfg:    cfg,
		redis:  redisClient,
		logger: logger,
	}
	if redisClient != nil {
		s.tracker = ratelimit.NewTracker(redisClient, logging.NewLogger("throttle-tracker"))
	}
	return s
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", s.readyHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /throttle", s.throttleHandler)
	mux.HandleFunc("GET /courses", s.coursesHandler)
	mux.HandleFunc("GET /courses/{id}", s.courseHandler)
	mux.HandleFunc("GET /courses/{id}/students", s.studentsHandler)
	mux.HandleFunc("GET /profile", s.profileHandler)
	return withRequestLogging(s.logger, mux)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.redis == nil {
		http.Error(w, "redis not configured", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.redis.Ping(ctx).Err(); err != nil {
		http.Error(w, "redis not reachable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}

func (s *server) throttleHandler(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "throttle tracking is not configured")
		return
	}

	state, err := s.tracker.GetState(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read throttle state")
		writeError(w, http.StatusServiceUnavailable, "unavailable", "throttle state is not available")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (s *server) coursesHandler(w http.ResponseWriter, r *http.Request) {
	hideArchived := false
	if raw := r.URL.Query().Get("hide_archived"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "hide_archived must be true or false")
			return
		}
		hideArchived = v
	}

	s.serve(w, r, func(ctx context.Context, g *classroom.Gateway) (any, error) {
		return g.FetchCourses(ctx, hideArchived)
	})
}

func (s *server) courseHandler(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("id")
	s.serve(w, r, func(ctx context.Context, g *classroom.Gateway) (any, error) {
		return g.FetchCourse(ctx, courseID)
	})
}

func (s *server) studentsHandler(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("id")
	s.serve(w, r, func(ctx context.Context, g *classroom.Gateway) (any, error) {
		return g.FetchStudentsForCourse(ctx, courseID)
	})
}

func (s *server) profileHandler(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, func(ctx context.Context, g *classroom.Gateway) (any, error) {
		return g.FetchUserProfile(ctx)
	})
}

// serve builds a gateway for the request's credentials, runs fetch and writes
// the result or the mapped error.
func (s *server) serve(w http.ResponseWriter, r *http.Request, fetch func(context.Context, *classroom.Gateway) (any, error)) {
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, string(classroom.KindInvalidCredentials), "missing bearer token")
		return
	}

	gateway, err := classroom.New(s.gatewayConfig(token, r.Header.Get(refreshTokenHeader)))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	result, err := fetch(ctx, gateway)
	if err != nil {
		status := statusFor(err)
		kind := string(classroom.KindOf(err))
		if kind == "" {
			kind = "upstream_error"
		}
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Int("status_code", status).Msg("Classroom request failed")
		writeError(w, status, kind, errorMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *server) gatewayConfig(accessToken, refreshToken string) classroom.Config {
	cfg := s.cfg.Gateway(accessToken, refreshToken)
	cfg.HTTPClient = s.httpClient
	if s.tracker != nil {
		cfg.Throttle = s.tracker
	}
	return cfg
}

// bearerToken extracts the access token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	const prefix = "bearer "
	header := r.Header.Get("Authorization")
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// statusFor maps a gateway error onto the proxy's HTTP status.
func statusFor(err error) int {
	switch classroom.KindOf(err) {
	case classroom.KindInvalidCredentials:
		return http.StatusUnauthorized
	case classroom.KindInsufficientScope,
		classroom.KindNotLinked,
		classroom.KindClassroomDisabled,
		classroom.KindClassroomAPIDisabled:
		return http.StatusForbidden
	case classroom.KindResourceExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func errorMessage(err error) string {
	var ce *classroom.ClassroomError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
