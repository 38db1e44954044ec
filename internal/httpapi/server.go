package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/folio/internal/auth"
	"horse.fit/folio/internal/batch"
	"horse.fit/folio/internal/library"
	"horse.fit/folio/internal/translator"
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// TokenHash guards mutating endpoints when non-empty (bcrypt hash of the
	// expected bearer token).
	TokenHash string
}

// APIKeyResolver supplies the provider credential for batch starts so
// manifests never carry secrets.
type APIKeyResolver func(provider string) string

type Server struct {
	manager  *batch.Manager
	registry *translator.Registry
	apiKeys  APIKeyResolver
	logger   zerolog.Logger
	opts     Options
}

func NewServer(
	manager *batch.Manager,
	registry *translator.Registry,
	apiKeys APIKeyResolver,
	logger zerolog.Logger,
	opts Options,
) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8099
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		manager:  manager,
		registry: registry,
		apiKeys:  apiKeys,
		logger:   logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			TokenHash:       strings.TrimSpace(opts.TokenHash),
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.manager == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.buildEcho()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("folio api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("folio api server stopped")
	return nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	if s.opts.TokenHash != "" {
		api.Use(s.bearerTokenMiddleware)
	}

	api.GET("/health", s.handleHealth)
	api.GET("/languages", s.handleLanguages)
	api.GET("/models", s.handleModels)
	api.GET("/files", s.handleFiles)
	api.GET("/records", s.handleRecords)
	api.DELETE("/records", s.handleClearRecords)
	api.GET("/terms", s.handleGetTerms)
	api.PUT("/terms", s.handlePutTerms)
	api.GET("/batch", s.handleBatchStatus)
	api.POST("/batch", s.handleStartBatch)
	api.DELETE("/batch", s.handleStopBatch)
	api.GET("/events", s.handleEvents)

	return e
}

func (s *Server) bearerTokenMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || !auth.VerifyToken(token, s.opts.TokenHash) {
			return fail(c, http.StatusUnauthorized, "Invalid or missing bearer token", nil)
		}
		return next(c)
	}
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service":     "folio",
		"time":        time.Now().UTC(),
		"working_dir": s.manager.WorkDir(),
		"batch":       s.manager.Status(),
	})
}

func (s *Server) handleLanguages(c echo.Context) error {
	return success(c, translator.LanguageOptions(s.registry))
}

func (s *Server) handleModels(c echo.Context) error {
	provider := strings.TrimSpace(c.QueryParam("provider"))
	return success(c, translator.Models(provider))
}

func (s *Server) handleFiles(c echo.Context) error {
	dir := s.manager.WorkDir()
	if dir == "" {
		return fail(c, http.StatusConflict, "Working directory is not initialized", nil)
	}

	chapters, err := library.List(c.Request().Context(), dir, s.manager.Store())
	if err != nil {
		s.logger.Error().Err(err).Msg("list chapters failed")
		return internalError(c, "Failed to list chapters")
	}
	return success(c, chapters)
}

func (s *Server) handleRecords(c echo.Context) error {
	store := s.manager.Store()
	if store == nil {
		return fail(c, http.StatusConflict, "Working directory is not initialized", nil)
	}

	rows, err := store.Records(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list records failed")
		return internalError(c, "Failed to list records")
	}
	return success(c, rows)
}

func (s *Server) handleClearRecords(c echo.Context) error {
	store := s.manager.Store()
	if store == nil {
		return fail(c, http.StatusConflict, "Working directory is not initialized", nil)
	}

	if err := store.ClearRecords(c.Request().Context()); err != nil {
		s.logger.Error().Err(err).Msg("clear records failed")
		return internalError(c, "Failed to clear records")
	}
	return success(c, map[string]any{"cleared": true})
}

func (s *Server) handleGetTerms(c echo.Context) error {
	terms, err := s.manager.CustomTerms(c.Request().Context())
	if err != nil {
		if errors.Is(err, batch.ErrNotInitialized) {
			return fail(c, http.StatusConflict, "Working directory is not initialized", nil)
		}
		s.logger.Error().Err(err).Msg("load custom terms failed")
		return internalError(c, "Failed to load custom terms")
	}
	return success(c, map[string]string{"terms": terms})
}

type putTermsRequest struct {
	Terms string `json:"terms"`
}

func (s *Server) handlePutTerms(c echo.Context) error {
	store := s.manager.Store()
	if store == nil {
		return fail(c, http.StatusConflict, "Working directory is not initialized", nil)
	}

	var req putTermsRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body", nil)
	}

	if err := store.SaveCustomTerms(c.Request().Context(), req.Terms); err != nil {
		s.logger.Error().Err(err).Msg("save custom terms failed")
		return internalError(c, "Failed to save custom terms")
	}
	return success(c, map[string]any{"saved": true})
}

func (s *Server) handleBatchStatus(c echo.Context) error {
	return success(c, map[string]any{
		"status": s.manager.Status(),
	})
}

func (s *Server) handleStartBatch(c echo.Context) error {
	body, err := readBodyLimited(c, 1<<20)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body", nil)
	}

	m, err := validateManifest(body)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error(), nil)
	}

	files := make([]batch.FileTask, 0, len(m.Files))
	for _, name := range m.Files {
		files = append(files, batch.FileTask{Name: name})
	}

	provider := m.Provider
	if provider == "" {
		provider = s.registry.DefaultProvider()
	}

	var apiKey string
	if s.apiKeys != nil {
		apiKey = s.apiKeys(provider)
	}
	if apiKey == "" {
		return fail(c, http.StatusBadRequest, fmt.Sprintf("No API key configured for provider %q", provider), nil)
	}

	job := batch.Job{
		Files:       files,
		SourceLang:  m.SourceLang,
		TargetLang:  m.TargetLang,
		APIKey:      apiKey,
		Provider:    m.Provider,
		Model:       m.Model,
		CustomTerms: m.CustomTerms,
		SegmentSize: m.SegmentSize,
	}

	if err := s.manager.TranslateFiles(job, nil); err != nil {
		switch {
		case errors.Is(err, batch.ErrBatchAlreadyRunning):
			return fail(c, http.StatusConflict, "A batch is already running", nil)
		case errors.Is(err, batch.ErrNotInitialized):
			return fail(c, http.StatusConflict, "Working directory is not initialized", nil)
		default:
			return fail(c, http.StatusBadRequest, err.Error(), nil)
		}
	}

	return successWithStatus(c, http.StatusAccepted, map[string]any{
		"status": s.manager.Status(),
		"files":  len(files),
	})
}

func (s *Server) handleStopBatch(c echo.Context) error {
	if err := s.manager.StopTranslation(); err != nil {
		if errors.Is(err, batch.ErrNoRunningBatch) {
			return failNotFound(c, "No running batch")
		}
		s.logger.Error().Err(err).Msg("stop batch failed")
		return internalError(c, "Failed to stop batch")
	}
	return success(c, map[string]any{"stopping": true})
}

func (s *Server) handleEvents(c echo.Context) error {
	since := int64(0)
	if raw := strings.TrimSpace(c.QueryParam("since")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			return fail(c, http.StatusBadRequest, "since must be a non-negative integer", nil)
		}
		since = parsed
	}

	events := s.manager.Events().Since(since)
	last := since
	if len(events) > 0 {
		last = events[len(events)-1].Seq
	}
	return success(c, map[string]any{
		"events": events,
		"last":   last,
	})
}
