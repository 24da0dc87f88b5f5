// Package httpserver is the development backend the shell talks to: it
// serves the auth config document and the register endpoint.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smacontrol/sma/internal/model"
)

// Store is the narrow registry contract required by the HTTP API.
type Store interface {
	model.RegistrationStore
	Recent(ctx context.Context, limit int) ([]model.Registration, error)
}

// Options configures a Server.
type Options struct {
	Addr       string
	AuthConfig model.AuthConfig
	// Secret verifies HS256 bearer tokens on the register endpoint.
	Secret []byte
	// Issuer expected in bearer tokens; defaults to https://<domain>/.
	Issuer string
	Store  Store
	Logger *slog.Logger
	Now    func() time.Time
}

// Server provides the dev backend HTTP API.
type Server struct {
	addr      string
	cfg       model.AuthConfig
	verifier  *bearerVerifier
	store     Store
	logger    *slog.Logger
	now       func() time.Time
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new dev backend server.
func NewServer(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = model.DefaultDevAddr
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Issuer == "" && opts.AuthConfig.Domain != "" {
		opts.Issuer = "https://" + opts.AuthConfig.Domain + "/"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:  opts.Addr,
		cfg:   opts.AuthConfig,
		store: opts.Store,
		verifier: &bearerVerifier{
			secret:   opts.Secret,
			issuer:   opts.Issuer,
			audience: opts.AuthConfig.Audience,
			now:      opts.Now,
		},
		logger:    opts.Logger.With(slog.String("component", "httpserver")),
		now:       opts.Now,
		ctx:       ctx,
		cancel:    cancel,
		startTime: opts.Now(),
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET(model.AuthConfigPath, s.handleAuthConfig)
	r.GET(model.RegisterPath, s.handleRegister)
	r.GET("/api/health", s.handleHealth)
	r.GET("/api/registrations", s.handleRegistrations)
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("httpserver: listen %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.startTime = s.now()
	s.logger.Info("listening", slog.String("addr", listener.Addr().String()))

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()
		c.Next()
		s.logger.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("took", s.now().Sub(start)),
		)
	}
}

func (s *Server) handleAuthConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.cfg)
}

func (s *Server) handleRegister(c *gin.Context) {
	claims, err := s.verifier.verify(c.GetHeader("Authorization"))
	if err != nil {
		s.logger.Warn("reject register", slog.String("error", err.Error()))
		c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
		c.String(http.StatusUnauthorized, "unauthorized")
		return
	}

	reg, err := s.store.Register(c.Request.Context(), model.Registration{
		Subject:  claims.Subject,
		Issuer:   claims.Issuer,
		LastSeen: s.now(),
	})
	if err != nil {
		s.logger.Error("register", slog.String("sub", claims.Subject), slog.String("error", err.Error()))
		c.String(http.StatusInternalServerError, "failed to register")
		return
	}

	s.logger.Info("registered", slog.String("sub", reg.Subject), slog.Int64("requests", reg.RequestCount))
	c.String(http.StatusOK, "registered %s (%d requests)", reg.Subject, reg.RequestCount)
}

func (s *Server) handleHealth(c *gin.Context) {
	n, err := s.store.RegistrationCount(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"uptime":        s.now().Sub(s.startTime).String(),
		"registrations": n,
	})
}

func (s *Server) handleRegistrations(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
			return
		}
		limit = n
	}

	regs, err := s.store.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read registrations"})
		return
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	c.JSON(http.StatusOK, gin.H{
		"registrations": regs,
		"count":         len(regs),
	})
}
