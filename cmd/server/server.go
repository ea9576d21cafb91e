package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"casino-engine/engine"
	"casino-engine/internal/auth"
	"casino-engine/internal/currency"
	"casino-engine/internal/db"
	"casino-engine/internal/locks"
	"casino-engine/internal/middleware"
	"casino-engine/internal/redis"
	"casino-engine/internal/server/game"
	"casino-engine/internal/server/handlers"
	"casino-engine/internal/server/websocket"
	"casino-engine/server"
)

const actionRetention = 5 * time.Minute

// Server holds all dependencies and configuration for the casino server
type Server struct {
	config Config
	logger zerolog.Logger
	db     *db.DB
	redis  *redis.Client

	// Services
	authService     *auth.Service
	currencyService *currency.Service

	// Game state
	rooms   *engine.RoomManager
	lobbies *engine.LobbyRegistry

	// Transport
	tracker     *game.ActionTracker
	msgLimiter  *middleware.RateLimiter
	httpLimiter *middleware.RateLimiter
	gateway     *websocket.Gateway
	admin       *server.TCPServer
	http        *http.Server
}

// NewServer creates and initializes a new Server instance
func NewServer(config Config, logger zerolog.Logger) (*Server, error) {
	database, err := db.New(config.DBConfig, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:      config,
		logger:      logger,
		db:          database,
		authService: auth.NewService(config.JWTSecret, auth.DefaultCost),
	}

	// Redis only guards balance writes across processes; a single node runs fine without it.
	var locker currency.Locker
	if client, err := redis.New(config.RedisConfig, logger); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, balance locks are process-local")
	} else {
		s.redis = client
		lm := locks.NewLockManager(client.Client, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if n, err := lm.CleanupOrphanedLocks(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to clean orphaned locks")
		} else if n > 0 {
			logger.Info().Int("count", n).Msg("Cleaned orphaned locks")
		}
		cancel()
		locker = lm
	}
	s.currencyService = currency.NewService(database.DB, locker, logger)

	s.rooms = engine.NewRoomManager(s.currencyService, nil, engine.Options{
		DefaultCredits:    config.DefaultCredits,
		InactivityTimeout: config.RoomIdleTimeout,
	}, logger)
	s.lobbies = engine.NewLobbyRegistry(s.rooms, auth.NewAdminAuthorizer(database.DB), logger)

	s.tracker = game.NewActionTracker(actionRetention)
	s.msgLimiter = middleware.NewRateLimiter(middleware.MessageRateLimiterConfig, logger)
	s.httpLimiter = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig, logger)
	s.gateway = websocket.NewGateway(s.rooms, s.authService, s.tracker, s.msgLimiter, config.AllowedOrigins, logger)

	s.admin = server.NewTCPServer(config.AdminAddr, server.NewCommandHandler(s.rooms, s.lobbies, s.currencyService), logger)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	s.http = &http.Server{
		Addr:              ":" + config.ServerPort,
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Run serves HTTP and the admin port until ctx is cancelled or a listener fails.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 2)
	go func() {
		if err := s.admin.Start(); err != nil {
			errc <- err
		}
	}()
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info().Msg("Shutting down")
	case runErr = <-errc:
		s.logger.Error().Err(runErr).Msg("Listener failed")
	}
	s.Close()
	return runErr
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowWildcard:    true,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           86400 * time.Second,
	}))
	r.Use(s.httpLimiter.Gin())

	r.GET("/health", s.handleHealth)

	// Public routes
	r.POST("/api/auth/register", func(c *gin.Context) {
		handlers.HandleRegister(c, s.db, s.authService, s.config.DefaultCredits)
	})
	r.POST("/api/auth/login", func(c *gin.Context) { handlers.HandleLogin(c, s.db, s.authService) })

	// Protected routes
	authorized := r.Group("/api", handlers.AuthMiddleware(s.authService))
	{
		authorized.GET("/user", func(c *gin.Context) { handlers.HandleGetCurrentUser(c, s.db) })
		authorized.GET("/user/history", func(c *gin.Context) { handlers.HandleGetHistory(c, s.currencyService) })
		authorized.GET("/rooms", func(c *gin.Context) { handlers.HandleListRooms(c, s.rooms) })
		authorized.POST("/rooms", func(c *gin.Context) { handlers.HandleCreateRoom(c, s.rooms) })
		authorized.POST("/lobbies", func(c *gin.Context) { handlers.HandleCreateLobby(c, s.lobbies) })
		authorized.GET("/lobbies/:id", func(c *gin.Context) { handlers.HandleGetLobby(c, s.lobbies) })
		authorized.DELETE("/lobbies/:id", func(c *gin.Context) { handlers.HandleDestroyLobby(c, s.lobbies) })
	}

	// WebSocket endpoint (handles auth internally)
	r.GET("/ws", s.gateway.Handle)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	status := gin.H{"database": "ok", "redis": "disabled", "rooms": len(s.rooms.List())}
	code := http.StatusOK

	if sqlDB, err := s.db.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status["database"] = "unreachable"
		code = http.StatusServiceUnavailable
	}
	if s.redis != nil {
		status["redis"] = "ok"
		if err := s.redis.HealthCheck(c.Request.Context()); err != nil {
			status["redis"] = "unreachable"
		}
	}
	c.JSON(code, status)
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/health" {
			return
		}
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")
	}
}

// Close cleanly shuts down the server
func (s *Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("HTTP shutdown incomplete")
	}
	s.admin.Stop()

	// rooms are destroyed before the database closes; a hand in progress is abandoned and
	// balances stay at their last settlement
	s.rooms.Shutdown()
	s.tracker.Stop()
	s.msgLimiter.Stop()
	s.httpLimiter.Stop()

	if s.redis != nil {
		s.redis.Close()
	}
	if err := s.db.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Database close failed")
	}
}
