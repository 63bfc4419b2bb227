package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/buddy0323/IA-TEK-streamlit/api/swagger" // swagger docs
	"github.com/buddy0323/IA-TEK-streamlit/internal/config"
	"github.com/buddy0323/IA-TEK-streamlit/internal/database"
	"github.com/buddy0323/IA-TEK-streamlit/internal/events"
	"github.com/buddy0323/IA-TEK-streamlit/internal/handler"
	"github.com/buddy0323/IA-TEK-streamlit/internal/middleware"
	"github.com/buddy0323/IA-TEK-streamlit/internal/n8n"
	"github.com/buddy0323/IA-TEK-streamlit/internal/repository"
	"github.com/buddy0323/IA-TEK-streamlit/internal/service"
	"github.com/buddy0323/IA-TEK-streamlit/internal/session"
	"github.com/buddy0323/IA-TEK-streamlit/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mudler/xlog"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           IA-AMCO Agent Dashboard API
// @version         1.0
// @description     Administration and chat API for n8n-backed AI agents.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		xlog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.DatabaseURL)
	if err != nil {
		xlog.Error("Database connection failed", "error", err)
		os.Exit(1)
	}
	xlog.Info("Connected to PostgreSQL successfully")

	if err := database.Migrate(db); err != nil {
		xlog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}
	if err := database.Bootstrap(ctx, db, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
		xlog.Error("Database bootstrap failed", "error", err)
		os.Exit(1)
	}

	// Set up dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	agentRepo := repository.NewAgentRepository(db)
	optionRepo := repository.NewOptionRepository(db)
	queryRepo := repository.NewQueryRepository(db)
	configRepo := repository.NewConfigRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)
	txManager := repository.NewTransactionManager(db)

	jobs := cron.New()

	var sessions session.Store
	var limiter middleware.Limiter
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = session.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if redisClient == nil {
			xlog.Warn("Redis unreachable, falling back to in-memory sessions", "addr", cfg.RedisAddr)
		}
	}
	if redisClient != nil {
		sessions = session.NewRedisStore(redisClient, service.MaxSessionIdle)
		limiter = middleware.NewRedisLimiter(redisClient, "ratelimit", float64(cfg.LoginRateLimit), cfg.LoginBurst)
		xlog.Info("Using Redis for sessions and rate limits", "addr", cfg.RedisAddr)
	} else {
		memSessions := session.NewMemoryStore(service.MaxSessionIdle)
		sweeper, err := memSessions.StartSweeper()
		if err != nil {
			xlog.Error("Session sweeper failed to start", "error", err)
			os.Exit(1)
		}
		defer sweeper.Stop()
		sessions = memSessions

		memLimiter := middleware.NewMemoryLimiter(float64(cfg.LoginRateLimit), cfg.LoginBurst)
		if _, err := jobs.AddFunc("@every 10m", func() { memLimiter.Sweep(time.Hour) }); err != nil {
			xlog.Error("Rate limit sweeper failed to start", "error", err)
			os.Exit(1)
		}
		limiter = memLimiter
	}
	jobs.Start()
	defer jobs.Stop()

	signer := session.NewTokenSigner(cfg.SessionSecret, cfg.RestoreTokenTTL)

	wsHub := websocket.NewHub(cfg.CORSOrigins)
	go wsHub.Run(ctx)

	publishers := []events.Publisher{events.NewHubPublisher(wsHub)}
	if cfg.AMQPURL != "" {
		amqpPublisher := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue)
		defer func() { _ = amqpPublisher.Close() }()
		publishers = append(publishers, amqpPublisher)
	}
	publisher := events.Multi(publishers...)

	relay := n8n.NewClient(&http.Client{})

	configService := service.NewConfigService(configRepo, txManager)
	authService := service.NewAuthService(userRepo, sessions, signer, configService, nil)
	userService := service.NewUserService(userRepo, roleRepo, configService, txManager)
	roleService := service.NewRoleService(roleRepo, userRepo, txManager)
	agentService := service.NewAgentService(agentRepo, optionRepo, txManager)
	optionService := service.NewOptionService(optionRepo)
	chatService := service.NewChatService(agentRepo, queryRepo, configService, relay, publisher, nil)
	trainingService := service.NewTrainingService(agentRepo, configService, relay)
	statisticsService := service.NewStatisticsService(statsRepo, queryRepo, configService, nil)
	historyService := service.NewHistoryService(queryRepo, configService, nil)
	profileService := service.NewProfileService(userRepo, configService, authService)
	apiKeyService := service.NewAPIKeyService(configService, service.OpenAIModelLister(""))

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService, cfg.CookieSecure)
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)
	agentHandler := handler.NewAgentHandler(agentService, optionService)
	chatHandler := handler.NewChatHandler(chatService)
	trainingHandler := handler.NewTrainingHandler(trainingService)
	monitoringHandler := handler.NewMonitoringHandler(wsHub, historyService)
	historyHandler := handler.NewHistoryHandler(historyService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)
	configHandler := handler.NewConfigHandler(configService, apiKeyService)
	profileHandler := handler.NewProfileHandler(profileService)

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		xlog.Error("Invalid trusted proxies", "error", err)
		os.Exit(1)
	}
	router.Use(gin.Recovery(), middleware.RequestLogger())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	public := router.Group("/api/v1")
	authed := public.Group("", middleware.RequireSession(authService, cfg.CookieSecure))

	authHandler.RegisterRoutes(public, authed, middleware.RateLimit(limiter, "login"))
	configHandler.RegisterRoutes(public, authed)
	statisticsHandler.RegisterRoutes(authed)
	agentHandler.RegisterRoutes(authed)
	chatHandler.RegisterRoutes(authed)
	trainingHandler.RegisterRoutes(authed)
	monitoringHandler.RegisterRoutes(authed)
	historyHandler.RegisterRoutes(authed)
	userHandler.RegisterRoutes(authed)
	roleHandler.RegisterRoutes(authed)
	profileHandler.RegisterRoutes(authed)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		xlog.Info("Server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			xlog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	xlog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		xlog.Error("Graceful shutdown failed", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
