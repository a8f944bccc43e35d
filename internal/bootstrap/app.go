// Package bootstrap loads configuration and assembles the application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "collaborative-classroom/internal/handler/http"
	wsHandler "collaborative-classroom/internal/handler/websocket"
	"collaborative-classroom/internal/hub"
	gormpersistence "collaborative-classroom/internal/infra/persistence/gorm"
	"collaborative-classroom/internal/infra/setup"
	redisstate "collaborative-classroom/internal/infra/state/redis"
	"collaborative-classroom/internal/middleware"
	"collaborative-classroom/internal/service"
	"collaborative-classroom/internal/tasks"
	"collaborative-classroom/internal/worker"
)

// Config holds everything read from the environment.
type Config struct {
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string

	JWTSecret  string
	ServerPort string
	LogLevel   string
	AppEnv     string

	ExecutionEndpoint string
	AIEndpoint        string

	RateLimitMax    int
	RateLimitWindow time.Duration
	IdleSweep       time.Duration
}

// LoadConfig reads the .env overlay and the environment. REDIS_ADDR and
// JWT_SECRET are mandatory.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBHost:            os.Getenv("DB_HOST"),
		DBPort:            os.Getenv("DB_PORT"),
		DBName:            os.Getenv("DB_NAME"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		KeyPrefix:         os.Getenv("REDIS_KEY_PREFIX"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		ServerPort:        os.Getenv("SERVER_PORT"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		AppEnv:            os.Getenv("APP_ENV"),
		ExecutionEndpoint: os.Getenv("EXECUTION_ENDPOINT"),
		AIEndpoint:        os.Getenv("AI_ENDPOINT"),
		RateLimitMax:      100,
		RateLimitWindow:   time.Second,
		IdleSweep:         15 * time.Minute,
	}
	cfg.RedisDB, _ = strconv.Atoi(os.Getenv("REDIS_DB"))

	if cfg.DBHost == "" {
		cfg.DBHost = "127.0.0.1"
	}
	if cfg.DBPort == "" {
		cfg.DBPort = "3306"
	}
	if cfg.DBName == "" {
		cfg.DBName = "classroom_db"
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "cc:"
	}
	if cfg.ExecutionEndpoint == "" {
		cfg.ExecutionEndpoint = "http://127.0.0.1:9090/execute"
	}
	if cfg.AIEndpoint == "" {
		cfg.AIEndpoint = "http://127.0.0.1:9091/generate"
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}

	if v := os.Getenv("RATE_LIMIT_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitMax = n
		}
	}
	if v := os.Getenv("IDLE_SWEEP_THRESHOLD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.IdleSweep = d
		}
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

// App bundles every long-lived component for Start/Shutdown.
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	AsynqServer *worker.WorkerServer
	Hub         *hub.Hub
	Notifier    *hub.NotificationHub
	HttpServer  *http.Server

	redisClientOpt asynq.RedisClientOpt
	notifierCancel context.CancelFunc
}

// NewApp wires the whole application together.
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	logrus.SetLevel(logLevel)
	log.Info("Configuration loaded")

	db, err := setup.InitDB(setup.MySQLConfig{
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Database: cfg.DBName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}

	redisClient, err := setup.InitRedis(setup.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)

	// Repositories.
	roomRepo := gormpersistence.NewGormRoomRepository(db)
	participantRepo := gormpersistence.NewGormParticipantRepository(db)
	documentRepo := gormpersistence.NewGormDocumentRepository(db)
	chatRepo := gormpersistence.NewGormChatRepository(db)
	notificationRepo := gormpersistence.NewGormNotificationRepository(db)
	userRepo := gormpersistence.NewGormUserRepository(db)
	tutorSessionRepo := gormpersistence.NewGormTutorSessionRepository(db)
	stateRepo := redisstate.NewRedisStateRepository(redisClient, cfg.KeyPrefix)

	// Services.
	roomService := service.NewRoomService(roomRepo, participantRepo, userRepo, chatRepo, stateRepo)
	documentService := service.NewDocumentService(documentRepo)
	executor := service.NewHTTPExecutionService(cfg.ExecutionEndpoint, 30*time.Second)
	aiClient := service.NewHTTPAIClient(cfg.AIEndpoint, 60*time.Second)
	tutorService := service.NewTutorService(tutorSessionRepo, aiClient)
	notificationService := service.NewNotificationService(notificationRepo)

	// Hubs.
	hubInstance := hub.NewHub(roomService, documentService, executor, stateRepo, asynqClient)
	notifier := hub.NewNotificationHub(notificationService, stateRepo)

	// Handlers.
	roomHandler := httpHandler.NewRoomHandler(roomService, hubInstance)
	notificationHandler := httpHandler.NewNotificationHandler(notificationService, notifier)
	socketHandler := wsHandler.NewHandler(hubInstance, notifier, roomService, tutorService)

	workerServer := worker.NewWorkerServer(redisClientOpt, chatRepo, documentRepo, hubInstance, log)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(corsMiddleware())
	router.Use(middleware.RateLimit(stateRepo, cfg.RateLimitMax, cfg.RateLimitWindow))

	api := router.Group("/api").Use(middleware.Auth(cfg.JWTSecret))
	{
		api.POST("/rooms", roomHandler.CreateRoom)
		api.GET("/rooms/:roomId", roomHandler.GetRoom)
		api.GET("/rooms/:roomId/participants", roomHandler.ListParticipants)
		api.GET("/rooms/:roomId/messages", roomHandler.ChatHistory)
		api.POST("/rooms/:roomId/invite", roomHandler.Invite)
		api.PATCH("/rooms/:roomId/participants/:userId/capabilities", roomHandler.OverrideCapabilities)
		api.POST("/rooms/:roomId/end", roomHandler.EndRoom)
		api.GET("/notifications/unread_count", notificationHandler.UnreadCount)
		api.POST("/notifications/:notificationId/read", notificationHandler.MarkRead)
	}
	ws := router.Group("/ws").Use(middleware.Auth(cfg.JWTSecret))
	{
		ws.GET("/rooms/:roomId", socketHandler.HandleRoom)
		ws.GET("/code/:roomId", socketHandler.HandleCode)
		ws.GET("/ai/:sessionId", socketHandler.HandleTutor)
		ws.GET("/notifications", socketHandler.HandleNotifications)
	}
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	return &App{
		Config:         cfg,
		Log:            log,
		DB:             db,
		RedisClient:    redisClient,
		AsynqClient:    asynqClient,
		AsynqServer:    workerServer,
		Hub:            hubInstance,
		Notifier:       notifier,
		HttpServer:     httpServer,
		redisClientOpt: redisClientOpt,
	}, nil
}

// Start launches the background routines and the HTTP server.
func (a *App) Start() {
	notifierCtx, cancel := context.WithCancel(context.Background())
	a.notifierCancel = cancel
	go func() {
		if err := a.Notifier.Run(notifierCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.Log.Errorf("Notification hub stopped: %v", err)
		}
	}()

	go a.AsynqServer.Start(a.Config.IdleSweep)
	a.registerPeriodicTasks()

	go func() {
		a.Log.Infof("HTTP server listening on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()
}

func (a *App) registerPeriodicTasks() {
	scheduler := asynq.NewScheduler(a.redisClientOpt, &asynq.SchedulerOpts{})

	task := tasks.NewRoomIdleSweepTask()
	schedule := "@every 5m"
	entryID, err := scheduler.Register(schedule, task, asynq.Queue("default"))
	if err != nil {
		a.Log.Errorf("Could not register idle sweep task: %v", err)
	} else {
		a.Log.Infof("Idle sweep task registered with schedule '%s' (EntryID: %s)", schedule, entryID)
	}

	go func() {
		if err := scheduler.Run(); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			a.Log.Errorf("Asynq scheduler Run() failed: %v", err)
		}
	}()
}

// Shutdown stops the application gracefully: actors flush their documents
// before the connections close.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	if a.notifierCancel != nil {
		a.notifierCancel()
	}
	if a.Hub != nil {
		a.Hub.Shutdown()
	}
	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	}

	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}
	a.Log.Info("Application shutdown complete")
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowedOrigin := os.Getenv("CORS_ALLOWED_ORIGIN")
		if allowedOrigin == "" {
			allowedOrigin = "http://localhost:3000"
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggerMiddleware logs one structured line per request.
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})
		switch {
		case errorMessage != "":
			entry.Error(errorMessage)
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request handled")
		}
	}
}
