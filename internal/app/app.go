package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mytestbuddies_backend/internal/config"
	"mytestbuddies_backend/internal/controller"
	"mytestbuddies_backend/internal/repository"
	"mytestbuddies_backend/internal/service"
	"mytestbuddies_backend/pkg/database"
	"mytestbuddies_backend/pkg/logger"
	"mytestbuddies_backend/pkg/monitoring"
	"mytestbuddies_backend/pkg/security"
	"mytestbuddies_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config      *config.Config
	Router      *gin.Engine
	DB          *gorm.DB
	Redis       *redis.Client
	services    *services
	sweeperStop chan struct{}
}

type repositories struct {
	user     *repository.UserRepository
	field    *repository.FieldRepository
	question *repository.QuestionRepository
	attempt  *repository.AttemptRepository
	payment  *repository.PaymentRepository
}

type services struct {
	storage   *service.StorageService
	otp       *service.OTPService
	auth      *service.AuthService
	field     *service.FieldService
	question  *service.QuestionService
	quiz      *service.QuizService
	payment   *service.PaymentService
	dashboard *service.DashboardService
}

type controllers struct {
	auth      *controller.AuthController
	field     *controller.FieldController
	question  *controller.QuestionController
	quiz      *controller.QuizController
	payment   *controller.PaymentController
	dashboard *controller.DashboardController
	health    *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		field:    repository.NewFieldRepository(db),
		question: repository.NewQuestionRepository(db),
		attempt:  repository.NewAttemptRepository(db),
		payment:  repository.NewPaymentRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.otp = service.NewOTPService(rdb, service.NewMailer(cfg))
	s.auth = service.NewAuthService(repos.user, s.otp, cfg)
	s.field = service.NewFieldService(repos.field, repos.question)
	s.question = service.NewQuestionService(repos.field, repos.question)
	s.quiz = service.NewQuizService(repos.field, repos.question, repos.attempt, service.NewAnswerBuffer(rdb), cfg)
	s.payment = service.NewPaymentService(repos.payment, repos.user, s.storage, cfg)
	s.dashboard = service.NewDashboardService(repos.field, repos.question, repos.attempt)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.auth, s.otp),
		field:     controller.NewFieldController(s.field),
		question:  controller.NewQuestionController(s.question),
		quiz:      controller.NewQuizController(s.quiz, s.question, s.payment, s.auth),
		payment:   controller.NewPaymentController(s.payment, s.auth),
		dashboard: controller.NewDashboardController(s.dashboard, s.auth),
		health:    controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks runs the attempt sweeper, which auto-submits attempts
// whose deadline has passed.
func (a *App) startBackgroundTasks(s *services) {
	a.sweeperStop = make(chan struct{})
	interval := time.Duration(a.Config.QuizSettings().SweepSeconds) * time.Second

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := s.quiz.ExpireOverdue(context.Background())
				if err != nil {
					logger.Log.Error("attempt sweeper", zap.Error(err))
				} else if n > 0 {
					logger.Log.Info("auto-submitted overdue attempts", zap.Int("count", n))
				}
			case <-a.sweeperStop:
				return
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("logger initialized")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("failed to initialize database", zap.Error(err))
	}

	if cfg.ForceMigrate || cfg.MigrateOnly {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("migration failed", zap.Error(err))
		}
		logger.Log.Info("migration complete")
		if cfg.MigrateOnly {
			os.Exit(0)
		}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db)

	monitoring.Init()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("mytestbuddies", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

	return app
}

// ReloadConfig applies the hot-reloadable sections of a freshly parsed config.
// Connection settings and the server port need a restart.
func (a *App) ReloadConfig(cfg *config.Config) {
	a.Config.Reload(cfg)
	logger.Log.Info("config reloaded",
		zap.Int("payment_amount", cfg.Payment.Amount),
		zap.Int("sweep_seconds", cfg.Quiz.SweepSeconds))
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if a.sweeperStop != nil {
		close(a.sweeperStop)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Log.Sync()
	log.Println("Server exiting")
}
