package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"medtrain_backend/internal/config"
	"medtrain_backend/internal/controller"
	"medtrain_backend/internal/jobs"
	"medtrain_backend/internal/repository"
	"medtrain_backend/internal/service"
	"medtrain_backend/internal/util"
	"medtrain_backend/pkg/database"
	"medtrain_backend/pkg/logger"
	"medtrain_backend/pkg/monitoring"
	"medtrain_backend/pkg/security"
	"medtrain_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	Registry        *jobs.Registry
	queue           queue
	services        *services
	configCallbacks []func(*config.Config)
	closers         []func(context.Context) error
}

// queue 同时负责投递与消费的任务队列
type queue interface {
	jobs.Scheduler
	jobs.Runner
}

type repositories struct {
	user         *repository.UserRepository
	course       *repository.CourseRepository
	mcq          *repository.McqRepository
	mode         *repository.ModeRepository
	session      *repository.TrainingSessionRepository
	progress     *repository.ProgressRepository
	evaluation   *repository.EvaluationSettingRepository
	notification *repository.NotificationRepository
}

type services struct {
	thresholds   *service.SettingsThresholdProvider
	session      *service.TrainingSessionService
	mode         *service.ModeService
	notification *service.NotificationService
	hub          *service.NotificationHub
}

type controllers struct {
	session      *controller.TrainingSessionController
	mode         *controller.ModeController
	notification *controller.NotificationController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// Reload 配置文件变更后通知各组件
func (a *App) Reload(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		course:       repository.NewCourseRepository(db),
		mcq:          repository.NewMcqRepository(db),
		mode:         repository.NewModeRepository(db),
		session:      repository.NewTrainingSessionRepository(db),
		progress:     repository.NewProgressRepository(db),
		evaluation:   repository.NewEvaluationSettingRepository(db),
		notification: repository.NewNotificationRepository(db),
	}
}

func newQueue(cfg *config.SchedulerConfig, rdb *redis.Client) (queue, func(context.Context) error, error) {
	switch cfg.Driver {
	case util.SchedulerAMQP:
		q, err := jobs.NewAMQPQueue(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, nil, fmt.Errorf("connect amqp: %w", err)
		}
		return q, func(context.Context) error { q.Close(); return nil }, nil
	default:
		return jobs.NewRedisQueue(rdb, cfg.QueueKey, cfg.PollInterval, cfg.BatchSize), nil, nil
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	learner := service.NewLearnerModelClient(cfg.LearnerModel)
	engine := service.NewAdaptiveParameterEngine(learner)
	resolver := service.NewSessionParameterResolver(repos.mode, engine)
	selector := service.NewQuestionSelector(repos.mcq, learner, a.queue)

	s.thresholds = service.NewSettingsThresholdProvider(repos.evaluation, rdb, cfg.Training.Evaluation)
	evaluator := service.NewSessionEvaluator(repos.progress, s.thresholds)

	s.session = service.NewTrainingSessionService(
		db,
		repos.session,
		repos.progress,
		repos.course,
		repos.mcq,
		repos.user,
		repos.mode,
		resolver,
		selector,
		evaluator,
		a.queue,
		cfg.Training.XPPerDifficulty,
	)
	s.mode = service.NewModeService(repos.mode)

	s.hub = service.NewNotificationHub(rdb, cfg.Scheduler.NotifyChannel)
	s.notification = service.NewNotificationService(
		repos.notification,
		repos.session,
		repos.user,
		service.LogMailer{},
		s.hub,
	)
	s.notification.Register(a.Registry)

	a.RegisterConfigCallback(func(c *config.Config) {
		s.thresholds.SetDefaults(context.Background(), c.Training.Evaluation)
	})

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		session:      controller.NewTrainingSessionController(s.session),
		mode:         controller.NewModeController(s.mode),
		notification: controller.NewNotificationController(s.notification, s.hub),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(cfg.Tracing.ServiceName))
	}

	router.Use(monitoring.MetricsMiddleware())
}

// NewApp 初始化数据库、Redis、任务队列以及全部服务
func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode != gin.ReleaseMode)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	if cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode {
		if err := database.Migrate(db); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	app := &App{
		Config:   cfg,
		DB:       db,
		Registry: jobs.NewRegistry(),
	}
	if cfg.MigrateOnly {
		return app, nil
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}
	app.Redis = rdb
	app.closers = append(app.closers, func(context.Context) error { return rdb.Close() })

	q, closeQueue, err := newQueue(&cfg.Scheduler, rdb)
	if err != nil {
		return nil, err
	}
	app.queue = q
	if closeQueue != nil {
		app.closers = append(app.closers, closeQueue)
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(context.Background(), cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		app.closers = append(app.closers, tp.Shutdown)
	}

	// 监控初始化
	monitoring.Init()

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg, db, rdb)
	controllers := app.initControllers(app.services, db, rdb)

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	return app, nil
}

// Run 启动 HTTP 服务、通知中心，withWorker 为 true 时同时消费后台任务
func (a *App) Run(ctx context.Context, withWorker bool) error {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.services.hub.Run(ctx)
	})

	if withWorker {
		g.Go(func() error {
			return a.queue.Run(ctx, a.Registry)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// RunWorker 只消费后台任务，不对外提供 HTTP
func (a *App) RunWorker(ctx context.Context) error {
	return a.queue.Run(ctx, a.Registry)
}

func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Log.Error("Close resource failed", zap.Error(err))
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Log.Sync()
}
