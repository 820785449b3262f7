package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/proarena/arena/internal/cache"
	"github.com/proarena/arena/internal/config"
	"github.com/proarena/arena/internal/database"
	"github.com/proarena/arena/internal/engine"
	apperrors "github.com/proarena/arena/internal/errors"
	"github.com/proarena/arena/internal/events"
	"github.com/proarena/arena/internal/handler"
	"github.com/proarena/arena/internal/logger"
	"github.com/proarena/arena/internal/natsjetstream"
	"github.com/proarena/arena/internal/ratelimit"
	"github.com/proarena/arena/internal/repository"
	"github.com/proarena/arena/internal/service"
	"github.com/proarena/arena/internal/uploads"
)

type App struct {
	cfg        *config.Config
	logger     *logger.Logger
	db         *database.DynamoDBClient
	redis      *cache.Client
	natsClient *natsjetstream.Client

	tournamentService service.TournamentService
	walletService     service.WalletService
	userService       service.UserService

	eventPublisher  *events.EventPublisher
	cacheSubscriber *events.CacheSubscriber
	scheduler       *engine.Scheduler
	limiter         *ratelimit.KeyedLimiter
	server          *fiber.App

	cleanup []func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		cfg:     cfg,
		cleanup: make([]func() error, 0),
	}

	app.initLogger()

	if err := app.initDatabase(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to init database")
	}

	if err := app.initRedis(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to init redis")
	}

	if err := app.initNATS(ctx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to init nats client")
	}

	if err := app.initServices(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to init services")
	}

	if err := app.initSubscribers(ctx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to init subscribers")
	}

	if err := app.initEngine(ctx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to init status engine")
	}

	if err := app.initServer(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to init http server")
	}

	return app, nil
}

func (a *App) initLogger() {
	if a.cfg.Server.Environment == "development" {
		a.logger = logger.Development("arena")
	} else {
		a.logger = logger.New(logger.Config{
			Level:       a.cfg.Server.LogLevel,
			Format:      "json",
			ServiceName: "arena",
		})
	}
	a.cleanup = append(a.cleanup, a.logger.Sync)
}

func (a *App) initDatabase() error {
	db, err := database.NewDynamoDBClient(a.cfg)
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

func (a *App) initRedis() error {
	client, err := cache.NewClient(a.cfg.Redis)
	if err != nil {
		return err
	}
	a.redis = client
	a.cleanup = append(a.cleanup, client.Close)
	return nil
}

func (a *App) initNATS(ctx context.Context) error {
	natsClient, err := natsjetstream.NewClient(&natsjetstream.Config{
		URL:           a.cfg.NATS.URL,
		MaxReconnect:  a.cfg.NATS.MaxReconnect,
		ReconnectWait: time.Duration(a.cfg.NATS.ReconnectWaitSeconds) * time.Second,
		Timeout:       time.Duration(a.cfg.NATS.TimeoutSeconds) * time.Second,
	}, a.logger)
	if err != nil {
		return err
	}

	a.natsClient = natsClient
	a.cleanup = append(a.cleanup, natsClient.Close)

	streams := []jetstream.StreamConfig{
		{
			Name:     events.TournamentEventsStream,
			Subjects: []string{events.TournamentEventsWildcard},
		},
		{
			Name:     events.WalletEventsStream,
			Subjects: []string{events.WalletEventsWildcard},
		},
	}

	for _, stream := range streams {
		if _, err := natsClient.JetStream().CreateOrUpdateStream(ctx, stream); err != nil {
			a.logger.Error("failed to create stream", "stream", stream.Name, "error", err)
			return err
		}
		a.logger.Info("stream ready", "stream", stream.Name)
	}

	a.eventPublisher = events.NewEventPublisher(natsClient, a.logger)
	return nil
}

func (a *App) initServices() error {
	tournamentRepo := repository.NewTournamentRepository(a.db)
	userRepo := repository.NewUserRepository(a.db)
	fundingRepo := repository.NewFundingRepository(a.db)
	ledgerRepo := repository.NewLedgerRepository(a.db)
	auditRepo := repository.NewAuditRepository(a.db)
	rewardRepo := repository.NewRewardRepository(a.db)
	settingsRepo := repository.NewSettingsRepository(a.db)

	tournamentCache := cache.NewTournamentCache(a.redis, a.logger)

	a.tournamentService = service.NewTournamentService(
		tournamentRepo,
		userRepo,
		ledgerRepo,
		auditRepo,
		a.eventPublisher,
		tournamentCache,
		a.logger,
	)

	a.walletService = service.NewWalletService(
		userRepo,
		fundingRepo,
		ledgerRepo,
		rewardRepo,
		settingsRepo,
		a.eventPublisher,
		service.WalletPolicy{MinWithdrawalAmount: a.cfg.Wallet.MinWithdrawalAmount},
		a.logger,
	)

	a.userService = service.NewUserService(userRepo, fundingRepo, a.logger)

	return nil
}

func (a *App) initSubscribers(ctx context.Context) error {
	tournamentCache := cache.NewTournamentCache(a.redis, a.logger)
	a.cacheSubscriber = events.NewCacheSubscriber(a.natsClient, tournamentCache, a.logger)
	return a.cacheSubscriber.Start(ctx)
}

func (a *App) initEngine(ctx context.Context) error {
	tournamentRepo := repository.NewTournamentRepository(a.db)
	auditRepo := repository.NewAuditRepository(a.db)

	statusEngine := engine.New(tournamentRepo, auditRepo, a.eventPublisher, engine.Config{
		GraceBuffer: a.cfg.Engine.GraceBuffer,
		LiveWindow:  a.cfg.Engine.LiveWindow,
	}, a.logger)

	// One-time repair for records that predate status_updated_at.
	stamped, err := statusEngine.BackfillMissingTimestamps(ctx)
	if err != nil {
		a.logger.Warn("timestamp backfill failed", "error", err)
	} else if stamped > 0 {
		a.logger.Info("backfilled live tournament timestamps", "count", stamped)
	}

	a.scheduler = engine.NewScheduler(statusEngine, a.cfg.Engine.Interval, a.logger)
	a.cleanup = append(a.cleanup, a.scheduler.Stop)

	return a.scheduler.Start(ctx)
}

func (a *App) initServer() error {
	uploader, err := uploads.NewUploader(a.cfg)
	if err != nil {
		return err
	}

	a.limiter = ratelimit.New(ratelimit.Config{
		Rate:    a.cfg.RateLimit.RequestsPerMinute / 60,
		Burst:   a.cfg.RateLimit.Burst,
		IdleTTL: a.cfg.RateLimit.IdleEviction,
	})
	a.limiter.Start()
	a.cleanup = append(a.cleanup, func() error {
		a.limiter.Stop()
		return nil
	})

	a.server = handler.NewRouter(handler.Handlers{
		Tournament: handler.NewTournamentHandler(a.tournamentService),
		Wallet:     handler.NewWalletHandler(a.walletService),
		User:       handler.NewUserHandler(a.userService),
		Admin:      handler.NewAdminHandler(a.tournamentService, a.walletService, a.userService),
		Upload:     handler.NewUploadHandler(uploader),
	}, a.limiter, a.logger)

	return nil
}

func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.cfg.Server.HTTPPort)

	go func() {
		a.logger.Info("http server listening", "addr", addr)
		if err := a.server.Listen(addr); err != nil {
			a.logger.Fatal("http server stopped", "error", err)
		}
	}()

	a.logger.Info("application started")
	return nil
}

func (a *App) Stop() {
	a.logger.Info("stopping application")

	if a.server != nil {
		if err := a.server.Shutdown(); err != nil {
			a.logger.Error("http shutdown error", "error", err)
		}
	}

	for _, cleanup := range a.cleanup {
		if err := cleanup(); err != nil {
			a.logger.Error("cleanup error", "error", err)
		}
	}

	a.logger.Info("application stopped")
}
