package dependency_container

import (
	"context"
	"fmt"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/app/cooldown"
	"github.com/NeuralTrust/RecruitGate/pkg/app/participant"
	"github.com/NeuralTrust/RecruitGate/pkg/app/scheduler"
	appSession "github.com/NeuralTrust/RecruitGate/pkg/app/session"
	"github.com/NeuralTrust/RecruitGate/pkg/app/sidechannel"
	"github.com/NeuralTrust/RecruitGate/pkg/config"
	domainSession "github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	domainSideChannel "github.com/NeuralTrust/RecruitGate/pkg/domain/sidechannel"
	handlers "github.com/NeuralTrust/RecruitGate/pkg/handlers/http"
	wsHandlers "github.com/NeuralTrust/RecruitGate/pkg/handlers/websocket"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache/event"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache/subscriber"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/database"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/jwt"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/kv"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/notify"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/repository"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/websocket"
	"github.com/NeuralTrust/RecruitGate/pkg/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

type Container struct {
	Backend             kv.Backend
	MirrorBackend       kv.Backend
	EventPublisher      cache.EventPublisher
	EventListener       cache.EventListener
	Hub                 *websocket.Hub
	Actor               appSession.Actor
	Finder              appSession.Finder
	Mirror              cache.LocalMirrorCache
	CooldownGate        cooldown.Gate
	SideChannels        domainSideChannel.Store
	Dispatcher          *notify.Dispatcher
	Coordinator         participant.Coordinator
	LeaderElector       *scheduler.LeaderElector
	Scheduler           scheduler.Scheduler
	DB                  *database.DB
	ArchiveRepository   domainSession.ArchiveRepository
	JWTManager          jwt.Manager
	HandlerTransport    *handlers.HandlerTransport
	FeedHandler         wsHandlers.Handler
	MiddlewareTransport *middleware.Transport

	logger  *logrus.Logger
	closers []func() error
}

type ContainerDI struct {
	Cfg    *config.Config
	Logger *logrus.Logger
	// Now overrides the clock of every time-aware component; nil means time.Now.
	Now func() time.Time
}

func NewContainer(di ContainerDI) (*Container, error) {
	cfg := di.Cfg
	logger := di.Logger
	now := di.Now
	if now == nil {
		now = time.Now
	}
	c := &Container{logger: logger}

	// Backends and the event bus
	backend, redisClient, err := newBackend(logger, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize backend: %w", err)
	}
	c.Backend = backend
	c.closers = append(c.closers, backend.Close)

	c.MirrorBackend = backend
	if cfg.MirrorRedis.Enabled() && !sameRedis(cfg.MirrorRedis, cfg.Redis) {
		mirrorBackend, _, err := newBackend(logger, cfg.MirrorRedis)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize mirror backend: %w", err)
		}
		c.MirrorBackend = mirrorBackend
		c.closers = append(c.closers, mirrorBackend.Close)
	}

	if redisClient != nil {
		c.EventPublisher = cache.NewRedisEventPublisher(redisClient)
		c.EventListener = cache.NewRedisEventListener(logger, redisClient)
	} else {
		bus := cache.NewLocalEventBus(logger)
		c.EventPublisher = bus
		c.EventListener = bus
	}

	// Session store
	c.Mirror = cache.NewLocalMirrorCacheWithClock(
		logger,
		c.MirrorBackend,
		c.EventPublisher,
		cache.MirrorConfig{LocalTTL: cfg.Mirror.LocalTTL},
		now,
	)
	c.Actor = appSession.NewActor(logger, backend, appSession.Config{
		DefaultTTL:      cfg.Session.DefaultTTL,
		ClosedRetention: cfg.Session.ClosedRetention,
		EvictionSlack:   cfg.Session.EvictionSlack,
		LockTTL:         cfg.Session.LockTTL,
		IdleTimeout:     cfg.Session.IdleTimeout,
		MailboxSize:     cfg.Session.MailboxSize,
	}, appSession.WithClock(now))
	c.closers = append(c.closers, func() error {
		c.Actor.Shutdown()
		return nil
	})
	c.Hub = websocket.NewHub(logger)
	c.Actor.AddChangeObserver(appSession.NewMirrorObserver(c.Mirror, now))
	c.Actor.AddChangeObserver(appSession.NewFeedObserver(logger, c.EventPublisher))
	c.Finder = appSession.NewFinder(c.Actor, c.Mirror, now)

	// subscribers
	cache.RegisterEventSubscriber[event.DeleteSessionMirrorEvent](
		c.EventListener,
		subscriber.NewDeleteSessionMirrorEventSubscriber(logger, c.Mirror),
	)
	cache.RegisterEventSubscriber[event.SessionChangedEvent](
		c.EventListener,
		subscriber.NewSessionChangedEventSubscriber(c.Hub),
	)

	c.CooldownGate = cooldown.NewGate(backend, cooldown.Config{
		Interval:     cfg.Cooldown.Interval,
		ExemptScopes: cfg.Cooldown.ExemptScopes,
	})
	c.SideChannels = sidechannel.NewStore(logger, backend, cfg.Scheduler.SideChannelTTL, now)

	// Notifications
	sinks, err := notify.NewSinks(logger, cfg.Notifications.Sinks)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize notification sinks: %w", err)
	}
	c.Dispatcher = notify.NewDispatcher(logger, sinks, notify.Config{
		Workers:     cfg.Notifications.Workers,
		QueueSize:   cfg.Notifications.QueueSize,
		SinkTimeout: cfg.Notifications.SinkTimeout,
	})
	c.Dispatcher.Start()

	c.Coordinator = participant.NewCoordinator(
		logger,
		c.Actor,
		c.CooldownGate,
		c.Dispatcher,
		c.SideChannels,
		participant.Config{TeardownGrace: cfg.Scheduler.TeardownGrace},
		now,
	)

	// Archive
	if cfg.Database.Enabled {
		db, err := database.NewDB(logger, database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			c.Close()
			return nil, err
		}
		c.DB = db
		c.ArchiveRepository = repository.NewSessionArchiveRepository(db.DB)
		c.closers = append(c.closers, db.Close)
	}

	// Scheduler
	c.LeaderElector = scheduler.NewLeaderElector(logger, backend, cfg.Scheduler.LeaderName, cfg.Scheduler.LeaderTTL)
	c.Scheduler = scheduler.New(
		logger,
		c.Actor,
		c.Dispatcher,
		c.SideChannels,
		c.ArchiveRepository,
		c.LeaderElector,
		scheduler.Config{
			ExpiryInterval: cfg.Scheduler.ExpiryInterval,
			StartInterval:  cfg.Scheduler.StartInterval,
			TeardownGrace:  cfg.Scheduler.TeardownGrace,
			Parallelism:    cfg.Scheduler.Parallelism,
		},
		now,
	)

	if cfg.Server.SecretKey != "" {
		c.JWTManager = jwt.NewJwtManager(cfg.Server.SecretKey)
	}

	pingers := map[string]handlers.Pinger{"backend": backendPinger(backend)}
	if c.DB != nil {
		pingers["database"] = c.DB
	}

	// Handler Transport
	c.HandlerTransport = &handlers.HandlerTransport{
		CreateSessionHandler:     handlers.NewCreateSessionHandler(logger, c.Coordinator),
		ListSessionsHandler:      handlers.NewListSessionsHandler(logger, c.Actor),
		GetSessionHandler:        handlers.NewGetSessionHandler(logger, c.Finder),
		UpdateSessionHandler:     handlers.NewUpdateSessionHandler(logger, c.Actor),
		DeleteSessionHandler:     handlers.NewDeleteSessionHandler(logger, c.Coordinator),
		CloseSessionHandler:      handlers.NewCloseSessionHandler(logger, c.Coordinator),
		JoinSessionHandler:       handlers.NewJoinSessionHandler(logger, c.Coordinator),
		LeaveSessionHandler:      handlers.NewLeaveSessionHandler(logger, c.Coordinator),
		SessionHistoryHandler:    handlers.NewSessionHistoryHandler(logger, c.Actor),
		GetCooldownHandler:       handlers.NewGetCooldownHandler(logger, c.CooldownGate),
		ArmCooldownHandler:       handlers.NewArmCooldownHandler(logger, c.CooldownGate),
		BindSideChannelHandler:   handlers.NewBindSideChannelHandler(logger, c.Actor, c.SideChannels),
		GetSideChannelHandler:    handlers.NewGetSideChannelHandler(logger, c.SideChannels),
		DeleteSideChannelHandler: handlers.NewDeleteSideChannelHandler(logger, c.Actor, c.SideChannels),
		HealthHandler:            handlers.NewHealthHandler(logger, pingers),
		VersionHandler:           handlers.NewGetVersionHandler(),
	}
	c.FeedHandler = wsHandlers.NewFeedHandler(logger, c.Hub)

	c.MiddlewareTransport = &middleware.Transport{
		PanicRecoverMiddleware: middleware.NewPanicRecoverMiddleware(logger),
		MetricsMiddleware:      middleware.NewMetricsMiddleware(logger),
		RequesterMiddleware:    middleware.NewRequesterMiddleware(logger, c.JWTManager, cfg),
		FeedMiddleware:         middleware.NewFeedMiddleware(logger, cfg.Server.FeedMaxConnections),
	}

	return c, nil
}

// Close stops the dispatcher and releases backends and the database, newest first.
func (c *Container) Close() {
	if c.Dispatcher != nil {
		c.Dispatcher.Shutdown()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.logger.WithError(err).Warn("failed to close dependency")
		}
	}
	c.closers = nil
}

func newBackend(logger *logrus.Logger, rc config.RedisConfig) (kv.Backend, *redis.Client, error) {
	if !rc.Enabled() {
		logger.Warn("redis host not configured, using in-process memory backend")
		return kv.NewMemoryBackend(), nil, nil
	}
	backend, err := kv.NewRedisBackend(kv.Config{
		Host:      rc.Host,
		Port:      rc.Port,
		Password:  rc.Password,
		DB:        rc.DB,
		TLS:       rc.TLS,
		OpTimeout: rc.OpTimeout,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return backend, backend.RedisClient(), nil
}

func sameRedis(a, b config.RedisConfig) bool {
	return a.Host == b.Host && a.Port == b.Port && a.DB == b.DB
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func backendPinger(b kv.Backend) handlers.Pinger {
	if p, ok := b.(handlers.Pinger); ok {
		return p
	}
	return pingFunc(func(context.Context) error { return nil })
}
