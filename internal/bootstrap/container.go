package bootstrap

import (
	"context"
	"time"

	"ai-docguard-be/internal/config"
	"ai-docguard-be/internal/controller"
	"ai-docguard-be/internal/handler"
	"ai-docguard-be/internal/pkg/logger"
	"ai-docguard-be/internal/repository/implementation"
	"ai-docguard-be/internal/repository/memory"
	"ai-docguard-be/internal/service"
	"ai-docguard-be/internal/websocket"
	"ai-docguard-be/pkg/conversation"
	"ai-docguard-be/pkg/events"
	"ai-docguard-be/pkg/metrics"
	pktNats "ai-docguard-be/pkg/nats"
	"ai-docguard-be/pkg/scanner"
	"ai-docguard-be/pkg/session"
	"ai-docguard-be/pkg/summarizer"
	"ai-docguard-be/pkg/upstream"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"gorm.io/gorm"
)

const eventBusBuffer = 256

type Container struct {
	// Controllers
	DocumentController controller.IDocumentController
	ChatController     controller.IChatController
	SessionController  controller.ISessionController
	HealthController   controller.IHealthController

	// Background services, run by main.go
	ConsumerService service.IConsumerService
	WebSocketHub    *websocket.Hub

	SessionFeedHandler *handler.SessionFeedHandler
	Pipeline           service.IPipelineService
	Metrics            *metrics.Metrics
	Logger             logger.ILogger

	closers []func()
}

// NewContainer wires the pipeline. db may be nil, in which case events are not persisted.
func NewContainer(db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) *Container {
	c := &Container{Logger: sysLogger}

	auditLogger := logger.NewIsolatedLogger(cfg.App.AuditLogPath)
	c.closers = append(c.closers, func() { _ = auditLogger.Sync() })

	m := metrics.NewDefault()
	c.Metrics = m

	// 1. Infrastructure
	rdb := newRedisClient(cfg.Infra.RedisURL, sysLogger)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	var natsPub *pktNats.Publisher
	if cfg.Infra.NatsURL != "" {
		pub, err := pktNats.NewPublisher(cfg.Infra.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect to NATS, events stay in-process", map[string]interface{}{"error": err.Error()})
		} else {
			natsPub = pub
			c.closers = append(c.closers, pub.Close)
		}
	}

	// 2. Event bus
	bus := service.NewEventBus(eventBusBuffer, watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, func() { _ = bus.Close() })
	publisher := service.NewPublisherService(events.Topic, bus)

	// 3. Session storage
	store := session.NewStore(afero.NewOsFs(), cfg.Storage.SessionDir, cfg.Storage.UploadDir, sysLogger)

	var locker session.Locker = session.NewLocalLocker()
	if cfg.Storage.LockBackend == "redis" {
		if rdb == nil {
			sysLogger.Warn("Bootstrap", "LOCK_BACKEND=redis without a reachable Redis, using local locks", nil)
		} else {
			// The intake lock spans one scan plus one summarization.
			locker = session.NewRedisLocker(rdb, cfg.Scanner.Timeout+cfg.Ai.Timeout+time.Minute)
		}
	}

	// 4. Pipeline steps
	client := upstream.NewClient(cfg.Ai.ServiceURL, cfg.Ai.Timeout, cfg.Ai.MaxIdleConns, m)
	runner := scanner.NewExecRunner(scanner.ExecConfig{
		Command: cfg.Scanner.Command,
		Args:    cfg.Scanner.Args,
		Timeout: cfg.Scanner.Timeout,
	}, sysLogger)

	pipeline := service.NewPipelineService(service.PipelineDeps{
		Store:        store,
		Locker:       locker,
		Scanner:      scanner.NewGate(store, runner, m, sysLogger),
		Summarizer:   summarizer.New(store, client, sysLogger),
		Conversation: conversation.New(store, locker, client, sysLogger),
		States:       memory.NewSessionStateRepository(cfg.Storage.StateCacheTTL),
		Publisher:    publisher,
		Metrics:      m,
		Logger:       sysLogger,
	})
	c.Pipeline = pipeline

	// 5. Event consumers
	hub := websocket.NewHub(rdb, uuid.NewString(), sysLogger)
	c.WebSocketHub = hub

	sinks := service.ConsumerSinks{Audit: auditLogger, Notifier: hub}
	var audit service.IAuditService
	if db != nil {
		eventRepo := implementation.NewSessionEventRepository(db)
		sinks.Events = eventRepo
		audit = service.NewAuditService(pipeline, eventRepo)
	}
	if natsPub != nil {
		sinks.Forwarder = natsPub
	}
	c.ConsumerService = service.NewConsumerService(bus, events.Topic, sinks, sysLogger)

	// 6. Controllers
	c.DocumentController = controller.NewDocumentController(pipeline)
	c.ChatController = controller.NewChatController(pipeline)
	c.SessionController = controller.NewSessionController(pipeline, audit)
	c.HealthController = controller.NewHealthController()
	c.SessionFeedHandler = handler.NewSessionFeedHandler(pipeline, hub, sysLogger)

	return c
}

// Close releases infrastructure in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func newRedisClient(url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("Bootstrap", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}

	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Bootstrap", "Failed to connect to Redis, running single-instance", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}
