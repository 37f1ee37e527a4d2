package bootstrap

import (
	"log"

	"gamut-telemetry/internal/config"
	"gamut-telemetry/internal/controller"
	"gamut-telemetry/internal/pkg/logger"
	"gamut-telemetry/internal/repository/contract"
	"gamut-telemetry/internal/repository/implementation"
	"gamut-telemetry/internal/repository/memory"
	"gamut-telemetry/internal/service"
	"gamut-telemetry/pkg/collector"
	pktNats "gamut-telemetry/pkg/nats"
	"gamut-telemetry/pkg/notify"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	// Controllers
	IngestController controller.IIngestController

	// Background services (exposed for main.go to run)
	EngagementService service.IEngagementService
	ToastConsumer     service.IToastConsumer

	// Optional broker source, nil unless enabled
	NatsSource *pktNats.Source

	Logger logger.ILogger
	PubSub *gochannel.GoChannel
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	dispatchLogger := logger.NewIsolatedLogger(cfg.App.DispatchLogPath)

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Durable offline queue
	var queue contract.IQueueRepository
	if cfg.Queue.Backend == "redis" {
		redisQueue, err := implementation.NewRedisQueueRepository(cfg.Queue.RedisURL, cfg.Queue.MaxEntries)
		if err != nil {
			// The agent must come up regardless; fall back to the file log.
			log.Printf("[WARN] Redis queue unavailable, falling back to file: %v", err)
			queue = implementation.NewFileQueueRepository(cfg.Queue.FilePath, cfg.Queue.MaxEntries)
		} else {
			queue = redisQueue
		}
	} else {
		queue = implementation.NewFileQueueRepository(cfg.Queue.FilePath, cfg.Queue.MaxEntries)
	}

	// 4. Collaborators
	tabStore := memory.NewTabStore()
	client := collector.NewClient(cfg.Backend.BaseURL, sysLogger)
	notifier := notify.NewBusNotifier(pubSub, sysLogger)

	// 5. Services
	identity := service.NewSessionIdentity(tabStore, client, sysLogger)
	kinematics := service.NewScrollKinematics(cfg.Telemetry)
	heatmap := service.NewVisibilityHeatmap()

	engagement := service.NewEngagementService(
		cfg.Telemetry,
		cfg.App.Platform,
		pubSub,
		kinematics,
		heatmap,
		identity,
		queue,
		client,
		notifier,
		sysLogger,
		dispatchLogger,
	)

	toasts := service.NewToastConsumer(pubSub, sysLogger)

	// 6. Optional NATS platform source
	var natsSource *pktNats.Source
	if cfg.App.NatsEnabled {
		src, err := pktNats.NewSource(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] NATS source unavailable: %v", err)
		} else {
			natsSource = src
		}
	}

	return &Container{
		IngestController:  controller.NewIngestController(pubSub, toasts, sysLogger),
		EngagementService: engagement,
		ToastConsumer:     toasts,
		NatsSource:        natsSource,
		Logger:            sysLogger,
		PubSub:            pubSub,
	}
}
