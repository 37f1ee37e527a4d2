package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"gamut-telemetry/internal/bootstrap"
	"gamut-telemetry/internal/config"
	"gamut-telemetry/internal/server"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.Logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Start the aggregator. It owns the session record and subscribes to
	// the bus before the ingress starts accepting events. runDone marks the
	// moment the final beacon has been handed to the delivery pool.
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		log.Println("Background: Starting Engagement Aggregator...")
		if err := container.EngagementService.Run(ctx); err != nil {
			log.Printf("Background Aggregator Error: %v", err)
		}
	}()

	// 4. Toast command consumer, feeding the shim's poll endpoint.
	if err := container.ToastConsumer.Consume(ctx); err != nil {
		log.Printf("Toast consumer error: %v", err)
	}

	// 5. Optional broker source
	if container.NatsSource != nil {
		if err := container.NatsSource.Forward(ctx, container.PubSub); err != nil {
			log.Printf("NATS source error: %v", err)
		}
		defer container.NatsSource.Close()
	}

	// 6. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// 7. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server error: %v", err)
	}

	// Teardown order: the ingress is down. Cancel the aggregator (a server
	// startup failure never signals the context on its own), wait for it to
	// register the final beacon, then drain in-flight sends.
	stop()
	<-runDone
	container.EngagementService.Close()
}
