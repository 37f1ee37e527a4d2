package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gamut-telemetry/internal/pkg/logger"
	"gamut-telemetry/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	streamName     = "PLATFORM_EVENTS"
	subjectPattern = "platform.events.>"
	durableName    = "engagement-agent"
)

// Source consumes raw platform events that an app shell forwards over NATS
// and republishes them on the in-process bus, where the aggregator picks them
// up like any other event.
type Source struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger logger.ILogger
}

func NewSource(url string, log logger.ILogger) (*Source, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	// Ensure the stream exists. Don't fail hard: it may already exist or
	// NATS may not be ready yet.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subjectPattern},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		log.Warn("nats", "Failed to ensure platform events stream", map[string]interface{}{"error": err.Error()})
	}

	return &Source{nc: nc, js: js, logger: log}, nil
}

// Forward starts consuming and republishing onto the in-process bus. It uses
// a durable consumer so events survive agent restarts.
func (s *Source) Forward(ctx context.Context, publisher message.Publisher) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subjectPattern,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	_, err = consumer.Consume(func(msg jetstream.Msg) {
		var ev events.PlatformEvent
		if err := json.Unmarshal(msg.Data(), &ev); err != nil {
			s.logger.Warn("nats", "Dropping malformed platform event", map[string]interface{}{"error": err.Error()})
			msg.Ack() // never retry garbage
			return
		}

		out := message.NewMessage(watermill.NewUUID(), msg.Data())
		if err := publisher.Publish(events.TopicPlatformEvents, out); err != nil {
			msg.Nak()
			return
		}
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	s.logger.Info("nats", "Forwarding platform events from broker", map[string]interface{}{
		"subject": subjectPattern,
		"durable": durableName,
	})
	return nil
}

// Close closes the connection.
func (s *Source) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}
