package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gamut-telemetry/internal/dto"
	"gamut-telemetry/internal/pkg/logger"
	"gamut-telemetry/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/patrickmn/go-cache"
)

// Identical commands inside this window are one toast, not several.
const toastDedupeWindow = time.Minute

// Pending toasts the shim never polled for are capped, oldest first out.
const toastBacklogMax = 20

// IToastConsumer drains backend-issued behavioral commands off the bus and
// holds them until the host UI polls.
type IToastConsumer interface {
	Consume(ctx context.Context) error
	Drain() []dto.ToastCommand
}

type toastConsumer struct {
	subscriber message.Subscriber
	logger     logger.ILogger

	// Recently seen commands, for burst suppression.
	seen *cache.Cache

	mu      sync.Mutex
	pending []dto.ToastCommand
}

func NewToastConsumer(subscriber message.Subscriber, log logger.ILogger) IToastConsumer {
	return &toastConsumer{
		subscriber: subscriber,
		logger:     log,
		seen:       cache.New(toastDedupeWindow, 5*time.Minute),
	}
}

func (tc *toastConsumer) Consume(ctx context.Context) error {
	messages, err := tc.subscriber.Subscribe(ctx, events.TopicToastCommands)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			tc.processMessage(msg)
		}
	}()

	return nil
}

func (tc *toastConsumer) processMessage(msg *message.Message) {
	var command dto.ToastCommand
	if err := json.Unmarshal(msg.Payload, &command); err != nil {
		tc.logger.Warn("toast", "Dropping malformed toast command", map[string]interface{}{"error": err.Error()})
		msg.Ack()
		return
	}

	if _, dup := tc.seen.Get(command.Command); dup {
		msg.Ack()
		return
	}
	tc.seen.Set(command.Command, struct{}{}, cache.DefaultExpiration)

	tc.mu.Lock()
	tc.pending = append(tc.pending, command)
	if len(tc.pending) > toastBacklogMax {
		tc.pending = tc.pending[len(tc.pending)-toastBacklogMax:]
	}
	tc.mu.Unlock()

	tc.logger.Info("toast", "Toast command received", map[string]interface{}{"command": command.Command})
	msg.Ack()
}

// Drain hands the backlog to the caller and clears it.
func (tc *toastConsumer) Drain() []dto.ToastCommand {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	out := tc.pending
	tc.pending = nil
	return out
}
