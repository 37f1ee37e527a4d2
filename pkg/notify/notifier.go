package notify

import (
	"encoding/json"
	"time"

	"gamut-telemetry/internal/dto"
	"gamut-telemetry/internal/pkg/logger"
	"gamut-telemetry/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// INotifier is the toast-notification collaborator. The aggregator forwards
// backend-issued behavioral commands here and nothing else.
type INotifier interface {
	Notify(command string)
}

// BusNotifier republishes commands on the in-process bus, where the host
// UI's toast layer subscribes.
type BusNotifier struct {
	publisher message.Publisher
	logger    logger.ILogger
}

func NewBusNotifier(publisher message.Publisher, log logger.ILogger) *BusNotifier {
	return &BusNotifier{
		publisher: publisher,
		logger:    log,
	}
}

func (n *BusNotifier) Notify(command string) {
	if command == "" {
		return
	}

	payload, err := json.Marshal(dto.ToastCommand{
		Command:   command,
		Timestamp: time.Now(),
	})
	if err != nil {
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := n.publisher.Publish(events.TopicToastCommands, msg); err != nil {
		n.logger.Warn("notify", "Failed to publish toast command", map[string]interface{}{"error": err.Error()})
	}
}
