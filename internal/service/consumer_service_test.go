package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gamut-telemetry/internal/dto"
	"gamut-telemetry/internal/pkg/logger"
	"gamut-telemetry/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newToastFixture(t *testing.T) (*gochannel.GoChannel, IToastConsumer) {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { pubSub.Close() })

	tc := NewToastConsumer(pubSub, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, tc.Consume(ctx))
	return pubSub, tc
}

func publishToast(t *testing.T, pubSub *gochannel.GoChannel, command string) {
	t.Helper()
	payload, err := json.Marshal(dto.ToastCommand{Command: command, Timestamp: time.Now()})
	require.NoError(t, err)
	require.NoError(t, pubSub.Publish(events.TopicToastCommands, message.NewMessage(watermill.NewUUID(), payload)))
}

func TestToastConsumerDrain(t *testing.T) {
	pubSub, tc := newToastFixture(t)

	publishToast(t, pubSub, "take_a_break")
	publishToast(t, pubSub, "slow_down")

	var drained []dto.ToastCommand
	require.Eventually(t, func() bool {
		drained = append(drained, tc.Drain()...)
		return len(drained) == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "take_a_break", drained[0].Command)
	assert.Equal(t, "slow_down", drained[1].Command)

	// Drained means gone.
	assert.Empty(t, tc.Drain())
}

func TestToastConsumerDeduplicatesBursts(t *testing.T) {
	pubSub, tc := newToastFixture(t)

	for i := 0; i < 5; i++ {
		publishToast(t, pubSub, "take_a_break")
	}

	var drained []dto.ToastCommand
	require.Eventually(t, func() bool {
		drained = append(drained, tc.Drain()...)
		return len(drained) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// Give stragglers a moment; the duplicates must have been suppressed.
	time.Sleep(100 * time.Millisecond)
	drained = append(drained, tc.Drain()...)
	assert.Len(t, drained, 1)
}

func TestToastConsumerSkipsMalformedMessages(t *testing.T) {
	pubSub, tc := newToastFixture(t)

	require.NoError(t, pubSub.Publish(events.TopicToastCommands,
		message.NewMessage(watermill.NewUUID(), []byte("not json"))))
	publishToast(t, pubSub, "slow_down")

	var drained []dto.ToastCommand
	require.Eventually(t, func() bool {
		drained = append(drained, tc.Drain()...)
		return len(drained) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "slow_down", drained[0].Command)
}
