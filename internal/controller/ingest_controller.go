package controller

import (
	"encoding/json"

	"gamut-telemetry/internal/dto"
	"gamut-telemetry/internal/pkg/logger"
	"gamut-telemetry/internal/pkg/serverutils"
	"gamut-telemetry/internal/service"
	"gamut-telemetry/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type IIngestController interface {
	RegisterRoutes(r fiber.Router)
	IngestEvent(ctx *fiber.Ctx) error
	IngestBatch(ctx *fiber.Ctx) error
	PollCommands(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
}

type ingestController struct {
	publisher message.Publisher
	toasts    service.IToastConsumer
	validate  *validator.Validate
	logger    logger.ILogger
}

func NewIngestController(publisher message.Publisher, toasts service.IToastConsumer, log logger.ILogger) IIngestController {
	return &ingestController{
		publisher: publisher,
		toasts:    toasts,
		validate:  validator.New(),
		logger:    log,
	}
}

func (c *ingestController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/events")
	h.Post("/", c.IngestEvent)
	h.Post("/batch", c.IngestBatch)
	r.Get("/commands", c.PollCommands)
	r.Get("/health", c.Health)
}

func (c *ingestController) IngestEvent(ctx *fiber.Ctx) error {
	var ev events.PlatformEvent
	if err := ctx.BodyParser(&ev); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid event body"))
	}
	if err := c.validate.Struct(ev); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	c.publish(ctx, ev)
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse(fiber.Map{"queued": 1}))
}

func (c *ingestController) IngestBatch(ctx *fiber.Ctx) error {
	var evs []events.PlatformEvent
	if err := ctx.BodyParser(&evs); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid batch body"))
	}

	queued := 0
	for _, ev := range evs {
		// One bad event never sinks the rest of the batch.
		if err := c.validate.Struct(ev); err != nil {
			continue
		}
		c.publish(ctx, ev)
		queued++
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse(fiber.Map{"queued": queued}))
}

// PollCommands empties the toast backlog into the response; the shim polls
// this alongside its heartbeat.
func (c *ingestController) PollCommands(ctx *fiber.Ctx) error {
	commands := c.toasts.Drain()
	if commands == nil {
		commands = []dto.ToastCommand{}
	}
	return ctx.JSON(serverutils.SuccessResponse(fiber.Map{"commands": commands}))
}

func (c *ingestController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "ok"})
}

func (c *ingestController) publish(ctx *fiber.Ctx, ev events.PlatformEvent) {
	// Enrich request metadata the shim cannot be trusted to carry itself.
	if ev.UserAgent == "" {
		ev.UserAgent = ctx.Get(fiber.HeaderUserAgent)
	}
	if ev.Referrer == "" {
		ev.Referrer = ctx.Get(fiber.HeaderReferer)
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := c.publisher.Publish(events.TopicPlatformEvents, msg); err != nil {
		// Telemetry is best-effort: log and move on, never error the shim.
		c.logger.Warn("ingest", "Failed to publish platform event", map[string]interface{}{"error": err.Error()})
	}
}
