package webhook

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/padi-pay/padi_pay/internal/gateway"
)

const signatureHeader = "verif-hash"

// EventQueue is the durable publish side consumed by the handler.
type EventQueue interface {
	Publish(ctx context.Context, event Event) error
}

// Handler receives gateway webhook deliveries, validates the signature,
// normalizes the payload, and enqueues it for the completion worker. It
// always answers 200 so the vendor does not hammer an endpoint that will
// never accept a malformed delivery; only broker failures return an
// error status, which triggers vendor redelivery.
type Handler struct {
	client gateway.Client
	queue  EventQueue
	logger *slog.Logger
}

// NewHandler constructs a webhook handler.
func NewHandler(client gateway.Client, queue EventQueue, logger *slog.Logger) *Handler {
	return &Handler{client: client, queue: queue, logger: logger}
}

// Gateway handles POST deliveries from the funds-transfer gateway.
func (h *Handler) Gateway(c *fiber.Ctx) error {
	signature := c.Get(signatureHeader)
	if signature == "" || !h.client.VerifyWebhookSignature(signature) {
		h.logger.Error("webhook signature rejected")
		return c.SendStatus(http.StatusOK)
	}

	body := make([]byte, len(c.Body()))
	copy(body, c.Body())

	outcome, eventID, err := gateway.ParseWebhook(body)
	if err != nil {
		h.logger.Error("webhook payload rejected", "error", err)
		return c.SendStatus(http.StatusOK)
	}

	event := FromOutcome(outcome, eventID, body)
	if err := h.queue.Publish(c.UserContext(), event); err != nil {
		h.logger.Error("webhook enqueue failed", "event_id", eventID, "error", err)
		return fiber.NewError(http.StatusServiceUnavailable, "event queue unavailable")
	}

	h.logger.Info("webhook enqueued", "event_id", eventID, "reference", outcome.Reference, "status", string(outcome.Status))
	return c.SendStatus(http.StatusOK)
}
