package whatsapp

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes configures WhatsApp webhook routes
func (h *WebhookHandler) RegisterRoutes(app *fiber.App) {
	webhooks := app.Group("/webhooks/whatsapp")

	webhooks.Get("/:tenantId/:workflowId", h.VerifyWebhook)
	webhooks.Post("/:tenantId/:workflowId", h.ReceiveWebhook)
}
