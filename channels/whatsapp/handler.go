package whatsapp

import (
	"log"
	"net/http"

	"github.com/Abraxas-365/chatflow/engine"
	"github.com/Abraxas-365/chatflow/engine/flowsrv"
	"github.com/Abraxas-365/chatflow/pkg/config"
	"github.com/Abraxas-365/chatflow/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// WebhookHandler recibe los webhooks de la Cloud API y los rutea al motor
type WebhookHandler struct {
	gateway *Gateway
	flows   *flowsrv.FlowService
	cfg     config.WhatsAppConfig
}

// NewWebhookHandler creates a new WhatsApp webhook handler
func NewWebhookHandler(gateway *Gateway, flows *flowsrv.FlowService, cfg config.WhatsAppConfig) *WebhookHandler {
	return &WebhookHandler{
		gateway: gateway,
		flows:   flows,
		cfg:     cfg,
	}
}

// VerifyWebhook handles Meta's webhook verification challenge
// GET /webhooks/whatsapp/:tenantId/:workflowId
func (h *WebhookHandler) VerifyWebhook(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == h.cfg.VerifyToken {
		log.Printf("✅ Webhook verified - Tenant: %s", c.Params("tenantId"))
		return c.SendString(challenge)
	}

	log.Printf("❌ Webhook verification failed - invalid token")
	return fiber.NewError(http.StatusForbidden, "Verification failed")
}

// ReceiveWebhook handles incoming WhatsApp messages
// POST /webhooks/whatsapp/:tenantId/:workflowId
func (h *WebhookHandler) ReceiveWebhook(c *fiber.Ctx) error {
	tenantID := kernel.TenantID(c.Params("tenantId"))
	workflowID := kernel.WorkflowID(c.Params("workflowId"))

	body := c.Body()

	if err := h.gateway.VerifySignature(body, c.Get("X-Hub-Signature-256")); err != nil {
		log.Printf("❌ Webhook signature mismatch - Tenant: %s", tenantID)
		return err
	}

	messages, err := h.gateway.ParseWebhook(tenantID, body)
	if err != nil {
		return err
	}

	// Meta reintenta entregas no confirmadas; siempre respondemos 200 y
	// dejamos que el filtro de duplicados absorba las repeticiones.
	for _, msg := range messages {
		if err := h.flows.HandleInbound(
			c.Context(),
			msg.TenantID,
			msg.From,
			workflowID,
			engine.Input{
				Value:             msg.Content,
				ExternalMessageID: msg.ExternalMessageID,
				Kind:              msg.Kind,
				MediaID:           msg.MediaID,
				MimeType:          msg.MimeType,
			},
		); err != nil {
			log.Printf("❌ Failed to handle inbound message %s: %v", msg.ExternalMessageID, err)
		}
	}

	return c.SendStatus(http.StatusOK)
}
