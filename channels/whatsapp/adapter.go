package whatsapp

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Abraxas-365/chatflow/channels"
	"github.com/Abraxas-365/chatflow/engine"
	"github.com/Abraxas-365/chatflow/pkg/config"
	"github.com/Abraxas-365/chatflow/pkg/kernel"
)

const (
	whatsappAPIBaseURL = "https://graph.facebook.com"
	defaultAPIVersion  = "v24.0"

	// WhatsApp permite máximo 3 reply buttons por mensaje interactivo
	maxReplyButtons = 3
	maxButtonTitle  = 20
)

// Gateway implementa engine.MessagingGateway sobre la WhatsApp Cloud API
type Gateway struct {
	config     config.WhatsAppConfig
	httpClient *http.Client
	apiURL     string
}

var _ engine.MessagingGateway = (*Gateway)(nil)

// NewGateway creates a new WhatsApp gateway
func NewGateway(cfg config.WhatsAppConfig) *Gateway {
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	return &Gateway{
		config:     cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiURL:     fmt.Sprintf("%s/%s/%s", whatsappAPIBaseURL, apiVersion, cfg.PhoneNumberID),
	}
}

// ============================================================================
// Outbound
// ============================================================================

// SendText sends a plain text message via WhatsApp
func (g *Gateway) SendText(ctx context.Context, to kernel.UserID, body string) (string, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to.String(),
		"type":              "text",
		"text": map[string]any{
			"body": body,
		},
	}
	return g.post(ctx, payload)
}

// SendButtons sends an interactive reply-button message. Cuando hay más
// opciones de las que WhatsApp permite, degrada a texto con lista numerada.
func (g *Gateway) SendButtons(ctx context.Context, to kernel.UserID, body string, choices []engine.Choice) (string, error) {
	if len(choices) == 0 {
		return g.SendText(ctx, to, body)
	}

	if len(choices) > maxReplyButtons {
		log.Printf("⚠️ %d choices exceed WhatsApp button limit, degrading to numbered text", len(choices))
		return g.SendText(ctx, to, numberedList(body, choices))
	}

	buttons := make([]map[string]any, 0, len(choices))
	for i, c := range choices {
		title := c.DisplayText()
		if len(title) > maxButtonTitle {
			title = title[:maxButtonTitle]
		}
		id := c.ReplyValue()
		if id == "" {
			id = fmt.Sprintf("choice_%d", i)
		}
		buttons = append(buttons, map[string]any{
			"type": "reply",
			"reply": map[string]any{
				"id":    id,
				"title": title,
			},
		})
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to.String(),
		"type":              "interactive",
		"interactive": map[string]any{
			"type": "button",
			"body": map[string]any{
				"text": body,
			},
			"action": map[string]any{
				"buttons": buttons,
			},
		},
	}
	return g.post(ctx, payload)
}

// sendResponse respuesta de la Cloud API a un envío
type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (g *Gateway) post(ctx context.Context, payload map[string]any) (string, error) {
	url := fmt.Sprintf("%s/messages", g.apiURL)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", channels.ErrSendFailed().WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", channels.ErrSendFailed().WithCause(err)
	}

	req.Header.Set("Authorization", "Bearer "+g.config.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", channels.ErrSendFailed().WithCause(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		log.Printf("❌ WhatsApp API Error - Status: %d, Body: %s", resp.StatusCode, string(body))
		return "", channels.ErrSendFailed().
			WithDetail("status_code", resp.StatusCode).
			WithDetail("response", string(body))
	}

	var parsed sendResponse
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Messages) == 0 {
		log.Printf("⚠️ WhatsApp send succeeded but response had no message id: %s", string(body))
		return "", nil
	}

	log.Printf("✅ WhatsApp message sent - ID: %s", parsed.Messages[0].ID)
	return parsed.Messages[0].ID, nil
}

func numberedList(body string, choices []engine.Choice) string {
	var sb strings.Builder
	sb.WriteString(body)
	for i, c := range choices {
		sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, c.DisplayText()))
	}
	return sb.String()
}

// ============================================================================
// Inbound
// ============================================================================

// VerifySignature valida la firma HMAC-SHA256 del webhook contra el app
// secret. Si no hay secret configurado, la verificación se omite.
func (g *Gateway) VerifySignature(payload []byte, signature string) error {
	if g.config.AppSecret == "" {
		log.Printf("⚠️ No app secret configured, skipping signature verification")
		return nil
	}

	if signature == "" {
		return channels.ErrSignatureMismatch().WithDetail("reason", "missing signature header")
	}

	signature = strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, []byte(g.config.AppSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return channels.ErrSignatureMismatch()
	}

	return nil
}

// ParseWebhook extrae los mensajes entrantes de un payload de webhook. Los
// eventos sin mensajes (status updates) retornan un slice vacío, no error.
func (g *Gateway) ParseWebhook(tenantID kernel.TenantID, payload []byte) ([]channels.IncomingMessage, error) {
	var webhook Webhook
	if err := json.Unmarshal(payload, &webhook); err != nil {
		return nil, channels.ErrInvalidPayload().WithCause(err)
	}

	var incoming []channels.IncomingMessage
	for _, entry := range webhook.Entry {
		for _, change := range entry.Changes {
			if change.Value.MessagingProduct != "whatsapp" {
				continue
			}
			for _, msg := range change.Value.Messages {
				im, ok := normalizeMessage(tenantID, msg)
				if !ok {
					log.Printf("🤷 Ignoring unsupported message type: %s", msg.Type)
					continue
				}
				incoming = append(incoming, im)
			}
		}
	}

	return incoming, nil
}

func normalizeMessage(tenantID kernel.TenantID, msg WebhookMessage) (channels.IncomingMessage, bool) {
	im := channels.IncomingMessage{
		TenantID:          tenantID,
		From:              kernel.UserID(msg.From),
		ExternalMessageID: msg.ID,
		Timestamp:         time.Unix(msg.Timestamp, 0),
	}

	switch msg.Type {
	case "text":
		if msg.Text == nil {
			return im, false
		}
		im.Kind = engine.InputKindText
		im.Content = msg.Text.Body
	case "interactive":
		if msg.Interactive == nil {
			return im, false
		}
		im.Kind = engine.InputKindInteractive
		switch {
		case msg.Interactive.ButtonReply != nil:
			im.Content = msg.Interactive.ButtonReply.ID
		case msg.Interactive.ListReply != nil:
			im.Content = msg.Interactive.ListReply.ID
		default:
			return im, false
		}
	case "button":
		// Quick-reply de plantillas llega como type button
		if msg.Button == nil {
			return im, false
		}
		im.Kind = engine.InputKindInteractive
		im.Content = msg.Button.Payload
	case "image", "document", "audio", "video":
		media := msg.media()
		if media == nil {
			return im, false
		}
		im.Kind = engine.InputKindMedia
		im.Content = media.Caption
		im.MediaID = media.ID
		im.MimeType = media.MimeType
	default:
		return im, false
	}

	return im, true
}
