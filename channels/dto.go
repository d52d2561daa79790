package channels

import (
	"time"

	"github.com/Abraxas-365/chatflow/engine"
	"github.com/Abraxas-365/chatflow/pkg/kernel"
)

// IncomingMessage mensaje entrante ya normalizado, listo para el router de
// sesiones. Cada adaptador traduce su formato de webhook a esta forma.
type IncomingMessage struct {
	TenantID          kernel.TenantID  `json:"tenant_id"`
	From              kernel.UserID    `json:"from"`
	ExternalMessageID string           `json:"external_message_id"`
	Kind              engine.InputKind `json:"kind"`

	// Content es el texto del mensaje o el valor del botón/opción elegida
	Content string `json:"content"`

	// MediaID identificador del medio en el proveedor cuando Kind es media
	MediaID   string    `json:"media_id,omitempty"`
	MimeType  string    `json:"mime_type,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
