// Package verify implements the engine's external API collaborator: named
// identity/financial verification operations against a configured provider,
// plus generic authenticated HTTP calls for any other endpoint an api node
// points at.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Abraxas-365/chatflow/engine"
)

// named operations resolved against the verification provider
const (
	OpVerifyPAN     = "verify_pan"
	OpVerifyBank    = "verify_bank_account"
	OpVerifyAadhaar = "verify_aadhaar"
)

var namedOperations = map[string]string{
	OpVerifyPAN:     "/v1/pan/verify",
	OpVerifyBank:    "/v1/bank/verify",
	OpVerifyAadhaar: "/v1/aadhaar/verify",
}

// Config configuración del cliente de verificaciones
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implementa engine.APIClient
type Client struct {
	cfg        Config
	httpClient *http.Client
	minter     engine.TokenMinter
}

var _ engine.APIClient = (*Client)(nil)

func NewClient(cfg Config, minter engine.TokenMinter) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		minter:     minter,
	}
}

// Do resuelve la llamada de un nodo api. Las operaciones con nombre van al
// proveedor de verificación; cualquier URL se trata como llamada HTTP
// genérica autenticada con un token de servicio.
func (c *Client) Do(ctx context.Context, call engine.APICall) (*engine.APIResult, error) {
	if path, ok := namedOperations[call.Endpoint]; ok {
		return c.verify(ctx, call, path)
	}

	if strings.HasPrefix(call.Endpoint, "http://") || strings.HasPrefix(call.Endpoint, "https://") {
		return c.genericCall(ctx, call)
	}

	return nil, ErrUnknownOperation().WithDetail("endpoint", call.Endpoint)
}

// verify llama a una operación del proveedor de verificación
func (c *Client) verify(ctx context.Context, call engine.APICall, path string) (*engine.APIResult, error) {
	if c.cfg.BaseURL == "" {
		return nil, ErrProviderNotConfigured().WithDetail("operation", call.Endpoint)
	}

	callURL := strings.TrimRight(c.cfg.BaseURL, "/") + path
	log.Printf("🔎 Verification call: %s (%s)", call.Endpoint, callURL)

	body, err := json.Marshal(call.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	return c.execute(req, call.Endpoint)
}

// genericCall hace una llamada HTTP autenticada a un endpoint arbitrario
func (c *Client) genericCall(ctx context.Context, call engine.APICall) (*engine.APIResult, error) {
	method := strings.ToUpper(call.Method)
	if method == "" {
		method = http.MethodPost
	}

	var bodyReader io.Reader
	callURL := call.Endpoint

	if method == http.MethodGet {
		if len(call.Params) > 0 {
			callURL = appendQuery(callURL, call.Params)
		}
	} else if len(call.Params) > 0 {
		body, err := json.Marshal(call.Params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		bodyReader = bytes.NewBuffer(body)
	}

	log.Printf("🌐 HTTP call: %s %s", method, callURL)

	req, err := http.NewRequestWithContext(ctx, method, callURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.minter != nil {
		token, err := c.minter.MintServiceToken(call.TenantID, call.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to mint service token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.execute(req, call.Endpoint)
}

func (c *Client) execute(req *http.Request, endpoint string) (*engine.APIResult, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ErrCallFailed().
			WithDetail("endpoint", endpoint).
			WithDetail("error", err.Error())
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	data := make(map[string]any)
	if len(bodyBytes) > 0 {
		if err := json.Unmarshal(bodyBytes, &data); err != nil {
			// respuesta no-JSON: conservarla cruda para el autor del flujo
			data["raw_response"] = string(bodyBytes)
		}
	}
	data["statusCode"] = resp.StatusCode

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	if success {
		// algunos proveedores responden 200 con success=false en el body
		if flag, ok := data["success"].(bool); ok {
			success = flag
		}
	}

	return &engine.APIResult{Success: success, Data: data}, nil
}

func appendQuery(rawURL string, params map[string]string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := u.Query()
	for key, value := range params {
		query.Set(key, value)
	}
	u.RawQuery = query.Encode()
	return u.String()
}
