package auth

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/craftable/errx"
)

// Config configuración del módulo de autenticación
type Config struct {
	JWT JWTConfig `json:"jwt" yaml:"jwt"`
}

// JWTConfig configuración para JWT
type JWTConfig struct {
	SecretKey       string        `json:"secret_key" yaml:"secret_key"`
	ServiceTokenTTL time.Duration `json:"service_token_ttl" yaml:"service_token_ttl"`
	Issuer          string        `json:"issuer" yaml:"issuer"`
}

// DefaultConfig retorna configuración por defecto
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			ServiceTokenTTL: 5 * time.Minute,
			Issuer:          "chatflow",
		},
	}
}

var ErrRegistry = errx.NewRegistry("AUTH")

var (
	CodeTokenGenerationFailed = ErrRegistry.Register("TOKEN_GENERATION_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to generate token")
	CodeInvalidConfig         = ErrRegistry.Register("INVALID_CONFIG", errx.TypeValidation, http.StatusBadRequest, "Invalid auth configuration")
)

func ErrTokenGenerationFailed() *errx.Error {
	return ErrRegistry.New(CodeTokenGenerationFailed)
}

func ErrInvalidConfig() *errx.Error {
	return ErrRegistry.New(CodeInvalidConfig)
}

// Validate valida la configuración
func (c *Config) Validate() error {
	if c.JWT.SecretKey == "" {
		return ErrInvalidConfig().WithDetail("reason", "JWT secret key is required")
	}
	return nil
}
