package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Abraxas-365/chatflow/iam/auth"
)

// Config configuración principal de la aplicación
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     auth.Config
	WhatsApp WhatsAppConfig
	Verify   VerifyConfig
	Engine   EngineConfig
}

// ServerConfig configuración del servidor HTTP
type ServerConfig struct {
	Port            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig configuración de PostgreSQL
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configuración de Redis
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// WhatsAppConfig configuración del canal de WhatsApp Cloud API
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
	AppSecret     string
	APIVersion    string
}

// VerifyConfig configuración del proveedor de verificaciones
type VerifyConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// EngineConfig tuning del intérprete de workflows
type EngineConfig struct {
	// StepDelay pausa entre pasos consecutivos (backpressure hacia el canal)
	StepDelay time.Duration
	// LoopCeiling máximo de entradas a un mismo nodo por sesión dentro de LoopWindow
	LoopCeiling int
	LoopWindow  time.Duration
	// DedupTTL retención de message ids ya procesados
	DedupTTL time.Duration
	// CallTimeout límite para llamadas externas (mensajería, verificación, HTTP)
	CallTimeout time.Duration
	// AbandonAfter inactividad tras la cual el sweeper marca la sesión como abandonada
	AbandonAfter time.Duration
	// SweepSchedule expresión cron del sweeper de sesiones
	SweepSchedule string
}

// Load carga la configuración desde variables de entorno
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			ReadTimeout:     getDurationEnv("READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", getEnv("POSTGRES_HOST", "localhost")),
			Port:            getEnv("DB_PORT", getEnv("POSTGRES_PORT", "5432")),
			User:            getEnv("DB_USER", getEnv("POSTGRES_USER", "postgres")),
			Password:        getEnv("DB_PASSWORD", getEnv("POSTGRES_PASSWORD", "postgres")),
			DBName:          getEnv("DB_NAME", getEnv("POSTGRES_DB", "chatflow")),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: LoadAuthConfig(),
		WhatsApp: WhatsAppConfig{
			AccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
			PhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
			VerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", ""),
			AppSecret:     getEnv("WHATSAPP_APP_SECRET", ""),
			APIVersion:    getEnv("WHATSAPP_API_VERSION", "v24.0"),
		},
		Verify: VerifyConfig{
			BaseURL: getEnv("VERIFY_BASE_URL", ""),
			APIKey:  getEnv("VERIFY_API_KEY", ""),
			Timeout: getDurationEnv("VERIFY_TIMEOUT", 30*time.Second),
		},
		Engine: EngineConfig{
			StepDelay:     getDurationEnv("ENGINE_STEP_DELAY", 500*time.Millisecond),
			LoopCeiling:   getIntEnv("ENGINE_LOOP_CEILING", 5),
			LoopWindow:    getDurationEnv("ENGINE_LOOP_WINDOW", 10*time.Minute),
			DedupTTL:      getDurationEnv("ENGINE_DEDUP_TTL", time.Hour),
			CallTimeout:   getDurationEnv("ENGINE_CALL_TIMEOUT", 30*time.Second),
			AbandonAfter:  getDurationEnv("ENGINE_ABANDON_AFTER", 48*time.Hour),
			SweepSchedule: getEnv("ENGINE_SWEEP_SCHEDULE", "*/15 * * * *"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate valida la configuración
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Engine.LoopCeiling <= 0 {
		return fmt.Errorf("ENGINE_LOOP_CEILING must be positive")
	}

	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("invalid auth config: %w", err)
	}

	return nil
}

// GetDSN retorna el DSN de PostgreSQL
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// GetAddr retorna la dirección de Redis
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// LoadAuthConfig carga la configuración de auth desde variables de entorno
func LoadAuthConfig() auth.Config {
	return auth.Config{
		JWT: auth.JWTConfig{
			SecretKey:       getEnv("JWT_SECRET", "default-secret-change-in-production"),
			ServiceTokenTTL: getDurationEnv("SERVICE_TOKEN_TTL", 5*time.Minute),
			Issuer:          getEnv("JWT_ISSUER", "chatflow"),
		},
	}
}
