package main

import (
	"context"
	"log"

	"github.com/Abraxas-365/chatflow/channels/whatsapp"
	"github.com/Abraxas-365/chatflow/engine"
	"github.com/Abraxas-365/chatflow/engine/engineapi"
	"github.com/Abraxas-365/chatflow/engine/engineinfra"
	"github.com/Abraxas-365/chatflow/engine/enginesrv"
	"github.com/Abraxas-365/chatflow/engine/flowsrv"
	"github.com/Abraxas-365/chatflow/engine/guard"
	"github.com/Abraxas-365/chatflow/engine/interpreter"
	"github.com/Abraxas-365/chatflow/engine/sweeper"
	"github.com/Abraxas-365/chatflow/iam/auth"
	"github.com/Abraxas-365/chatflow/pkg/config"
	"github.com/Abraxas-365/chatflow/verify"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
)

// Container contains all application dependencies
type Container struct {
	// =================================================================
	// CONFIGURATION & INFRASTRUCTURE
	// =================================================================
	Config      *config.Config
	DB          *sqlx.DB
	RedisClient *redis.Client

	// =================================================================
	// ENGINE - REPOSITORIES
	// =================================================================
	WorkflowRepo engine.WorkflowRepository
	SessionRepo  engine.SessionRepository
	MessageRepo  engine.MessageRepository

	// =================================================================
	// ENGINE - EXECUTION
	// =================================================================
	LoopGuard   engine.LoopGuard
	DedupFilter engine.DuplicateFilter
	Interpreter engine.Interpreter
	FlowService *flowsrv.FlowService
	Sweeper     *sweeper.SessionSweeper

	// =================================================================
	// ENGINE - AUTHORING
	// =================================================================
	WorkflowService *enginesrv.WorkflowService
	EngineHandler   *engineapi.Handler

	// =================================================================
	// AUTH
	// =================================================================
	TokenMinter engine.TokenMinter

	// =================================================================
	// COLLABORATORS
	// =================================================================
	VerifyClient engine.APIClient

	// =================================================================
	// CHANNELS
	// =================================================================
	WhatsAppGateway *whatsapp.Gateway
	WhatsAppHandler *whatsapp.WebhookHandler
}

// NewContainer creates a new dependency container
func NewContainer(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client) (*Container, error) {
	c := &Container{
		Config:      cfg,
		DB:          db,
		RedisClient: redisClient,
	}

	c.initRepositories()
	c.initAuth()
	c.initCollaborators()
	c.initChannels()
	c.initEngine()
	if err := c.initSweeper(); err != nil {
		return nil, err
	}
	c.initHandlers()

	return c, nil
}

func (c *Container) initRepositories() {
	log.Println("  📚 Initializing repositories...")
	c.WorkflowRepo = engineinfra.NewPostgresWorkflowRepository(c.DB)
	c.SessionRepo = engineinfra.NewPostgresSessionRepository(c.DB)
	c.MessageRepo = engineinfra.NewPostgresMessageRepository(c.DB)
}

func (c *Container) initAuth() {
	log.Println("  🔐 Initializing auth...")
	jwtCfg := c.Config.Auth.JWT
	c.TokenMinter = auth.NewJWTService(jwtCfg.SecretKey, jwtCfg.ServiceTokenTTL, jwtCfg.Issuer)
}

func (c *Container) initCollaborators() {
	log.Println("  🌐 Initializing verification client...")
	c.VerifyClient = verify.NewClient(verify.Config{
		BaseURL: c.Config.Verify.BaseURL,
		APIKey:  c.Config.Verify.APIKey,
		Timeout: c.Config.Verify.Timeout,
	}, c.TokenMinter)
}

func (c *Container) initChannels() {
	log.Println("  📱 Initializing WhatsApp gateway...")
	c.WhatsAppGateway = whatsapp.NewGateway(c.Config.WhatsApp)
}

func (c *Container) initEngine() {
	log.Println("  ⚙️ Initializing engine...")
	engineCfg := c.Config.Engine

	c.LoopGuard = guard.NewRedisLoopGuard(c.RedisClient, engineCfg.LoopCeiling, engineCfg.LoopWindow)
	c.DedupFilter = guard.NewRedisDuplicateFilter(c.RedisClient, engineCfg.DedupTTL)

	c.Interpreter = interpreter.NewNodeInterpreter(
		c.WorkflowRepo,
		c.SessionRepo,
		c.MessageRepo,
		c.WhatsAppGateway,
		c.VerifyClient,
		c.LoopGuard,
		c.DedupFilter,
		interpreter.Config{
			StepDelay:   engineCfg.StepDelay,
			CallTimeout: engineCfg.CallTimeout,
		},
	)

	c.FlowService = flowsrv.NewFlowService(c.WorkflowRepo, c.SessionRepo, c.Interpreter)
	c.WorkflowService = enginesrv.NewWorkflowService(c.WorkflowRepo, c.SessionRepo, c.MessageRepo)
}

func (c *Container) initSweeper() error {
	log.Println("  🧹 Initializing session sweeper...")
	engineCfg := c.Config.Engine
	sw, err := sweeper.NewSessionSweeper(c.SessionRepo, engineCfg.AbandonAfter, engineCfg.SweepSchedule)
	if err != nil {
		return err
	}
	c.Sweeper = sw
	return nil
}

func (c *Container) initHandlers() {
	log.Println("  🛣️ Initializing handlers...")
	c.EngineHandler = engineapi.NewHandler(c.WorkflowService, c.FlowService)
	c.WhatsAppHandler = whatsapp.NewWebhookHandler(c.WhatsAppGateway, c.FlowService, c.Config.WhatsApp)
}

// Cleanup libera los recursos del contenedor
func (c *Container) Cleanup() {
	log.Println("🧹 Cleaning up container resources...")
	if c.Sweeper != nil {
		c.Sweeper.Stop()
	}
}

// HealthCheck verifica el estado de las dependencias externas
func (c *Container) HealthCheck(ctx context.Context) map[string]bool {
	health := make(map[string]bool)
	health["database"] = c.DB.PingContext(ctx) == nil
	health["redis"] = c.RedisClient.Ping(ctx).Err() == nil
	return health
}
