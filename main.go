package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/dealerflow/salesagent/internal/agent"
	"github.com/dealerflow/salesagent/internal/agent/calendar"
	"github.com/dealerflow/salesagent/internal/agent/extract"
	"github.com/dealerflow/salesagent/internal/agent/finance"
	"github.com/dealerflow/salesagent/internal/agent/gateway"
	"github.com/dealerflow/salesagent/internal/agent/graph"
	"github.com/dealerflow/salesagent/internal/agent/graph/conversations"
	"github.com/dealerflow/salesagent/internal/agent/graph/nodes"
	"github.com/dealerflow/salesagent/internal/agent/graph/tools"
	"github.com/dealerflow/salesagent/internal/agent/inventory"
	"github.com/dealerflow/salesagent/internal/agent/memory"
	"github.com/dealerflow/salesagent/internal/agent/model"
	"github.com/dealerflow/salesagent/internal/agent/prompts"
	"github.com/dealerflow/salesagent/internal/agent/ratelimit"
	"github.com/dealerflow/salesagent/internal/agent/repo"
	logx "github.com/dealerflow/salesagent/pkg/logger"
	pkgredis "github.com/dealerflow/salesagent/pkg/redis"
)

// AppConfig defines all configurable parameters for the agent example,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Insight      model.InsightModelConfig
	Response     model.ResponseModelConfig
	Persona      model.PersonaConfig
	Conversation model.ConversationConfig
	Engine       model.EngineConfig
}

func main() {
	fmt.Println("Testing sales agent conversation engine...")
	ctx := context.Background()
	logx.Init()

	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load structured config from env
	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	rdb, err := envCfg.Redis.New()
	if err != nil {
		log.Fatalf("Failed to initialise Redis client: %v", err)
	}
	defer rdb.Close()

	fmt.Println("Connected to Redis successfully")

	// ====================================================
	// Build everything from env
	ttl, err := time.ParseDuration(envCfg.Conversation.TTL)
	if err != nil {
		log.Fatalf("Invalid CONVERSATION_TTL '%s': %v", envCfg.Conversation.TTL, err)
	}

	conversationRepo := repo.NewRedisConversationRepository(rdb, ttl)
	sessionRepo := repo.NewRedisSessionRepository(rdb)
	memoryRepo := repo.NewRedisMemoryRepository(rdb)

	chatModels, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:        envCfg.APIKey,
		BaseURL:       envCfg.BaseURL,
		InsightConfig: &envCfg.Insight,
		RespConfig:    &envCfg.Response,
	})
	if err != nil {
		log.Fatalf("Failed to create chat models: %v", err)
	}

	runner, err := graph.BuildResponseGraph(ctx, graph.Config{
		ChatModels:       chatModels,
		Conversation:     envCfg.Conversation,
		ConversationRepo: conversationRepo,
		Tools: tools.Deps{
			Calculator:       finance.NewCalculator(nil),
			Calendar:         calendar.NewRedisCalendar(rdb, nil, nil),
			Inventory:        inventory.NewCatalog(nil),
			DownPaymentFloor: envCfg.Engine.DownPaymentFloor,
		},
	})
	if err != nil {
		log.Fatalf("Failed to build graph: %v", err)
	}

	memories := memory.NewService(
		memoryRepo,
		memory.NewInsightExtractor(chatModels.Insight, chatModels.InsightModelName),
		conversations.NewMessagesManager(conversationRepo),
	)

	engine, err := agent.New(agent.Config{
		Sessions:      sessionRepo,
		Conversations: conversationRepo,
		Memories:      memories,
		Extractor:     extract.New(extract.DefaultConfig()),
		Composer:      prompts.NewComposer(nil, envCfg.Persona),
		Responder:     runner,
		Gateway:       gateway.NewLoggingGateway(),
		Limiter:       ratelimit.NewRedisLimiter(rdb, envCfg.Engine.OutboundPerMinute),
	})
	if err != nil {
		log.Fatalf("Failed to assemble engine: %v", err)
	}

	testMessages := []struct {
		description string
		message     string
	}{
		{
			description: "Discovery: vehicle and usage in one message",
			message:     "Hola! Vi el anuncio del Corolla. Lo quiero para trabajar en Uber",
		},
		{
			description: "Qualification: credit score and document",
			message:     "Mi score está en 690 y compro con mi social",
		},
		{
			description: "Strategy acceptance with plan preference",
			message:     "Dale, me parece bien lo del lease",
		},
		{
			description: "Asking for numbers once qualified",
			message:     "¿Y en cuánto me saldría el pago al mes con 3000 de inicial?",
		},
	}

	clientID := "demo-client-305"

	for i, test := range testMessages {
		fmt.Printf("\n🚀 Turn %d: %s\n", i+1, test.description)
		fmt.Printf("Client: \"%s\"\n", test.message)
		fmt.Println("Processing...")

		reply, err := engine.HandleInbound(ctx, clientID, "Carlos", test.message)
		if err != nil {
			log.Fatalf("Failed to handle turn %d: %v", i+1, err)
		}

		fmt.Printf("✅ Reply %d [%s/%s]: %s\n", i+1, reply.Stage, reply.StatusColor, reply.Text)

		if err := engine.Dispatch(ctx, clientID, reply); err != nil {
			log.Printf("Dispatch failed for turn %d: %v", i+1, err)
		}
		fmt.Println("─────────────────────────────────────────────")

		// add slight delay between turns for readability
		time.Sleep(500 * time.Millisecond)
	}

	fmt.Println("🎉 Conversation walkthrough completed!")
}
