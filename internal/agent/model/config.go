package model

// ================ Config ================
type ConversationConfig struct {
	TTL   string `envconfig:"CONVERSATION_TTL" default:"72h"`
	Tools struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"6"`
	}
}

// InsightModelConfig configures the model used for asynchronous client
// memory insight extraction.
type InsightModelConfig struct {
	Model       string  `envconfig:"INSIGHT_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"INSIGHT_MAX_TOKENS" default:"600"`
	Temperature float32 `envconfig:"INSIGHT_TEMPERATURE" default:"0.0"`
}

// ResponseModelConfig configures the model that writes the outbound reply.
type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"400"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.6"`
}

// PersonaConfig identifies the seller persona and dealership. Only the
// shape of the composed instructions depends on these; the wording of the
// persona ruleset itself lives in the prompts package.
type PersonaConfig struct {
	SellerName string `envconfig:"PERSONA_SELLER_NAME" default:"Ray"`
	DealerName string `envconfig:"PERSONA_DEALER_NAME" default:"Sunrise Toyota"`
}

// EngineConfig tunes deterministic engine behavior.
type EngineConfig struct {
	// DownPaymentFloor is substituted when the payment tool is called
	// without a down payment and the session has none recorded.
	DownPaymentFloor float64 `envconfig:"ENGINE_DOWNPAYMENT_FLOOR" default:"2000"`
	// OutboundPerMinute caps outbound dispatches per client identity.
	OutboundPerMinute int `envconfig:"ENGINE_OUTBOUND_PER_MINUTE" default:"20"`
}
