package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL             string `envconfig:"CONVERSATION_TTL" default:"30m"`
	Store           string `envconfig:"CONVERSATION_STORE" default:"memory"`
	MaxHistory      int    `envconfig:"CONVERSATION_MAX_HISTORY" default:"20"`
	CleanupInterval string `envconfig:"CONVERSATION_CLEANUP_INTERVAL" default:"1m"`
}

// ProviderConfig selects the backend that serves both chat models.
type ProviderConfig struct {
	Name          string        `envconfig:"MODEL_PROVIDER" default:"gemini"`
	GeminiAPIKey  string        `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL string        `envconfig:"GEMINI_BASE_URL"`
	OpenAIAPIKey  string        `envconfig:"OPENAI_API_KEY" default:"ollama"`
	OpenAIBaseURL string        `envconfig:"OPENAI_BASE_URL" default:"http://localhost:11434/v1"`
	CallTimeout   time.Duration `envconfig:"MODEL_CALL_TIMEOUT" default:"60s"`
	WarmUp        bool          `envconfig:"MODEL_WARMUP" default:"true"`
}

type NLUModelConfig struct {
	Model       string  `envconfig:"NLU_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"NLU_MAX_TOKENS" default:"256"`
	Temperature float32 `envconfig:"NLU_TEMPERATURE" default:"0.1"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.4"`
}

type ToolsConfig struct {
	MaxSteps int           `envconfig:"TOOL_MAX_STEPS" default:"3"`
	Timeout  time.Duration `envconfig:"TOOL_TIMEOUT" default:"30s"`
	Enabled  bool          `envconfig:"TOOL_ENABLED" default:"true"`
}

// AgentConfig picks the chatbot variant and its slot order.
type AgentConfig struct {
	Mode         string `envconfig:"AGENT_MODE" default:"slot"`
	SlotPriority string `envconfig:"AGENT_SLOT_PRIORITY" default:"location,skills,salary,position"`
}

type PromptConfig struct {
	File        string `envconfig:"PROMPT_FILE"`
	ServiceName string `envconfig:"PROMPT_SERVICE_NAME" default:"JobChat"`
}

type ServerConfig struct {
	Addr      string  `envconfig:"SERVER_ADDR" default:":8080"`
	RateLimit float64 `envconfig:"SERVER_RATE_LIMIT" default:"5"`
	RateBurst int     `envconfig:"SERVER_RATE_BURST" default:"10"`
	Version   string  `envconfig:"SERVER_VERSION" default:"1.0.0"`
}
