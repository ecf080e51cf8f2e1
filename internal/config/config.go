package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	ProviderBedrock   = "bedrock"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	DefaultModel          = "us.anthropic.claude-sonnet-4-20250514-v1:0"
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultOpenAIModel    = "gpt-4.1"
	DefaultRegion         = "us-west-2"
	DefaultGitHubMCPURL   = "https://api.githubcopilot.com/mcp/"
)

type Config struct {
	LogLevel      string              `toml:"log_level"`
	LLM           LLMConfig           `toml:"llm"`
	AWS           AWSConfig           `toml:"aws"`
	Agent         AgentConfig         `toml:"agent"`
	GitHub        GitHubConfig        `toml:"github"`
	Email         EmailConfig         `toml:"email"`
	KnowledgeBase KnowledgeBaseConfig `toml:"knowledge_base"`
	Services      ServicesConfig      `toml:"services"`
	Prompts       PromptsConfig       `toml:"prompts"`
	Session       SessionConfig       `toml:"session"`
	Gateway       GatewayConfig       `toml:"gateway"`
	Trace         TraceConfig         `toml:"trace"`
}

type LLMConfig struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	MaxTokens int64  `toml:"max_tokens"`
}

type AWSConfig struct {
	Region  string `toml:"region"`
	Profile string `toml:"profile"`
}

type AgentConfig struct {
	MaxIterations  int            `toml:"max_iterations"`
	ToolCallLimits map[string]int `toml:"tool_call_limits"`
}

type GitHubConfig struct {
	MCPURL  string `toml:"mcp_url"`
	Token   string `toml:"token"`
	ModelID string `toml:"model_id"`
}

type EmailConfig struct {
	SenderEmail string `toml:"sender_email"`
	SenderName  string `toml:"sender_name"`
	ModelID     string `toml:"model_id"`
}

type KnowledgeBaseConfig struct {
	ID              string  `toml:"id"`
	MinScore        float64 `toml:"min_score"`
	MaxResults      int     `toml:"max_results"`
	CacheSize       int     `toml:"cache_size"`
	CacheTTLSeconds int     `toml:"cache_ttl_seconds"`
}

type ServicesConfig struct {
	Brave BraveConfig `toml:"brave"`
}

type BraveConfig struct {
	APIKey string `toml:"api_key"`
	// AllowedHosts scopes web fetches; empty allows any http(s) host.
	AllowedHosts []string `toml:"allowed_hosts"`
}

type PromptsConfig struct {
	Dir    string `toml:"dir"`
	System string `toml:"system"`
}

type SessionConfig struct {
	DBPath string `toml:"db_path"`
}

type GatewayConfig struct {
	Addr string `toml:"addr"`
}

type TraceConfig struct {
	Endpoint string `toml:"endpoint"`
	URLPath  string `toml:"url_path"`
	APIKey   string `toml:"api_key"`
}

func defaults() Config {
	return Config{
		LogLevel: "INFO",
		LLM: LLMConfig{
			Provider:  ProviderBedrock,
			MaxTokens: 4096,
		},
		AWS: AWSConfig{
			Region: DefaultRegion,
		},
		Agent: AgentConfig{
			MaxIterations: 20,
		},
		GitHub: GitHubConfig{
			MCPURL: DefaultGitHubMCPURL,
		},
		KnowledgeBase: KnowledgeBaseConfig{
			MinScore:        0.4,
			MaxResults:      10,
			CacheSize:       256,
			CacheTTLSeconds: 300,
		},
		Prompts: PromptsConfig{
			System: "default",
		},
		Gateway: GatewayConfig{
			Addr: ":8080",
		},
	}
}

// Load reads settings from defaults, an optional TOML file, a .env file and
// the process environment, in increasing order of precedence. Missing
// optional values stay empty; required values are checked by whichever tool
// needs them at call time.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := defaults()

	path := configPath()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return &cfg, nil
}

// DefaultModelFor returns the model used when neither the config file nor
// the environment names one.
func DefaultModelFor(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return DefaultAnthropicModel
	case ProviderOpenAI:
		return DefaultOpenAIModel
	default:
		return DefaultModel
	}
}

func configPath() string {
	if p := os.Getenv("LAILA_CONFIG"); p != "" {
		return p
	}
	return "laila.toml"
}

func applyEnv(cfg *Config) {
	setString(&cfg.LogLevel, "AGENT_LOG_LEVEL")

	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	if cfg.LLM.Provider == ProviderBedrock {
		setString(&cfg.LLM.Model, "BEDROCK_MODEL_ID")
	}
	setString(&cfg.LLM.Model, "LLM_MODEL")
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModelFor(cfg.LLM.Provider)
	}
	if v := os.Getenv("LLM_MAX_TOKENS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.LLM.MaxTokens = n
		}
	}
	switch cfg.LLM.Provider {
	case ProviderAnthropic:
		setString(&cfg.LLM.APIKey, "ANTHROPIC_API_KEY")
		setString(&cfg.LLM.BaseURL, "ANTHROPIC_BASE_URL")
	case ProviderOpenAI:
		setString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
		setString(&cfg.LLM.BaseURL, "OPENAI_BASE_URL")
	}

	setString(&cfg.AWS.Region, "AWS_REGION")
	setString(&cfg.AWS.Profile, "AWS_PROFILE")

	if v := os.Getenv("AGENT_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Agent.MaxIterations = n
		}
	}
	if v := os.Getenv("TOOL_CALL_LIMITS"); v != "" {
		cfg.Agent.ToolCallLimits = ParseToolCallLimits(v)
	}

	setString(&cfg.GitHub.Token, "GITHUB_PAT")
	setString(&cfg.GitHub.MCPURL, "GITHUB_MCP_URL")
	setString(&cfg.GitHub.ModelID, "GITHUB_AGENT_MODEL_ID")

	setString(&cfg.Email.SenderEmail, "SES_SENDER_EMAIL")
	setString(&cfg.Email.SenderName, "SES_SENDER_NAME")
	setString(&cfg.Email.ModelID, "EMAIL_AGENT_MODEL_ID")

	setString(&cfg.KnowledgeBase.ID, "KNOWLEDGE_BASE_ID")
	if v := os.Getenv("KB_MIN_SCORE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.KnowledgeBase.MinScore = f
		}
	}
	if v := os.Getenv("KB_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.KnowledgeBase.MaxResults = n
		}
	}

	setString(&cfg.Services.Brave.APIKey, "BRAVE_API_KEY")
	if v := os.Getenv("WEB_ALLOWED_HOSTS"); v != "" {
		cfg.Services.Brave.AllowedHosts = splitList(v)
	}

	setString(&cfg.Prompts.System, "SYSTEM_PROMPT_NAME")
	setString(&cfg.Prompts.Dir, "PROMPTS_DIR")

	setString(&cfg.Session.DBPath, "SESSION_DB_PATH")

	if v := os.Getenv("PORT"); v != "" {
		cfg.Gateway.Addr = ":" + v
	}
	setString(&cfg.Gateway.Addr, "LAILA_ADDR")

	setString(&cfg.Trace.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.Trace.URLPath, "OTEL_EXPORTER_OTLP_TRACES_PATH")
	setString(&cfg.Trace.APIKey, "OTEL_EXPORTER_API_KEY")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseToolCallLimits parses "name=n,name=n". Malformed entries are skipped.
func ParseToolCallLimits(s string) map[string]int {
	limits := make(map[string]int)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, raw, ok := strings.Cut(part, "=")
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if !ok || err != nil || n < 0 || strings.TrimSpace(name) == "" {
			slog.Warn("ignoring malformed tool call limit", "entry", part)
			continue
		}
		limits[strings.TrimSpace(name)] = n
	}
	return limits
}

// SpecialistModel returns id, or the orchestrator model when id is unset.
func (c *Config) SpecialistModel(id string) string {
	if id != "" {
		return id
	}
	return c.LLM.Model
}
