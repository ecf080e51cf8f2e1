package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves the test into an empty directory so no stray .env or
// laila.toml is picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestDefaults(t *testing.T) {
	cfg := defaults()

	assert.Equal(t, ProviderBedrock, cfg.LLM.Provider)
	assert.Empty(t, cfg.LLM.Model)
	assert.Equal(t, DefaultRegion, cfg.AWS.Region)
	assert.Equal(t, DefaultGitHubMCPURL, cfg.GitHub.MCPURL)
	assert.Equal(t, "default", cfg.Prompts.System)
	assert.Equal(t, 20, cfg.Agent.MaxIterations)
	assert.Equal(t, 0.4, cfg.KnowledgeBase.MinScore)
	assert.Equal(t, ":8080", cfg.Gateway.Addr)
	assert.Empty(t, cfg.Email.SenderEmail)
	assert.Empty(t, cfg.GitHub.Token)
}

func TestLoadDefaultModel(t *testing.T) {
	chdir(t)
	t.Setenv("LAILA_CONFIG", "/nonexistent/laila.toml")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderBedrock, cfg.LLM.Provider)
	assert.Equal(t, DefaultModel, cfg.LLM.Model)
}

func TestLoadDefaultModelFollowsProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{ProviderOpenAI, DefaultOpenAIModel},
		{ProviderAnthropic, DefaultAnthropicModel},
		{ProviderBedrock, DefaultModel},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			chdir(t)
			t.Setenv("LAILA_CONFIG", "/nonexistent/laila.toml")
			t.Setenv("LLM_PROVIDER", tt.provider)
			t.Setenv("GITHUB_PAT", "ghp_test")

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.LLM.Model)
			assert.Equal(t, tt.want, cfg.SpecialistModel(cfg.GitHub.ModelID))
			assert.Equal(t, tt.want, cfg.SpecialistModel(cfg.Email.ModelID))
		})
	}
}

func TestLoadOpenAIIgnoresBedrockModelID(t *testing.T) {
	chdir(t)
	t.Setenv("LAILA_CONFIG", "/nonexistent/laila.toml")
	t.Setenv("LLM_PROVIDER", ProviderOpenAI)
	t.Setenv("BEDROCK_MODEL_ID", "anthropic.claude-3-haiku")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultOpenAIModel, cfg.LLM.Model)

	t.Setenv("LLM_MODEL", "gpt-4o-mini")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "gpt-4o-mini", cfg.SpecialistModel(""))
}

func TestLoadModelOverridePrecedence(t *testing.T) {
	chdir(t)
	t.Setenv("LAILA_CONFIG", "/nonexistent/laila.toml")
	t.Setenv("BEDROCK_MODEL_ID", "anthropic.claude-3-haiku")
	t.Setenv("LLM_MODEL", "anthropic.claude-3-opus")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "anthropic.claude-3-opus", cfg.LLM.Model)
}

func TestLoadWithEnvOverrides(t *testing.T) {
	chdir(t)
	t.Setenv("LAILA_CONFIG", "/nonexistent/laila.toml")
	t.Setenv("BEDROCK_MODEL_ID", "anthropic.claude-3-haiku")
	t.Setenv("GITHUB_PAT", "ghp_test")
	t.Setenv("GITHUB_AGENT_MODEL_ID", "gh-model")
	t.Setenv("SES_SENDER_EMAIL", "bot@example.com")
	t.Setenv("SES_SENDER_NAME", "Laila")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("SYSTEM_PROMPT_NAME", "assistant")
	t.Setenv("TOOL_CALL_LIMITS", "github_agent=1")
	t.Setenv("PORT", "9000")
	t.Setenv("WEB_ALLOWED_HOSTS", "docs.github.com, ,aws.amazon.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "anthropic.claude-3-haiku", cfg.LLM.Model)
	assert.Equal(t, "ghp_test", cfg.GitHub.Token)
	assert.Equal(t, "gh-model", cfg.SpecialistModel(cfg.GitHub.ModelID))
	assert.Equal(t, "anthropic.claude-3-haiku", cfg.SpecialistModel(cfg.Email.ModelID))
	assert.Equal(t, "bot@example.com", cfg.Email.SenderEmail)
	assert.Equal(t, "Laila", cfg.Email.SenderName)
	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, "assistant", cfg.Prompts.System)
	assert.Equal(t, map[string]int{"github_agent": 1}, cfg.Agent.ToolCallLimits)
	assert.Equal(t, ":9000", cfg.Gateway.Addr)
	assert.Equal(t, []string{"docs.github.com", "aws.amazon.com"}, cfg.Services.Brave.AllowedHosts)
}

func TestLoadFromTOML(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "custom.toml")
	data := `
log_level = "DEBUG"

[llm]
provider = "openai"
model = "gpt-4.1"

[email]
sender_email = "toml@example.com"

[agent.tool_call_limits]
send_email = 2
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	t.Setenv("LAILA_CONFIG", path)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "toml@example.com", cfg.Email.SenderEmail)
	assert.Equal(t, 2, cfg.Agent.ToolCallLimits["send_email"])
	assert.Equal(t, DefaultRegion, cfg.AWS.Region)
}

func TestLoadInvalidTOML(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[llm\nmodel="), 0o644))
	t.Setenv("LAILA_CONFIG", path)

	_, err := Load()
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdir(t)
	t.Setenv("LAILA_CONFIG", filepath.Join(dir, "missing.toml"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("KNOWLEDGE_BASE_ID=kb-from-dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("KNOWLEDGE_BASE_ID") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "kb-from-dotenv", cfg.KnowledgeBase.ID)
}

func TestParseToolCallLimits(t *testing.T) {
	got := ParseToolCallLimits(" github_agent=1, send_email = 3 ,bad, =4, neg=-1,x=y")
	assert.Equal(t, map[string]int{"github_agent": 1, "send_email": 3}, got)
}
