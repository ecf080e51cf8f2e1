package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laila/internal/config"
	"laila/internal/prompts"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "none"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "none"))
	return &config.Config{
		LLM:           config.LLMConfig{Provider: config.ProviderOpenAI, Model: "gpt-test", APIKey: "sk-test"},
		AWS:           config.AWSConfig{Region: "us-west-2"},
		Agent:         config.AgentConfig{MaxIterations: 5},
		GitHub:        config.GitHubConfig{MCPURL: config.DefaultGitHubMCPURL},
		KnowledgeBase: config.KnowledgeBaseConfig{ID: "KB", MinScore: 0.4, MaxResults: 5},
		Prompts:       config.PromptsConfig{System: "default"},
	}
}

func TestNewAndClose(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.DBPath = filepath.Join(t.TempDir(), "laila.db")

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, a.Orchestrator)
	assert.Equal(t, "gpt-test", a.Orchestrator.Model())
	assert.Contains(t, a.Prompts.Names(), "github_agent")
	require.NoError(t, a.Close(context.Background()))
}

func TestNewUnknownSystemProfile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Prompts.System = "nope"

	_, err := New(context.Background(), cfg)
	require.ErrorIs(t, err, prompts.ErrProfileNotFound)
}

func TestNewProvider(t *testing.T) {
	cfg := testConfig(t)

	for _, name := range []string{config.ProviderBedrock, config.ProviderAnthropic, config.ProviderOpenAI} {
		cfg.LLM.Provider = name
		p, err := NewProvider(cfg, aws.Config{Region: "us-west-2"})
		require.NoError(t, err, name)
		assert.Equal(t, "gpt-test", p.DefaultModel())
	}

	cfg.LLM.Provider = "mystery"
	_, err := NewProvider(cfg, aws.Config{})
	assert.ErrorContains(t, err, `unknown LLM provider "mystery"`)
}

func TestBuildTools(t *testing.T) {
	cfg := testConfig(t)

	ts, err := buildTools(cfg, aws.Config{Region: "us-west-2"}, nil)
	require.NoError(t, err)
	names := make([]string, 0, len(ts))
	for _, tool := range ts {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"retrieve", "text_analyzer", "format_data", "aws_region_info", "github_agent", "email_agent"}, names)

	cfg.Services.Brave.APIKey = "brave-key"
	ts, err = buildTools(cfg, aws.Config{Region: "us-west-2"}, nil)
	require.NoError(t, err)
	assert.Len(t, ts, 7)
}
