// Package app wires configuration into a ready orchestrator. An App is built
// once per process and shared by every entrypoint.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"

	"laila/internal/agent"
	"laila/internal/config"
	"laila/internal/db"
	"laila/internal/history"
	"laila/internal/llm"
	"laila/internal/orchestrator"
	"laila/internal/prompts"
	"laila/internal/specialist"
	"laila/internal/tools"
	"laila/internal/trace"
)

type App struct {
	Config       *config.Config
	Prompts      *prompts.Store
	Orchestrator *orchestrator.Orchestrator

	db            *db.DB
	shutdownTrace func(context.Context) error
}

// New builds the App. Failures here are startup errors: an unknown
// provider, a missing orchestrator profile, an invalid tool registry or an
// unusable session database.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{
		Config:        cfg,
		Prompts:       prompts.NewStore(cfg.Prompts.Dir),
		shutdownTrace: func(context.Context) error { return nil },
	}
	defer func() {
		if err != nil {
			a.Close(context.Background())
		}
	}()

	a.shutdownTrace, err = trace.Init(ctx, trace.Config{
		Endpoint: cfg.Trace.Endpoint,
		URLPath:  cfg.Trace.URLPath,
		APIKey:   cfg.Trace.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	awsCfg, err := loadAWS(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}

	provider, err := NewProvider(cfg, awsCfg)
	if err != nil {
		return nil, err
	}

	factory := agent.NewFactory(provider, a.Prompts,
		agent.WithFactoryMaxIterations(cfg.Agent.MaxIterations),
		agent.WithFactoryMaxTokens(cfg.LLM.MaxTokens),
		agent.WithFactoryCallLimits(cfg.Agent.ToolCallLimits),
	)

	toolset, err := buildTools(cfg, awsCfg, factory)
	if err != nil {
		return nil, err
	}

	var opts []orchestrator.Option
	if cfg.Session.DBPath != "" {
		a.db, err = db.Open(cfg.Session.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening session database: %w", err)
		}
		if err := a.db.Migrate(); err != nil {
			return nil, fmt.Errorf("migrating session database: %w", err)
		}
		opts = append(opts, orchestrator.WithSessionStore(history.NewStore(a.db)))
		slog.Info("session persistence enabled", "path", cfg.Session.DBPath)
	}

	a.Orchestrator, err = orchestrator.New(factory, cfg.Prompts.System, cfg.LLM.Model, toolset, opts...)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Close releases the session database and flushes traces.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
		a.db = nil
	}
	if a.shutdownTrace != nil {
		errs = append(errs, a.shutdownTrace(ctx))
	}
	return errors.Join(errs...)
}

func loadAWS(ctx context.Context, c config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.Region)}
	if c.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(c.Profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

// NewProvider returns the model provider selected by cfg.LLM.Provider.
func NewProvider(cfg *config.Config, awsCfg aws.Config) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case config.ProviderBedrock:
		return llm.NewBedrock(awsCfg, cfg.LLM.Model, cfg.LLM.MaxTokens), nil
	case config.ProviderAnthropic:
		return llm.NewAnthropic(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.MaxTokens), nil
	case config.ProviderOpenAI:
		return llm.NewOpenAI(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
}

// buildTools assembles the orchestrator's closed tool set: direct tools
// first, then the specialists.
func buildTools(cfg *config.Config, awsCfg aws.Config, factory *agent.Factory) ([]agent.Tool, error) {
	out := []agent.Tool{
		tools.NewRetrieve(bedrockagentruntime.NewFromConfig(awsCfg), cfg.KnowledgeBase),
		tools.TextAnalyzer{},
		tools.FormatData{},
		tools.RegionInfo{},
	}
	if cfg.Services.Brave.APIKey != "" {
		searcher, err := tools.NewBraveSearcher(cfg.Services.Brave.APIKey)
		if err != nil {
			return nil, err
		}
		out = append(out, tools.NewWeb(searcher, tools.WithAllowedHosts(cfg.Services.Brave.AllowedHosts)))
	}

	github := specialist.NewGitHub(factory,
		cfg.SpecialistModel(cfg.GitHub.ModelID),
		specialist.NewMCPToolset(cfg.GitHub.MCPURL, cfg.GitHub.Token),
	)
	email := specialist.NewEmail(factory,
		cfg.SpecialistModel(cfg.Email.ModelID),
		specialist.LocalToolset{
			tools.NewSendEmail(cfg.Email, cfg.AWS.Region, tools.NewSESClientFunc(awsCfg)),
		},
	)
	return append(out, github, email), nil
}
