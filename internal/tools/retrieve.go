package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"laila/internal/config"
)

// ErrNoKnowledgeBase is returned when neither the call nor the
// configuration names a knowledge base.
var ErrNoKnowledgeBase = errors.New("knowledge base not configured: set KNOWLEDGE_BASE_ID")

// KnowledgeBaseAPI is the part of the Bedrock agent runtime client Retrieve uses.
type KnowledgeBaseAPI interface {
	Retrieve(ctx context.Context, in *bedrockagentruntime.RetrieveInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error)
}

// Retrieve queries a Bedrock knowledge base and returns the passages that
// score above a threshold.
type Retrieve struct {
	client     KnowledgeBaseAPI
	kbID       string
	minScore   float64
	maxResults int
	cache      *expirable.LRU[string, []types.KnowledgeBaseRetrievalResult]
}

func NewRetrieve(client KnowledgeBaseAPI, cfg config.KnowledgeBaseConfig) *Retrieve {
	r := &Retrieve{
		client:     client,
		kbID:       cfg.ID,
		minScore:   cfg.MinScore,
		maxResults: cfg.MaxResults,
	}
	if r.maxResults <= 0 {
		r.maxResults = 10
	}
	if cfg.CacheSize > 0 {
		r.cache = expirable.NewLRU[string, []types.KnowledgeBaseRetrievalResult](
			cfg.CacheSize, nil, time.Duration(cfg.CacheTTLSeconds)*time.Second,
		)
	}
	return r
}

func (r *Retrieve) Name() string { return "retrieve" }
func (r *Retrieve) Description() string {
	return "Retrieve relevant passages from the knowledge base, such as guides and reference documents"
}

func (r *Retrieve) InputSchema() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": stringProp("The query to search for"),
			"numberOfResults": map[string]any{
				"type":        "integer",
				"description": "Maximum number of results to return",
			},
			"score": map[string]any{
				"type":        "number",
				"description": "Minimum relevance score between 0 and 1",
			},
			"knowledgeBaseId": stringProp("Knowledge base to query; defaults to the configured one"),
		},
		"required": []string{"text"},
	}
}

func (r *Retrieve) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Text            string   `json:"text"`
		NumberOfResults int      `json:"numberOfResults"`
		Score           *float64 `json:"score"`
		KnowledgeBaseID string   `json:"knowledgeBaseId"`
	}
	if err := decode(r.Name(), input, &args); err != nil {
		return "", err
	}

	kbID := args.KnowledgeBaseID
	if kbID == "" {
		kbID = r.kbID
	}
	if kbID == "" {
		return "", ErrNoKnowledgeBase
	}
	if strings.TrimSpace(args.Text) == "" {
		return "", fmt.Errorf("text is required")
	}
	n := args.NumberOfResults
	if n <= 0 {
		n = r.maxResults
	}
	minScore := r.minScore
	if args.Score != nil {
		minScore = *args.Score
	}

	results, err := r.query(ctx, kbID, args.Text, n)
	if err != nil {
		return "", err
	}
	return formatRetrieval(results, minScore), nil
}

func (r *Retrieve) query(ctx context.Context, kbID, text string, n int) ([]types.KnowledgeBaseRetrievalResult, error) {
	key := fmt.Sprintf("%s|%d|%s", kbID, n, text)
	if r.cache != nil {
		if hit, ok := r.cache.Get(key); ok {
			slog.Debug("retrieve: cache hit", "kb", kbID)
			return hit, nil
		}
	}

	out, err := r.client.Retrieve(ctx, &bedrockagentruntime.RetrieveInput{
		KnowledgeBaseId: aws.String(kbID),
		RetrievalQuery:  &types.KnowledgeBaseQuery{Text: aws.String(text)},
		RetrievalConfiguration: &types.KnowledgeBaseRetrievalConfiguration{
			VectorSearchConfiguration: &types.KnowledgeBaseVectorSearchConfiguration{
				NumberOfResults: aws.Int32(int32(n)),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge base retrieve: %w", err)
	}

	slog.Debug("retrieve: done", "kb", kbID, "results", len(out.RetrievalResults))
	if r.cache != nil {
		r.cache.Add(key, out.RetrievalResults)
	}
	return out.RetrievalResults, nil
}

func formatRetrieval(results []types.KnowledgeBaseRetrievalResult, minScore float64) string {
	var b strings.Builder
	kept := 0
	for _, res := range results {
		score := aws.ToFloat64(res.Score)
		if score < minScore {
			continue
		}
		kept++
		fmt.Fprintf(&b, "\nScore: %.4f\n", score)
		if src := sourceURI(res.Location); src != "" {
			fmt.Fprintf(&b, "Source: %s\n", src)
		}
		if res.Content != nil {
			fmt.Fprintf(&b, "Content: %s\n", aws.ToString(res.Content.Text))
		}
	}
	if kept == 0 {
		return fmt.Sprintf("No results found above score threshold %.2f.", minScore)
	}
	return truncate([]byte(fmt.Sprintf("Retrieved %d results with score >= %.2f:\n%s", kept, minScore, b.String())))
}

func sourceURI(loc *types.RetrievalResultLocation) string {
	if loc == nil {
		return ""
	}
	switch {
	case loc.S3Location != nil:
		return aws.ToString(loc.S3Location.Uri)
	case loc.WebLocation != nil:
		return aws.ToString(loc.WebLocation.Url)
	case loc.ConfluenceLocation != nil:
		return aws.ToString(loc.ConfluenceLocation.Url)
	case loc.SharePointLocation != nil:
		return aws.ToString(loc.SharePointLocation.Url)
	case loc.SalesforceLocation != nil:
		return aws.ToString(loc.SalesforceLocation.Url)
	}
	return ""
}
