package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// TextAnalyzer reports basic statistics about a piece of text.
type TextAnalyzer struct{}

func (TextAnalyzer) Name() string { return "text_analyzer" }
func (TextAnalyzer) Description() string {
	return "Analyze text and return word, character and sentence counts"
}

func (TextAnalyzer) InputSchema() any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"text": stringProp("The text to analyze")},
		"required":   []string{"text"},
	}
}

type TextStats struct {
	WordCount         int     `json:"word_count"`
	CharacterCount    int     `json:"character_count"`
	SentenceCount     int     `json:"sentence_count"`
	AverageWordLength float64 `json:"average_word_length"`
}

func (t TextAnalyzer) Execute(_ context.Context, input string) (string, error) {
	var args struct {
		Text string `json:"text"`
	}
	if err := decode(t.Name(), input, &args); err != nil {
		return "", err
	}
	return encode(AnalyzeText(args.Text))
}

func AnalyzeText(text string) TextStats {
	words := strings.Fields(text)
	stats := TextStats{
		WordCount:      len(words),
		CharacterCount: len([]rune(text)),
	}
	for _, s := range strings.Split(text, ".") {
		if strings.TrimSpace(s) != "" {
			stats.SentenceCount++
		}
	}
	if len(words) > 0 {
		total := 0
		for _, w := range words {
			total += len([]rune(w))
		}
		stats.AverageWordLength = float64(total) / float64(len(words))
	}
	return stats
}

// FormatData renders a string as JSON or YAML. Other formats pass through.
type FormatData struct{}

func (FormatData) Name() string        { return "format_data" }
func (FormatData) Description() string { return "Format data as json or yaml" }

func (FormatData) InputSchema() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"data": stringProp("Input data"),
			"output_format": map[string]any{
				"type":        "string",
				"description": "Desired format: json (default) or yaml",
			},
		},
		"required": []string{"data"},
	}
}

func (f FormatData) Execute(_ context.Context, input string) (string, error) {
	var args struct {
		Data         string `json:"data"`
		OutputFormat string `json:"output_format"`
	}
	if err := decode(f.Name(), input, &args); err != nil {
		return "", err
	}
	return Format(args.Data, args.OutputFormat)
}

// Format renders data as JSON or YAML. Data that is valid JSON keeps its key
// order and exact number text; anything else is wrapped as {"data": data}.
func Format(data, format string) (string, error) {
	if format == "" {
		format = "json"
	}
	raw := bytes.TrimSpace([]byte(data))
	if !json.Valid(raw) {
		wrapped, err := json.Marshal(map[string]string{"data": data})
		if err != nil {
			return "", fmt.Errorf("wrapping data: %w", err)
		}
		raw = wrapped
	}

	switch strings.ToLower(format) {
	case "json":
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return "", fmt.Errorf("formatting json: %w", err)
		}
		return buf.String(), nil
	case "yaml", "yml":
		// JSON is valid YAML, so parsing it into a node tree keeps order and
		// number text intact.
		var doc yaml.Node
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return "", fmt.Errorf("formatting yaml: %w", err)
		}
		blockStyle(&doc)
		b, err := yaml.Marshal(&doc)
		if err != nil {
			return "", fmt.Errorf("formatting yaml: %w", err)
		}
		return strings.TrimRight(string(b), "\n"), nil
	default:
		return data, nil
	}
}

// blockStyle drops the flow and quoting styles JSON input parses with.
// Quoted scalars are pinned to !!str so the encoder re-quotes them only
// where the plain form would read as another type.
func blockStyle(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		n.Tag = "!!str"
	}
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

type Region struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

var regions = map[string]Region{
	"us-east-1":      {"US East (N. Virginia)", "North Virginia"},
	"us-east-2":      {"US East (Ohio)", "Ohio"},
	"us-west-1":      {"US West (N. California)", "Northern California"},
	"us-west-2":      {"US West (Oregon)", "Oregon"},
	"eu-west-1":      {"Europe (Ireland)", "Ireland"},
	"eu-central-1":   {"Europe (Frankfurt)", "Frankfurt"},
	"ap-northeast-1": {"Asia Pacific (Tokyo)", "Tokyo"},
	"ap-southeast-1": {"Asia Pacific (Singapore)", "Singapore"},
}

// RegionInfo looks up AWS regions in a static table.
type RegionInfo struct{}

func (RegionInfo) Name() string        { return "aws_region_info" }
func (RegionInfo) Description() string { return "Get the display name and location of an AWS region" }

func (RegionInfo) InputSchema() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"region": stringProp("AWS region code, for example us-west-2"),
		},
	}
}

func (r RegionInfo) Execute(_ context.Context, input string) (string, error) {
	var args struct {
		Region string `json:"region"`
	}
	if err := decode(r.Name(), input, &args); err != nil {
		return "", err
	}
	return encode(LookupRegion(args.Region))
}

func LookupRegion(code string) Region {
	if code == "" {
		code = "us-west-2"
	}
	if r, ok := regions[code]; ok {
		return r
	}
	return Region{Name: "Unknown region: " + code, Location: "Unknown"}
}
