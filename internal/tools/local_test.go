package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeText(t *testing.T) {
	stats := AnalyzeText("Hello world. This is a test.")
	assert.Equal(t, 6, stats.WordCount)
	assert.Equal(t, 28, stats.CharacterCount)
	assert.Equal(t, 2, stats.SentenceCount)
	assert.InDelta(t, 23.0/6.0, stats.AverageWordLength, 1e-9)

	assert.Equal(t, TextStats{}, AnalyzeText(""))
}

func TestTextAnalyzerExecute(t *testing.T) {
	out, err := TextAnalyzer{}.Execute(context.Background(), `{"text":"one two"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"word_count":2,"character_count":7,"sentence_count":1,"average_word_length":3}`, out)
}

func TestFormat(t *testing.T) {
	out, err := Format(`{"b":1}`, "json")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"b\": 1\n}", out)

	out, err = Format("plain", "")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"data\": \"plain\"\n}", out)

	out, err = Format(`{"name":"laila","tags":["a"]}`, "YAML")
	require.NoError(t, err)
	assert.Equal(t, "name: laila\ntags:\n    - a", out)

	out, err = Format("plain", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "data: plain", out)

	out, err = Format("<x/>", "xml")
	require.NoError(t, err)
	assert.Equal(t, "<x/>", out)
}

func TestFormatKeepsLargeNumbersAndKeyOrder(t *testing.T) {
	in := `{"issue_id": 12345678901234567890, "n": 9007199254740993, "a": "x"}`

	out, err := Format(in, "json")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"issue_id\": 12345678901234567890,\n  \"n\": 9007199254740993,\n  \"a\": \"x\"\n}", out)

	out, err = Format(in, "yaml")
	require.NoError(t, err)
	assert.Equal(t, "issue_id: 12345678901234567890\nn: 9007199254740993\na: x", out)
}

func TestFormatYAMLQuotesNumericStrings(t *testing.T) {
	out, err := Format(`{"id": "123", "ok": "true", "count": 7}`, "yaml")
	require.NoError(t, err)
	assert.Equal(t, "id: \"123\"\nok: \"true\"\ncount: 7", out)
}

func TestLookupRegion(t *testing.T) {
	assert.Equal(t, Region{Name: "US West (Oregon)", Location: "Oregon"}, LookupRegion(""))
	assert.Equal(t, "Europe (Frankfurt)", LookupRegion("eu-central-1").Name)
	assert.Equal(t, Region{Name: "Unknown region: mars-1", Location: "Unknown"}, LookupRegion("mars-1"))

	out, err := RegionInfo{}.Execute(context.Background(), `{"region":"ap-northeast-1"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Asia Pacific (Tokyo)","location":"Tokyo"}`, out)
}
