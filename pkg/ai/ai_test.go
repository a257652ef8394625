package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeywords(t *testing.T) {
	keywords, err := parseKeywords(`[{"keyword":"seo","query":"seo 入门"}]`)
	require.NoError(t, err)
	require.Len(t, keywords, 1)
	assert.Equal(t, "seo", keywords[0].Keyword)
	assert.Equal(t, "seo 入门", keywords[0].Query)
}

func TestParseKeywordsStripsMarkdownFence(t *testing.T) {
	content := "```json\n[{\"keyword\":\"seo\",\"query\":\"\"}]\n```"
	keywords, err := parseKeywords(content)
	require.NoError(t, err)
	require.Len(t, keywords, 1)
	// query 缺省回落为关键词本身
	assert.Equal(t, "seo", keywords[0].Query)
}

func TestParseKeywordsSkipsEmptyAndRejectsGarbage(t *testing.T) {
	keywords, err := parseKeywords(`[{"keyword":"","query":"x"},{"keyword":"a","query":"b"}]`)
	require.NoError(t, err)
	require.Len(t, keywords, 1)
	assert.Equal(t, "a", keywords[0].Keyword)

	_, err = parseKeywords("这不是 JSON")
	assert.ErrorIs(t, err, ErrAI)
}

func TestExtractKeywords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices":[{"message":{"role":"assistant","content":"[{\"keyword\":\"seo\",\"query\":\"seo guide\"}]"}}],
			"usage":{"prompt_tokens":100,"completion_tokens":20,"total_tokens":120}
		}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})

	result, err := client.ExtractKeywords(context.Background(), "some article", Options{})
	require.NoError(t, err)
	require.Len(t, result.Keywords, 1)
	assert.Equal(t, "seo", result.Keywords[0].Keyword)
	assert.Equal(t, int64(120), result.Usage.TotalTokens)
}

func TestExtractKeywordsOptionOverrides(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer caller-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"[]"}}],"usage":{"total_tokens":1}}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: "https://unused.invalid", APIKey: "default-key"})

	result, err := client.ExtractKeywords(context.Background(), "text", Options{
		BaseURL: server.URL,
		APIKey:  "caller-key",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Keywords)
}

func TestExtractKeywordsGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.ExtractKeywords(context.Background(), "text", Options{})
	assert.ErrorIs(t, err, ErrAI)
}
