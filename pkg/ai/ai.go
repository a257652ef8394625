// Package ai 关键词提取客户端
//
// 对接 OpenAI 兼容的 chat completions 接口，调用方可以逐请求覆盖
// apiKey / baseUrl / model（自定义模型场景）。
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"elink/pkg/config"
	"elink/pkg/logger"
)

// DefaultBaseURL OpenAI 官方接口地址
const DefaultBaseURL = "https://api.openai.com/v1"

// ErrAI 模型调用失败
var ErrAI = errors.New("关键词分析失败")

// Config 客户端配置
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client AI 客户端
type Client struct {
	config Config
	client *resty.Client
}

// NewClient 创建客户端
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Timeout <= 0 {
		config.Timeout = 90 * time.Second
	}

	return &Client{
		config: config,
		client: resty.New().SetTimeout(config.Timeout),
	}
}

// Options 单次请求的覆盖项，零值表示使用客户端默认配置
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Keyword 提取出的关键词及其检索词
type Keyword struct {
	Keyword string `json:"keyword"`
	Query   string `json:"query"`
}

// Usage token 用量
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Result 提取结果
type Result struct {
	Keywords []Keyword `json:"keywords"`
	Usage    Usage     `json:"usage"`
}

const systemPrompt = `你是一个 SEO 关键词提取助手。从给定文本中提取适合做外部链接的关键词，` +
	`每个关键词给出一个用于搜索引擎检索的查询词。` +
	`只输出 JSON 数组，形如 [{"keyword":"...","query":"..."}]，不要输出其他内容。`

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ExtractKeywords 提取文本中的关键词
func (c *Client) ExtractKeywords(ctx context.Context, text string, opts Options) (*Result, error) {
	baseURL := c.config.BaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	apiKey := c.config.APIKey
	if opts.APIKey != "" {
		apiKey = opts.APIKey
	}
	model := c.config.Model
	if opts.Model != "" {
		model = opts.Model
	}

	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(strings.TrimRight(baseURL, "/") + "/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAI, err)
	}
	if resp.StatusCode() != 200 {
		logger.ErrorString("AI", "ExtractKeywords", fmt.Sprintf(
			"模型接口非 200 响应 状态码:%d 响应:%s", resp.StatusCode(), resp.String()))
		return nil, fmt.Errorf("%w: HTTP %d", ErrAI, resp.StatusCode())
	}

	var chatResp chatResponse
	if err := json.Unmarshal(resp.Body(), &chatResp); err != nil {
		return nil, fmt.Errorf("%w: 解析响应失败: %v", ErrAI, err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrAI, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: 未返回任何数据", ErrAI)
	}

	keywords, err := parseKeywords(chatResp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	return &Result{Keywords: keywords, Usage: chatResp.Usage}, nil
}

// parseKeywords 解析模型输出的 JSON 数组，容忍 markdown 代码块包裹
func parseKeywords(content string) ([]Keyword, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var keywords []Keyword
	if err := json.Unmarshal([]byte(trimmed), &keywords); err != nil {
		return nil, fmt.Errorf("%w: 模型输出不是合法的 JSON 数组", ErrAI)
	}

	result := make([]Keyword, 0, len(keywords))
	for _, kw := range keywords {
		if kw.Keyword == "" {
			continue
		}
		if kw.Query == "" {
			kw.Query = kw.Keyword
		}
		result = append(result, kw)
	}
	return result, nil
}

// NewFromConfig 从配置创建客户端
func NewFromConfig() *Client {
	return NewClient(Config{
		BaseURL: config.GetString("ai.base_url"),
		APIKey:  config.GetString("ai.api_key"),
		Model:   config.GetString("ai.model"),
		Timeout: time.Duration(config.GetInt64("ai.timeout", 90)) * time.Second,
	})
}
