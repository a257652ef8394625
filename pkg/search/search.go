// Package search 外链检索客户端（Serper 风格的搜索 API）
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"elink/pkg/config"
	"elink/pkg/logger"
)

// DefaultEndpoint 搜索接口默认地址
const DefaultEndpoint = "https://google.serper.dev/search"

// Config 客户端配置
type Config struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
}

// Client 搜索客户端
type Client struct {
	config Config
	client *resty.Client
}

// NewClient 创建客户端
func NewClient(config Config) *Client {
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	return &Client{
		config: config,
		client: resty.New().SetTimeout(config.Timeout),
	}
}

// Query 单个关键词的检索请求
type Query struct {
	Keyword string
	Query   string
}

// Candidate 备选链接
type Candidate struct {
	Link  string `json:"link"`
	Title string `json:"title"`
}

// Alternatives 备选链接分组
type Alternatives struct {
	Preferred []Candidate `json:"preferred"`
	Regular   []Candidate `json:"regular"`
}

// LinkResult 单个关键词的检索结果
type LinkResult struct {
	Link         string       `json:"link"`
	Title        string       `json:"title"`
	Alternatives Alternatives `json:"alternatives"`
}

type serperResponse struct {
	Organic []struct {
		Link  string `json:"link"`
		Title string `json:"title"`
	} `json:"organic"`
}

// FetchLinks 批量查询关键词的外链
// blacklist 里的域名直接剔除，preferredSites 命中的结果排在前面。
func (c *Client) FetchLinks(ctx context.Context, queries []Query, blacklist, preferredSites []string) (map[string]LinkResult, error) {
	results := make(map[string]LinkResult, len(queries))

	for _, q := range queries {
		result, err := c.fetchOne(ctx, q, blacklist, preferredSites)
		if err != nil {
			// 单个关键词失败直接中断，错误由调用方决定是否降级
			return results, err
		}
		results[q.Keyword] = result
	}
	return results, nil
}

func (c *Client) fetchOne(ctx context.Context, q Query, blacklist, preferredSites []string) (LinkResult, error) {
	query := q.Query
	if query == "" {
		query = q.Keyword
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("X-API-KEY", c.config.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"q": query}).
		Post(c.config.Endpoint)
	if err != nil {
		return LinkResult{}, fmt.Errorf("检索外链失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		logger.ErrorString("Search", "FetchLinks", fmt.Sprintf(
			"搜索接口非 200 响应 关键词:%s 状态码:%d", q.Keyword, resp.StatusCode()))
		return LinkResult{}, fmt.Errorf("检索外链失败: HTTP %d", resp.StatusCode())
	}

	var parsed serperResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return LinkResult{}, fmt.Errorf("解析搜索响应失败: %w", err)
	}

	var preferred, regular []Candidate
	for _, item := range parsed.Organic {
		if item.Link == "" || blocked(item.Link, blacklist) {
			continue
		}
		candidate := Candidate{Link: item.Link, Title: item.Title}
		if matchSite(item.Link, preferredSites) {
			preferred = append(preferred, candidate)
		} else {
			regular = append(regular, candidate)
		}
	}

	result := LinkResult{
		Alternatives: Alternatives{
			Preferred: emptyIfNil(preferred),
			Regular:   emptyIfNil(regular),
		},
	}
	// 优先站点里的第一条作为主链接
	if len(preferred) > 0 {
		result.Link = preferred[0].Link
		result.Title = preferred[0].Title
	} else if len(regular) > 0 {
		result.Link = regular[0].Link
		result.Title = regular[0].Title
	}
	return result, nil
}

func blocked(link string, blacklist []string) bool {
	return matchSite(link, blacklist)
}

// matchSite 判断链接的主机名是否命中站点列表（含子域名）
func matchSite(link string, sites []string) bool {
	if len(sites) == 0 {
		return false
	}
	parsed, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, site := range sites {
		site = strings.ToLower(strings.TrimSpace(site))
		if site == "" {
			continue
		}
		if host == site || strings.HasSuffix(host, "."+site) {
			return true
		}
	}
	return false
}

func emptyIfNil(items []Candidate) []Candidate {
	if items == nil {
		return []Candidate{}
	}
	return items
}

// NewFromConfig 从配置创建客户端
func NewFromConfig() *Client {
	return NewClient(Config{
		APIKey:   config.GetString("search.api_key"),
		Endpoint: config.GetString("search.endpoint"),
		Timeout:  time.Duration(config.GetInt64("search.timeout", 15)) * time.Second,
	})
}
