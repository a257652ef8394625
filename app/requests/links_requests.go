package requests

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// LinksRequest 外链查询请求，GET 走查询串，POST 走 JSON
type LinksRequest struct {
	Text           string   `json:"text"`
	AccessKey      string   `json:"accessKey"`
	Email          string   `json:"email"`
	Blacklist      []string `json:"blacklist"`
	PreferredSites []string `json:"preferredSites"`

	// 自定义模型配置，provider 为 custom 时 apiKey 必填
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey"`
	BaseURL  string `json:"baseUrl"`
	Model    string `json:"model"`
}

// ParseLinksQuery 从查询串解析外链请求
// 列表参数用英文逗号分隔
func ParseLinksQuery(c *gin.Context) LinksRequest {
	return LinksRequest{
		Text:           c.Query("text"),
		AccessKey:      c.Query("accessKey"),
		Email:          c.Query("email"),
		Blacklist:      splitList(c.Query("blacklist")),
		PreferredSites: splitList(c.Query("preferredSites")),
		Provider:       c.Query("provider"),
		APIKey:         c.Query("apiKey"),
		BaseURL:        c.Query("baseUrl"),
		Model:          c.Query("model"),
	}
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
