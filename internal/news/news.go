// Package news 拉取加密货币RSS新闻，按关键词过滤并做朴素情绪打分，
// 把策略预设建议通过通知通道推给操作者。引擎只把建议当作一组参数消费。
package news

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

// 内置RSS源
var sourceURLs = map[string]string{
	"coindesk":        "https://www.coindesk.com/arc/outboundfeeds/rss/",
	"cointelegraph":   "https://cointelegraph.com/rss",
	"bitcoinmagazine": "https://bitcoinmagazine.com/.rss/full/",
}

// 情绪打分关键词
var (
	posKeys = []string{"etf", "approval", "adoption", "institution", "upgrade", "partnership", "bull", "long"}
	negKeys = []string{"hack", "ban", "regulation", "lawsuit", "down", "restrict", "selloff", "liquidation", "bear", "short"}
)

// Item 是一条归一化后的新闻
type Item struct {
	ID        string
	Source    string
	Title     string
	Link      string
	Summary   string
	Published *time.Time
}

// Fetcher 从配置的RSS源拉取新闻
type Fetcher struct {
	parser  *gofeed.Parser
	sources []string
	logger  *zap.SugaredLogger
}

// NewFetcher 创建新闻抓取器，未知的源名会在拉取时被跳过
func NewFetcher(sources []string, logger *zap.SugaredLogger) *Fetcher {
	return &Fetcher{
		parser:  gofeed.NewParser(),
		sources: sources,
		logger:  logger,
	}
}

// Fetch 拉取全部源，单个源失败不影响其他源。每个源最多取20条。
func (f *Fetcher) Fetch() []Item {
	var items []Item
	for _, name := range f.sources {
		url, ok := sourceURLs[strings.ToLower(name)]
		if !ok {
			continue
		}

		parsed, err := f.parser.ParseURL(url)
		if err != nil {
			f.logger.Warnf("RSS拉取失败 %s: %v", name, err)
			continue
		}

		entries := parsed.Items
		if len(entries) > 20 {
			entries = entries[:20]
		}
		for _, e := range entries {
			id := e.GUID
			if id == "" {
				id = e.Link
			}
			if id == "" && len(e.Title) > 0 {
				id = e.Title
				if len(id) > 80 {
					id = id[:80]
				}
			}
			items = append(items, Item{
				ID:        fmt.Sprintf("%s:%s", name, id),
				Source:    name,
				Title:     e.Title,
				Link:      e.Link,
				Summary:   e.Description,
				Published: e.PublishedParsed,
			})
		}
	}
	return items
}

// Filter 按包含关键词过滤，关键词为空时全量通过
func Filter(items []Item, keywords []string) []Item {
	if len(keywords) == 0 {
		return items
	}
	var filtered []Item
	for _, it := range items {
		text := strings.ToLower(it.Title + " " + it.Summary)
		for _, k := range keywords {
			if strings.Contains(text, strings.ToLower(k)) {
				filtered = append(filtered, it)
				break
			}
		}
	}
	return filtered
}

// Recommend 对单条新闻做关键词计数情绪打分，返回建议的策略预设key和说明。
// 负面多于正面→down，正面多于负面→up，持平→middle。
func Recommend(it Item) (string, string) {
	text := strings.ToLower(it.Title + " " + it.Summary)
	pos, neg := 0, 0
	for _, k := range posKeys {
		if strings.Contains(text, k) {
			pos++
		}
	}
	for _, k := range negKeys {
		if strings.Contains(text, k) {
			neg++
		}
	}

	switch {
	case neg > pos:
		return "down", "⚠️ 风险可能扩大 — 建议保守策略 (down)"
	case pos > neg:
		return "up", "✅ 利好信号 — 建议积极策略 (up)"
	default:
		return "middle", "ℹ️ 情绪中性 — 建议维持震荡策略 (middle)"
	}
}

// Render 把一条新闻渲染成推送文本
func Render(it Item) string {
	key, note := Recommend(it)
	published := ""
	if it.Published != nil {
		published = "\n🕒 " + it.Published.Format(time.RFC3339)
	}
	return fmt.Sprintf("📰 [%s] %s%s\n%s\n\n策略建议: %s\n切换 → /strategy %s",
		it.Source, it.Title, published, it.Link, note, key)
}
