package news

import (
	"time"

	"grid-trader-go/internal/models"
	"grid-trader-go/internal/notify"
	"grid-trader-go/internal/state"

	"go.uber.org/zap"
)

// 去重环的容量，超出后淘汰最旧的ID
const seenCap = 1000

// Loop 周期性拉取新闻并推送。开关和过滤词都每轮从状态重读，
// Telegram命令修改后下一轮即生效。
type Loop struct {
	fetcher  *Fetcher
	store    *state.Store
	notifier notify.Notifier
	interval time.Duration
	maxItems int
	logger   *zap.SugaredLogger

	stopCh chan struct{}
}

// NewLoop 创建新闻推送循环
func NewLoop(fetcher *Fetcher, store *state.Store, notifier notify.Notifier,
	interval time.Duration, maxItems int, logger *zap.SugaredLogger) *Loop {
	if interval <= 0 {
		interval = time.Hour
	}
	if maxItems <= 0 {
		maxItems = 5
	}
	return &Loop{
		fetcher:  fetcher,
		store:    store,
		notifier: notifier,
		interval: interval,
		maxItems: maxItems,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Run 阻塞运行推送循环，直到 Stop 被调用
func (l *Loop) Run() {
	l.logger.Info("新闻推送循环已启动。")
	for {
		enabled := false
		l.store.View(func(s *models.TradingState) { enabled = s.NewsEnabled })
		if enabled {
			sent := l.PushNow()
			if sent > 0 {
				l.logger.Infof("本轮推送新闻 %d 条", sent)
			}
		}

		select {
		case <-l.stopCh:
			l.logger.Info("新闻推送循环已停止。")
			return
		case <-time.After(l.interval):
		}
	}
}

// Stop 停止推送循环
func (l *Loop) Stop() {
	close(l.stopCh)
}

// PushNow 立即拉取并推送一批新闻，返回实际推送条数。
// /news_now 命令也走这里，不受开关影响。
func (l *Loop) PushNow() int {
	items := l.fetcher.Fetch()
	if len(items) == 0 {
		return 0
	}

	var keywords []string
	l.store.View(func(s *models.TradingState) {
		keywords = append([]string(nil), s.NewsFilter...)
	})
	items = Filter(items, keywords)

	fresh := l.takeUnseen(items)
	for _, it := range fresh {
		l.notifier.Send(Render(it))
	}
	return len(fresh)
}

// takeUnseen 在一次锁内筛掉已推送过的条目并登记新ID
func (l *Loop) takeUnseen(items []Item) []Item {
	var fresh []Item
	l.store.Update(func(s *models.TradingState) {
		seen := make(map[string]bool, len(s.NewsSeenIDs))
		for _, id := range s.NewsSeenIDs {
			seen[id] = true
		}

		for _, it := range items {
			if seen[it.ID] || len(fresh) >= l.maxItems {
				continue
			}
			fresh = append(fresh, it)
			seen[it.ID] = true
			s.NewsSeenIDs = append(s.NewsSeenIDs, it.ID)
		}

		if n := len(s.NewsSeenIDs); n > seenCap {
			s.NewsSeenIDs = append([]string(nil), s.NewsSeenIDs[n-seenCap:]...)
		}
	})
	return fresh
}
