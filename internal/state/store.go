package state

import (
	"sync"
	"time"

	"grid-trader-go/internal/models"

	"go.uber.org/zap"
)

// Store 持有全部运行状态，并用唯一的互斥锁串行化所有读-改-存序列。
// 这是刻意的粗粒度设计：tick周期以秒计，吞吐不是问题，简单性优先。
// 任何组件都不得绕过 Store 直接持有状态引用。
type Store struct {
	mu     sync.Mutex
	state  *models.TradingState
	repo   Repository
	logger *zap.SugaredLogger
}

// NewStore 从仓库加载已有状态；没有持久化状态时用配置生成默认状态并立即落盘。
func NewStore(repo Repository, cfg *models.Config, logger *zap.SugaredLogger) (*Store, error) {
	loaded, err := repo.Load()
	if err != nil {
		return nil, err
	}

	s := &Store{repo: repo, logger: logger}
	if loaded != nil {
		if loaded.Cells == nil {
			loaded.Cells = make(map[int]*models.GridCell)
		}
		s.state = loaded
		logger.Infof("已从持久化存储恢复状态: %d 个网格单元, KRW=%.0f, BTC=%.8f",
			len(loaded.Cells), loaded.Account.KRW, loaded.Account.BTC)
	} else {
		s.state = models.NewDefaultState(cfg)
		logger.Info("未发现历史状态，以全新状态启动。")
		if err := repo.Save(s.state); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// View 在锁内以只读方式访问状态。fn 不得保留状态引用。
func (s *Store) View(fn func(state *models.TradingState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// Update 在锁内修改状态，随后同步持久化整份记录。
// 持久化失败只记录日志：内存状态是权威，下一次成功写入会覆盖。
func (s *Store) Update(fn func(state *models.TradingState)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(s.state)
	s.state.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(s.state); err != nil {
		s.logger.Errorf("CRITICAL: 状态持久化失败: %v", err)
	}
}

// Snapshot 返回状态深拷贝，供状态页等并发读取方使用
func (s *Store) Snapshot() *models.TradingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeepCopy()
}

// Persist 强制落盘一次当前状态，用于退出前的最终保存
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.UpdatedAt = time.Now().UTC()
	return s.repo.Save(s.state)
}
