package generation

import (
	"context"
	"sync"
	"time"

	"storyforge-api/internal/application/knowledge"
	"storyforge-api/pkg/errors"
	"storyforge-api/pkg/logger"
	"storyforge-api/pkg/metrics"
)

// Guard 生成生命周期守卫
// 两个职责：
//  1. 每个 (user, project) 同一时刻只允许一个生成在跑，重复请求直接拒绝（不排队）
//  2. 缓存生成句柄 Manager，空闲超时驱逐，项目结构/模型配置变化时显式失效
type Guard struct {
	mu       sync.Mutex
	running  map[string]struct{}
	managers map[string]*managerEntry

	idleTTL       time.Duration
	sweepInterval time.Duration
	stop          chan struct{}
	stopOnce      sync.Once
}

type managerEntry struct {
	manager  *Manager
	lastUsed time.Time
}

// NewGuard 创建守卫并启动空闲驱逐循环
func NewGuard(idleTTL, sweepInterval time.Duration) *Guard {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	g := &Guard{
		running:       make(map[string]struct{}),
		managers:      make(map[string]*managerEntry),
		idleTTL:       idleTTL,
		sweepInterval: sweepInterval,
		stop:          make(chan struct{}),
	}
	go g.sweepLoop()
	return g
}

func scopeKey(scope knowledge.Scope) string {
	return scope.UserID + ":" + scope.ProjectID
}

// Acquire 占用生成名额
// 同一 (user, project) 已有生成在跑时返回 ErrGenerationConflict。
func (g *Guard) Acquire(ctx context.Context, scope knowledge.Scope) error {
	key := scopeKey(scope)
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.running[key]; ok {
		metrics.GenerationRejectedTotal.Inc()
		logger.Warn(ctx, "项目已有生成任务在执行，拒绝本次请求",
			"user_id", scope.UserID, "project_id", scope.ProjectID)
		return errors.ErrGenerationConflict
	}
	g.running[key] = struct{}{}
	return nil
}

// Release 释放生成名额；未占用时为幂等空操作
func (g *Guard) Release(scope knowledge.Scope) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, scopeKey(scope))
}

// Running 当前是否有生成在跑
func (g *Guard) Running(scope knowledge.Scope) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[scopeKey(scope)]
	return ok
}

// Manager 取缓存的生成句柄，未命中时用 build 建一个新的
// build 在锁外执行；同 key 并发未命中时可能重复构建，入缓存前
// 再查一次，先建成的留下，后建成的丢弃，保证同 key 只有一个存活句柄。
func (g *Guard) Manager(ctx context.Context, scope knowledge.Scope, build func(ctx context.Context) (*Manager, error)) (*Manager, error) {
	key := scopeKey(scope)

	g.mu.Lock()
	if entry, ok := g.managers[key]; ok {
		entry.lastUsed = time.Now()
		g.mu.Unlock()
		return entry.manager, nil
	}
	g.mu.Unlock()

	m, err := build(ctx)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	if entry, ok := g.managers[key]; ok {
		entry.lastUsed = time.Now()
		g.mu.Unlock()
		return entry.manager, nil
	}
	g.managers[key] = &managerEntry{manager: m, lastUsed: time.Now()}
	metrics.ManagerCacheSize.Set(float64(len(g.managers)))
	g.mu.Unlock()

	logger.Debug(ctx, "生成句柄已创建并缓存",
		"user_id", scope.UserID, "project_id", scope.ProjectID)
	return m, nil
}

// Invalidate 使指定作用域的缓存句柄失效
// 项目结构（设定、关系、章节结构）或模型配置变化后调用。
func (g *Guard) Invalidate(scope knowledge.Scope) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := scopeKey(scope)
	if _, ok := g.managers[key]; ok {
		delete(g.managers, key)
		metrics.ManagerCacheSize.Set(float64(len(g.managers)))
	}
}

// InvalidateWhere 按谓词批量失效
func (g *Guard) InvalidateWhere(pred func(scope knowledge.Scope) bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key, entry := range g.managers {
		if pred(entry.manager.scope) {
			delete(g.managers, key)
		}
	}
	metrics.ManagerCacheSize.Set(float64(len(g.managers)))
}

// Close 停止驱逐循环
func (g *Guard) Close() {
	g.stopOnce.Do(func() { close(g.stop) })
}

func (g *Guard) sweepLoop() {
	ticker := time.NewTicker(g.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-g.stop:
			return
		case <-ticker.C:
			g.sweep(time.Now())
		}
	}
}

// sweep 驱逐空闲超时的句柄；正在生成的作用域不驱逐
func (g *Guard) sweep(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	evicted := 0
	for key, entry := range g.managers {
		if _, busy := g.running[key]; busy {
			continue
		}
		if now.Sub(entry.lastUsed) > g.idleTTL {
			delete(g.managers, key)
			evicted++
		}
	}
	if evicted > 0 {
		metrics.ManagerCacheEvictions.Add(float64(evicted))
		metrics.ManagerCacheSize.Set(float64(len(g.managers)))
	}
}
