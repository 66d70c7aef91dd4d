package worker

import (
	"context"
	"sync"
	"time"

	"agg-server/common/logger"
	"agg-server/internal/service"

	"go.uber.org/zap"
)

// StartFreespinExpirer 启动免费旋转活动过期清理器
// 周期清扫设置了显式有效期的活动，到期后经状态机翻为 expired 并
// 逐条发出 freespin_removed 事件；已过期活动的免费旋转请求会在
// Place 阶段被拒绝
func StartFreespinExpirer(ctx context.Context, wg *sync.WaitGroup, fs service.FreespinService) {
	wg.Add(1)
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer wg.Done()

		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c, cancel := context.WithTimeout(ctx, 5*time.Second)
				n, err := fs.ExpireDue(c)
				cancel()
				if err != nil {
					logger.Warn("freespin expirer: sweep failed", zap.Error(err))
					continue
				}
				if n > 0 {
					logger.Info("freespin expirer: campaigns expired", zap.Int("count", n))
				}
			}
		}
	}()
}
