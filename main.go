package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"agg-server/common"
	"agg-server/common/logger"
	"agg-server/internal/aggregator"
	"agg-server/internal/aggregator/amigo"
	"agg-server/internal/aggregator/evoplay"
	"agg-server/internal/aggregator/pragmatic"
	"agg-server/internal/config"
	"agg-server/internal/controller/api"
	"agg-server/internal/events"
	infmysql "agg-server/internal/infra/mysql"
	infrds "agg-server/internal/infra/redis"
	"agg-server/internal/model"
	"agg-server/internal/service"
	"agg-server/internal/wallet"
	"agg-server/internal/worker"
	_ "agg-server/routers"

	beego "github.com/beego/beego/v2/server/web"
	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

func main() {
	logger.InitLogger()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. 加载配置（Nacos 优先，本地文件兜底）
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatalf("load config failed", zap.Error(err))
	}
	config.Set(cfg)
	config.SetCurrent(cfg)
	if cfg.Server.LogLevel != "" {
		logger.SetLevel(cfg.Server.LogLevel)
	}

	// 配置热更新：日志级别等可在线调整
	if err := config.StartWatch(ctx, func(oldCfg, newCfg *config.Config) {
		config.Set(newCfg)
		if newCfg.Server.LogLevel != "" && (oldCfg == nil || oldCfg.Server.LogLevel != newCfg.Server.LogLevel) {
			logger.SetLevel(newCfg.Server.LogLevel)
		}
	}); err != nil {
		logger.Warn("config watch not started", zap.Error(err))
	}

	// 2. 初始化 MySQL / Redis
	db := common.InitDB(cfg.Database.DSN, cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns)
	infmysql.UseDB(db.DB)
	infrds.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	// 3. 组装聚合商适配器注册表
	registry := aggregator.NewRegistry()
	registry.Register(aggregator.TypeEvoplay, evoplay.NewFactory())
	registry.Register(aggregator.TypePragmatic, pragmatic.NewFactory())
	registry.Register(aggregator.TypeAmigo, amigo.NewFactory())

	// 4. 组装服务并注入控制器
	store := model.NewStore(infmysql.SQLX())
	wal := wallet.NewClient(cfg.Wallet.Gateway, cfg.Wallet.APIKey)
	pub := events.NewOutboxPublisher(infmysql.SQLX())

	fsSvc := service.NewFreespinService(store, registry, pub)
	api.Use(&api.Services{
		Session:  service.NewSessionService(store, store, registry, pub),
		Spin:     service.NewSpinService(store, store, wal, wal, pub),
		Freespin: fsSvc,
		Sync:     service.NewGameSyncService(store, registry),
		Wallet:   wal,
		Store:    store,
	})

	// 5. 启动后台 worker
	var wg sync.WaitGroup
	worker.StartOutboxDispatcher(ctx, &wg)
	worker.StartFreespinExpirer(ctx, &wg, fsSvc)

	// 6. 启动 HTTP 服务
	beego.BConfig.CopyRequestBody = true
	if cfg.Server.Port > 0 {
		beego.BConfig.Listen.HTTPPort = cfg.Server.Port
	}

	go func() {
		fmt.Printf("[Server] 启动: port=%d\n", beego.BConfig.Listen.HTTPPort)
		beego.Run()
	}()

	// 7. 等待退出信号，优雅关闭 worker
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutting down", zap.String("signal", sig.String()))

	cancel()
	wg.Wait()
}
