package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/wfunc/party-market/internal/api"
	"github.com/wfunc/party-market/internal/config"
	"github.com/wfunc/party-market/internal/database"
	"github.com/wfunc/party-market/internal/logger"
	"github.com/wfunc/party-market/internal/websocket"
	"go.uber.org/zap"
)

// 版本信息（构建时注入）
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("party-market %s (build %s, commit %s)\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "服务启动失败: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// 配置
	if err := config.Init(configPath); err != nil {
		return fmt.Errorf("加载配置: %w", err)
	}
	cfg := config.Get()

	// 日志
	if err := logger.Init(&cfg.Log); err != nil {
		return fmt.Errorf("初始化日志: %w", err)
	}
	defer logger.Sync()
	log := logger.GetLogger()

	log.Info("派对股市服务启动中",
		zap.String("version", Version),
		zap.String("mode", cfg.Server.Mode))

	// 数据库
	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("连接数据库: %w", err)
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(); err != nil {
			return fmt.Errorf("数据库迁移: %w", err)
		}
	}

	// WebSocket推送中心
	hub := websocket.NewHub(log)
	go hub.Run()

	// 路由和服务
	router := api.NewRouter(database.GetDB(), cfg, hub, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP服务监听", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP服务异常退出: %w", err)
	case sig := <-quit:
		log.Info("收到退出信号", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("关闭HTTP服务: %w", err)
	}

	log.Info("服务已退出")
	return nil
}
