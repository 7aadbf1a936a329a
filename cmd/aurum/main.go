package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"aurum/internal/app"
	aucfg "aurum/internal/config"
	"aurum/internal/logger"
)

func main() {
	cfgPath := os.Getenv("AURUM_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := aucfg.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config failed: %v", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("initializing log file failed: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)
	if cfg.App.JudgeDump {
		f, err := setupJudgeLogOutput(cfg.App.JudgeLog)
		if err != nil {
			log.Fatalf("initializing judge log failed: %v", err)
		}
		if f != nil {
			defer f.Close()
		}
	}
	logger.Infof("config loaded (advisory=%v telegram=%v)", cfg.Advisory.Enabled, cfg.Notify.Telegram.Enabled)

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("initializing app failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watchStop := make(chan struct{})
	defer close(watchStop)
	go func() {
		if err := aucfg.Watch(cfgPath, application.ApplyConfig, watchStop); err != nil {
			logger.Warnf("config watcher unavailable: %v", err)
		}
	}()

	if err := application.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("run failed: %v", err)
	}
}

// openAppend 打开（必要时创建）追加模式的日志文件。path 为空表示不落盘。
func openAppend(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	if dir := filepath.Dir(trimmed); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func setupLogOutput(path string) (*os.File, error) {
	file, err := openAppend(path)
	if err != nil || file == nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

func setupJudgeLogOutput(path string) (*os.File, error) {
	file, err := openAppend(path)
	if err != nil || file == nil {
		return nil, err
	}
	logger.SetJudgeWriter(file)
	return file, nil
}
