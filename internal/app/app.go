package app

import (
	"fmt"
	"sync"

	"aurum/internal/advisory"
	"aurum/internal/audit"
	"aurum/internal/config"
	"aurum/internal/logger"
	"aurum/internal/market"
	"aurum/internal/market/bridge"
	"aurum/internal/notifier"
	"aurum/internal/pkg/circuit"
	"aurum/internal/state"
	"aurum/internal/strategy"
	httptransport "aurum/internal/transport/http"
)

// 中文说明：
// 组装层：把行情桥、规则引擎、状态机、裁判、通知、审计一一装配好。
// 所有协作方都显式注入，不放包级全局。

type App struct {
	cfg      *config.Config
	source   market.Source
	bridgeC  *bridge.Client
	stateSt  *state.Store
	auditSt  *audit.Store
	judge    *advisory.Judge
	notify   notifier.TextNotifier
	server   *httptransport.Server
	breaker  *circuit.Breaker

	engineMu sync.RWMutex
	engine   *strategy.Engine

	lastCandleTS int64
}

func New(cfg *config.Config) (*App, error) {
	engine, err := strategy.NewEngine(cfg.Strategy.Engine(), cfg.Strategy.Structure())
	if err != nil {
		return nil, fmt.Errorf("building rule engine: %w", err)
	}

	bridgeClient := bridge.NewClient(bridge.Config{
		BaseURL: cfg.Bridge.BaseURL,
		Timeout: cfg.Bridge.Timeout(),
	})

	stateStore := state.NewStore(cfg.State.Path, cfg.State.Expiry())

	auditStore, err := audit.NewStore(cfg.Audit.Path)
	if err != nil {
		return nil, fmt.Errorf("building audit store: %w", err)
	}

	var judge *advisory.Judge
	if cfg.Advisory.Enabled {
		prompts, err := advisory.LoadPromptSet(cfg.Advisory.PromptPath)
		if err != nil {
			return nil, fmt.Errorf("loading judge prompts: %w", err)
		}
		client := &advisory.ChatClient{
			BaseURL: cfg.Advisory.BaseURL,
			APIKey:  cfg.Advisory.APIKey,
			Model:   cfg.Advisory.Model,
			Timeout: cfg.Advisory.Timeout(),
		}
		judge = advisory.NewJudge(client, prompts, cfg.Advisory.Timeout())
	}

	var notify notifier.TextNotifier = notifier.Nop{}
	if cfg.Notify.Telegram.Enabled {
		notify = notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
	}

	app := &App{
		cfg:     cfg,
		source:  bridgeClient,
		bridgeC: bridgeClient,
		stateSt: stateStore,
		auditSt: auditStore,
		judge:   judge,
		notify:  notify,
		server:  httptransport.NewServer(cfg.App.HTTPAddr, stateStore, auditStore),
		engine:  engine,
	}
	app.breaker = circuit.NewBreaker("bridge", 5, cfg.Bridge.Timeout()*10)
	app.breaker.SetOpenHandler(func(name string) {
		bridgeClient.Reconnect()
	})
	return app, nil
}

func (a *App) ruleEngine() *strategy.Engine {
	a.engineMu.RLock()
	defer a.engineMu.RUnlock()
	return a.engine
}

// ApplyConfig swaps in hot-reloaded strategy thresholds. Everything else
// (paths, transports) needs a restart and is deliberately left alone.
func (a *App) ApplyConfig(cfg *config.Config) {
	engine, err := strategy.NewEngine(cfg.Strategy.Engine(), cfg.Strategy.Structure())
	if err != nil {
		logger.Warnf("app: rejected reloaded strategy config: %v", err)
		return
	}
	a.engineMu.Lock()
	a.engine = engine
	a.engineMu.Unlock()
	logger.Infof("app: strategy thresholds reloaded")
}
