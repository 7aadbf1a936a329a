package config

import (
	"time"

	"aurum/internal/strategy"
	"aurum/internal/structure"
)

// Config 是 aurum 的主配置载体。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Bridge   BridgeConfig   `mapstructure:"bridge"`
	Loop     LoopConfig     `mapstructure:"loop"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	State    StateConfig    `mapstructure:"state"`
	Advisory AdvisoryConfig `mapstructure:"advisory"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

type AppConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	LogPath   string `mapstructure:"log_path"`
	HTTPAddr  string `mapstructure:"http_addr"`
	JudgeLog  string `mapstructure:"judge_log_path"`
	JudgeDump bool   `mapstructure:"judge_dump"`
}

type BridgeConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (b BridgeConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

type LoopConfig struct {
	PollSeconds    int `mapstructure:"poll_seconds"`
	BackoffSeconds int `mapstructure:"backoff_seconds"`
}

// StrategyConfig 展平规则引擎与结构提取两块阈值。
type StrategyConfig struct {
	SessionStart int    `mapstructure:"session_start"`
	SessionEnd   int    `mapstructure:"session_end"`
	Timezone     string `mapstructure:"timezone"`

	MaxFeedLagSec     float64 `mapstructure:"max_feed_lag_sec"`
	MaxSpread         float64 `mapstructure:"max_spread"`
	MaxBrokerDistance float64 `mapstructure:"max_broker_distance"`

	MinADX     float64 `mapstructure:"min_adx"`
	RequireADX bool    `mapstructure:"require_adx"`

	SafeDistATRMult float64 `mapstructure:"safe_dist_atr_mult"`
	SafeDistMin     float64 `mapstructure:"safe_dist_min"`
	SafeDistMax     float64 `mapstructure:"safe_dist_max"`

	MinStopDist   float64 `mapstructure:"min_stop_dist"`
	MaxStopDist   float64 `mapstructure:"max_stop_dist"`
	RewardRatio   float64 `mapstructure:"reward_ratio"`
	MaxTargetDist float64 `mapstructure:"max_target_dist"`

	StructureWindow     int     `mapstructure:"structure_window"`
	StructureMinDevATR  float64 `mapstructure:"structure_min_dev_atr"`
	StructureEpsilonPts float64 `mapstructure:"structure_epsilon_points"`
}

// Engine materializes the full rule-engine config, layering the tunable
// fields over the production defaults.
func (s StrategyConfig) Engine() strategy.Config {
	cfg := strategy.DefaultConfig()
	if s.SessionEnd > 0 {
		cfg.SessionStart = s.SessionStart
		cfg.SessionEnd = s.SessionEnd
	}
	if s.Timezone != "" {
		cfg.Timezone = s.Timezone
	}
	if s.MaxFeedLagSec > 0 {
		cfg.MaxFeedLagSec = s.MaxFeedLagSec
	}
	if s.MaxSpread > 0 {
		cfg.MaxSpread = s.MaxSpread
	}
	if s.MaxBrokerDistance > 0 {
		cfg.MaxBrokerDistance = s.MaxBrokerDistance
	}
	if s.MinADX > 0 {
		cfg.MinADX = s.MinADX
	}
	cfg.RequireADX = s.RequireADX
	if s.SafeDistATRMult > 0 {
		cfg.SafeDistATRMult = s.SafeDistATRMult
	}
	if s.SafeDistMin > 0 {
		cfg.SafeDistMin = s.SafeDistMin
	}
	if s.SafeDistMax > 0 {
		cfg.SafeDistMax = s.SafeDistMax
	}
	if s.MinStopDist > 0 {
		cfg.MinStopDist = s.MinStopDist
	}
	if s.MaxStopDist > 0 {
		cfg.MaxStopDist = s.MaxStopDist
	}
	if s.RewardRatio > 0 {
		cfg.RewardRatio = s.RewardRatio
	}
	if s.MaxTargetDist > 0 {
		cfg.MaxTargetDist = s.MaxTargetDist
	}
	return cfg
}

// Structure materializes the extractor config.
func (s StrategyConfig) Structure() structure.Config {
	return structure.Config{
		Window:           s.StructureWindow,
		EpsilonPoints:    s.StructureEpsilonPts,
		MinDeviationFrac: s.StructureMinDevATR,
	}
}

type StateConfig struct {
	Path          string `mapstructure:"path"`
	ExpiryMinutes int    `mapstructure:"expiry_minutes"`
}

func (s StateConfig) Expiry() time.Duration {
	return time.Duration(s.ExpiryMinutes) * time.Minute
}

type AdvisoryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	PromptPath     string `mapstructure:"prompt_path"`
}

func (a AdvisoryConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type AuditConfig struct {
	Path string `mapstructure:"path"`
}
