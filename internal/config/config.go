package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取 YAML 配置，套默认值并校验。环境变量以 AURUM_ 前缀覆盖同名键。
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("AURUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

const (
	defaultLogLevel       = "info"
	defaultHTTPAddr       = ":9985"
	defaultBridgeURL      = "http://localhost:5555/rpc"
	defaultBridgeTimeout  = 2
	defaultPollSeconds    = 2
	defaultBackoffSeconds = 5
	defaultStatePath      = "data/signal_state.json"
	defaultExpiryMinutes  = 240
	defaultAdvisoryModel  = "gpt-4o-mini"
	defaultAdvisoryWait   = 30
	defaultAuditPath      = "data/audit.db"
)

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = defaultLogLevel
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = defaultHTTPAddr
	}
	if c.Bridge.BaseURL == "" {
		c.Bridge.BaseURL = defaultBridgeURL
	}
	if c.Bridge.TimeoutSeconds <= 0 {
		c.Bridge.TimeoutSeconds = defaultBridgeTimeout
	}
	if c.Loop.PollSeconds <= 0 {
		c.Loop.PollSeconds = defaultPollSeconds
	}
	if c.Loop.BackoffSeconds <= 0 {
		c.Loop.BackoffSeconds = defaultBackoffSeconds
	}
	if c.State.Path == "" {
		c.State.Path = defaultStatePath
	}
	if c.State.ExpiryMinutes <= 0 {
		c.State.ExpiryMinutes = defaultExpiryMinutes
	}
	if c.Advisory.Model == "" {
		c.Advisory.Model = defaultAdvisoryModel
	}
	if c.Advisory.TimeoutSeconds <= 0 {
		c.Advisory.TimeoutSeconds = defaultAdvisoryWait
	}
	if c.Audit.Path == "" {
		c.Audit.Path = defaultAuditPath
	}
}

func validate(c *Config) error {
	if c.Advisory.Enabled && c.Advisory.APIKey == "" {
		return fmt.Errorf("advisory.api_key is required when advisory is enabled")
	}
	if c.Notify.Telegram.Enabled && (c.Notify.Telegram.BotToken == "" || c.Notify.Telegram.ChatID == "") {
		return fmt.Errorf("notify.telegram requires bot_token and chat_id")
	}
	s := c.Strategy
	if s.SessionEnd > 0 && (s.SessionStart < 0 || s.SessionEnd > 24 || s.SessionStart >= s.SessionEnd) {
		return fmt.Errorf("strategy session window invalid: [%d, %d)", s.SessionStart, s.SessionEnd)
	}
	if s.SafeDistMin > 0 && s.SafeDistMax > 0 && s.SafeDistMin > s.SafeDistMax {
		return fmt.Errorf("strategy.safe_dist_min must not exceed safe_dist_max")
	}
	if s.MinStopDist > 0 && s.MaxStopDist > 0 && s.MinStopDist > s.MaxStopDist {
		return fmt.Errorf("strategy.min_stop_dist must not exceed max_stop_dist")
	}
	return nil
}
