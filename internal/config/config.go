package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	DBPath   string `envconfig:"DB_PATH" default:"./data/medminder.db"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// Telegram delivery; with an empty token reminders go to the log only.
	BotToken string `envconfig:"BOT_TOKEN"`
	ChatID   int64  `envconfig:"CHAT_ID"`

	// Exact-alarm capability. With EXACT_ALARMS=false every arm degrades to
	// inexact and fires late by the slack.
	ExactAlarms  bool          `envconfig:"EXACT_ALARMS" default:"true"`
	InexactSlack time.Duration `envconfig:"INEXACT_SLACK" default:"5m"`

	PlanInterval  time.Duration `envconfig:"PLAN_INTERVAL" default:"30s"`
	PlanLookahead time.Duration `envconfig:"PLAN_LOOKAHEAD" default:"24h"`

	StatusPoll        time.Duration `envconfig:"STATUS_POLL" default:"5s"`
	StatusBackoff     time.Duration `envconfig:"STATUS_BACKOFF" default:"10s"`
	StatusMaxAttempts int           `envconfig:"STATUS_MAX_ATTEMPTS" default:"5"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
