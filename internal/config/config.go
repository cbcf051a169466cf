package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	BotToken    string `env:"BOT_TOKEN,required"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Connection pool bounds
	DBMaxConns int32 `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns int32 `env:"DB_MIN_CONNS" envDefault:"2"`

	// Launch assertion freshness window
	InitDataTTL time.Duration `env:"INIT_DATA_TTL" envDefault:"24h"`

	// Quest catalog
	QuestCatalogPath string `env:"QUEST_CATALOG_PATH" envDefault:"quests.toml"`

	// External eligibility checks
	EligibilityTimeout time.Duration `env:"ELIGIBILITY_TIMEOUT" envDefault:"5s"`

	// Referral bonus credited to the referrer per attributed referee
	ReferralBonus int64 `env:"REFERRAL_BONUS" envDefault:"100"`

	// Server
	Port int `env:"PORT" envDefault:"3000"`

	// CORS origins for the mini-app frontend
	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:"*"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
