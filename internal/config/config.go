package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BotToken       string `envconfig:"BOT_TOKEN"`
	BotUsername    string `envconfig:"BOT_USERNAME"`
	SupabaseURL    string `envconfig:"SUPABASE_URL" required:"true"`
	SupabaseAPIKey string `envconfig:"SUPABASE_API_KEY" required:"true"`

	JWTSecret  string `envconfig:"JWT_SECRET" default:"super-secret-key-change-me"`
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`

	MistralAPIKey string `envconfig:"MISTRAL_API_KEY"`
	MistralAPIURL string `envconfig:"MISTRAL_API_URL" default:"https://api.mistral.ai/v1"`
	MistralModel  string `envconfig:"MISTRAL_MODEL" default:"mistral-tiny"`

	AdminIDs  []int64 `envconfig:"ADMIN_IDS"`
	ChannelID int64   `envconfig:"CHANNEL_ID"`

	// Long-poll timeout for getUpdates, in seconds.
	PollTimeout int `envconfig:"POLL_TIMEOUT" default:"30"`

	// A solo quiz session is force-finished after this much time.
	QuizTimeLimit time.Duration `envconfig:"QUIZ_TIME_LIMIT" default:"10m"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
