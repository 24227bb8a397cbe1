package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is loaded from the environment, with an optional .env file for
// local development.
type Config struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	// CORSOrigins lists the allowed browser origins, comma separated.
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`
	// AMQPURL is optional: without a broker, notifications fall back to the
	// log dispatcher.
	AMQPURL        string `envconfig:"AMQP_URL"`
	NotifyExchange string `envconfig:"NOTIFY_EXCHANGE" default:"tcz.notifications"`
	DisplayZone    string `envconfig:"DISPLAY_ZONE" default:"Europe/Berlin"`
}

func Load() (Config, error) {
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
