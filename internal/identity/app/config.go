package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, parsed from the environment.
type Config struct {
	Env       string `env:"ENV"        envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	Port      int    `env:"PORT"       envDefault:"8080"`

	DatabaseFile string `env:"IDENTITY_DATABASE_FILE" envDefault:"identity.db"`

	// RedisURL is optional: without it events are dropped on the floor.
	RedisURL string `env:"IDENTITY_REDIS_URL"`

	Issuer    string        `env:"IDENTITY_ISSUER"     envDefault:"ironbark-identity"`
	JWTSecret string        `env:"IDENTITY_JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"IDENTITY_TOKEN_TTL"  envDefault:"15m"`

	// Bootstrap client, registered at startup when ClientID is set.
	BootstrapClientID     string        `env:"IDENTITY_BOOTSTRAP_CLIENT_ID"`
	BootstrapClientSecret string        `env:"IDENTITY_BOOTSTRAP_CLIENT_SECRET"`
	BootstrapClientName   string        `env:"IDENTITY_BOOTSTRAP_CLIENT_NAME"   envDefault:"bootstrap"`
	BootstrapRedirectURI  string        `env:"IDENTITY_BOOTSTRAP_REDIRECT_URI"  envDefault:"http://localhost:8080/authorized"`
	BootstrapAccessTTL    time.Duration `env:"IDENTITY_BOOTSTRAP_ACCESS_TTL"    envDefault:"30m"`

	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
}

// LoadConfig parses the environment into a Config.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
