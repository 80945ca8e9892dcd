package infra

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds every application setting. Secrets are filled from the
// environment (optionally via a .env file) after the YAML file is parsed,
// so credentials never have to live in the config file.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		Deribit struct {
			WSURL        string `yaml:"ws_url"`
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
			Scope        string `yaml:"scope"`
		} `yaml:"deribit"`
		Talos struct {
			RestURL string `yaml:"rest_url"`
			APIKey  string `yaml:"api_key"`
		} `yaml:"talos"`
	} `yaml:"api"`

	Scanner struct {
		URL             string          `yaml:"url"`
		Keywords        []string        `yaml:"keywords"`
		TopN            int             `yaml:"top_n"`
		MinLiquidityUSD decimal.Decimal `yaml:"min_liquidity_usd"`
		PollIntervalSec int             `yaml:"poll_interval_sec"`
	} `yaml:"scanner"`

	Storage struct {
		Path string `yaml:"path"` // empty = OS config dir default
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	// .env support for local development; missing file is fine.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.API.Deribit.WSURL == "" || (!hasPrefix(c.API.Deribit.WSURL, "ws://") && !hasPrefix(c.API.Deribit.WSURL, "wss://")) {
		return fmt.Errorf("invalid Deribit WS URL: %s", c.API.Deribit.WSURL)
	}

	if c.Scanner.URL != "" {
		if c.Scanner.TopN <= 0 {
			return fmt.Errorf("scanner top_n must be positive")
		}
		if c.Scanner.PollIntervalSec <= 0 {
			return fmt.Errorf("scanner poll interval must be positive")
		}
		if len(c.Scanner.Keywords) == 0 {
			return fmt.Errorf("at least one scanner keyword is required")
		}
	}

	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv fills secrets from the environment when present.
func overrideWithEnv(cfg *Config) {
	if id := os.Getenv("DERIBIT_CLIENT_ID"); id != "" {
		cfg.API.Deribit.ClientID = id
	}
	if secret := os.Getenv("DERIBIT_CLIENT_SECRET"); secret != "" {
		cfg.API.Deribit.ClientSecret = secret
	}
	if key := os.Getenv("TALOS_API_KEY"); key != "" {
		cfg.API.Talos.APIKey = key
	}
}
