package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// CommanderSection is the on-disk form of commander.Config. Durations are
// Go duration strings ("1s", "250ms"); empty means default.
type CommanderSection struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	ExecutablePath string `toml:"executable_path"`
	ScriptPath     string `toml:"script_path"`
	Platform       string `toml:"platform"`
	RetryAttempts  int    `toml:"retry_attempts"`
	RetryInterval  string `toml:"retry_interval"`
	SettleDelay    string `toml:"settle_delay"`
	ConnectTimeout string `toml:"connect_timeout"`
	SendTimeout    string `toml:"send_timeout"`
	ReceiveTimeout string `toml:"receive_timeout"`
}

// BridgeConfig configures cmd/commanderd.
type BridgeConfig struct {
	Name        string   `toml:"name"`
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
	// RateLimit is requests per second across all clients; zero disables it.
	RateLimit float64          `toml:"rate_limit"`
	RateBurst int              `toml:"rate_burst"`
	Commander CommanderSection `toml:"commander"`
}

func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		Name:        "matlab-bridge",
		Addr:        "127.0.0.1:9410",
		CorsOrigins: []string{"http://localhost:3000"},
		RateLimit:   20,
		RateBurst:   5,
		Commander:   DefaultCommanderSection(),
	}
}

func LoadBridgeConfig(path string) (BridgeConfig, error) {
	cfg := DefaultBridgeConfig()
	if err := loadToml(path, &cfg); err != nil {
		return BridgeConfig{}, err
	}
	if cfg.Name == "" {
		cfg.Name = "matlab-bridge"
	}
	if err := ValidateBridgeConfig(cfg); err != nil {
		return BridgeConfig{}, err
	}
	return cfg, nil
}

// LoadCommanderSection reads a standalone commander file (no table header).
func LoadCommanderSection(path string) (CommanderSection, error) {
	sec := DefaultCommanderSection()
	if err := loadToml(path, &sec); err != nil {
		return CommanderSection{}, err
	}
	if _, err := sec.Commander(); err != nil {
		return CommanderSection{}, err
	}
	return sec, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateBridgeConfig(cfg BridgeConfig) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("bridge config missing addr")
	}
	if cfg.RateLimit < 0 {
		return fmt.Errorf("bridge config rate_limit must not be negative")
	}
	if cfg.RateLimit > 0 && cfg.RateBurst < 1 {
		return fmt.Errorf("bridge config rate_burst must be at least 1 when rate_limit is set")
	}
	for i, origin := range cfg.CorsOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("cors_origins[%d] is empty", i)
		}
	}
	if _, err := cfg.Commander.Commander(); err != nil {
		return fmt.Errorf("commander section invalid: %w", err)
	}
	return nil
}
