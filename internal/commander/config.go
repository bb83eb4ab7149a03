package commander

import (
	"errors"
	"fmt"
	"time"

	"github.com/PerkLab/SlicerMatlabBridge/internal/protocol/session"
	"github.com/PerkLab/SlicerMatlabBridge/internal/supervisor"
)

var ErrInvalidConfig = errors.New("commander: invalid config")

// Config is everything the executor needs; nothing is read from the environment.
type Config struct {
	Endpoint       session.Endpoint
	ExecutablePath string
	ScriptPath     string
	Platform       supervisor.Platform
	// RetryAttempts bounds reconnects after a successful launch. Matlab start-up
	// usually finishes within a minute. Zero means no reconnects, so a Config
	// not built from DefaultConfig gives up right after launching.
	RetryAttempts int
	RetryInterval time.Duration
	SettleDelay   time.Duration
	Session       session.Config
}

func DefaultConfig() Config {
	return Config{
		Endpoint:      session.DefaultEndpoint(),
		Platform:      supervisor.PlatformAuto,
		RetryAttempts: 60,
		RetryInterval: time.Second,
		Session:       session.DefaultConfig(),
	}
}

func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	c.Endpoint = c.Endpoint.WithDefaults()
	if c.Platform == "" {
		c.Platform = d.Platform
	}
	if c.RetryAttempts < 0 {
		c.RetryAttempts = 0
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = d.RetryInterval
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	c.Session = c.Session.WithDefaults()
	return c
}

func (c Config) Validate() error {
	if err := c.Endpoint.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := supervisor.ParsePlatform(string(c.Platform)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("%w: retry attempts %d", ErrInvalidConfig, c.RetryAttempts)
	}
	if c.RetryInterval <= 0 {
		return fmt.Errorf("%w: retry interval %s", ErrInvalidConfig, c.RetryInterval)
	}
	return nil
}

func (c Config) launchSpec() supervisor.LaunchSpec {
	return supervisor.LaunchSpec{
		ExecutablePath: c.ExecutablePath,
		ScriptPath:     c.ScriptPath,
		Platform:       c.Platform,
	}
}
