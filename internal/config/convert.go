package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/PerkLab/SlicerMatlabBridge/internal/commander"
	"github.com/PerkLab/SlicerMatlabBridge/internal/protocol/session"
	"github.com/PerkLab/SlicerMatlabBridge/internal/supervisor"
)

func DefaultCommanderSection() CommanderSection {
	return SectionFrom(commander.DefaultConfig())
}

// SectionFrom renders cfg in its file form.
func SectionFrom(cfg commander.Config) CommanderSection {
	return CommanderSection{
		Host:           cfg.Endpoint.Host,
		Port:           cfg.Endpoint.Port,
		ExecutablePath: cfg.ExecutablePath,
		ScriptPath:     cfg.ScriptPath,
		Platform:       string(cfg.Platform),
		RetryAttempts:  cfg.RetryAttempts,
		RetryInterval:  cfg.RetryInterval.String(),
		SettleDelay:    cfg.SettleDelay.String(),
		ConnectTimeout: cfg.Session.ConnectTimeout.String(),
		SendTimeout:    cfg.Session.SendTimeout.String(),
		ReceiveTimeout: cfg.Session.ReceiveTimeout.String(),
	}
}

// Commander converts the section into a validated commander.Config.
func (s CommanderSection) Commander() (commander.Config, error) {
	platform, err := supervisor.ParsePlatform(s.Platform)
	if err != nil {
		return commander.Config{}, err
	}
	cfg := commander.DefaultConfig()
	cfg.Endpoint = session.Endpoint{Host: strings.TrimSpace(s.Host), Port: s.Port}.WithDefaults()
	cfg.ExecutablePath = strings.TrimSpace(s.ExecutablePath)
	cfg.ScriptPath = strings.TrimSpace(s.ScriptPath)
	cfg.Platform = platform
	cfg.RetryAttempts = s.RetryAttempts

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"retry_interval", s.RetryInterval, &cfg.RetryInterval},
		{"settle_delay", s.SettleDelay, &cfg.SettleDelay},
		{"connect_timeout", s.ConnectTimeout, &cfg.Session.ConnectTimeout},
		{"send_timeout", s.SendTimeout, &cfg.Session.SendTimeout},
		{"receive_timeout", s.ReceiveTimeout, &cfg.Session.ReceiveTimeout},
	}
	for _, d := range durations {
		if strings.TrimSpace(d.raw) == "" {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return commander.Config{}, fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = v
	}
	if err := cfg.Validate(); err != nil {
		return commander.Config{}, err
	}
	return cfg.WithDefaults(), nil
}
