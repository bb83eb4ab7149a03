package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/PerkLab/SlicerMatlabBridge/internal/commander"
	"github.com/PerkLab/SlicerMatlabBridge/internal/results"
	"github.com/PerkLab/SlicerMatlabBridge/internal/supervisor"
)

const (
	EnvExecutablePath = "SLICER_MATLAB_EXECUTABLE_PATH"
	EnvScriptPath     = "SLICER_MATLAB_COMMAND_SERVER_SCRIPT_PATH"
	// EnvConfigPath names a config file for modes that take no flags.
	EnvConfigPath = "MATLAB_COMMANDER_CONFIG"
)

type fileConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	ExecutablePath  string `toml:"executable_path"`
	ScriptPath      string `toml:"script_path"`
	Platform        string `toml:"platform"`
	RetryAttempts   int    `toml:"retry_attempts"`
	RetryInterval   string `toml:"retry_interval"`
	SettleDelay     string `toml:"settle_delay"`
	ConnectTimeout  string `toml:"connect_timeout"`
	SendTimeout     string `toml:"send_timeout"`
	ReceiveTimeout  string `toml:"receive_timeout"`
	ResultFormat    string `toml:"result_format"`
	MetricsTextfile string `toml:"metrics_textfile"`
}

type cliConfig struct {
	Commander       commander.Config
	ResultFormat    results.Format
	MetricsTextfile string
}

func defaultCLIConfig() cliConfig {
	return cliConfig{
		Commander:    commander.DefaultConfig(),
		ResultFormat: results.FormatSlicer,
	}
}

// loadCLIConfig layers defaults, the optional file at path, then the Slicer
// environment variables for keys the file leaves out.
func loadCLIConfig(path string) (cliConfig, error) {
	cfg := defaultCLIConfig()

	var fileDefinesExecutable, fileDefinesScript bool
	if strings.TrimSpace(path) != "" {
		meta, err := applyFile(&cfg, path)
		if err != nil {
			return cliConfig{}, err
		}
		fileDefinesExecutable = meta.IsDefined("executable_path")
		fileDefinesScript = meta.IsDefined("script_path")
	}

	if v, ok := os.LookupEnv(EnvExecutablePath); ok && !fileDefinesExecutable {
		cfg.Commander.ExecutablePath = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(EnvScriptPath); ok && !fileDefinesScript {
		cfg.Commander.ScriptPath = strings.TrimSpace(v)
	}

	if err := cfg.Commander.Validate(); err != nil {
		return cliConfig{}, err
	}
	return cfg, nil
}

func applyFile(cfg *cliConfig, path string) (toml.MetaData, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return meta, fmt.Errorf("load commander config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return meta, fmt.Errorf("load commander config: unknown key %q", undecoded[0].String())
	}

	cc := &cfg.Commander
	if meta.IsDefined("host") {
		cc.Endpoint.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cc.Endpoint.Port = raw.Port
	}
	if meta.IsDefined("executable_path") {
		cc.ExecutablePath = strings.TrimSpace(raw.ExecutablePath)
	}
	if meta.IsDefined("script_path") {
		cc.ScriptPath = strings.TrimSpace(raw.ScriptPath)
	}
	if meta.IsDefined("platform") {
		p, err := supervisor.ParsePlatform(raw.Platform)
		if err != nil {
			return meta, err
		}
		cc.Platform = p
	}
	if meta.IsDefined("retry_attempts") {
		cc.RetryAttempts = raw.RetryAttempts
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"retry_interval", raw.RetryInterval, &cc.RetryInterval},
		{"settle_delay", raw.SettleDelay, &cc.SettleDelay},
		{"connect_timeout", raw.ConnectTimeout, &cc.Session.ConnectTimeout},
		{"send_timeout", raw.SendTimeout, &cc.Session.SendTimeout},
		{"receive_timeout", raw.ReceiveTimeout, &cc.Session.ReceiveTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return meta, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("result_format") {
		f, err := results.ParseFormat(raw.ResultFormat)
		if err != nil {
			return meta, err
		}
		cfg.ResultFormat = f
	}
	if meta.IsDefined("metrics_textfile") {
		cfg.MetricsTextfile = strings.TrimSpace(raw.MetricsTextfile)
	}
	return meta, nil
}
