package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PerkLab/SlicerMatlabBridge/internal/results"
	"github.com/PerkLab/SlicerMatlabBridge/internal/supervisor"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "commander.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadCLIConfigDefaults(t *testing.T) {
	t.Setenv(EnvExecutablePath, "/opt/matlab/bin/matlab")
	t.Setenv(EnvScriptPath, "/opt/slicer/commandserver.m")

	cfg, err := loadCLIConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Commander.Endpoint.Address() != "127.0.0.1:4100" {
		t.Fatalf("endpoint=%s", cfg.Commander.Endpoint.Address())
	}
	if cfg.Commander.ExecutablePath != "/opt/matlab/bin/matlab" || cfg.Commander.ScriptPath != "/opt/slicer/commandserver.m" {
		t.Fatalf("env overlay ignored: %+v", cfg.Commander)
	}
	if cfg.ResultFormat != results.FormatSlicer {
		t.Fatalf("result format=%q", cfg.ResultFormat)
	}
}

func TestLoadCLIConfigFileOverridesEnv(t *testing.T) {
	t.Setenv(EnvExecutablePath, "/env/matlab")
	t.Setenv(EnvScriptPath, "/env/server.m")
	path := writeConfig(t, `
port = 4200
executable_path = "/file/matlab"
platform = "posix"
retry_attempts = 5
retry_interval = "200ms"
receive_timeout = "30s"
result_format = "toml"
`)
	cfg, err := loadCLIConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cc := cfg.Commander
	if cc.Endpoint.Port != 4200 || cc.Endpoint.Host != "127.0.0.1" {
		t.Fatalf("endpoint=%+v", cc.Endpoint)
	}
	if cc.ExecutablePath != "/file/matlab" {
		t.Fatalf("file value should win, got %q", cc.ExecutablePath)
	}
	if cc.ScriptPath != "/env/server.m" {
		t.Fatalf("env should fill undefined key, got %q", cc.ScriptPath)
	}
	if cc.Platform != supervisor.PlatformPOSIX || cc.RetryAttempts != 5 || cc.RetryInterval != 200*time.Millisecond {
		t.Fatalf("unexpected commander config %+v", cc)
	}
	if cc.Session.ReceiveTimeout != 30*time.Second || cc.Session.SendTimeout != 5*time.Second {
		t.Fatalf("unexpected session config %+v", cc.Session)
	}
	if cfg.ResultFormat != results.FormatTOML {
		t.Fatalf("result format=%q", cfg.ResultFormat)
	}
}

func TestLoadCLIConfigErrors(t *testing.T) {
	cases := map[string]string{
		"unknown key":  `colour = "blue"`,
		"bad duration": `retry_interval = "often"`,
		"bad platform": `platform = "plan9"`,
		"bad port":     `port = 70000`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := loadCLIConfig(writeConfig(t, body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	if _, err := loadCLIConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil || !strings.Contains(err.Error(), "load commander config") {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestLoadCLIConfigExampleFile(t *testing.T) {
	t.Setenv(EnvExecutablePath, "")
	t.Setenv(EnvScriptPath, "")
	cfg, err := loadCLIConfig("ex.config.toml")
	if err != nil {
		t.Fatalf("load example: %v", err)
	}
	if cfg.Commander.Endpoint.Address() != "127.0.0.1:4100" || cfg.Commander.RetryAttempts != 60 {
		t.Fatalf("unexpected example config %+v", cfg.Commander)
	}
}
