package commander

import (
	"errors"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		raw  string
		want Status
	}{
		{"4", StatusSuccess},
		{"", StatusSuccess},
		{"ERROR:", StatusSuccess},
		{"ERROR: x", StatusFailed},
		{"ERROR:x", StatusFailed},
		{"error: x", StatusSuccess},
		{" ERROR: x", StatusSuccess},
		{"ans =\r\n     4\n", StatusSuccess},
	}
	for _, tc := range cases {
		got := Classify(tc.raw)
		if got.Status != tc.want {
			t.Fatalf("Classify(%q) status=%s want %s", tc.raw, got.Status, tc.want)
		}
		if got.Reply != tc.raw {
			t.Fatalf("Classify(%q) rewrote reply to %q", tc.raw, got.Reply)
		}
	}
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.RetryAttempts != 60 || cfg.RetryInterval != time.Second {
		t.Fatalf("unexpected retry defaults %+v", cfg)
	}
	if cfg.Endpoint.Address() != "127.0.0.1:4100" {
		t.Fatalf("endpoint=%s", cfg.Endpoint.Address())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	bad := cfg
	bad.RetryInterval = 0
	if err := bad.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	bad = cfg
	bad.Platform = "beos"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for platform, got %v", err)
	}
	if got := (Config{}).WithDefaults(); got.RetryInterval != time.Second || got.Endpoint != cfg.Endpoint {
		t.Fatalf("WithDefaults=%+v", got)
	}
}
