package session

import "time"

// Config defines transport timeouts and limits for one session.
type Config struct {
	ConnectTimeout time.Duration
	SendTimeout    time.Duration
	// ReceiveTimeout of zero blocks until data arrives or the OS gives up.
	ReceiveTimeout time.Duration
	MaxBodyBytes   uint64
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 5 * time.Second,
		SendTimeout:    5 * time.Second,
		ReceiveTimeout: 0,
		MaxBodyBytes:   8 * 1024 * 1024,
	}
}

// WithDefaults fills unset fields from DefaultConfig. ReceiveTimeout is left as-is.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = d.SendTimeout
	}
	if c.ReceiveTimeout < 0 {
		c.ReceiveTimeout = 0
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	return c
}
