// Package config loads the YAML configuration shared by cmd/relserver and
// cmd/relclient: window size, retransmission timeout, and the addresses to
// listen on, dial, and serve metrics from. It follows the load-from-disk,
// default-on-missing-file, yaml.v3 idiom of tinyrange/cc's site_config.go,
// narrowed to a required (not optional) config file since this protocol has
// no sane zero-value default for a listen address.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of a relserver/relclient configuration file.
type Config struct {
	// Listen is the local UDP address to bind, e.g. ":9000".
	Listen string `yaml:"listen"`

	// Peer is the remote UDP address to send to, e.g. "203.0.113.9:9000".
	// relserver learns its peer from the first inbound datagram instead and
	// may leave this blank.
	Peer string `yaml:"peer"`

	// WindowSize is the sliding window size in sequence numbers.
	WindowSize uint32 `yaml:"window_size"`

	// TimeoutMillis is the retransmission timeout in milliseconds.
	TimeoutMillis int `yaml:"timeout_ms"`

	// MetricsAddr, if non-empty, is the address to serve /metrics on.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Timeout returns TimeoutMillis as a time.Duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

// defaults applied to any field left zero in the file.
const (
	defaultWindowSize    = 64
	defaultTimeoutMillis = 500
)

// Load reads and parses the YAML config file at path, applying defaults for
// WindowSize and TimeoutMillis when the file leaves them unset.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if c.WindowSize == 0 {
		c.WindowSize = defaultWindowSize
	}
	if c.TimeoutMillis == 0 {
		c.TimeoutMillis = defaultTimeoutMillis
	}
	if c.Listen == "" {
		return Config{}, fmt.Errorf("config: %s: listen is required", path)
	}
	return c, nil
}
