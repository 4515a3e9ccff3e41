package probe

import (
	"github.com/hazyhaar/adprobe/probe/internal/config"
)

// Config is the top-level adprobe configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// SiteConfig is one site visit and its command sequence.
type SiteConfig = config.SiteConfig

// InteractionConfig tunes slot clicking and settle waits.
type InteractionConfig = config.InteractionConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// ParseConfig decodes a YAML document, applying defaults.
func ParseConfig(data []byte) (*Config, error) {
	return config.Parse(data)
}
