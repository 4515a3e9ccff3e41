// CLAUDE:SUMMARY Defines adprobe config structs and parses YAML configuration files with defaults.
// Package config handles adprobe configuration from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/adprobe/probe/internal/urlcheck"
)

// Config is the top-level adprobe configuration.
type Config struct {
	Browser     BrowserConfig     `yaml:"browser"`
	DataDir     string            `yaml:"data_dir"`
	Sites       []SiteConfig      `yaml:"sites"`
	Interaction InteractionConfig `yaml:"interaction"`
	Sinks       []SinkConfig      `yaml:"sinks"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"`
	ResourceBlocking []string `yaml:"resource_blocking"`
	Stealth          string   `yaml:"stealth"` // headless | headful
	XvfbDisplay      string   `yaml:"xvfb_display"`
	WindowWidth      int      `yaml:"window_width"`
	WindowHeight     int      `yaml:"window_height"`
	// NavigationTimeout bounds one navigation including its load event.
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
}

// SiteConfig is one site visit: the URL and the command sequence run on it.
type SiteConfig struct {
	URL      string   `yaml:"url"`
	Commands []string `yaml:"commands"`
	// Sleep is the pause after the initial navigation; unset means 3s and
	// an explicit 0 disables it.
	Sleep *time.Duration `yaml:"sleep"`
	// Scripts are evaluated in order by the store_js_result command.
	Scripts []string `yaml:"scripts"`
}

// Pause returns the post-navigation pause, 0 when Sleep is unset.
func (s SiteConfig) Pause() time.Duration {
	if s.Sleep == nil {
		return 0
	}
	return *s.Sleep
}

// InteractionConfig tunes slot clicking and the waits between steps.
type InteractionConfig struct {
	Strategy       string        `yaml:"strategy"` // point | frame
	AuctionTimeout time.Duration `yaml:"auction_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	ClickSettle    time.Duration `yaml:"click_settle"`
	LinkSettle     time.Duration `yaml:"link_settle"`
	BetweenTargets time.Duration `yaml:"between_targets"`
	// Phrases overrides the built-in privacy link phrases when non-empty.
	Phrases []string `yaml:"phrases"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type          string `yaml:"type"`           // stdout | webhook | sqlite | nats
	URL           string `yaml:"url"`            // webhook endpoint or nats server
	Path          string `yaml:"path"`           // sqlite file, relative to data_dir
	SubjectPrefix string `yaml:"subject_prefix"` // nats
	Retries       int    `yaml:"retries"`        // webhook
}

// DefaultCommands is the sequence run when a site lists none.
var DefaultCommands = []string{"visit", "get_prebids", "ad_interaction", "privacy_links"}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills every zero field with its default.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.WindowWidth <= 0 {
		c.Browser.WindowWidth = 1366
	}
	if c.Browser.WindowHeight <= 0 {
		c.Browser.WindowHeight = 768
	}
	if c.Browser.NavigationTimeout <= 0 {
		c.Browser.NavigationTimeout = 60 * time.Second
	}

	in := &c.Interaction
	if in.Strategy == "" {
		in.Strategy = "point"
	}
	if in.AuctionTimeout <= 0 {
		in.AuctionTimeout = 20 * time.Second
	}
	if in.PollInterval <= 0 {
		in.PollInterval = 500 * time.Millisecond
	}
	if in.ClickSettle <= 0 {
		in.ClickSettle = 2 * time.Second
	}
	if in.LinkSettle <= 0 {
		in.LinkSettle = 2 * time.Second
	}
	if in.BetweenTargets <= 0 {
		in.BetweenTargets = 2 * time.Second
	}

	for i := range c.Sites {
		if len(c.Sites[i].Commands) == 0 {
			c.Sites[i].Commands = append([]string(nil), DefaultCommands...)
		}
		if c.Sites[i].Sleep == nil {
			d := 3 * time.Second
			c.Sites[i].Sleep = &d
		}
	}
	if len(c.Sinks) == 0 {
		c.Sinks = []SinkConfig{{Type: "stdout"}}
	}
	for i := range c.Sinks {
		s := &c.Sinks[i]
		s.Type = strings.ToLower(s.Type)
		if s.Type == "sqlite" && s.Path == "" {
			s.Path = "crawl-data.sqlite"
		}
		if s.Type == "nats" && s.SubjectPrefix == "" {
			s.SubjectPrefix = "adprobe"
		}
		if s.Type == "webhook" && s.Retries <= 0 {
			s.Retries = 3
		}
	}
}

// Validate checks the fields that have no sensible default.
func (c *Config) Validate() error {
	var errs []error
	switch c.Browser.Stealth {
	case "headless", "headful":
	default:
		errs = append(errs, fmt.Errorf("config: browser.stealth %q: want headless or headful", c.Browser.Stealth))
	}
	switch c.Interaction.Strategy {
	case "point", "frame":
	default:
		errs = append(errs, fmt.Errorf("config: interaction.strategy %q: want point or frame", c.Interaction.Strategy))
	}
	for i, s := range c.Sites {
		if err := urlcheck.Navigable(s.URL); err != nil {
			errs = append(errs, fmt.Errorf("config: sites[%d]: %w", i, err))
		}
		if s.Sleep != nil && *s.Sleep < 0 {
			errs = append(errs, fmt.Errorf("config: sites[%d]: negative sleep %s", i, *s.Sleep))
		}
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout", "sqlite", "nats":
		case "webhook":
			if err := urlcheck.Navigable(s.URL); err != nil {
				errs = append(errs, fmt.Errorf("config: sinks[%d]: webhook url: %w", i, err))
			}
		default:
			errs = append(errs, fmt.Errorf("config: sinks[%d]: unknown type %q", i, s.Type))
		}
	}
	return errors.Join(errs...)
}
