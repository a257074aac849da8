// Package config loads scraper settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ramkansal/nitfang/internal/output"
	"github.com/ramkansal/nitfang/internal/scraper"
)

// File is the on-disk layout. Unset keys leave the defaults in place.
type File struct {
	Mirror   MirrorConfig   `toml:"mirror"`
	Fetcher  FetcherConfig  `toml:"fetcher"`
	Scraping ScrapingConfig `toml:"scraping"`
	Output   OutputConfig   `toml:"output"`
}

type MirrorConfig struct {
	URL   string   `toml:"url"`
	Hosts []string `toml:"hosts"`
}

type FetcherConfig struct {
	Mode       string `toml:"mode"`
	Timeout    string `toml:"timeout"`
	UserAgent  string `toml:"user_agent"`
	Proxy      string `toml:"proxy"`
	Headless   *bool  `toml:"headless"`
	BrowserBin string `toml:"browser_bin"`
	BlockMedia *bool  `toml:"block_media"`
}

type ScrapingConfig struct {
	Parallelism int `toml:"parallelism"`
	MaxPages    int `toml:"max_pages"`
}

type OutputConfig struct {
	Format string `toml:"format"`
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "nitfang"), nil
}

// ConfigPath returns the full path to the default config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads path into a File. An empty path means ConfigPath, and a
// missing default file is not an error.
func Load(path string) (*File, error) {
	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return &File{}, nil
		}
		path = p
	}

	var f File
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return &f, nil
}

// Apply copies every set value onto cfg.
func (f *File) Apply(cfg *scraper.Config) error {
	if f.Mirror.URL != "" {
		cfg.MirrorURL = f.Mirror.URL
	}
	if len(f.Mirror.Hosts) > 0 {
		cfg.MirrorHosts = append(cfg.MirrorHosts, f.Mirror.Hosts...)
	}

	if f.Fetcher.Mode != "" {
		mode := scraper.FetcherMode(strings.ToLower(f.Fetcher.Mode))
		if !mode.Valid() {
			return fmt.Errorf("fetcher.mode: unknown mode %q", f.Fetcher.Mode)
		}
		cfg.FetcherMode = mode
	}
	if f.Fetcher.Timeout != "" {
		d, err := time.ParseDuration(f.Fetcher.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("fetcher.timeout: invalid duration %q", f.Fetcher.Timeout)
		}
		cfg.Timeout = d
	}
	if f.Fetcher.UserAgent != "" {
		cfg.UserAgent = f.Fetcher.UserAgent
	}
	if f.Fetcher.Proxy != "" {
		cfg.Proxy = f.Fetcher.Proxy
	}
	if f.Fetcher.Headless != nil {
		cfg.Headless = *f.Fetcher.Headless
	}
	if f.Fetcher.BrowserBin != "" {
		cfg.BrowserBin = f.Fetcher.BrowserBin
	}
	if f.Fetcher.BlockMedia != nil {
		cfg.BlockMedia = *f.Fetcher.BlockMedia
	}

	if f.Scraping.Parallelism < 0 || f.Scraping.MaxPages < 0 {
		return errors.New("scraping: parallelism and max_pages must not be negative")
	}
	if f.Scraping.Parallelism > 0 {
		cfg.Parallelism = f.Scraping.Parallelism
	}
	if f.Scraping.MaxPages > 0 {
		cfg.MaxPages = f.Scraping.MaxPages
	}
	return nil
}

// Format returns the configured output format, or def when unset.
func (f *File) Format(def output.Format) output.Format {
	if f.Output.Format == "" {
		return def
	}
	return output.Format(f.Output.Format)
}
