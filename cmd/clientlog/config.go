package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-yaml"

	"github.com/ErikKalkoken/clientlogging/pkg/clientlogging"
)

// fileConfig is the structure of the YAML config file.
type fileConfig struct {
	LogFullURL      bool     `yaml:"logFullUrl"`
	LogHeaders      bool     `yaml:"logHeaders"`
	LogBody         bool     `yaml:"logBody"`
	RedactedHeaders []string `yaml:"redactedHeaders"`
	BlockedBodyURLs []string `yaml:"blockedBodyUrls"`
	MaxBodySize     string   `yaml:"maxBodySize"` // e.g. "64 kB"
}

func defaultFileConfig() fileConfig {
	return fileConfig{RedactedHeaders: []string{"Authorization"}}
}

// loadConfigFile reads a config file.
// A missing file results in the default config, unless mustExist is set.
func loadConfigFile(name string, mustExist bool) (fileConfig, error) {
	fc := defaultFileConfig()
	data, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) && !mustExist {
		return fc, nil
	}
	if err != nil {
		return fc, err
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("config file %s: %w", name, err)
	}
	return fc, nil
}

// apply overrides the file config with all flags explicitly set by the user.
func (fc fileConfig) apply(opt *options, isSet func(name string) bool) fileConfig {
	if isSet("full-url") {
		fc.LogFullURL = opt.fullURL
	}
	if isSet("headers") {
		fc.LogHeaders = opt.headers
	}
	if isSet("body") {
		fc.LogBody = opt.body
	}
	if isSet("redact") {
		fc.RedactedHeaders = splitList(opt.redact)
	}
	return fc
}

func (fc fileConfig) toConfig() (clientlogging.Config, error) {
	cfg := clientlogging.Config{
		LogFullURL:      fc.LogFullURL,
		LogHeaders:      fc.LogHeaders,
		LogBody:         fc.LogBody,
		RedactedHeaders: fc.RedactedHeaders,
		BlockedBodyURLs: fc.BlockedBodyURLs,
	}
	if fc.MaxBodySize != "" {
		n, err := humanize.ParseBytes(fc.MaxBodySize)
		if err != nil {
			return cfg, fmt.Errorf("maxBodySize: %w", err)
		}
		cfg.MaxBodySize = int64(n)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var r []string
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			r = append(r, p)
		}
	}
	return r
}
