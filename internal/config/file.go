package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML overlay for per-stage tuning. Only fields present
// in the file override the environment-derived configuration.
type fileConfig struct {
	Stages map[string]stageOverride `yaml:"stages"`
}

type stageOverride struct {
	Enabled  *bool `yaml:"enabled"`
	PageSize *int  `yaml:"page_size"`
	MaxPages *int  `yaml:"max_pages"`
}

// ApplyFile overlays stage settings from a YAML file onto cfg.
// A missing file is not an error.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for name, ov := range fc.Stages {
		sc, ok := c.stageByName(name)
		if !ok {
			c.Warnings = append(c.Warnings, fmt.Sprintf("unknown stage %q in %s", name, path))
			continue
		}
		if ov.Enabled != nil {
			sc.Enabled = *ov.Enabled
		}
		if ov.PageSize != nil && *ov.PageSize > 0 {
			sc.PageSize = *ov.PageSize
		}
		if ov.MaxPages != nil && *ov.MaxPages >= 0 {
			sc.MaxPages = *ov.MaxPages
		}
	}
	return nil
}

func (c *Config) stageByName(name string) (*StageConfig, bool) {
	switch name {
	case "users":
		return &c.Users, true
	case "locations":
		return &c.Locations, true
	case "geoip":
		return &c.GeoIP, true
	case "attribution":
		return &c.Attribution, true
	case "activity":
		return &c.Activity, true
	case "posts":
		return &c.Posts, true
	case "videos":
		return &c.Videos, true
	default:
		return nil, false
	}
}
