package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TelescopeConfig declares one bookable dish.
type TelescopeConfig struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Active bool   `yaml:"active"`
}

// BodyConfig is a celestial catalog entry.
type BodyConfig struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Hours       int     `yaml:"hours"`
	Minutes     int     `yaml:"minutes"`
	Seconds     float64 `yaml:"seconds"`
	Declination float64 `yaml:"declination"`
}

// RoleConfig is one membership grant for a provisioned user.
type RoleConfig struct {
	Name     string `yaml:"name"`
	Approved bool   `yaml:"approved"`
}

// UserConfig provisions a member. Registration is handled elsewhere;
// the fleet file is how operators seed and adjust memberships.
type UserConfig struct {
	ID        string       `yaml:"id"`
	Name      string       `yaml:"name"`
	Roles     []RoleConfig `yaml:"roles"`
	Unlimited bool         `yaml:"unlimited"`
	CapHours  int          `yaml:"cap_hours"`
}

// FleetConfig is the root of fleet.yaml: telescopes, catalog and
// provisioned users.
type FleetConfig struct {
	Telescopes []TelescopeConfig `yaml:"telescopes"`
	Bodies     []BodyConfig      `yaml:"celestial_bodies"`
	Users      []UserConfig      `yaml:"users"`
}

// LoadFleet loads and validates the fleet configuration.
func (c *Config) LoadFleet() (*FleetConfig, error) {
	return LoadFleetConfig(c.FleetConfigPath)
}

// LoadFleetConfig loads fleet configuration from a YAML file.
func LoadFleetConfig(path string) (*FleetConfig, error) {
	if path == "" {
		path = "configs/fleet.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fleet config: %w", err)
	}

	var cfg FleetConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse fleet config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate fleet config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the fleet configuration for errors.
func (c *FleetConfig) Validate() error {
	if len(c.Telescopes) == 0 {
		return fmt.Errorf("at least one telescope must be configured")
	}
	seen := make(map[string]struct{}, len(c.Telescopes))
	for _, t := range c.Telescopes {
		if t.ID == "" {
			return fmt.Errorf("telescope with empty id")
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("duplicate telescope id %s", t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	for _, b := range c.Bodies {
		if b.ID == "" {
			return fmt.Errorf("celestial body with empty id")
		}
	}
	for _, u := range c.Users {
		if u.ID == "" {
			return fmt.Errorf("user with empty id")
		}
	}
	return nil
}
