// Package config loads and validates the bootstrap configuration for a
// deploy run and turns it into an immutable types.DeployConfig.
//
// Values are layered: Default, then an optional YAML file via Load, then
// command line flags applied by the caller. Validate runs last.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cuemby/fleetdeploy/pkg/naming"
	"github.com/cuemby/fleetdeploy/pkg/types"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRegion            = "us-east-1"
	DefaultDevEnvironment    = "development"
	DefaultBaseSecurityGroup = "BASE"
	DefaultLogLevel          = "info"
)

// Config is the bootstrap configuration
type Config struct {
	App               string    `yaml:"app"`
	Environment       string    `yaml:"environment"`
	Version           string    `yaml:"version"`
	InstanceClass     string    `yaml:"instanceClass"`
	Region            string    `yaml:"region"`
	DevEnvironment    string    `yaml:"devEnvironment"`
	BaseSecurityGroup string    `yaml:"baseSecurityGroup"`
	UserDataFile      string    `yaml:"userDataFile,omitempty"`
	StateDir          string    `yaml:"stateDir"`
	MetricsAddr       string    `yaml:"metricsAddr,omitempty"`
	Log               LogConfig `yaml:"log"`
}

// LogConfig selects log verbosity and format
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns a Config with every defaulted field set
func Default() *Config {
	return &Config{
		Region:            DefaultRegion,
		DevEnvironment:    DefaultDevEnvironment,
		BaseSecurityGroup: DefaultBaseSecurityGroup,
		StateDir:          defaultStateDir(),
		Log:               LogConfig{Level: DefaultLogLevel},
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fleetdeploy"
	}
	return filepath.Join(home, ".fleetdeploy")
}

// Load overlays the YAML file at path onto c. Fields absent from the file
// keep their current values.
func (c *Config) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate reports every missing required field at once
func (c *Config) Validate() error {
	var errs []error
	required := []struct {
		name  string
		value string
	}{
		{"app", c.App},
		{"environment", c.Environment},
		{"version", c.Version},
		{"instance class", c.InstanceClass},
		{"region", c.Region},
		{"development environment", c.DevEnvironment},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.name))
		}
	}
	return errors.Join(errs...)
}

// Names derives resource names without reading any files
func (c *Config) Names(now time.Time) types.Names {
	return naming.Derive(naming.Input{
		App:            c.App,
		Environment:    c.Environment,
		Version:        c.Version,
		DevEnvironment: c.DevEnvironment,
	}, now)
}

// Build validates c and produces the DeployConfig for one run. now feeds
// the development launch template suffix.
func (c *Config) Build(now time.Time) (*types.DeployConfig, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var userData []byte
	if c.UserDataFile != "" {
		data, err := os.ReadFile(c.UserDataFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read user data: %w", err)
		}
		userData = data
	}

	return &types.DeployConfig{
		App:               c.App,
		Environment:       c.Environment,
		Version:           c.Version,
		InstanceClass:     c.InstanceClass,
		Region:            c.Region,
		DevEnvironment:    c.DevEnvironment,
		BaseSecurityGroup: c.BaseSecurityGroup,
		UserData:          userData,
		Names:             c.Names(now),
	}, nil
}
