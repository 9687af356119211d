// Package config provides configuration loading and management for dmrifit.
// It handles loading configuration from YAML files and provides default
// values matching the factory's built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"dmrifit/pkg/model"
)

// Config represents the fitting configuration loaded from YAML
type Config struct {
	// Fitting parameters shared by the chunked model wrappers
	Fitting struct {
		// NumThreads is the worker count for chunked fitting and
		// prediction; non-positive means all available processing units
		NumThreads int `yaml:"numThreads"`

		// MinSignal is the lowest signal value treated as valid
		MinSignal float64 `yaml:"minSignal"`

		// FitMethod selects the backend fitting algorithm
		FitMethod string `yaml:"fitMethod"`

		// Weighting selects the residual weighting scheme
		Weighting string `yaml:"weighting"`

		// Sigma is the noise standard deviation for weighted fits
		Sigma float64 `yaml:"sigma"`

		// Jacobian toggles analytic Jacobians in nonlinear fits
		Jacobian bool `yaml:"jacobian"`

		// ReturnS0Hat asks the backend to estimate the b=0 signal
		ReturnS0Hat bool `yaml:"returnS0Hat"`
	} `yaml:"fitting"`

	// Shore holds the 3D-SHORE basis parameters
	Shore struct {
		// RadialOrder is the radial basis order
		RadialOrder int `yaml:"radialOrder"`

		// Zeta is the basis scale factor
		Zeta float64 `yaml:"zeta"`

		// LambdaN is the radial regularization weight
		LambdaN float64 `yaml:"lambdaN"`

		// LambdaL is the angular regularization weight
		LambdaL float64 `yaml:"lambdaL"`
	} `yaml:"shore"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default fitting parameters
	cfg.Fitting.NumThreads = runtime.NumCPU() // Use all available cores by default
	cfg.Fitting.FitMethod = "WLS"

	// Set default shore parameters
	cfg.Shore.RadialOrder = 6
	cfg.Shore.Zeta = 700
	cfg.Shore.LambdaN = 1e-8
	cfg.Shore.LambdaL = 1e-8

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// ModelOptions converts the configuration into factory options for a
// chunked model of the given kind. Shore parameters are only included for
// the shore model, since the other kinds reject them.
func (c *Config) ModelOptions(kind model.Kind) []model.Option {
	opts := []model.Option{
		model.WithNumThreads(c.Fitting.NumThreads),
		model.WithMinSignal(c.Fitting.MinSignal),
		model.WithFitMethod(c.Fitting.FitMethod),
		model.WithWeighting(c.Fitting.Weighting),
		model.WithSigma(c.Fitting.Sigma),
		model.WithJacobian(c.Fitting.Jacobian),
		model.WithReturnS0Hat(c.Fitting.ReturnS0Hat),
	}
	if kind == model.KindShore {
		opts = append(opts,
			model.WithRadialOrder(c.Shore.RadialOrder),
			model.WithZeta(c.Shore.Zeta),
			model.WithLambdaN(c.Shore.LambdaN),
			model.WithLambdaL(c.Shore.LambdaL),
		)
	}
	return opts
}
