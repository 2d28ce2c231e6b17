// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/tubemp3/internal/log"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// DefaultEnvFile is loaded when present and no explicit env file was configured.
const DefaultEnvFile = ".env"

// Loader handles configuration loading with precedence.
type Loader struct {
	configPath string
	envFile    string
	version    string
}

// NewLoader creates a new configuration loader. configPath may be empty.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// WithEnvFile sets an explicit dotenv file. A missing explicit file is an error.
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

// Path returns the YAML file the loader reads, if any.
func (l *Loader) Path() string { return l.configPath }

// Load loads configuration with precedence: ENV > .env > File > Defaults.
// Order: defaults -> strict file parse -> env overrides -> validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Default()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.loadEnvFile(); err != nil {
		return cfg, fmt.Errorf("load env file: %w", err)
	}
	if err := mergeEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("apply environment: %w", err)
	}

	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file onto cfg with STRICT parsing.
// Unknown fields are fatal to prevent silent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

// loadEnvFile populates the process environment from a dotenv file.
// Variables that are already set win over the file.
func (l *Loader) loadEnvFile() error {
	path := l.envFile
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return err
	}
	logger := log.WithComponent("config")
	logger.Debug().Str("path", path).Msg("loaded env file")
	return nil
}

func mergeEnv(cfg *AppConfig) error {
	cfg.ListenAddr = ParseString(EnvListenAddr, cfg.ListenAddr)
	cfg.MetricsAddr = ParseString(EnvMetricsAddr, cfg.MetricsAddr)
	cfg.Log.Level = ParseString(EnvLogLevel, cfg.Log.Level)
	cfg.Log.Format = ParseString(EnvLogFormat, cfg.Log.Format)

	cfg.Transcode.FFmpegBin = ParseString(EnvFFmpegBin, cfg.Transcode.FFmpegBin)
	cfg.Transcode.BitrateKbps = ParseInt(EnvBitrateKbps, cfg.Transcode.BitrateKbps)
	cfg.Transcode.FirstByteTimeout = ParseDuration(EnvFirstByteTimeout, cfg.Transcode.FirstByteTimeout)
	cfg.Transcode.MaxDuration = ParseDuration(EnvMaxDuration, cfg.Transcode.MaxDuration)
	cfg.Transcode.InputMode = ParseString(EnvInputMode, cfg.Transcode.InputMode)

	cfg.Resolver.Mode = ParseString(EnvResolverMode, cfg.Resolver.Mode)
	cfg.Resolver.ProviderTimeout = ParseDuration(EnvProviderTimeout, cfg.Resolver.ProviderTimeout)
	cfg.Resolver.Budget = ParseDuration(EnvResolverBudget, cfg.Resolver.Budget)

	cfg.Metadata.Budget = ParseDuration(EnvMetadataBudget, cfg.Metadata.Budget)
	cfg.Metadata.FallbackCard = ParseBool(EnvFallbackCard, cfg.Metadata.FallbackCard)
	cfg.Fallback.Policy = ParseString(EnvFallbackPolicy, cfg.Fallback.Policy)

	cfg.Upstream.AllowPrivate = ParseBool(EnvAllowPrivate, cfg.Upstream.AllowPrivate)
	cfg.CORS.AllowedOrigins = ParseList(EnvCORSOrigins, cfg.CORS.AllowedOrigins)

	cfg.Telemetry.Enabled = ParseBool(EnvOTelEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.ExporterType = ParseString(EnvOTelExporter, cfg.Telemetry.ExporterType)
	cfg.Telemetry.Endpoint = ParseString(EnvOTelEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(EnvOTelSampling, cfg.Telemetry.SamplingRate)

	for _, name := range ParseList(EnvProvidersOff, nil) {
		idx := lo.IndexOf(lo.Map(cfg.Providers, func(p ProviderConfig, _ int) string { return p.Name }), name)
		if idx < 0 {
			return fmt.Errorf("%s: %w %q", EnvProvidersOff, ErrUnknownProvider, name)
		}
		cfg.Providers[idx].Disabled = true
	}

	if order := ParseList(EnvProviderOrder, nil); len(order) > 0 {
		reordered, err := Reorder(cfg.Providers, order)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvProviderOrder, err)
		}
		cfg.Providers = reordered
	}
	return nil
}

// Reorder moves the named providers to the front in the given order. The
// remaining providers keep their relative order behind them.
func Reorder(providers []ProviderConfig, order []string) ([]ProviderConfig, error) {
	byName := lo.KeyBy(providers, func(p ProviderConfig) string { return p.Name })
	out := make([]ProviderConfig, 0, len(providers))
	for _, name := range lo.Uniq(order) {
		p, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownProvider, name)
		}
		out = append(out, p)
	}
	rest := lo.Reject(providers, func(p ProviderConfig, _ int) bool {
		return lo.Contains(order, p.Name)
	})
	return append(out, rest...), nil
}
