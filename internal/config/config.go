// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package config loads the defaults file of the httpipe command: request
// defaults, a request rate limit and logging settings, read from YAML
// and overridden by HTTPIPE_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gogama/httpipe/request"
	"gopkg.in/yaml.v3"
)

// Config is the full defaults file.
type Config struct {
	Request  RequestConfig  `yaml:"request"`
	Throttle ThrottleConfig `yaml:"throttle"`
	Log      LogConfig      `yaml:"log"`
}

// RequestConfig holds request defaults. Unset fields keep the defaults
// of request.DefaultOptions.
type RequestConfig struct {
	Method          string            `yaml:"method"`
	Headers         map[string]string `yaml:"headers"`
	Query           map[string]string `yaml:"query"`
	Timeout         time.Duration     `yaml:"timeout" validate:"gte=0"`
	MaxRedirects    *int              `yaml:"max_redirects" validate:"omitempty,gte=0"`
	MaxSize         int64             `yaml:"max_size" validate:"gte=0"`
	FollowRedirects *bool             `yaml:"follow_redirects"`
	BasicAuth       *BasicAuth        `yaml:"basic_auth"`
}

// BasicAuth holds HTTP Basic Authentication credentials.
type BasicAuth struct {
	Username string `yaml:"username" validate:"required"`
	Password string `yaml:"password"`
}

// ThrottleConfig limits the request rate. A zero RPS disables it.
type ThrottleConfig struct {
	RPS   int `yaml:"rps" validate:"gte=0"`
	Burst int `yaml:"burst" validate:"gte=0"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

var validate = validator.New()

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path over Default, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err = cfg.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.loadEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) loadEnv(getenv func(string) string) error {
	if v := getenv("HTTPIPE_METHOD"); v != "" {
		c.Request.Method = v
	}
	if v := getenv("HTTPIPE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid HTTPIPE_TIMEOUT: %w", err)
		}
		c.Request.Timeout = d
	}
	if v := getenv("HTTPIPE_MAX_REDIRECTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HTTPIPE_MAX_REDIRECTS: %w", err)
		}
		c.Request.MaxRedirects = &n
	}
	if v := getenv("HTTPIPE_MAX_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid HTTPIPE_MAX_SIZE: %w", err)
		}
		c.Request.MaxSize = n
	}
	if v := getenv("HTTPIPE_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := getenv("HTTPIPE_LOG_FORMAT"); v != "" {
		c.Log.Format = strings.ToLower(v)
	}
	return nil
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Throttle.RPS > 0 && c.Throttle.Burst == 0 {
		return errors.New("throttle.burst must be positive when throttle.rps is set")
	}
	return nil
}

// Options converts the request defaults into request options. Headers
// and query parameters are applied in sorted order.
func (r *RequestConfig) Options() []request.Option {
	var opts []request.Option
	if r.Method != "" {
		opts = append(opts, request.WithMethod(r.Method))
	}
	for _, name := range sortedKeys(r.Headers) {
		opts = append(opts, request.WithHeader(name, r.Headers[name]))
	}
	for _, key := range sortedKeys(r.Query) {
		opts = append(opts, request.WithQuery(key, r.Query[key]))
	}
	if r.Timeout > 0 {
		opts = append(opts, request.WithTimeout(r.Timeout))
	}
	if r.MaxRedirects != nil {
		opts = append(opts, request.WithMaxRedirects(*r.MaxRedirects))
	}
	if r.MaxSize > 0 {
		opts = append(opts, request.WithMaxSize(r.MaxSize))
	}
	if r.FollowRedirects != nil {
		opts = append(opts, request.WithFollowRedirects(*r.FollowRedirects))
	}
	if r.BasicAuth != nil {
		opts = append(opts, request.WithBasicAuth(r.BasicAuth.Username, r.BasicAuth.Password))
	}
	return opts
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SlogLevel returns the slog level named by Level.
func (l *LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Handler returns a text or JSON slog handler writing to w.
func (l *LogConfig) Handler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if l.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
