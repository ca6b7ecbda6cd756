// Package config provides the startup configuration for pwaserve.
//
// Configuration is layered, later layers win:
//
//  1. Built-in defaults (this file)
//  2. Optional config file, pwaserve.yaml (${VAR} references are expanded)
//  3. PWASERVE_* environment variables
//  4. Command-line flags and the positional port argument
//
// Environment variables:
//   - PWASERVE_PORT: Listen port (default: the profile's port, 8000 or 8080)
//   - PWASERVE_ROOT: Asset root directory (default: build/web)
//   - PWASERVE_BIND: Listen address (default: 0.0.0.0)
//   - PWASERVE_PROFILE: Header profile, dev or hardened (default: dev)
//   - PWASERVE_HEADERS: Extra headers, "Name:value,Name2:value2"
//   - PWASERVE_WATCH: Log when the asset root changes (default: false)
//   - PWASERVE_LOG_LEVEL: zerolog level (default: info)
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/joeblew999/pwaserve/internal/headers"
)

// === Defaults ===

const (
	// DefaultRoot is where `flutter build web` writes the bundle.
	DefaultRoot = "build/web"

	// DefaultBind listens on every interface so phones on the LAN can connect.
	DefaultBind = "0.0.0.0"

	// DefaultProfile is the header profile used when none is given.
	DefaultProfile = "dev"

	// DefaultLogLevel is the zerolog level used when none is given.
	DefaultLogLevel = "info"

	// DefaultFile is the config file picked up from the working directory.
	DefaultFile = "pwaserve.yaml"

	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "PWASERVE_"

	// BuildCommand is what the operator runs to produce the asset root.
	BuildCommand = "flutter build web --release"
)

// === Default permissions ===

const (
	// DefaultDirPerms is the default permission mode for created directories.
	DefaultDirPerms = 0755

	// DefaultFilePerms is the default permission mode for created files.
	DefaultFilePerms = 0644
)

// Config is the server configuration. It is built once at startup and
// passed explicitly to the server; nothing mutates it afterwards.
type Config struct {
	// Port to listen on. Zero means the profile's default port.
	Port int `yaml:"port,omitempty" env:"PORT"`
	// Root is the asset directory to serve.
	Root string `yaml:"root,omitempty" env:"ROOT"`
	// Bind is the listen address.
	Bind string `yaml:"bind,omitempty" env:"BIND"`
	// Profile names the header profile (dev, hardened).
	Profile string `yaml:"profile,omitempty" env:"PROFILE"`
	// Headers are added after the profile headers, replacing same-named ones.
	Headers map[string]string `yaml:"headers,omitempty" env:"HEADERS"`
	// Watch logs asset root changes.
	Watch bool `yaml:"watch,omitempty" env:"WATCH"`
	// LogLevel is a zerolog level name.
	LogLevel string `yaml:"log_level,omitempty" env:"LOG_LEVEL"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Root:     DefaultRoot,
		Bind:     DefaultBind,
		Profile:  DefaultProfile,
		LogLevel: DefaultLogLevel,
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return fmt.Errorf("asset root must not be empty")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range 0-65535", c.Port)
	}
	if _, err := headers.Lookup(c.Profile); err != nil {
		return err
	}
	if c.Bind != "" && net.ParseIP(c.Bind) == nil && c.Bind != "localhost" {
		return fmt.Errorf("bind address %q is not an IP address", c.Bind)
	}
	for name, value := range c.Headers {
		if !httpguts.ValidHeaderFieldName(name) {
			return fmt.Errorf("header name %q is not a valid token", name)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return fmt.Errorf("header %s has an invalid value", name)
		}
	}
	return nil
}

// HeaderProfile returns the profile with the extra headers merged in.
func (c Config) HeaderProfile() (headers.Profile, error) {
	p, err := headers.Lookup(c.Profile)
	if err != nil {
		return headers.Profile{}, err
	}
	return p.With(c.Headers), nil
}

// ListenPort returns Port, or the profile's default port when Port is zero.
func (c Config) ListenPort() int {
	if c.Port != 0 {
		return c.Port
	}
	if p, err := headers.Lookup(c.Profile); err == nil {
		return p.DefaultPort
	}
	return headers.Dev.DefaultPort
}

// Addr returns the host:port to listen on.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.ListenPort()))
}

// ParsePort converts the optional positional port argument.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", s, err)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %d: must be 1-65535", port)
	}
	return port, nil
}

// ParseHeaders converts "Name=value" (or "Name: value") pairs from flags.
// The first '=' or ':' separates name from value, so values may contain either.
func ParseHeaders(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		i := strings.IndexAny(pair, "=:")
		if i < 0 {
			return nil, fmt.Errorf("invalid header %q: expected Name=value", pair)
		}
		name := strings.TrimSpace(pair[:i])
		value := strings.TrimSpace(pair[i+1:])
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, fmt.Errorf("invalid header %q: %q is not a valid header name", pair, name)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, fmt.Errorf("invalid header %q: value contains control characters", pair)
		}
		out[name] = value
	}
	return out, nil
}
