// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package config

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the top-level ProvStor configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Triplestore TriplestoreConfig `mapstructure:"triplestore"`
	Objectstore ObjectstoreConfig `mapstructure:"objectstore"`
	API         APIConfig         `mapstructure:"api"`
}

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	Listen         string        `mapstructure:"listen"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TriplestoreConfig selects and configures the graph store backend.
type TriplestoreConfig struct {
	Backend string       `mapstructure:"backend"`
	Fuseki  FusekiConfig `mapstructure:"fuseki"`
	SQLite  SQLiteConfig `mapstructure:"sqlite"`
}

// FusekiConfig points at a SPARQL 1.1 protocol endpoint.
type FusekiConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Dataset    string        `mapstructure:"dataset"`
	UnionGraph string        `mapstructure:"union_graph"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// SQLiteConfig locates the embedded quad store.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// ObjectstoreConfig selects and configures the archive store backend.
type ObjectstoreConfig struct {
	Backend    string           `mapstructure:"backend"`
	Bucket     string           `mapstructure:"bucket"`
	PublicHost string           `mapstructure:"public_host"`
	Minio      MinioConfig      `mapstructure:"minio"`
	Filesystem FilesystemConfig `mapstructure:"filesystem"`
}

// MinioConfig holds S3 endpoint credentials. SecretKey may be a
// keyring://service/key reference.
type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Secure    bool   `mapstructure:"secure"`
}

// FilesystemConfig roots the local archive store.
type FilesystemConfig struct {
	Root string `mapstructure:"root"`
}

// APIConfig is what CLI client commands use to reach a running server.
type APIConfig struct {
	Address string `mapstructure:"address"`
}

// Host returns the host component used when naming crate URLs.
func (o ObjectstoreConfig) Host() string {
	if o.PublicHost != "" {
		return o.PublicHost
	}
	if o.Backend == "minio" {
		return o.Minio.Endpoint
	}
	return "localhost"
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", "127.0.0.1:8000")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.max_upload_bytes", int64(1<<30))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("triplestore.backend", "fuseki")
	v.SetDefault("triplestore.fuseki.base_url", "http://fuseki:3030")
	v.SetDefault("triplestore.fuseki.dataset", "ds")
	v.SetDefault("triplestore.fuseki.union_graph", "urn:x-arq:UnionGraph")
	v.SetDefault("triplestore.fuseki.timeout", 30*time.Second)
	v.SetDefault("triplestore.sqlite.path", "provstor.db")
	v.SetDefault("objectstore.backend", "minio")
	v.SetDefault("objectstore.bucket", "crates")
	v.SetDefault("objectstore.public_host", "")
	v.SetDefault("objectstore.minio.endpoint", "minio:9000")
	v.SetDefault("objectstore.minio.access_key", "minio")
	v.SetDefault("objectstore.minio.secret_key", "miniosecret")
	v.SetDefault("objectstore.minio.secure", false)
	v.SetDefault("objectstore.filesystem.root", "./crates")
	v.SetDefault("api.address", "127.0.0.1:8000")
}

// SetupEnv binds PROVSTOR_-prefixed environment variables, with dots in
// keys replaced by underscores (PROVSTOR_OBJECTSTORE_MINIO_ENDPOINT).
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("PROVSTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix PROVSTOR_).
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, provstorerr.Errorf(provstorerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates an already-populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, provstorerr.Errorf(provstorerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, provstorerr.Errorf(provstorerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, validateListen("server.listen", c.Server.Listen)...)
	errs = append(errs, c.validateLog()...)
	errs = append(errs, c.validateTriplestore()...)
	errs = append(errs, c.validateObjectstore()...)

	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, invalid("config: server.max_upload_bytes must be greater than 0, got %d", c.Server.MaxUploadBytes))
	}

	return errs
}

func (c *Config) validateLog() []error {
	var errs []error

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, invalid("config: log.level must be one of [debug, info, warn, error], got %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, invalid("config: log.format must be one of [text, json], got %q", c.Log.Format))
	}

	return errs
}

func (c *Config) validateTriplestore() []error {
	var errs []error

	switch c.Triplestore.Backend {
	case "fuseki":
		u, err := url.Parse(c.Triplestore.Fuseki.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, invalid("config: triplestore.fuseki.base_url must be an http(s) URL, got %q", c.Triplestore.Fuseki.BaseURL))
		}
		if c.Triplestore.Fuseki.Dataset == "" {
			errs = append(errs, invalid("config: triplestore.fuseki.dataset must not be empty"))
		}
	case "sqlite":
		if c.Triplestore.SQLite.Path == "" {
			errs = append(errs, invalid("config: triplestore.sqlite.path must not be empty"))
		}
	default:
		errs = append(errs, invalid("config: triplestore.backend must be one of [fuseki, sqlite], got %q", c.Triplestore.Backend))
	}

	return errs
}

func (c *Config) validateObjectstore() []error {
	var errs []error

	if c.Objectstore.Bucket == "" {
		errs = append(errs, invalid("config: objectstore.bucket must not be empty"))
	}

	switch c.Objectstore.Backend {
	case "minio":
		if c.Objectstore.Minio.Endpoint == "" {
			errs = append(errs, invalid("config: objectstore.minio.endpoint must not be empty"))
		}
	case "filesystem":
		if c.Objectstore.Filesystem.Root == "" {
			errs = append(errs, invalid("config: objectstore.filesystem.root must not be empty"))
		}
	default:
		errs = append(errs, invalid("config: objectstore.backend must be one of [minio, filesystem], got %q", c.Objectstore.Backend))
	}

	return errs
}

func validateListen(key, addr string) []error {
	if addr == "" {
		return []error{invalid("config: %s must not be empty", key)}
	}
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return []error{invalid("config: %s must be a valid host:port address, got %q: %w", key, addr, err)}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return []error{invalid("config: %s port must be a number, got %q", key, portStr)}
	}
	if port < 1 || port > 65535 {
		return []error{invalid("config: %s port must be between 1 and 65535, got %d", key, port)}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return provstorerr.Errorf(provstorerr.CodeConfigValidateInvalidValue, format, args...)
}

// IsKeyringRef reports whether value is a keyring://service/key reference.
func IsKeyringRef(value string) bool {
	return strings.HasPrefix(value, "keyring://")
}
