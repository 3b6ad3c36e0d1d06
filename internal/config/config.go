// config.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package config loads the service's recognised keys: postgres
// connection parameters, store TLS material, the Redis queue endpoint,
// the gRPC listen port, and the logging configuration path. Precedence
// (lowest to highest): built-in defaults, a YAML file, environment
// variables prefixed SVC_GIS_.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Postgres struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type Ingest struct {
	Cadence time.Duration `mapstructure:"cadence"`
	Folder  string        `mapstructure:"folder"`
}

type Redis struct {
	URL string `mapstructure:"url"`
}

type Config struct {
	Environment string `mapstructure:"environment"`

	Postgres Postgres `mapstructure:"postgres"`

	DBCACert     string `mapstructure:"db_ca_cert"`
	DBClientCert string `mapstructure:"db_client_cert"`
	DBClientKey  string `mapstructure:"db_client_key"`

	Redis Redis `mapstructure:"redis"`

	DockerPortGRPC int    `mapstructure:"docker_port_grpc"`
	LogConfig      string `mapstructure:"log_config"`
	LogLevel       string `mapstructure:"log_level"`
	LogDir         string `mapstructure:"log_dir"`

	Ingest Ingest `mapstructure:"ingest"`
}

// ConnString renders the Postgres DSN pgx expects.
func (p Postgres) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// RequiresTLS reports whether db_ca_cert/db_client_cert/db_client_key are
// mandatory: they are required in production.
func (c Config) RequiresTLS() bool {
	return c.Environment == "production"
}

// Load reads configFile (if non-empty) and environment variables prefixed
// SVC_GIS_, layered over defaults.
func Load(configFile string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("svc_gis")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("environment", "development")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "svc_gis")
	v.SetDefault("postgres.dbname", "svc_gis")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("docker_port_grpc", 50051)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "")
	v.SetDefault("ingest.cadence", 150*time.Millisecond)
	v.SetDefault("ingest.folder", "svc-gis")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return c, nil
}
