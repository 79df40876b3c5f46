package domain

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"
)

// UpstreamConfig locates the SkyWalking OAP GraphQL endpoint.
type UpstreamConfig struct {
	Host             string        `json:"host"`
	Port             int           `json:"port"`
	SpanQueryTimeout time.Duration `json:"span_query_timeout"`
	TracesTimeout    time.Duration `json:"traces_timeout"`
	DefaultStep      Step          `json:"default_step"`
}

// GraphQLURL returns http://host:port/graphql.
func (u UpstreamConfig) GraphQLURL() string {
	return "http://" + net.JoinHostPort(u.Host, strconv.Itoa(u.Port)) + "/graphql"
}

// ServerConfig configures the inbound listener.
type ServerConfig struct {
	Port           int      `json:"port"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// AppConfig is the process-wide, read-only configuration.
type AppConfig struct {
	Server   ServerConfig   `json:"server"`
	Upstream UpstreamConfig `json:"upstream"`
	LogLevel slog.Level     `json:"log_level"`
}

// DefaultConfig returns safe defaults
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:           3000,
			AllowedOrigins: []string{"*"},
		},
		Upstream: UpstreamConfig{
			Host:             "localhost",
			Port:             12800,
			SpanQueryTimeout: 180 * time.Second,
			TracesTimeout:    120 * time.Second,
			DefaultStep:      DefaultStep,
		},
		LogLevel: slog.LevelInfo,
	}
}
