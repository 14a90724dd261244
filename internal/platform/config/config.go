// Package config loads service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultAgentPassword is the development placeholder for the agent vault password.
const DefaultAgentPassword = "insecure-static-phrase"

// Grant query scopes.
const (
	ScopeRecipient = "recipient"
	ScopeProtocol  = "protocol"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string        `env:"ADDR" envDefault:":5001"`
	Environment    string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	OTLPEndpoint   string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Identity configures the customer identity and its agent.
type Identity struct {
	File          string   `env:"IDENTITY_FILE" envDefault:"did.json"`
	AgentPassword string   `env:"AGENT_PASSWORD"`
	DWNEndpoints  []string `env:"DWN_ENDPOINTS" envDefault:"https://dwn.gcda.xyz" envSeparator:","`
	DataPath      string   `env:"DWN_DATA_PATH" envDefault:"data/dwn.db"`
}

// Protocol configures startup reconciliation.
type Protocol struct {
	DefinitionFile string `env:"PROTOCOL_DEFINITION_FILE"`
	// SuccessCode is the query status that counts as "installed". Node
	// implementations disagree on 200 vs 202.
	SuccessCode int  `env:"PROTOCOL_QUERY_SUCCESS_CODE" envDefault:"200"`
	RemoteCheck bool `env:"PROTOCOL_REMOTE_CHECK" envDefault:"true"`
}

// Grant configures the authorization grant engine.
type Grant struct {
	RolePath   string `env:"GRANT_ROLE_PATH" envDefault:"issuer"`
	QueryScope string `env:"GRANT_QUERY_SCOPE" envDefault:"recipient"`
}

// Store bounds calls to the DWN.
type Store struct {
	CallTimeout     time.Duration `env:"STORE_CALL_TIMEOUT" envDefault:"15s"`
	RemoteTimeout   time.Duration `env:"REMOTE_TIMEOUT" envDefault:"10s"`
	MaxRetries      uint          `env:"REMOTE_MAX_RETRIES" envDefault:"3"`
	BreakerFailures int           `env:"REMOTE_BREAKER_FAILURES" envDefault:"5"`
	BreakerCooldown time.Duration `env:"REMOTE_BREAKER_COOLDOWN" envDefault:"30s"`
}

// Config is the full service configuration.
type Config struct {
	Server   Server
	Identity Identity
	Protocol Protocol
	Grant    Grant
	Store    Store
}

// FromEnv parses and validates configuration from the environment.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UsesDefaultPassword reports whether the agent password was left unset.
func (c *Config) UsesDefaultPassword() bool {
	return c.Identity.AgentPassword == DefaultAgentPassword
}

func (c *Config) normalize() {
	if c.Identity.AgentPassword == "" {
		c.Identity.AgentPassword = DefaultAgentPassword
	}
	endpoints := c.Identity.DWNEndpoints[:0]
	for _, e := range c.Identity.DWNEndpoints {
		if e = strings.TrimSpace(e); e != "" {
			endpoints = append(endpoints, e)
		}
	}
	c.Identity.DWNEndpoints = endpoints
	c.Grant.QueryScope = strings.ToLower(strings.TrimSpace(c.Grant.QueryScope))
	c.Grant.RolePath = strings.Trim(strings.TrimSpace(c.Grant.RolePath), "/")
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("ADDR is required"))
	}
	if c.Identity.File == "" {
		errs = append(errs, errors.New("IDENTITY_FILE is required"))
	}
	if len(c.Identity.DWNEndpoints) == 0 {
		errs = append(errs, errors.New("DWN_ENDPOINTS must list at least one endpoint"))
	}
	if c.Protocol.SuccessCode < 100 || c.Protocol.SuccessCode > 599 {
		errs = append(errs, fmt.Errorf("PROTOCOL_QUERY_SUCCESS_CODE %d is not an HTTP status", c.Protocol.SuccessCode))
	}
	if c.Grant.RolePath == "" {
		errs = append(errs, errors.New("GRANT_ROLE_PATH is required"))
	}
	if c.Grant.QueryScope != ScopeRecipient && c.Grant.QueryScope != ScopeProtocol {
		errs = append(errs, fmt.Errorf("GRANT_QUERY_SCOPE must be %q or %q", ScopeRecipient, ScopeProtocol))
	}
	if c.Store.CallTimeout <= 0 {
		errs = append(errs, errors.New("STORE_CALL_TIMEOUT must be positive"))
	}
	if c.Store.MaxRetries == 0 {
		errs = append(errs, errors.New("REMOTE_MAX_RETRIES must be at least 1"))
	}
	return errors.Join(errs...)
}
