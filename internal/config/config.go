// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Credential store backends accepted by CREDENTIAL_STORE.
const (
	CredentialStoreLocal    = "local"
	CredentialStoreKeycloak = "keycloak"
)

// Policy engines accepted by POLICY_ENGINE.
const (
	PolicyEngineOPA    = "opa"
	PolicyEngineStatic = "static"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCHealthAddr is the optional address for the grpc.health.v1 listener; empty disables it.
	GRPCHealthAddr string `mapstructure:"GRPC_HEALTH_ADDR"`
	// DatabaseURL is the Postgres DSN backing the profile store, catalog and audit log.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// CredentialStore selects the identity provider adapter: "local" or "keycloak".
	CredentialStore string `mapstructure:"CREDENTIAL_STORE"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file. Local store only.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file. Local store only.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "1h"), reported to clients as expires_in.
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// KeycloakIssuer is the realm issuer URL, e.g. https://sso.example.com/realms/servicehub.
	KeycloakIssuer string `mapstructure:"KEYCLOAK_ISSUER"`
	// KeycloakAdminURL is the realm admin base URL. Derived from KeycloakIssuer when empty.
	KeycloakAdminURL     string `mapstructure:"KEYCLOAK_ADMIN_URL"`
	KeycloakClientID     string `mapstructure:"KEYCLOAK_CLIENT_ID"`
	KeycloakClientSecret string `mapstructure:"KEYCLOAK_CLIENT_SECRET"`
	// ProviderTimeout bounds every HTTP call to the identity provider.
	ProviderTimeout string `mapstructure:"PROVIDER_TIMEOUT"`

	// PolicyEngine selects the authorization evaluator: "opa" or "static".
	PolicyEngine string `mapstructure:"POLICY_ENGINE"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint. Empty yields no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	ServiceName  string `mapstructure:"OTEL_SERVICE_NAME"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_HEALTH_ADDR", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("CREDENTIAL_STORE", CredentialStoreLocal)
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "servicehub-auth")
	v.SetDefault("JWT_AUDIENCE", "servicehub-api")
	v.SetDefault("JWT_ACCESS_TTL", "1h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("KEYCLOAK_ISSUER", "")
	v.SetDefault("KEYCLOAK_ADMIN_URL", "")
	v.SetDefault("KEYCLOAK_CLIENT_ID", "")
	v.SetDefault("KEYCLOAK_CLIENT_SECRET", "")
	v.SetDefault("PROVIDER_TIMEOUT", "10s")
	v.SetDefault("POLICY_ENGINE", PolicyEngineOPA)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "servicehub-api")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	cfg.CredentialStore = strings.ToLower(strings.TrimSpace(cfg.CredentialStore))
	switch cfg.CredentialStore {
	case CredentialStoreLocal:
	case CredentialStoreKeycloak:
		if cfg.KeycloakIssuer == "" || cfg.KeycloakClientID == "" || cfg.KeycloakClientSecret == "" {
			return nil, errors.New("config: KEYCLOAK_ISSUER, KEYCLOAK_CLIENT_ID and KEYCLOAK_CLIENT_SECRET are required when CREDENTIAL_STORE=keycloak")
		}
	default:
		return nil, errors.New("config: CREDENTIAL_STORE must be local or keycloak")
	}

	cfg.PolicyEngine = strings.ToLower(strings.TrimSpace(cfg.PolicyEngine))
	if cfg.PolicyEngine != PolicyEngineOPA && cfg.PolicyEngine != PolicyEngineStatic {
		return nil, errors.New("config: POLICY_ENGINE must be opa or static")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// ProviderHTTPTimeout parses ProviderTimeout. Returns 10s if unset or invalid.
func (c *Config) ProviderHTTPTimeout() time.Duration {
	d, err := time.ParseDuration(c.ProviderTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// KeycloakAdminBaseURL returns the realm admin API base. When KEYCLOAK_ADMIN_URL is empty it is
// derived from the issuer: {host}/realms/{realm} -> {host}/admin/realms/{realm}.
func (c *Config) KeycloakAdminBaseURL() string {
	if c.KeycloakAdminURL != "" {
		return strings.TrimRight(c.KeycloakAdminURL, "/")
	}
	issuer := strings.TrimRight(c.KeycloakIssuer, "/")
	i := strings.LastIndex(issuer, "/realms/")
	if i < 0 {
		return ""
	}
	return issuer[:i] + "/admin" + issuer[i:]
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}
