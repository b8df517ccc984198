package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// Deployment modes selecting the certificate issuance path
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// ACME issuance modes for the production path
const (
	ACMEModeEmbedded = "embedded" // in-process lego DNS-01 client
	ACMEModeExec     = "exec"     // isolated external tool run
)

// Config holds all configuration
type Config struct {
	Mode     string // development | production
	HTTPAddr string
	Migrate  bool

	DB    DBConfig
	DNS   DNSConfig
	Cert  CertConfig
	ACME  ACMEConfig
	Sweep SweepConfig
	Redis RedisConfig
	JWT   JWTConfig
}

// DBConfig holds registry database configuration
type DBConfig struct {
	Driver string // sqlite (default) | mysql
	DSN    string // file path for sqlite, full DSN for mysql
}

// DNSConfig holds DNS responder configuration
type DNSConfig struct {
	Addr       string // listen address, host:port
	TCPTimeout int    // per-connection read timeout, seconds
}

// CertConfig holds certificate store configuration
type CertConfig struct {
	RootDir           string
	DevelopmentDomain string // delegated suffix in development
	ProductionDomain  string // delegated suffix in production
}

// ACMEConfig holds certificate issuance configuration
type ACMEConfig struct {
	Mode            string // embedded | exec
	Email           string
	CADirURL        string
	DNSProvider     string // lego DNS provider name, e.g. cloudflare
	CredentialsFile string // env-style file with provider credentials
	MkcertCommand   string // local CA tool for development
	IssueCommand    string // external ACME tool for exec mode
	TimeoutSec      int
}

// SweepConfig holds expiration sweep configuration
type SweepConfig struct {
	Enabled     bool
	IntervalSec int
}

// RedisConfig holds optional resolve-cache configuration
type RedisConfig struct {
	Addr     string // empty disables the cache
	Password string
	DB       int
}

// JWTConfig holds API auth configuration; an empty secret leaves the API open
type JWTConfig struct {
	Secret        string
	ExpireMinutes int
	Issuer        string
}

// DelegatedSuffix returns the DNS suffix this deployment is authoritative for
func (c *Config) DelegatedSuffix() string {
	if c.Mode == ModeProduction {
		return c.Cert.ProductionDomain
	}
	return c.Cert.DevelopmentDomain
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Mode:     getEnv("SUBDNS_MODE", ModeDevelopment),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Migrate:  getEnv("MIGRATE", "1") == "1",
		DB: DBConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			DSN:    getEnv("DB_DSN", "subdns.db"),
		},
		DNS: DNSConfig{
			Addr:       getEnv("DNS_ADDR", ":5553"),
			TCPTimeout: getEnvInt("DNS_TCP_TIMEOUT_SEC", 10),
		},
		Cert: CertConfig{
			RootDir:           getEnv("CERT_ROOT_DIR", "certs"),
			DevelopmentDomain: getEnv("DEV_DOMAIN", "localhost"),
			ProductionDomain:  getEnv("PROD_DOMAIN", ""),
		},
		ACME: ACMEConfig{
			Mode:            getEnv("ACME_MODE", ACMEModeEmbedded),
			Email:           getEnv("ACME_EMAIL", ""),
			CADirURL:        getEnv("ACME_CA_DIR", "https://acme-v02.api.letsencrypt.org/directory"),
			DNSProvider:     getEnv("ACME_DNS_PROVIDER", ""),
			CredentialsFile: getEnv("ACME_CREDENTIALS_FILE", ""),
			MkcertCommand:   getEnv("MKCERT_COMMAND", "mkcert"),
			IssueCommand:    getEnv("ACME_ISSUE_COMMAND", "lego"),
			TimeoutSec:      getEnvInt("ACME_TIMEOUT_SEC", 300),
		},
		Sweep: SweepConfig{
			Enabled:     getEnv("SWEEP_ENABLED", "1") == "1",
			IntervalSec: getEnvInt("SWEEP_INTERVAL_SEC", 300),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASS", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:        os.Getenv("JWT_SECRET"),
			ExpireMinutes: getEnvInt("JWT_EXPIRE_MINUTES", 1440),
			Issuer:        getEnv("JWT_ISSUER", "subdns"),
		},
	}

	return cfg, cfg.validate()
}

// LoadFromINI loads configuration from an INI file with environment variable override
func LoadFromINI(iniPath string) (*Config, error) {
	cfgFile, err := ini.Load(iniPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load INI file: %w", err)
	}

	// Priority: ENV > INI > default
	getValue := func(envKey, iniSection, iniKey, defaultValue string) string {
		if value := os.Getenv(envKey); value != "" {
			return value
		}
		if value := cfgFile.Section(iniSection).Key(iniKey).String(); value != "" {
			return value
		}
		return defaultValue
	}

	getValueInt := func(envKey, iniSection, iniKey string, defaultValue int) int {
		if value := os.Getenv(envKey); value != "" {
			if intValue, err := strconv.Atoi(value); err == nil {
				return intValue
			}
		}
		if cfgFile.Section(iniSection).HasKey(iniKey) {
			if value, err := cfgFile.Section(iniSection).Key(iniKey).Int(); err == nil {
				return value
			}
		}
		return defaultValue
	}

	getValueBool := func(envKey, iniSection, iniKey string, defaultValue bool) bool {
		if value := os.Getenv(envKey); value != "" {
			return value == "1" || value == "true"
		}
		if cfgFile.Section(iniSection).HasKey(iniKey) {
			if value, err := cfgFile.Section(iniSection).Key(iniKey).Bool(); err == nil {
				return value
			}
		}
		return defaultValue
	}

	cfg := &Config{
		Mode:     getValue("SUBDNS_MODE", "app", "mode", ModeDevelopment),
		HTTPAddr: getValue("HTTP_ADDR", "http", "addr", ":8080"),
		Migrate:  getValueBool("MIGRATE", "app", "migrate", true),
		DB: DBConfig{
			Driver: getValue("DB_DRIVER", "db", "driver", "sqlite"),
			DSN:    getValue("DB_DSN", "db", "dsn", "subdns.db"),
		},
		DNS: DNSConfig{
			Addr:       getValue("DNS_ADDR", "dns", "addr", ":5553"),
			TCPTimeout: getValueInt("DNS_TCP_TIMEOUT_SEC", "dns", "tcp_timeout_sec", 10),
		},
		Cert: CertConfig{
			RootDir:           getValue("CERT_ROOT_DIR", "cert", "root_dir", "certs"),
			DevelopmentDomain: getValue("DEV_DOMAIN", "cert", "dev_domain", "localhost"),
			ProductionDomain:  getValue("PROD_DOMAIN", "cert", "prod_domain", ""),
		},
		ACME: ACMEConfig{
			Mode:            getValue("ACME_MODE", "acme", "mode", ACMEModeEmbedded),
			Email:           getValue("ACME_EMAIL", "acme", "email", ""),
			CADirURL:        getValue("ACME_CA_DIR", "acme", "ca_dir", "https://acme-v02.api.letsencrypt.org/directory"),
			DNSProvider:     getValue("ACME_DNS_PROVIDER", "acme", "dns_provider", ""),
			CredentialsFile: getValue("ACME_CREDENTIALS_FILE", "acme", "credentials_file", ""),
			MkcertCommand:   getValue("MKCERT_COMMAND", "acme", "mkcert_command", "mkcert"),
			IssueCommand:    getValue("ACME_ISSUE_COMMAND", "acme", "issue_command", "lego"),
			TimeoutSec:      getValueInt("ACME_TIMEOUT_SEC", "acme", "timeout_sec", 300),
		},
		Sweep: SweepConfig{
			Enabled:     getValueBool("SWEEP_ENABLED", "sweep", "enabled", true),
			IntervalSec: getValueInt("SWEEP_INTERVAL_SEC", "sweep", "interval_sec", 300),
		},
		Redis: RedisConfig{
			Addr:     getValue("REDIS_ADDR", "redis", "addr", ""),
			Password: getValue("REDIS_PASS", "redis", "pass", ""),
			DB:       getValueInt("REDIS_DB", "redis", "db", 0),
		},
		JWT: JWTConfig{
			Secret:        getValue("JWT_SECRET", "jwt", "secret", ""),
			ExpireMinutes: getValueInt("JWT_EXPIRE_MINUTES", "jwt", "expire_minutes", 1440),
			Issuer:        getValue("JWT_ISSUER", "jwt", "issuer", "subdns"),
		},
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Mode != ModeDevelopment && c.Mode != ModeProduction {
		return fmt.Errorf("SUBDNS_MODE must be %q or %q, got %q", ModeDevelopment, ModeProduction, c.Mode)
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if c.Mode == ModeProduction {
		if c.Cert.ProductionDomain == "" {
			return fmt.Errorf("PROD_DOMAIN is required in production mode")
		}
		if c.ACME.Mode == ACMEModeEmbedded && c.ACME.DNSProvider == "" {
			return fmt.Errorf("ACME_DNS_PROVIDER is required for embedded ACME issuance")
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
