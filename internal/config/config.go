// Package config loads server settings from the environment and display
// labels from an optional YAML file.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Environment variable names.
const (
	EnvAddr        = "CLUBADMIN_ADDR"
	EnvDB          = "CLUBADMIN_DB"
	EnvMode        = "CLUBADMIN_ENV"
	EnvCSRFKey     = "CLUBADMIN_CSRF_KEY"
	EnvAdminKey    = "CLUBADMIN_ADMIN_KEY"
	EnvLabels      = "CLUBADMIN_LABELS"
	EnvSlowQueryMs = "CLUBADMIN_SLOW_QUERY_MS"
	EnvSeedDemo    = "CLUBADMIN_SEED_DEMO"

	// EnvTrustedOrigins is a comma-separated list of extra host[:port]
	// values accepted by the CSRF origin check.
	EnvTrustedOrigins = "CLUBADMIN_TRUSTED_ORIGINS"
)

// ModeProduction is the CLUBADMIN_ENV value that enables strict checks.
const ModeProduction = "production"

// DevAdminKey is accepted as the admin key outside production when
// CLUBADMIN_ADMIN_KEY is unset.
const DevAdminKey = "clubadmin-dev"

// Config errors
var (
	ErrCSRFKeyRequired  = errors.New(EnvCSRFKey + " is required in production")
	ErrCSRFKeyInvalid   = errors.New(EnvCSRFKey + " must be 64 hex characters (32 bytes)")
	ErrAdminKeyRequired = errors.New(EnvAdminKey + " is required in production")
	ErrAdminKeyInvalid  = errors.New(EnvAdminKey + " must be a bcrypt hash")
)

// Config holds the server settings.
type Config struct {
	Addr         string
	DBPath       string
	Mode         string
	CSRFKey      []byte
	AdminKeyHash []byte
	LabelsPath   string
	SlowQuery    time.Duration
	SeedDemo     bool
}

// Production reports whether strict production checks apply.
func (c Config) Production() bool {
	return c.Mode == ModeProduction
}

// envOrDefault returns the value of key, or def when it is unset or blank.
func envOrDefault(getenv func(string) string, key, def string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return def
}

// Load reads the configuration through getenv (os.Getenv in main).
// PRE: getenv is non-nil
// POST: Production configs always carry an explicit CSRF key and admin key hash
func Load(getenv func(string) string) (Config, error) {
	cfg := Config{
		Addr:       envOrDefault(getenv, EnvAddr, ":8080"),
		DBPath:     envOrDefault(getenv, EnvDB, "clubadmin.db"),
		Mode:       envOrDefault(getenv, EnvMode, "development"),
		LabelsPath: getenv(EnvLabels),
		SlowQuery:  50 * time.Millisecond,
	}

	if v := getenv(EnvSlowQueryMs); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return Config{}, fmt.Errorf("%s must be a positive integer, got %q", EnvSlowQueryMs, v)
		}
		cfg.SlowQuery = time.Duration(ms) * time.Millisecond
	}

	key, err := loadCSRFKey(getenv(EnvCSRFKey), cfg.Production())
	if err != nil {
		return Config{}, err
	}
	cfg.CSRFKey = key

	hash, err := loadAdminKeyHash(getenv(EnvAdminKey), cfg.Production())
	if err != nil {
		return Config{}, err
	}
	cfg.AdminKeyHash = hash

	seed := envOrDefault(getenv, EnvSeedDemo, strconv.FormatBool(!cfg.Production()))
	cfg.SeedDemo, _ = strconv.ParseBool(seed)
	return cfg, nil
}

// loadCSRFKey decodes the hex CSRF secret. Outside production a random key
// is generated per startup.
func loadCSRFKey(keyHex string, production bool) ([]byte, error) {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, ErrCSRFKeyInvalid
		}
		return key, nil
	}
	if production {
		return nil, ErrCSRFKeyRequired
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate CSRF key: %w", err)
	}
	slog.Warn("config_warning", "setting", EnvCSRFKey, "detail", "using random CSRF key; sessions won't survive restart")
	return key, nil
}

// loadAdminKeyHash accepts a bcrypt hash of the admin key. Outside production
// an unset value falls back to a hash of DevAdminKey.
func loadAdminKeyHash(hash string, production bool) ([]byte, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, ErrAdminKeyInvalid
		}
		return []byte(hash), nil
	}
	if production {
		return nil, ErrAdminKeyRequired
	}
	h, err := bcrypt.GenerateFromPassword([]byte(DevAdminKey), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	slog.Warn("config_warning", "setting", EnvAdminKey, "detail", "using development admin key")
	return h, nil
}
