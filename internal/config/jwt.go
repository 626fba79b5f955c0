package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables of the bearer-token configuration.
const (
	EnvJWTSecret          = "JWT_SECRET"
	EnvJWTExpirationHours = "JWT_EXPIRATION_HOURS"
)

// JWTConfig holds configuration for JWT token generation and validation.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// NewJWTConfig creates a new JWT configuration from the process environment.
// It reads JWT_SECRET (required) and JWT_EXPIRATION_HOURS (default: 24).
func NewJWTConfig() (*JWTConfig, error) {
	return jwtConfigFrom(os.Getenv)
}

// OptionalJWTConfig is NewJWTConfig for callers where authentication is
// optional: an unset JWT_SECRET yields nil and no error.
func OptionalJWTConfig(getenv func(string) string) (*JWTConfig, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if getenv(EnvJWTSecret) == "" {
		return nil, nil
	}
	return jwtConfigFrom(getenv)
}

func jwtConfigFrom(getenv func(string) string) (*JWTConfig, error) {
	secret := getenv(EnvJWTSecret)
	if secret == "" {
		return nil, fmt.Errorf("%s is required but not set", EnvJWTSecret)
	}

	expirationStr := getenv(EnvJWTExpirationHours)
	if expirationStr == "" {
		expirationStr = "24"
	}

	expirationHours, err := strconv.Atoi(expirationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", EnvJWTExpirationHours, err)
	}

	config := &JWTConfig{
		Secret:          secret,
		ExpirationHours: expirationHours,
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("%s cannot be empty", EnvJWTSecret)
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("%s must be at least 1 hour, got: %d", EnvJWTExpirationHours, c.ExpirationHours)
	}
	return nil
}
