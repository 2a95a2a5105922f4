package config

import (
	"fmt"
	"net/url"
)

// DSN returns the driver-specific connection string for the configured
// database type.
func (cfg DatabaseConfig) DSN() string {
	switch cfg.Type {
	case "postgres":
		return buildPostgresDSN(cfg)
	default:
		return cfg.DatabasePath
	}
}

// buildPostgresDSN builds a PostgreSQL connection URL from config
func buildPostgresDSN(cfg DatabaseConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   "/" + cfg.Database,
	}
	if cfg.Username != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			u.User = url.User(cfg.Username)
		}
	}
	q := u.Query()
	q.Set("sslmode", sslMode)
	q.Set("TimeZone", "UTC")
	u.RawQuery = q.Encode()

	return u.String()
}
