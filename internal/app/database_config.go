package app

import (
	"strings"

	"github.com/tramdoc/tramdoc/internal/database"
)

// DatabaseSettings converts DatabaseConfig into database.Open parameters, picking the host
// block that matches the driver.
func (c DatabaseConfig) DatabaseSettings() database.Config {
	cfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:   c.Path,
		DSN:    c.DSN,
	}

	var hostCfg DBAuthConfig
	switch cfg.Driver {
	case "postgres", "postgresql":
		hostCfg = c.Postgres
	case "mysql":
		hostCfg = c.MySQL
	default:
		return cfg
	}

	cfg.Host = hostCfg.Host
	cfg.Port = hostCfg.Port
	cfg.Name = hostCfg.Database
	cfg.User = hostCfg.Username
	cfg.Password = hostCfg.Password
	return cfg
}
