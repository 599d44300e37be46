package database

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openPostgres(cfg Config) (*gorm.DB, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

// buildPostgresDSN renders a keyword/value connection string. Connection keys come first in a
// fixed order, followed by the remaining options sorted by name.
func buildPostgresDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("postgres configuration requires user and database name")
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	pairs := []string{
		pgPair("host", host),
		pgPair("port", strconv.Itoa(port)),
		pgPair("user", cfg.User),
		pgPair("dbname", cfg.Name),
	}
	if cfg.Password != "" {
		pairs = append(pairs, pgPair("password", cfg.Password))
	}

	options := map[string]string{
		"sslmode":  "disable",
		"TimeZone": "UTC",
	}
	for key, value := range cfg.Options {
		options[key] = value
	}

	keys := make([]string, 0, len(options))
	for key := range options {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		pairs = append(pairs, pgPair(key, options[key]))
	}

	return strings.Join(pairs, " "), nil
}

// pgPair quotes values that libpq would otherwise split or misread.
func pgPair(key, value string) string {
	if value != "" && !strings.ContainsAny(value, ` '\`) {
		return key + "=" + value
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return key + "='" + escaped + "'"
}
