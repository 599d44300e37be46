package database

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func openMySQL(cfg Config) (*gorm.DB, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(mysql.Open(dsn), &gorm.Config{})
}

// buildMySQLDSN renders the connection string through the driver's own config so option
// values are validated. Timestamps are parsed as UTC to match how reset code expiry is stored.
func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("mysql configuration requires user and database name")
	}

	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}

	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	base := mysqldriver.NewConfig()
	base.User = cfg.User
	base.Passwd = cfg.Password
	base.Net = "tcp"
	base.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	base.DBName = cfg.Name
	base.ParseTime = true
	base.Loc = time.UTC
	base.Params = map[string]string{"charset": "utf8mb4"}

	if len(cfg.Options) == 0 {
		return base.FormatDSN(), nil
	}

	// Re-parse with the extra options so known keys (tls, loc, timeouts) land in typed fields.
	query := url.Values{}
	for key, value := range cfg.Options {
		query.Set(key, value)
	}
	merged, err := mysqldriver.ParseDSN(base.FormatDSN() + "&" + query.Encode())
	if err != nil {
		return "", fmt.Errorf("mysql options: %w", err)
	}
	return merged.FormatDSN(), nil
}
