package database

import (
	"errors"
	"fmt"
	"strings"

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

func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("mysql configuration requires user and database name")
	}

	credentials := cfg.User
	if cfg.Password != "" {
		credentials = cfg.User + ":" + cfg.Password
	}

	options := map[string]string{
		"charset":   "utf8mb4",
		"parseTime": "True",
		"loc":       "Local",
	}
	for key, value := range cfg.Options {
		options[key] = value
	}

	pairs := make([]string, 0, len(options))
	for _, key := range sortedKeys(options) {
		pairs = append(pairs, key+"="+options[key])
	}

	return fmt.Sprintf("%s@tcp(%s:%d)/%s?%s",
		credentials,
		defaultString(cfg.Host, "127.0.0.1"),
		defaultInt(cfg.Port, 3306),
		cfg.Name,
		strings.Join(pairs, "&"),
	), nil
}
