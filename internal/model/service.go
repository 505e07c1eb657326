package model

import "time"

// ServiceConfig describes one database the schema is materialized in and
// checked against.
type ServiceConfig struct {
	Name   string `json:"name"`
	Driver string `json:"driver"` // postgres, mysql, mssql, sqlite
	DSN    string `json:"-"`
	Schema string `json:"schema,omitempty"`
	// AllowRecreate permits destructive recreation against this service.
	AllowRecreate bool       `json:"allow_recreate"`
	Pool          PoolConfig `json:"pool"`
}

// PoolConfig controls the database connection pool of a service.
type PoolConfig struct {
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
}

// DefaultPoolConfig returns pool settings sized for short DDL and catalog
// sessions.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}
