package qail

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/ini.v1"
)

// PoolConfig holds the configuration of a connection pool.
type PoolConfig struct {
	Host     string
	Port     uint16
	User     string
	Database string
	Password string

	MaxConnections int
	MinIdle        int
	ConnectTimeout time.Duration
	BorrowTimeout  time.Duration
	IdleTimeout    time.Duration
	QueryTimeout   time.Duration

	StatementCacheSize int
	SSLMode            SSLMode
	TLSConfig          *tls.Config
	RuntimeParams      map[string]string
	Logger             *slog.Logger
}

// DefaultMaxConnections bounds a pool whenever no explicit maximum is
// configured.
const DefaultMaxConnections = 10

// DefaultBorrowTimeout is applied when no borrow deadline is configured.
const DefaultBorrowTimeout = 30 * time.Second

func (config *PoolConfig) defaults() {
	if config.MaxConnections <= 0 {
		config.MaxConnections = DefaultMaxConnections
	}
	if config.MinIdle < 0 {
		config.MinIdle = 0
	}
	if config.MinIdle > config.MaxConnections {
		config.MinIdle = config.MaxConnections
	}
	if config.BorrowTimeout == 0 {
		config.BorrowTimeout = DefaultBorrowTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
}

// connConfig derives the single connection configuration of the pool.
func (config PoolConfig) connConfig() Config {
	return Config{
		Host:               config.Host,
		Port:               config.Port,
		User:               config.User,
		Database:           config.Database,
		Password:           config.Password,
		ConnectTimeout:     config.ConnectTimeout,
		QueryTimeout:       config.QueryTimeout,
		SSLMode:            config.SSLMode,
		TLSConfig:          config.TLSConfig,
		RuntimeParams:      config.RuntimeParams,
		StatementCacheSize: config.StatementCacheSize,
		Logger:             config.Logger,
	}
}

// LoadPoolConfig reads a pool configuration from an INI file with
// environment variable overrides. The file carries a single [pool] section:
//
//	[pool]
//	host = localhost
//	port = 5432
//	user = postgres
//	database = postgres
//	max_connections = 10
//	min_idle = 2
//	sslmode = prefer
//
// The environment variables QAIL_HOST, QAIL_PORT, QAIL_USER, QAIL_DATABASE
// and QAIL_PASSWORD override their file counterparts, the password is
// typically provided through the environment only.
func LoadPoolConfig(path string) (PoolConfig, error) {
	file, err := ini.Load(path)
	if err != nil {
		return PoolConfig{}, fmt.Errorf("loading pool configuration: %w", err)
	}

	section := file.Section("pool")
	config := PoolConfig{
		Host:               section.Key("host").MustString("localhost"),
		Port:               uint16(section.Key("port").MustUint(5432)),
		User:               section.Key("user").String(),
		Database:           section.Key("database").String(),
		Password:           section.Key("password").String(),
		MaxConnections:     section.Key("max_connections").MustInt(DefaultMaxConnections),
		MinIdle:            section.Key("min_idle").MustInt(0),
		ConnectTimeout:     time.Duration(section.Key("connect_timeout").MustInt(10)) * time.Second,
		BorrowTimeout:      time.Duration(section.Key("borrow_timeout").MustInt(30)) * time.Second,
		IdleTimeout:        time.Duration(section.Key("idle_timeout").MustInt(0)) * time.Second,
		StatementCacheSize: section.Key("statement_cache_size").MustInt(DefaultStatementCacheSize),
	}

	switch mode := SSLMode(section.Key("sslmode").MustString(string(SSLPrefer))); mode {
	case SSLDisable, SSLPrefer, SSLRequire:
		config.SSLMode = mode
	default:
		return PoolConfig{}, fmt.Errorf("unsupported sslmode %q", mode)
	}

	if v := os.Getenv("QAIL_HOST"); v != "" {
		config.Host = v
	}
	if v := os.Getenv("QAIL_PORT"); v != "" {
		var port uint16
		if _, err := fmt.Sscanf(v, "%d", &port); err != nil {
			return PoolConfig{}, fmt.Errorf("invalid QAIL_PORT %q", v)
		}
		config.Port = port
	}
	if v := os.Getenv("QAIL_USER"); v != "" {
		config.User = v
	}
	if v := os.Getenv("QAIL_DATABASE"); v != "" {
		config.Database = v
	}
	if v := os.Getenv("QAIL_PASSWORD"); v != "" {
		config.Password = v
	}

	return config, nil
}
