package postgres

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/loykin/graphmigrate/internal/constants"
)

// Config holds the network backend settings: server location, credentials,
// optional TLS materials, and pool sizing.
type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`

	// Optional TLS materials; file paths.
	CAFile   string `mapstructure:"ca_file"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`

	// Pool sizing.
	MinConns       int32         `mapstructure:"min_conns"`
	MaxConns       int32         `mapstructure:"max_conns"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	// Embedding width of the pgvector columns.
	VectorDim int `mapstructure:"vector_dim"`
}

func (c *Config) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"host":    c.Host,
		"port":    c.Port,
		"user":    c.User,
		"dbname":  c.DBName,
		"sslmode": c.SSLMode,
	}
}

// Validate checks the connection parameters before any I/O is attempted.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("postgres config: host must not be empty")
	}
	if strings.TrimSpace(c.DBName) == "" {
		return fmt.Errorf("postgres config: dbname must not be empty")
	}
	if strings.TrimSpace(c.User) == "" {
		return fmt.Errorf("postgres config: user must not be empty")
	}
	if c.MinConns < 0 || (c.MaxConns > 0 && c.MinConns > c.MaxConns) {
		return fmt.Errorf("postgres config: invalid pool sizing min=%d max=%d", c.MinConns, c.MaxConns)
	}
	return nil
}

// DSN builds a connection string in the form accepted by pgx.
func (c *Config) DSN() string {
	port := c.Port
	if port == 0 {
		port = constants.DefaultPostgresPort
	}
	ssl := strings.TrimSpace(c.SSLMode)
	if ssl == "" {
		ssl = constants.DefaultPostgresSSLMode
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, port, c.DBName, ssl,
	)
}

// PoolConfig converts the configuration into a pgxpool configuration with
// sizing, timeouts, and TLS applied.
func (c *Config) PoolConfig() (*pgxpool.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	pc, err := pgxpool.ParseConfig(c.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	minConns := c.MinConns
	if minConns == 0 {
		minConns = constants.DefaultPoolMinConns
	}
	maxConns := c.MaxConns
	if maxConns == 0 {
		maxConns = constants.DefaultPoolMaxConns
	}
	pc.MinConns = minConns
	pc.MaxConns = maxConns

	idle := c.IdleTimeout
	if idle == 0 {
		idle = constants.DefaultPoolIdleTimeout
	}
	pc.MaxConnIdleTime = idle

	connect := c.ConnectTimeout
	if connect == 0 {
		connect = constants.DefaultPoolConnectTimeout
	}
	pc.ConnConfig.ConnectTimeout = connect

	if c.CAFile != "" || c.CertFile != "" {
		tlsCfg, err := c.buildTLS()
		if err != nil {
			return nil, err
		}
		pc.ConnConfig.TLSConfig = tlsCfg
	}

	return pc, nil
}

func (c *Config) buildTLS() (*tls.Config, error) {
	// #nosec G402 -- server name comes from the validated host field
	cfg := &tls.Config{ServerName: c.Host, MinVersion: tls.VersionTLS12}

	if c.CAFile != "" {
		pem, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA file %s", c.CAFile)
		}
		cfg.RootCAs = pool
	}

	if c.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}
