package types

import "time"

// Mode constants for service operation
const (
	ModeLocal  = "local"  // In-memory object store and queue, SQLite catalogs
	ModeRemote = "remote" // Postgres object store, Redis queue
)

// AppConfig is the root configuration for metacatalog
type AppConfig struct {
	Mode       string `key:"mode" json:"mode"` // "local" or "remote"
	DebugMode  bool   `key:"debugMode" json:"debug_mode"`
	PrettyLogs bool   `key:"prettyLogs" json:"pretty_logs"`

	Database DatabaseConfig `key:"database" json:"database"`
	Catalog  CatalogConfig  `key:"catalog" json:"catalog"`
	Queue    QueueConfig    `key:"queue" json:"queue"`
	Admin    AdminConfig    `key:"admin" json:"admin"`
}

// IsLocalMode returns true if running in local mode (no Redis/Postgres)
func (c *AppConfig) IsLocalMode() bool {
	return c.Mode == ModeLocal
}

// ----------------------------------------------------------------------------
// Database Configuration
// ----------------------------------------------------------------------------

type DatabaseConfig struct {
	Redis    RedisConfig    `key:"redis" json:"redis"`
	Postgres PostgresConfig `key:"postgres" json:"postgres"`
}

type RedisMode string

const (
	RedisModeSingle  RedisMode = "single"
	RedisModeCluster RedisMode = "cluster"
)

type RedisConfig struct {
	Mode               RedisMode     `key:"mode" json:"mode"`
	Addrs              []string      `key:"addrs" json:"addrs"`
	Username           string        `key:"username" json:"username"`
	Password           string        `key:"password" json:"password"`
	ClientName         string        `key:"clientName" json:"client_name"`
	EnableTLS          bool          `key:"enableTLS" json:"enable_tls"`
	InsecureSkipVerify bool          `key:"insecureSkipVerify" json:"insecure_skip_verify"`
	PoolSize           int           `key:"poolSize" json:"pool_size"`
	MinIdleConns       int           `key:"minIdleConns" json:"min_idle_conns"`
	MaxIdleConns       int           `key:"maxIdleConns" json:"max_idle_conns"`
	ConnMaxIdleTime    time.Duration `key:"connMaxIdleTime" json:"conn_max_idle_time"`
	ConnMaxLifetime    time.Duration `key:"connMaxLifetime" json:"conn_max_lifetime"`
	DialTimeout        time.Duration `key:"dialTimeout" json:"dial_timeout"`
	ReadTimeout        time.Duration `key:"readTimeout" json:"read_timeout"`
	WriteTimeout       time.Duration `key:"writeTimeout" json:"write_timeout"`
	MaxRedirects       int           `key:"maxRedirects" json:"max_redirects"`
	MaxRetries         int           `key:"maxRetries" json:"max_retries"`
	RouteByLatency     bool          `key:"routeByLatency" json:"route_by_latency"`
}

type PostgresConfig struct {
	Host            string        `key:"host" json:"host"`
	Port            int           `key:"port" json:"port"`
	User            string        `key:"user" json:"user"`
	Password        string        `key:"password" json:"password"`
	Database        string        `key:"database" json:"database"`
	SSLMode         string        `key:"sslMode" json:"ssl_mode"`
	MaxOpenConns    int           `key:"maxOpenConns" json:"max_open_conns"`
	MaxIdleConns    int           `key:"maxIdleConns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `key:"connMaxLifetime" json:"conn_max_lifetime"`
}

// ----------------------------------------------------------------------------
// Catalog Configuration
// ----------------------------------------------------------------------------

type CatalogConfig struct {
	// Path is the SQLite database holding every catalog. ":memory:" for tests.
	Path string `key:"path" json:"path"`
	// Canonical is the catalog rebuilt by the rebuild operation.
	Canonical string `key:"canonical" json:"canonical"`
	// Library enables the content-library catalog.
	Library bool `key:"library" json:"library"`
}

// ----------------------------------------------------------------------------
// Queue Configuration
// ----------------------------------------------------------------------------

type QueueConfig struct {
	Name     string        `key:"name" json:"name"`
	Batch    int           `key:"batch" json:"batch"`
	Interval time.Duration `key:"interval" json:"interval"`
	LockTTL  time.Duration `key:"lockTTL" json:"lock_ttl"`
	// Process runs the drain loop inside the admin server
	Process bool `key:"process" json:"process"`
}

// ----------------------------------------------------------------------------
// Admin Configuration
// ----------------------------------------------------------------------------

type AdminConfig struct {
	Host            string        `key:"host" json:"host"`
	Port            int           `key:"port" json:"port"`
	AuthToken       string        `key:"authToken" json:"auth_token"`
	EnablePrettyLog bool          `key:"enablePrettyLog" json:"enable_pretty_log"`
	ShutdownTimeout time.Duration `key:"shutdownTimeout" json:"shutdown_timeout"`
}
