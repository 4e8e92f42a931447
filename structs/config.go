package structs

import "time"

type Config struct {
	Server    *ServerConfig
	Cors      *CorsConfig
	Database  *DatabaseConfig
	Cache     *CacheConfig
	Bus       *BusConfig
	Ordering  *OrderingConfig
	Realtime  *RealtimeConfig
	Urgency   *UrgencyConfig
	Manager   *ManagerConfig
	RateLimit *RateLimitConfig
}

type ServerConfig struct {
	AppName        string        // Tableside
	Environment    string        // development, production
	Port           string        // :8082
	ReadTimeout    time.Duration // in seconds
	WriteTimeout   time.Duration // in seconds
	IdleTimeout    time.Duration // in seconds
	MaxHeaderBytes int           // in bytes
}

type CorsConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSL          bool
	AutoMigrate  bool
	MaxConns     int
	MinConns     int
	MaxLifetime  time.Duration
	MaxIdleTime  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type CacheConfig struct {
	Address         string
	Username        string
	Password        string
	DB              int
	PoolSize        int
	MinIdleConns    int
	MaxIdleConns    int
	PoolTimeout     time.Duration
	IdleTimeout     time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
	ClientStateTTL  time.Duration // how long client-local state survives without activity
}

// BusConfig selects the change notification backend.
type BusConfig struct {
	Driver       string // memory, redis, rabbitmq, postgres
	AMQPURL      string
	AMQPExchange string // prefix, the table name is appended
	RedisPrefix  string
	PgChannel    string // prefix, the table name is appended
	BufferSize   int    // per-subscription event buffer
}

type OrderingConfig struct {
	SubmissionCooldown    time.Duration // customer devices
	POSCooldown           time.Duration // staff terminals, zero disables
	TableNumberMaxLength  int
	TablePlaceholder      string
	HistorySize           int
	DefaultServiceType    string
	DefaultRestaurantID   string
	ClientCookieName      string
	ClientCookieExpiry    time.Duration
	StoreStatementTimeout time.Duration
}

type RealtimeConfig struct {
	KitchenPollInterval time.Duration
	AdminPollInterval   time.Duration
	POSPollInterval     time.Duration
	TickInterval        time.Duration
	Debounce            time.Duration
	FetchTimeout        time.Duration
	AdminViewLimit      int
	StreamKeepAlive     time.Duration
}

type UrgencyConfig struct {
	WarningAfter time.Duration
	LateAfter    time.Duration
}

type ManagerConfig struct {
	PinHash           string // argon2id encoded hash, empty disables the PIN check
	OverrideSecret    string
	OverrideTokenTTL  time.Duration
	OverrideTokenIssr string
}

type RateLimitConfig struct {
	Enabled       bool
	GeneralLimit  int
	GeneralWindow time.Duration
	WriteLimit    int
	WriteWindow   time.Duration
}
