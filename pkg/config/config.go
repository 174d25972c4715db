package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Assignment    AssignmentConfig
	Cron          CronConfig
	Patron        PatronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MERCERIE_APP_ENV" required:"true"`
	Port         string `envconfig:"MERCERIE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MERCERIE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MERCERIE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MERCERIE_DB_DSN"`
	Driver string `envconfig:"MERCERIE_DB_DRIVER" default:"sqlite"`

	LegacyHost     string `envconfig:"MERCERIE_DB_HOST"`
	LegacyPort     int    `envconfig:"MERCERIE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MERCERIE_DB_USER"`
	LegacyPassword string `envconfig:"MERCERIE_DB_PASSWORD"`
	LegacyName     string `envconfig:"MERCERIE_DB_NAME"`
	LegacySSLMode  string `envconfig:"MERCERIE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MERCERIE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MERCERIE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MERCERIE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MERCERIE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the store runs on the embedded SQLite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

// RedisConfig is optional: an empty URL and address keep locks and rate
// limits in-process.
type RedisConfig struct {
	URL          string        `envconfig:"MERCERIE_REDIS_URL"`
	Address      string        `envconfig:"MERCERIE_REDIS_ADDR"`
	Password     string        `envconfig:"MERCERIE_REDIS_PASSWORD"`
	DB           int           `envconfig:"MERCERIE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MERCERIE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MERCERIE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MERCERIE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MERCERIE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MERCERIE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"MERCERIE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MERCERIE_JWT_ISSUER" default:"mercerie"`
	ExpirationMinutes int    `envconfig:"MERCERIE_JWT_EXPIRATION_MINUTES" default:"480"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MERCERIE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MERCERIE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MERCERIE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MERCERIE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MERCERIE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow           time.Duration `envconfig:"MERCERIE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit    int           `envconfig:"MERCERIE_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit          int           `envconfig:"MERCERIE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow        time.Duration `envconfig:"MERCERIE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterUsernameLimit int           `envconfig:"MERCERIE_AUTH_RATE_LIMIT_REGISTER_USERNAME_LIMIT" default:"3"`
	RegisterIPLimit       int           `envconfig:"MERCERIE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MERCERIE_AUTO_MIGRATE" default:"false"`
}

// AssignmentConfig bounds the locks that serialize employee assignment and
// stock writes.
type AssignmentConfig struct {
	LockTTL  time.Duration `envconfig:"MERCERIE_ASSIGNMENT_LOCK_TTL" default:"10s"`
	LockWait time.Duration `envconfig:"MERCERIE_ASSIGNMENT_LOCK_WAIT" default:"5s"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"MERCERIE_CRON_INTERVAL" default:"5m"`
	LockTTL           time.Duration `envconfig:"MERCERIE_CRON_LOCK_TTL" default:"4m"`
	LowStockThreshold string        `envconfig:"MERCERIE_CRON_LOW_STOCK_THRESHOLD" default:"5"`
}

// PatronConfig seeds the shop owner account on API start when no patron
// exists yet. An empty username disables seeding.
type PatronConfig struct {
	Name     string `envconfig:"MERCERIE_PATRON_NAME" default:"Patron"`
	Email    string `envconfig:"MERCERIE_PATRON_EMAIL" default:"patron@mercerie.local"`
	Username string `envconfig:"MERCERIE_PATRON_USERNAME"`
	Password string `envconfig:"MERCERIE_PATRON_PASSWORD"`
}

func (p PatronConfig) Enabled() bool {
	return strings.TrimSpace(p.Username) != "" && p.Password != ""
}

func (db *DBConfig) ensureDSN() error {
	if db.IsSQLite() {
		if db.DSN == "" {
			db.DSN = DefaultSQLiteDSN
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
