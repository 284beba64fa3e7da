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
	CORS          CORSConfig
	Inventory     InventoryConfig
	Notifications NotificationsConfig
	Donations     DonationsConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Inventory.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BLOODLINK_APP_ENV" required:"true"`
	Port         string `envconfig:"BLOODLINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BLOODLINK_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"BLOODLINK_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"BLOODLINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BLOODLINK_DB_DSN"`
	Driver string `envconfig:"BLOODLINK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"BLOODLINK_DB_HOST"`
	Port     int    `envconfig:"BLOODLINK_DB_PORT" default:"5432"`
	User     string `envconfig:"BLOODLINK_DB_USER"`
	Password string `envconfig:"BLOODLINK_DB_PASSWORD"`
	Name     string `envconfig:"BLOODLINK_DB_NAME"`
	SSLMode  string `envconfig:"BLOODLINK_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"BLOODLINK_SQLITE_PATH" default:"bloodlink.db"`

	MaxOpenConns    int           `envconfig:"BLOODLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BLOODLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BLOODLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BLOODLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BLOODLINK_REDIS_URL"`
	Address      string        `envconfig:"BLOODLINK_REDIS_ADDR"`
	Password     string        `envconfig:"BLOODLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"BLOODLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BLOODLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BLOODLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BLOODLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BLOODLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BLOODLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"BLOODLINK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"BLOODLINK_JWT_ISSUER" default:"bloodlink"`
	ExpirationMinutes      int    `envconfig:"BLOODLINK_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"BLOODLINK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	MinLength        int           `envconfig:"BLOODLINK_PASSWORD_MIN_LENGTH" default:"6"`
	ArgonMemoryKB    int           `envconfig:"BLOODLINK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int           `envconfig:"BLOODLINK_ARGON_TIME" default:"3"`
	ArgonParallelism int           `envconfig:"BLOODLINK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int           `envconfig:"BLOODLINK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int           `envconfig:"BLOODLINK_ARGON_KEY_LEN" default:"32"`
	ResetTokenTTL    time.Duration `envconfig:"BLOODLINK_PASSWORD_RESET_TTL" default:"30m"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"BLOODLINK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"BLOODLINK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"BLOODLINK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"BLOODLINK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"BLOODLINK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"BLOODLINK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	ForgotWindow       time.Duration `envconfig:"BLOODLINK_AUTH_RATE_LIMIT_FORGOT_WINDOW" default:"15m"`
	ForgotEmailLimit   int           `envconfig:"BLOODLINK_AUTH_RATE_LIMIT_FORGOT_EMAIL_LIMIT" default:"3"`
	ForgotIPLimit      int           `envconfig:"BLOODLINK_AUTH_RATE_LIMIT_FORGOT_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BLOODLINK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BLOODLINK_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"BLOODLINK_CORS_ALLOWED_ORIGINS" default:"http://localhost:8081,http://localhost:19006"`
}

// InventoryConfig holds the stock level thresholds. A count at or below
// CriticalMax is critical, at or below LowMax is low, anything above is safe.
type InventoryConfig struct {
	CriticalMax int `envconfig:"BLOODLINK_INVENTORY_CRITICAL_MAX" default:"2"`
	LowMax      int `envconfig:"BLOODLINK_INVENTORY_LOW_MAX" default:"5"`
}

func (i InventoryConfig) validate() error {
	if i.CriticalMax < 0 {
		return fmt.Errorf("%s must not be negative", EnvInventoryCriticalMax)
	}
	if i.LowMax < i.CriticalMax {
		return fmt.Errorf("%s must be >= %s", EnvInventoryLowMax, EnvInventoryCriticalMax)
	}
	return nil
}

type NotificationsConfig struct {
	QueueSize     int `envconfig:"BLOODLINK_NOTIFICATIONS_QUEUE_SIZE" default:"1024"`
	Workers       int `envconfig:"BLOODLINK_NOTIFICATIONS_WORKERS" default:"2"`
	RetentionDays int `envconfig:"BLOODLINK_NOTIFICATIONS_RETENTION_DAYS" default:"30"`
}

type DonationsConfig struct {
	DeferralDays int `envconfig:"BLOODLINK_DONATION_DEFERRAL_DAYS" default:"56"`
}

// DeferralPeriod returns the minimum gap between two donations.
func (d DonationsConfig) DeferralPeriod() time.Duration {
	return time.Duration(d.DeferralDays) * 24 * time.Hour
}

type CronConfig struct {
	Interval time.Duration `envconfig:"BLOODLINK_CRON_INTERVAL" default:"1h"`
	LockName string        `envconfig:"BLOODLINK_CRON_LOCK_NAME" default:"cron"`
	LockTTL  time.Duration `envconfig:"BLOODLINK_CRON_LOCK_TTL" default:"55m"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite || db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
