package config

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Commission   CommissionConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Cron         CronConfig
}

// Load reads the environment and reports every invalid setting at once.
func Load() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("reading %s_* environment: %w", EnvPrefix, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs error
	if c.FeatureFlags.UseSQLite {
		c.DB.useSQLite()
	} else {
		errs = multierr.Append(errs, c.DB.resolveDSN())
	}
	if _, err := c.Commission.LevelRates(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := c.Commission.MinimumDepositAmount(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.Cron.ReconcileBatch <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvCronReconcileBatch))
	}
	return errs
}

type AppConfig struct {
	Env          string `envconfig:"COMMISSION_APP_ENV" required:"true"`
	Port         string `envconfig:"COMMISSION_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"COMMISSION_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"COMMISSION_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"COMMISSION_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"COMMISSION_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"COMMISSION_DB_DSN"`
	Driver string `envconfig:"COMMISSION_DB_DRIVER" default:"postgres"`

	// Host parts are only read when DSN is empty.
	Host     string `envconfig:"COMMISSION_DB_HOST"`
	Port     int    `envconfig:"COMMISSION_DB_PORT" default:"5432"`
	User     string `envconfig:"COMMISSION_DB_USER"`
	Password string `envconfig:"COMMISSION_DB_PASSWORD"`
	Name     string `envconfig:"COMMISSION_DB_NAME"`
	SSLMode  string `envconfig:"COMMISSION_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COMMISSION_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COMMISSION_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COMMISSION_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COMMISSION_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"COMMISSION_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COMMISSION_REDIS_URL"`
	Address      string        `envconfig:"COMMISSION_REDIS_ADDR"`
	Password     string        `envconfig:"COMMISSION_REDIS_PASSWORD"`
	DB           int           `envconfig:"COMMISSION_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COMMISSION_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COMMISSION_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COMMISSION_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COMMISSION_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COMMISSION_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CommissionConfig carries the engine tunables. Rates is the fallback rate
// table used when commission_rates is empty, formatted as "1:20,2:10,3:5".
type CommissionConfig struct {
	Rates              map[string]string `envconfig:"COMMISSION_RATES"`
	MinimumDeposit     string            `envconfig:"COMMISSION_MIN_DEPOSIT" default:"0"`
	RateReloadInterval time.Duration     `envconfig:"COMMISSION_RATE_RELOAD_INTERVAL" default:"1m"`
	DistributeTimeout  time.Duration     `envconfig:"COMMISSION_DISTRIBUTE_TIMEOUT" default:"15s"`
}

// LevelRates parses the configured fallback rates keyed by level.
func (c CommissionConfig) LevelRates() (map[int]decimal.Decimal, error) {
	out := make(map[int]decimal.Decimal, len(c.Rates))
	keys := make([]string, 0, len(c.Rates))
	for k := range c.Rates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		level, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("%s: invalid level %q", EnvCommissionRates, k)
		}
		pct, err := decimal.NewFromString(strings.TrimSpace(c.Rates[k]))
		if err != nil {
			return nil, fmt.Errorf("%s: invalid percentage for level %d: %w", EnvCommissionRates, level, err)
		}
		out[level] = pct
	}
	return out, nil
}

// MinimumDepositAmount parses the minimum qualifying deposit, defaulting to zero.
func (c CommissionConfig) MinimumDepositAmount() (decimal.Decimal, error) {
	raw := strings.TrimSpace(c.MinimumDeposit)
	if raw == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", EnvCommissionMinDeposit, err)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", EnvCommissionMinDeposit)
	}
	return amount, nil
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"COMMISSION_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"COMMISSION_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"COMMISSION_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"COMMISSION_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DepositsSubscription string `envconfig:"COMMISSION_PUBSUB_DEPOSITS_SUBSCRIPTION"`
	MaxOutstanding       int    `envconfig:"COMMISSION_PUBSUB_MAX_OUTSTANDING" default:"32"`
	Goroutines           int    `envconfig:"COMMISSION_PUBSUB_GOROUTINES" default:"2"`
}

type CronConfig struct {
	Interval       time.Duration `envconfig:"COMMISSION_CRON_INTERVAL" default:"10m"`
	ReconcileBatch int           `envconfig:"COMMISSION_CRON_RECONCILE_BATCH" default:"100"`
	ReconcileGrace time.Duration `envconfig:"COMMISSION_CRON_RECONCILE_GRACE" default:"5m"`
}

const defaultSQLiteDSN = "file:commission.db?cache=shared"

func (db *DBConfig) useSQLite() {
	db.Driver = DriverSQLite
	if db.DSN == "" {
		db.DSN = defaultSQLiteDSN
	}
}

// resolveDSN assembles a postgres URL from the host parts when no DSN is set.
func (db *DBConfig) resolveDSN() error {
	if db.DSN != "" {
		return nil
	}
	var absent []string
	for env, value := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if value == "" {
			absent = append(absent, env)
		}
	}
	if len(absent) > 0 {
		sort.Strings(absent)
		return fmt.Errorf("set %s or all of %s", EnvDBDSN, strings.Join(absent, ", "))
	}

	dsn := url.URL{
		Scheme: DriverPostgres,
		User:   url.User(db.User),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   "/" + db.Name,
	}
	if db.Password != "" {
		dsn.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = dsn.String()
	return nil
}
