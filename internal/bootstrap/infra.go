package bootstrap

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/commission-engine/pkg/config"
	"github.com/angelmondragon/commission-engine/pkg/db"
	"github.com/angelmondragon/commission-engine/pkg/instance"
	"github.com/angelmondragon/commission-engine/pkg/logger"
	"github.com/angelmondragon/commission-engine/pkg/migrate"
	"github.com/angelmondragon/commission-engine/pkg/redis"
)

// Infra is the connection set every binary starts from.
type Infra struct {
	Service  string
	Instance string
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Redis    *redis.Client

	closers []func() error
}

// Open loads .env and config, builds the service logger, connects the
// database (running dev migrations when enabled) and connects Redis. On
// failure everything opened so far is closed again.
func Open(ctx context.Context, service string) (infra *Infra, err error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = service

	infra = &Infra{
		Service:  service,
		Instance: instance.ID(service),
		Config:   cfg,
		Logger: logger.New(logger.Options{
			ServiceName: service,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			Format:      cfg.App.LogFormat,
			WarnStack:   cfg.App.LogWarnStack,
		}),
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, infra.Close())
			infra = nil
		}
	}()

	if infra.DB, err = db.New(ctx, cfg.DB, infra.Logger); err != nil {
		return infra, fmt.Errorf("connect database: %w", err)
	}
	infra.closers = append(infra.closers, infra.DB.Close)

	if err = migrate.MaybeRunDev(ctx, cfg, infra.Logger, infra.DB); err != nil {
		return infra, fmt.Errorf("dev migrations: %w", err)
	}

	if infra.Redis, err = redis.New(ctx, cfg.Redis, infra.Logger); err != nil {
		return infra, fmt.Errorf("connect redis: %w", err)
	}
	infra.closers = append(infra.closers, infra.Redis.Close)
	return infra, nil
}

// OnClose registers fn to run, in reverse order, during Close.
func (i *Infra) OnClose(fn func() error) {
	i.closers = append(i.closers, fn)
}

// Close releases everything Open and OnClose registered, newest first.
func (i *Infra) Close() error {
	var err error
	for n := len(i.closers) - 1; n >= 0; n-- {
		err = multierr.Append(err, i.closers[n]())
	}
	i.closers = nil
	return err
}

// LogContext tags ctx with the fields every log line of the binary carries.
func (i *Infra) LogContext(ctx context.Context) context.Context {
	return i.Logger.WithFields(ctx, map[string]any{
		"instance":    i.Instance,
		"env":         i.Config.App.Env,
		"serviceKind": i.Service,
	})
}
