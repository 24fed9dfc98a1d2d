// Package app assembles storage, messaging and services from configuration for the binaries in cmd/.
package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/vetclinic-api/internal/config"
	"github.com/jwalitptl/vetclinic-api/internal/email"
	"github.com/jwalitptl/vetclinic-api/internal/handler/health"
	"github.com/jwalitptl/vetclinic-api/internal/repository"
	"github.com/jwalitptl/vetclinic-api/internal/repository/memory"
	"github.com/jwalitptl/vetclinic-api/internal/repository/postgres"
	discountService "github.com/jwalitptl/vetclinic-api/internal/service/discount"
	notificationService "github.com/jwalitptl/vetclinic-api/internal/service/notification"
	shiftService "github.com/jwalitptl/vetclinic-api/internal/service/shift"
	transferService "github.com/jwalitptl/vetclinic-api/internal/service/transfer"
	"github.com/jwalitptl/vetclinic-api/internal/worker"
	"github.com/jwalitptl/vetclinic-api/pkg/lock"
	"github.com/jwalitptl/vetclinic-api/pkg/messaging"
	"github.com/jwalitptl/vetclinic-api/pkg/messaging/rabbitmq"
	"github.com/jwalitptl/vetclinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/vetclinic-api/pkg/metrics"
)

type Repositories struct {
	Shifts    repository.ShiftRepository
	Transfers repository.TransferRepository
	Discounts repository.DiscountRepository
	Staff     repository.StaffRepository
}

type Services struct {
	Shifts        *shiftService.Service
	Transfers     *transferService.Service
	Discounts     *discountService.Service
	Notifications *notificationService.Service
}

// App owns every long-lived connection. Close releases them in reverse order of creation.
type App struct {
	Config    *config.Config
	Metrics   *metrics.Metrics
	Repos     Repositories
	Services  Services
	Broker    messaging.Broker
	Publisher messaging.Publisher
	Checks    map[string]health.Checker

	redis  *goredis.Client
	closer []func() error
}

// New connects storage and messaging as configured and builds the services on top.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*App, error) {
	a := &App{
		Config:    cfg,
		Metrics:   m,
		Publisher: messaging.NopPublisher{},
		Checks:    map[string]health.Checker{},
	}

	if err := a.openStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openMessaging(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.buildServices()
	return a, nil
}

func (a *App) openStorage(ctx context.Context) error {
	switch a.Config.Database.Driver {
	case "memory":
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		a.Repos = Repositories{
			Shifts:    memory.NewShiftRepository(store),
			Transfers: memory.NewTransferRepository(store),
			Discounts: memory.NewDiscountRepository(store),
			Staff:     memory.NewStaffRepository(store),
		}
		return nil
	case "postgres":
		db, err := postgres.NewDB(a.Config.Database)
		if err != nil {
			return err
		}
		a.closer = append(a.closer, db.Close)
		a.Checks["database"] = func(ctx context.Context) error { return db.PingContext(ctx) }

		base := postgres.NewBaseRepository(db)
		a.Repos = Repositories{
			Shifts:    postgres.NewShiftRepository(base),
			Transfers: postgres.NewTransferRepository(base),
			Discounts: postgres.NewDiscountRepository(base),
			Staff:     postgres.NewStaffRepository(base),
		}
		return nil
	default:
		return fmt.Errorf("unsupported database driver %q", a.Config.Database.Driver)
	}
}

// needsRedis is true when redis carries events or when several processes may share the sweep.
func (a *App) needsRedis() bool {
	return a.Config.Broker.Kind == "redis" || a.Config.Database.Driver == "postgres"
}

func (a *App) openMessaging(ctx context.Context) error {
	if a.needsRedis() {
		client, err := redis.NewClient(ctx, redis.Config{
			URL:          a.Config.Redis.URL,
			MaxRetries:   a.Config.Redis.MaxRetries,
			RetryBackoff: a.Config.Redis.RetryBackoff,
			PoolSize:     a.Config.Redis.PoolSize,
			MinIdleConns: a.Config.Redis.MinIdleConns,
		})
		if err != nil {
			return err
		}
		a.redis = client
		a.closer = append(a.closer, client.Close)
		a.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	switch a.Config.Broker.Kind {
	case "redis":
		a.Broker = redis.NewRedisBroker(a.redis, &log.Logger)
	case "rabbitmq":
		broker, err := rabbitmq.NewBroker(rabbitmq.Config{
			URL:            a.Config.Broker.RabbitMQURL,
			PublishTimeout: 5 * time.Second,
		}, &log.Logger)
		if err != nil {
			return err
		}
		a.Broker = broker
	case "inprocess":
		a.Broker = messaging.NewInProcessBroker()
	case "none":
		log.Info().Msg("event broker disabled")
		return nil
	default:
		return fmt.Errorf("unsupported broker kind %q", a.Config.Broker.Kind)
	}

	a.closer = append(a.closer, a.Broker.Close)
	a.Publisher = messaging.NewEventPublisher(a.Broker, a.Config.Broker.Channel)
	return nil
}

func (a *App) buildServices() {
	discountOpts := []discountService.Option{
		discountService.WithPublisher(a.Publisher),
		discountService.WithMetrics(a.Metrics),
	}
	if a.redis != nil {
		discountOpts = append(discountOpts, discountService.WithSweepLock(
			lock.NewRedisLocker(a.redis),
			a.Config.Sweep.LockKey,
			a.Config.Sweep.LockTTL,
		))
	}

	mailer := email.NewService(email.Config{
		Host:     a.Config.SMTP.Host,
		Port:     a.Config.SMTP.Port,
		Username: a.Config.SMTP.Username,
		Password: a.Config.SMTP.Password,
		From:     a.Config.SMTP.From,
	})

	a.Services = Services{
		Shifts: shiftService.NewService(a.Repos.Shifts, a.Metrics),
		Transfers: transferService.NewService(a.Repos.Shifts, a.Repos.Transfers,
			transferService.WithPublisher(a.Publisher),
			transferService.WithMetrics(a.Metrics),
		),
		Discounts:     discountService.NewService(a.Repos.Discounts, discountOpts...),
		Notifications: notificationService.NewService(a.Repos.Staff, mailer, a.Metrics),
	}
}

func (a *App) Close() {
	for i := len(a.closer) - 1; i >= 0; i-- {
		if err := a.closer[i](); err != nil {
			log.Warn().Err(err).Msg("failed to close resource")
		}
	}
	a.closer = nil
}

// RunWorkers runs the discount sweep and, when a broker is configured, the notification consumer.
// It returns when ctx is cancelled or a worker fails.
func (a *App) RunWorkers(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	sweeper := worker.NewDiscountSweepWorker(a.Services.Discounts, a.Config.Sweep.Interval)
	g.Go(func() error {
		sweeper.Start(ctx)
		return nil
	})

	if a.Broker != nil {
		notifier := worker.NewNotificationWorker(a.Broker, a.Services.Notifications.HandleMessage, worker.NotificationWorkerConfig{
			Channel: a.Config.Broker.Channel,
		})
		g.Go(func() error { return notifier.Start(ctx) })
	} else {
		log.Info().Msg("no broker configured, notifications disabled")
	}

	return g.Wait()
}
