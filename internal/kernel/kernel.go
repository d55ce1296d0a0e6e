// Package kernel builds the application object graph from config and runs
// its long-lived parts: the Telegram bot, the notification workers, the ops
// HTTP and gRPC servers, the live feed hub and the scheduler.
//
//	k, err := kernel.Boot(ctx)
//	defer k.Close(context.Background())
//	err = k.Run(ctx)
package kernel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/beanleaf/app/backup"
	"github.com/shashiranjanraj/beanleaf/app/bot"
	"github.com/shashiranjanraj/beanleaf/app/cart"
	appgraphql "github.com/shashiranjanraj/beanleaf/app/graphql"
	"github.com/shashiranjanraj/beanleaf/app/repositories"
	"github.com/shashiranjanraj/beanleaf/app/routes"
	"github.com/shashiranjanraj/beanleaf/app/services"
	"github.com/shashiranjanraj/beanleaf/config"
	"github.com/shashiranjanraj/beanleaf/internal/server"
	"github.com/shashiranjanraj/beanleaf/pkg/cache"
	"github.com/shashiranjanraj/beanleaf/pkg/database"
	"github.com/shashiranjanraj/beanleaf/pkg/event"
	"github.com/shashiranjanraj/beanleaf/pkg/eventstream"
	pkggrpc "github.com/shashiranjanraj/beanleaf/pkg/grpc"
	"github.com/shashiranjanraj/beanleaf/pkg/lock"
	"github.com/shashiranjanraj/beanleaf/pkg/logger"
	"github.com/shashiranjanraj/beanleaf/pkg/notification"
	"github.com/shashiranjanraj/beanleaf/pkg/queue"
	"github.com/shashiranjanraj/beanleaf/pkg/recordstore"
	"github.com/shashiranjanraj/beanleaf/pkg/schedule"
	"github.com/shashiranjanraj/beanleaf/pkg/sse"
	"github.com/shashiranjanraj/beanleaf/pkg/storage"
	"github.com/shashiranjanraj/beanleaf/pkg/tabular"
	"github.com/shashiranjanraj/beanleaf/pkg/ws"
)

// Kernel owns every long-lived dependency. Build it with Boot and release
// it with Close.
type Kernel struct {
	Store    *recordstore.Store
	Repos    *repositories.Set
	Locker   lock.Locker
	Carts    *cart.Store
	Users    *services.UserService
	Catalog  *services.CatalogService
	Orders   *services.OrderService
	Checkout *services.CheckoutService
	Queue    *queue.Manager
	Events   *event.Bus
	Hub      *ws.Hub
	Stream   *sse.Broker

	// Deliver sends a notification immediately, bypassing the queue.
	Deliver notification.Sink

	log     *slog.Logger
	db      *gorm.DB
	rdb     *redis.Client
	tg      *tgbotapi.BotAPI
	kafka   *eventstream.KafkaPublisher
	opts    options
	closers []func(ctx context.Context) error
}

type options struct {
	backend tabular.Backend
	inline  bool
	noBot   bool
}

type Option func(*options)

// WithBackend replaces the configured STORE_DRIVER backend.
func WithBackend(b tabular.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithInlineNotifications delivers notifications synchronously instead of
// through the queue. One-shot CLI commands use it since no worker would
// drain the queue after they exit.
func WithInlineNotifications() Option {
	return func(o *options) { o.inline = true }
}

// WithoutBot skips dialing Telegram even when BOT_TOKEN is set.
func WithoutBot() Option {
	return func(o *options) { o.noBot = true }
}

// Boot connects every configured backend and wires the services. On error
// whatever was already opened is closed.
func Boot(ctx context.Context, opts ...Option) (k *Kernel, err error) {
	if err := config.Load(); err != nil {
		return nil, err
	}

	k = &Kernel{log: logger.L}
	for _, o := range opts {
		o(&k.opts)
	}
	defer func() {
		if err != nil {
			k.Close(context.Background()) //nolint:errcheck
			k = nil
		}
	}()

	if err := k.connectRedis(ctx); err != nil {
		return k, err
	}

	backend, err := k.backend(ctx)
	if err != nil {
		return k, err
	}

	k.Locker = lock.NewMemoryLocker()
	if config.LockDriver() == "redis" {
		k.Locker = lock.NewRedisLocker(k.rdb, "beanleaf:lock:", 30*time.Second)
	}

	k.Store = recordstore.New(backend, k.Locker, k.log)
	k.closers = append(k.closers, k.Store.Close)

	k.Repos = repositories.New(k.Store, cache.New(k.rdb, "beanleaf:cache:", config.CacheTTL()))
	if err := k.Repos.Init(ctx); err != nil {
		return k, fmt.Errorf("kernel: init collections: %w", err)
	}

	if err := k.notifications(); err != nil {
		return k, err
	}
	if err := k.events(); err != nil {
		return k, err
	}

	sink := k.Deliver
	if !k.opts.inline {
		sink = notification.NewQueuedSink(k.Queue)
	}

	k.Carts = cart.NewStore()
	k.Users = services.NewUserService(k.Repos.Users, k.Locker, config.AdminUserID())
	k.Catalog = services.NewCatalogService(k.Repos.Products, k.Locker)
	k.Orders = services.NewOrderService(k.Repos, k.Locker, sink,
		services.WithRestockOnDecline(config.RestockOnDecline()),
		services.WithEventBus(k.Events),
	)
	k.Checkout = services.NewCheckoutService(k.Users, k.Orders, k.Carts, k.Locker)

	k.log.Info("kernel: booted",
		"store", config.StoreDriver(),
		"locks", config.LockDriver(),
		"queue", config.QueueDriver(),
		"bot", k.tg != nil,
	)
	return k, nil
}

func (k *Kernel) connectRedis(ctx context.Context) error {
	if config.LockDriver() != "redis" && config.QueueDriver() != "redis" {
		return nil
	}
	rdb, err := cache.Connect(ctx, config.RedisAddr(), config.RedisPassword())
	if err != nil {
		return fmt.Errorf("kernel: redis: %w", err)
	}
	k.rdb = rdb
	k.closers = append(k.closers, func(context.Context) error { return rdb.Close() })
	return nil
}

// backend opens the STORE_DRIVER backend. Remote backends are wrapped with
// retries and a circuit breaker.
func (k *Kernel) backend(ctx context.Context) (tabular.Backend, error) {
	if k.opts.backend != nil {
		return k.opts.backend, nil
	}

	var (
		b   tabular.Backend
		err error
	)
	switch config.StoreDriver() {
	case "memory":
		return tabular.NewMemoryBackend(), nil
	case "sql":
		k.db, err = database.Open(ctx, config.DatabaseDriver(), config.DatabaseDSN())
		if err != nil {
			return nil, err
		}
		k.closers = append(k.closers, func(context.Context) error { return database.Close(k.db) })
		b, err = tabular.NewSQLBackend(k.db)
	case "mongo":
		b, err = tabular.NewMongoBackend(ctx, config.MongoURI(), config.MongoDatabase())
	default:
		b, err = tabular.NewSheetsBackend(ctx, config.GoogleSheetID(), config.GoogleCredentialsFile())
	}
	if err != nil {
		return nil, fmt.Errorf("kernel: open %s backend: %w", config.StoreDriver(), err)
	}

	policy := tabular.DefaultRetryPolicy()
	policy.Attempts = config.BackendRetries()
	return tabular.WithRetry(b, policy), nil
}

// notifications builds the delivery chain and the queue that feeds it.
func (k *Kernel) notifications() error {
	var primary notification.Sink = notification.LogSink{Log: k.log}
	if token := config.BotToken(); token != "" && !k.opts.noBot {
		api, err := tgbotapi.NewBotAPI(token)
		if err != nil {
			return fmt.Errorf("kernel: telegram: %w", err)
		}
		k.tg = api
		primary = notification.NewTelegramSink(api)
	}

	sinks := []notification.Sink{primary}
	if url := config.NotifyWebhookURL(); url != "" {
		sinks = append(sinks, notification.NewWebhookSink(url))
	}
	k.Deliver = notification.Multi(sinks...)

	var driver queue.Driver = queue.NewMemoryDriver()
	if config.QueueDriver() == "redis" {
		driver = queue.NewRedisDriver(k.rdb)
	}
	qopts := []queue.Option{queue.WithMaxRetry(3), queue.WithBackoff(2 * time.Second)}
	if k.db != nil {
		failed, err := queue.NewGormFailedStore(k.db)
		if err != nil {
			return err
		}
		qopts = append(qopts, queue.WithFailedStore(failed))
	}
	k.Queue = queue.New(driver, qopts...)
	notification.RegisterJob(k.Queue, k.Deliver)
	return nil
}

// events subscribes the live feeds and, when brokers are configured, the
// Kafka publisher to order transitions.
func (k *Kernel) events() error {
	k.Events = event.NewBus()
	k.Hub = ws.NewHub()
	k.Stream = sse.NewBroker()
	k.Events.Listen(func(e event.OrderEvent) { k.Hub.Publish(e) })
	k.Events.Listen(k.Stream.Publish)

	if brokers := config.KafkaBrokers(); len(brokers) > 0 {
		pub, err := eventstream.NewKafkaPublisher(brokers, config.KafkaTopic())
		if err != nil {
			return fmt.Errorf("kernel: kafka: %w", err)
		}
		k.kafka = pub
		k.Events.Listen(pub.Listener())
		k.closers = append(k.closers, func(context.Context) error { return pub.Close() })
	}
	return nil
}

// Handler returns the ops HTTP API.
func (k *Kernel) Handler() (http.Handler, error) {
	schema, err := appgraphql.NewSchema(k.Catalog, k.Orders)
	if err != nil {
		return nil, err
	}
	return routes.API(routes.Deps{
		Catalog:    k.Catalog,
		Orders:     k.Orders,
		Health:     k.Store.Ping,
		APIKeyHash: config.AdminAPIKeyHash(),
		Hub:        k.Hub,
		Stream:     k.Stream,
		Schema:     &schema,
	}), nil
}

// Scheduler returns the periodic tasks: the admin sales digest when both
// DIGEST_INTERVAL and ADMIN_USER_ID are set.
func (k *Kernel) Scheduler() (*schedule.Scheduler, error) {
	s := schedule.New(schedule.WithLogger(k.log))
	every, admin := config.DigestInterval(), config.AdminUserID()
	if every > 0 && admin != 0 {
		err := s.Interval(every).Name("sales-digest").WithoutOverlapping().
			Run(bot.SalesDigest(k.Orders, k.Deliver, admin))
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Run serves until ctx is cancelled or one component fails.
func (k *Kernel) Run(ctx context.Context) error {
	handler, err := k.Handler()
	if err != nil {
		return err
	}
	sched, err := k.Scheduler()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		k.Hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		k.Queue.StartWorkers(ctx, config.NotifyWorkers())
		<-ctx.Done()
		k.Queue.Wait()
		return nil
	})
	g.Go(func() error {
		sched.Start(ctx)
		return nil
	})
	g.Go(func() error {
		return server.New(":"+config.AppPort(), handler).Run(ctx)
	})
	g.Go(func() error {
		return pkggrpc.Serve(ctx, pkggrpc.NewServer(k.Store.Ping), config.GRPCPort())
	})
	if k.tg != nil {
		b := bot.New(k.tg, bot.Deps{
			Users:    k.Users,
			Catalog:  k.Catalog,
			Orders:   k.Orders,
			Checkout: k.Checkout,
			Carts:    k.Carts,
		}, bot.WithLogger(k.log))
		g.Go(func() error { return b.Run(ctx) })
	} else {
		k.log.Warn("kernel: BOT_TOKEN not set, Telegram bot disabled")
	}

	err = g.Wait()
	k.Events.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Backup exports every collection onto the default storage disk.
func (k *Kernel) Backup(ctx context.Context) (backup.Result, error) {
	disks, err := storage.FromConfig(ctx)
	if err != nil {
		return backup.Result{}, err
	}
	return backup.New(k.Store, disks.Default()).Run(ctx)
}

// Close releases everything Boot opened, in reverse order.
func (k *Kernel) Close(ctx context.Context) error {
	if k.Events != nil {
		k.Events.Wait()
	}
	var errs []error
	for i := len(k.closers) - 1; i >= 0; i-- {
		errs = append(errs, k.closers[i](ctx))
	}
	k.closers = nil
	return errors.Join(errs...)
}
