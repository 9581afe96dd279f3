// Package app boots the shop: it loads config, opens every backing service
// and wires listeners, jobs and the HTTP API on top of them. The CLI
// commands in cmd/shop all start from Boot or BootDB.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shashiranjanraj/kashvi-shop/app/graphql"
	"github.com/shashiranjanraj/kashvi-shop/app/jobs"
	"github.com/shashiranjanraj/kashvi-shop/app/listeners"
	"github.com/shashiranjanraj/kashvi-shop/app/routes"
	"github.com/shashiranjanraj/kashvi-shop/app/services"
	"github.com/shashiranjanraj/kashvi-shop/config"
	"github.com/shashiranjanraj/kashvi-shop/pkg/cache"
	"github.com/shashiranjanraj/kashvi-shop/pkg/database"
	"github.com/shashiranjanraj/kashvi-shop/pkg/event"
	gql "github.com/shashiranjanraj/kashvi-shop/pkg/graphql"
	shophttp "github.com/shashiranjanraj/kashvi-shop/pkg/http"
	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
	"github.com/shashiranjanraj/kashvi-shop/pkg/mail"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
	"github.com/shashiranjanraj/kashvi-shop/pkg/queue"
	"github.com/shashiranjanraj/kashvi-shop/pkg/sse"
	"github.com/shashiranjanraj/kashvi-shop/pkg/storage"
	"github.com/shashiranjanraj/kashvi-shop/pkg/workerpool"
	"github.com/shashiranjanraj/kashvi-shop/pkg/ws"
	"gorm.io/gorm"
)

// App holds the process-wide services. Build it with Boot and release it
// with Close.
type App struct {
	DB      *gorm.DB
	Query   *orm.Query
	Cache   *cache.Store
	Redis   *redis.Client
	Pool    *workerpool.Pool
	Events  *event.Dispatcher
	Queue   *queue.Manager
	Hub     *ws.Hub
	Feed    *sse.Broker
	Storage *storage.Manager
	Mailer  mail.Sender
	GraphQL http.Handler

	// RedisQueue is set when QUEUE_DRIVER=redis; the worker runs its
	// delayed-job promoter.
	RedisQueue *queue.RedisDriver

	closers []func()
}

// BootDB loads config and connects to the database only. Migration and
// seed commands need nothing else.
func BootDB() (*gorm.DB, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.Connect(); err != nil {
		return nil, err
	}
	return database.DB, nil
}

// FromDB is an App with only the database wired, for commands that need
// the services but none of the background machinery.
func FromDB(db *gorm.DB) *App {
	return &App{DB: db, Query: orm.New(db)}
}

// Boot connects everything. Redis and MongoDB are optional: when they are
// unreachable the cache always misses, the queue stays in memory and logs
// go to stdout only.
func Boot(ctx context.Context) (*App, error) {
	db, err := BootDB()
	if err != nil {
		return nil, err
	}
	a := FromDB(db)

	if uri := config.LogMongoURI(); uri != "" {
		mh, err := logger.AttachMongo(uri, logger.MongoOptions{
			DB:         config.Get("LOG_MONGO_DB", "shop"),
			Collection: config.Get("LOG_MONGO_COLLECTION", "logs"),
			Level:      logger.ParseLevel(config.LogMongoLevel()),
			Retention:  config.LogMongoRetention(),
		})
		if err != nil {
			logger.Warn("app: mongo log sink disabled", "error", err)
		} else {
			a.onClose(mh.Close)
		}
	}

	store, rdb, err := cache.Connect(ctx)
	if err != nil {
		logger.Warn("app: redis unavailable, cache disabled", "error", err)
	}
	a.Cache, a.Redis = store, rdb
	orm.CacheStore = store
	if rdb != nil {
		a.onClose(func() { _ = rdb.Close() })
	}

	a.Pool = workerpool.New(config.EventWorkers(), workerpool.WithName("events"))
	a.onClose(a.Pool.Shutdown)
	a.Events = event.New(a.Pool)
	event.SetDefault(a.Events)

	mem := queue.NewMemoryDriver()
	a.onClose(mem.Stop)
	a.Queue = queue.NewManager(mem)
	if config.QueueDriver() == "redis" {
		if rdb == nil {
			logger.Warn("app: QUEUE_DRIVER=redis but redis is down, using the memory queue")
		} else {
			a.RedisQueue = queue.NewRedisDriver(rdb)
			a.Queue.SetDriver(a.RedisQueue)
		}
	}
	a.Queue.UseFailedStore(queue.NewDBFailedStore(db))
	a.Mailer = mail.FromConfig()
	jobs.Register(a.Queue, a.Query, a.Mailer)

	a.Hub = ws.NewHub()
	a.Storage = storage.FromConfig(ctx)

	catalog := services.NewCatalogService(a.Query, a.Cache)
	a.Feed = sse.NewBroker()
	listeners.Register(a.Events, catalog, a.Queue, a.Hub, a.Feed)
	if url := config.OrderWebhookURL(); url != "" {
		jobs.RegisterWebhook(a.Queue, jobs.Webhook{
			URL:    url,
			Token:  config.OrderWebhookToken(),
			Client: shophttp.NewClient(shophttp.WithRetry(3, time.Second)),
		})
		listeners.RegisterWebhook(a.Events, a.Queue)
	}

	schema, err := graphql.NewSchema(catalog)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("graphql schema: %w", err)
	}
	a.GraphQL = gql.Handler(schema)

	return a, nil
}

// Deps is what the HTTP API is built from.
func (a *App) Deps() routes.Deps {
	return routes.Deps{
		DB:      a.Query,
		Cache:   a.Cache,
		Events:  a.Events,
		Hub:     a.Hub,
		Feed:    a.Feed,
		GraphQL: a.GraphQL,
	}
}

// Exporter writes order workbooks to the named disk ("" for the default).
func (a *App) Exporter(disk string) (*services.OrderExporter, error) {
	var (
		d   storage.Disk
		err error
	)
	if disk == "" {
		d, err = a.Storage.Default()
	} else {
		d, err = a.Storage.Disk(disk)
	}
	if err != nil {
		return nil, err
	}
	return services.NewOrderExporter(a.Query, d), nil
}

func (a *App) onClose(fn func()) { a.closers = append(a.closers, fn) }

// Close releases everything Boot opened, newest first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
