package app

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/aq2208/storefront-api/configs"
	"github.com/aq2208/storefront-api/internal/adapter/cache"
	"github.com/aq2208/storefront-api/internal/adapter/grpc"
	"github.com/aq2208/storefront-api/internal/adapter/http"
	"github.com/aq2208/storefront-api/internal/adapter/http/middleware"
	"github.com/aq2208/storefront-api/internal/adapter/kafka"
	"github.com/aq2208/storefront-api/internal/adapter/queue"
	"github.com/aq2208/storefront-api/internal/adapter/repo"
	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/tracing"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Router *gin.Engine
}

// InitWithConfig wires every adapter. Background workers stop when ctx is
// cancelled or cleanup runs, whichever comes first.
func InitWithConfig(ctx context.Context, cfg configs.Config) (*App, func(), error) {
	log := logging.New("bootstrap")
	ctx, cancel := context.WithCancel(ctx)

	var closers []func()
	cleanup := func() {
		cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*App, func(), error) {
		cleanup()
		return nil, nil, err
	}

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Init(ctx, tracing.Options{
			ServiceName: cfg.App.Name,
			Env:         cfg.App.Env,
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			return fail(fmt.Errorf("tracing: %w", err))
		}
		closers = append(closers, func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			if err := shutdown(sctx); err != nil {
				log.Warn("tracer shutdown", "error", err)
			}
		})
	}

	// init database
	db, err := openMySQL(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() { _ = db.Close() })

	if cfg.MySQL.Migrate {
		if err := repo.Migrate(cfg.MySQL.DSN, cfg.MySQL.MigrationsDir); err != nil {
			return fail(err)
		}
		log.Info("migrations applied", "dir", cfg.MySQL.MigrationsDir)
	}

	// init redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	closers = append(closers, func() { _ = rdb.Close() })
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fail(fmt.Errorf("redis ping: %w", err))
	}

	// infra
	orderRepo := repo.NewMySQLOrderRepo(db)
	statusCache := cache.NewRedisCache(rdb, cfg.Cache.StatusTTL)
	idem := cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
	authz := middleware.NewAuthz(cfg)

	// use cases
	createUC := usecase.NewCreateOrder(orderRepo, orderRepo, statusCache, idem)
	catalogUC := usecase.NewCatalog(
		repo.NewMySQLProductRepo(db),
		repo.NewMySQLCategoryRepo(db),
		cache.NewRedisProductCache(rdb, cfg.Cache.ProductTTL),
	)
	cartUC := usecase.NewCart(repo.NewMySQLCartRepo(db))
	authUC := usecase.NewAuth(repo.NewMySQLUserRepo(db), authz)

	if cfg.Rabbit.Enabled {
		closeRabbit, err := setupRabbit(ctx, cfg, repo.NewMySQLOutboxRepo(db), statusCache)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, closeRabbit)
	} else {
		log.Warn("rabbitmq disabled, outbox rows stay pending")
	}

	if cfg.Kafka.Enabled {
		closeKafka, err := setupKafkaListener(ctx, cfg, usecase.NewChangeOrderStatus(orderRepo, orderRepo, statusCache))
		if err != nil {
			return fail(err)
		}
		closers = append(closers, closeKafka)
	}

	if cfg.GRPC.HealthAddr != "" {
		closeHealth, err := setupHealth(ctx, cfg.GRPC.HealthAddr, db, rdb)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, closeHealth)
	}

	// init handlers + routers + middleware
	router := http.NewRouter(http.Handlers{
		Auth:    http.NewAuthHandler(authUC),
		Catalog: http.NewCatalogHandler(catalogUC),
		Cart:    http.NewCartHandler(cartUC),
		Order: http.NewOrderHandler(createUC,
			usecase.NewListOrders(orderRepo),
			usecase.NewGetOrder(orderRepo),
			cfg.HTTP.RequestTimeout),
	}, authz, logging.Base())

	log.Info("storefront-api: started up",
		"rabbitmq", cfg.Rabbit.Enabled,
		"kafka", cfg.Kafka.Enabled,
		"grpc_health", cfg.GRPC.HealthAddr,
		"tracing", cfg.Tracing.Enabled)
	return &App{Router: router}, cleanup, nil
}

func openMySQL(ctx context.Context, cfg configs.Config) (*sql.DB, error) {
	dsn, err := repo.NormalizeDSN(cfg.MySQL.DSN)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)

	pctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	return db, nil
}

// setupRabbit starts the outbox relay on a confirm-mode channel and the
// order.created consumer on a second channel.
func setupRabbit(ctx context.Context, cfg configs.Config, outbox usecase.OutboxRepo, statusCache usecase.OrderCache) (func(), error) {
	conn, err := amqp.Dial(cfg.Rabbit.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	closeConn := func() { _ = conn.Close() }

	pubCh, err := conn.Channel()
	if err != nil {
		closeConn()
		return nil, err
	}
	producer, err := queue.NewRabbitProducer(pubCh, queue.Topology{
		Exchange:   cfg.Rabbit.Exchange,
		Queue:      cfg.Rabbit.Queue,
		RoutingKey: cfg.Rabbit.RoutingKey,
	})
	if err != nil {
		closeConn()
		return nil, err
	}

	subCh, err := conn.Channel()
	if err != nil {
		closeConn()
		return nil, err
	}
	h := queue.NewOrderCreatedHandler(statusCache)
	router := queue.NewRouter(subCh, queue.WithPrefetch(cfg.Rabbit.Prefetch))
	router.Register(cfg.Rabbit.Queue, queue.JSONHandler[usecase.CreatedMsg]{HandleFunc: h.HandleCreated})
	if err := router.Start(ctx); err != nil {
		closeConn()
		return nil, err
	}

	relay := queue.NewOutboxRelay(outbox, producer, queue.RelayConfig{
		Interval:    cfg.Outbox.Interval,
		BatchSize:   cfg.Outbox.BatchSize,
		MaxBackoff:  cfg.Outbox.MaxBackoff,
		RoutingKeys: map[string]string{usecase.ChannelOrderCreated: cfg.Rabbit.RoutingKey},
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		relay.Run(ctx)
	}()

	return func() {
		<-done
		closeConn()
	}, nil
}

func setupKafkaListener(ctx context.Context, cfg configs.Config, uc *usecase.ChangeOrderStatus) (func(), error) {
	grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	if err != nil {
		return nil, fmt.Errorf("kafka group: %w", err)
	}

	h := kafka.NewOrderStatusChangedHandler(uc)
	consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.TopicStatusChange}, h.Handle)

	return consumer.Run(ctx), nil
}

func setupHealth(ctx context.Context, addr string, db *sql.DB, rdb *redis.Client) (func(), error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpc health listen: %w", err)
	}
	hs := grpc.NewHealthServer(map[string]grpc.Check{
		"mysql": db.PingContext,
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}, 5*time.Second)

	go func() {
		if err := hs.Serve(ctx, lis); err != nil {
			logging.New("grpc-health").Error("grpc health stopped", "error", err)
		}
	}()
	return hs.Stop, nil
}
