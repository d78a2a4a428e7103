package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/internal/config"
	"github.com/GlebRadaev/smswallet/internal/events"
	"github.com/GlebRadaev/smswallet/internal/idempotency"
	"github.com/GlebRadaev/smswallet/internal/pg"
	"github.com/GlebRadaev/smswallet/internal/repo"
)

func (a *Application) initStorage(ctx context.Context) (*repo.Repositories, error) {
	if a.cfg.Store == config.StoreMemory {
		zap.L().Warn("using in-memory store, data is lost on restart")
		return repo.NewInMemory(), nil
	}

	pool, err := getPgxpool(ctx, a.cfg)
	if err != nil {
		zap.L().Error("build pgx pool failed: ", zap.Error(err))
		return nil, fmt.Errorf("can't build pgx pool: %w", err)
	}
	a.onClose("postgres", func(context.Context) error {
		pool.Close()
		return nil
	})
	if err := pg.RunMigrations(pool); err != nil {
		zap.L().Error("migrations failed: ", zap.Error(err))
		return nil, fmt.Errorf("can't run migrations: %w", err)
	}

	return repo.New(pg.New(pool), pg.NewTXManager(pool)), nil
}

func getPgxpool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	cfgpool, err := pgxpool.ParseConfig(cfg.Database)
	if err != nil {
		return nil, err
	}
	dbpool, err := pgxpool.NewWithConfig(ctx, cfgpool)
	if err != nil {
		return nil, err
	}
	if err = dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, err
	}
	return dbpool, nil
}

// initEvents connects the configured event sinks. Sinks that cannot be
// reached are skipped; wallet operations never depend on them.
func (a *Application) initEvents(ctx context.Context) events.Publisher {
	var sinks events.Fanout

	if a.cfg.AMQPURL != "" {
		if p, err := a.connectRabbitMQ(); err != nil {
			zap.L().Warn("rabbitmq unavailable, events are not published", zap.Error(err))
		} else {
			sinks = append(sinks, p)
		}
	}
	if a.cfg.MongoURI != "" {
		if p, err := a.connectMongo(ctx); err != nil {
			zap.L().Warn("mongodb unavailable, audit trail disabled", zap.Error(err))
		} else {
			sinks = append(sinks, p)
		}
	}

	if len(sinks) == 0 {
		return nil
	}
	return sinks
}

func (a *Application) connectRabbitMQ() (events.Publisher, error) {
	conn, err := amqp.DialConfig(a.cfg.AMQPURL, amqp.Config{
		Properties: amqp.Table{"connection_name": "smswallet"},
	})
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := events.DeclareExchange(ch, events.Exchange); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	a.onClose("rabbitmq", func(context.Context) error {
		ch.Close()
		return conn.Close()
	})
	zap.L().Info("connected to rabbitmq", zap.String("exchange", events.Exchange))
	return events.NewRabbitMQPublisher(ch, events.Exchange), nil
}

func (a *Application) connectMongo(ctx context.Context) (events.Publisher, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(a.cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}
	a.onClose("mongodb", client.Disconnect)
	zap.L().Info("connected to mongodb", zap.String("database", a.cfg.MongoDatabase))
	return events.NewMongoAuditSink(client, a.cfg.MongoDatabase), nil
}

// initIdempotency returns nil when Redis is not configured or not reachable,
// which turns Idempotency-Key handling off.
func (a *Application) initIdempotency(ctx context.Context) idempotency.Store {
	if a.cfg.RedisAddress == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddress})
	if err := client.Ping(ctx).Err(); err != nil {
		zap.L().Warn("redis unavailable, idempotency disabled", zap.Error(err))
		client.Close()
		return nil
	}
	a.onClose("redis", func(context.Context) error {
		return client.Close()
	})
	zap.L().Info("connected to redis", zap.String("address", a.cfg.RedisAddress))
	return idempotency.NewRedisStore(client, idempotency.DefaultTTL)
}
