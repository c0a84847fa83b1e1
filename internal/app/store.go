package app

import (
	"context"
	"fmt"
	"time"

	"TodoApp/internal/config"
	"TodoApp/internal/repo"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
)

type stores struct {
	todos repo.TodoRepo
	users repo.UserRepo
}

func (a *App) openStores(ctx context.Context) (stores, error) {
	switch a.cfg.Store.Driver {
	case config.DriverPostgres:
		if a.cfg.Store.AutoMigrate {
			if err := MigrateUp(a.cfg.PG.DSN); err != nil {
				return stores{}, err
			}
		}
		db, err := newPostgres(ctx, a.cfg.PG.DSN)
		if err != nil {
			return stores{}, err
		}
		a.db = db
		return stores{todos: repo.NewPGTodoRepo(db), users: repo.NewPGUserRepo(db)}, nil

	case config.DriverDynamo:
		client, err := newDynamo(ctx, a.cfg.Dynamo)
		if err != nil {
			return stores{}, err
		}
		return stores{
			todos: repo.NewDynamoTodoRepo(client, a.cfg.Dynamo.TodoTable),
			users: repo.NewDynamoUserRepo(client, a.cfg.Dynamo.UserTable),
		}, nil

	default:
		a.log.Warn("using in-memory store, data is lost on restart")
		return stores{todos: repo.NewMemoryTodoRepo(), users: repo.NewMemoryUserRepo()}, nil
	}
}

func newPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}

	return pool, nil
}

func newDynamo(ctx context.Context, cfg config.DynamoConfig) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}
