// Package bootstrap turns a config.Config into a running contract: it opens
// the selected store backend, the optional event publisher and the services
// on top of them. Commands share it so every binary sees the same wiring.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/vncsmyrnk/tally/internal/adapters/address"
	"github.com/vncsmyrnk/tally/internal/adapters/events/kafka"
	"github.com/vncsmyrnk/tally/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/tally/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/tally/internal/adapters/repository/redis"
	"github.com/vncsmyrnk/tally/internal/adapters/repository/sqlite"
	"github.com/vncsmyrnk/tally/internal/config"
	"github.com/vncsmyrnk/tally/internal/core/domain"
	"github.com/vncsmyrnk/tally/internal/core/ports"
	"github.com/vncsmyrnk/tally/internal/core/services"
)

type App struct {
	Store     ports.Store
	Engine    ports.PollEngine
	Contract  ports.Contract
	Summary   ports.SummaryService
	Publisher ports.EventPublisher
	Logger    *slog.Logger
}

func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	logger = services.ResolveLogger(logger)

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("store opened", "backend", cfg.StoreBackend)

	publisher := NewPublisher(cfg)
	if publisher != nil {
		logger.Info("publishing contract events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	engine := services.NewPollEngine(address.NewBech32Validator(cfg.AddressPrefix))
	contract := services.NewContractService(services.ContractDependencies{
		Store:     store,
		Engine:    engine,
		Publisher: publisher,
		Logger:    logger,
	})

	return &App{
		Store:     store,
		Engine:    engine,
		Contract:  contract,
		Summary:   services.NewSummaryService(store, engine),
		Publisher: publisher,
		Logger:    logger,
	}, nil
}

func (a *App) Close() error {
	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}

// EnsureInstantiated instantiates the contract with adminAddress unless the
// store already holds a config. An empty adminAddress is a no-op.
func (a *App) EnsureInstantiated(ctx context.Context, adminAddress string) error {
	if adminAddress == "" {
		return nil
	}

	_, err := a.Contract.Instantiate(ctx, ports.InstantiateMsg{AdminAddress: adminAddress})
	if errors.Is(err, domain.ErrAlreadyInitialized) {
		a.Logger.Info("contract already instantiated")
		return nil
	}
	return err
}

func OpenStore(ctx context.Context, cfg config.Config) (ports.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return memory.NewStore(), nil
	case config.BackendPostgres:
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(db), nil
	case config.BackendSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	case config.BackendRedis:
		client, err := redis.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return redis.NewStore(client, redis.Options{KeyPrefix: cfg.RedisKeyPrefix}), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// NewPublisher returns nil when no brokers are configured.
func NewPublisher(cfg config.Config) ports.EventPublisher {
	if len(cfg.KafkaBrokers) == 0 {
		return nil
	}
	return kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}
