package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/andleeb4898/pantry/internal/config"
	"github.com/andleeb4898/pantry/internal/handler"
	"github.com/andleeb4898/pantry/internal/infra/datauri"
	"github.com/andleeb4898/pantry/internal/infra/db"
	"github.com/andleeb4898/pantry/internal/infra/logging"
	infraRepo "github.com/andleeb4898/pantry/internal/infra/repository"
	"github.com/andleeb4898/pantry/internal/job"
	"github.com/andleeb4898/pantry/internal/metrics"
	repo "github.com/andleeb4898/pantry/internal/repository"
	"github.com/andleeb4898/pantry/internal/server"
	"github.com/andleeb4898/pantry/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ストア実装ごとの部品
type store struct {
	tx          repo.TransactionManager
	items       repo.PantryRepository
	adjustments repo.AdjustmentRepository
	close       func() error
}

func openStore(cfg config.Config) (store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverBolt:
		bdb, err := db.OpenBolt(cfg.BoltPath)
		if err != nil {
			return store{}, err
		}
		if err := infraRepo.MigrateBolt(bdb); err != nil {
			_ = bdb.Close()
			return store{}, err
		}
		return store{
			tx:          infraRepo.NewTxManagerBolt(bdb),
			items:       infraRepo.NewPantryBoltRepository(bdb),
			adjustments: infraRepo.NewAdjustmentBoltRepository(bdb),
			close:       bdb.Close,
		}, nil

	default:
		gormDB, err := db.Connect(cfg)
		if err != nil {
			return store{}, err
		}
		if err := infraRepo.AutoMigrate(gormDB); err != nil {
			return store{}, fmt.Errorf("migrate: %w", err)
		}
		sqlDB, err := gormDB.DB()
		if err != nil {
			return store{}, err
		}
		return store{
			tx:          infraRepo.NewTxManagerGorm(gormDB),
			items:       infraRepo.NewPantryGormRepository(gormDB),
			adjustments: infraRepo.NewAdjustmentGormRepository(gormDB),
			close:       sqlDB.Close,
		}, nil
	}
}

// 画面状態の保存先。memoryのときは掃除ジョブを登録する
func openStateStore(ctx context.Context, cfg config.Config, sched *job.Scheduler) (repo.PageStateRepository, func() error, error) {
	if cfg.StateBackend == config.StateBackendRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return infraRepo.NewPageStateRedisRepository(rdb, cfg.StateTTL), rdb.Close, nil
	}

	mem := infraRepo.NewPageStateMemoryRepository(cfg.StateTTL)
	if err := sched.AddStateSweeper(job.SweepSchedule, mem); err != nil {
		return nil, nil, err
	}
	return mem, func() error { return nil }, nil
}

func run() error {
	//.envは無くてもよい
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogMode, cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.close() }()
	log.Info("store ready", zap.String("driver", cfg.StoreDriver))

	sched := job.NewScheduler(log)
	states, closeStates, err := openStateStore(ctx, cfg, sched)
	if err != nil {
		return err
	}
	defer func() { _ = closeStates() }()
	log.Info("state store ready", zap.String("backend", cfg.StateBackend))

	m := metrics.New()

	//Usecase生成
	pantryUC := usecase.NewPantryUsecase(st.tx, st.items, st.adjustments, m, log)
	pageUC := usecase.NewPageUsecase(pantryUC, states, datauri.NewEncoder(cfg.MaxImageBytes), log)

	//Handler生成
	e, err := server.New(cfg, server.Handlers{
		Page:   handler.NewPageHandler(pageUC),
		Items:  handler.NewItemHandler(pantryUC),
		Health: handler.NewHealthHandler(),
	}, m, log)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Start(gctx, e, cfg.Addr(), log) })
	g.Go(func() error { return sched.Run(gctx) })
	return g.Wait()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
