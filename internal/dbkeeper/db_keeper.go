package dbkeeper

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/drstein77/salesforecast/internal/models"
)

type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

type DBKeeper struct {
	pool *pgxpool.Pool
	log  Log
}

func NewDBKeeper(ctx context.Context, dsn func() string, log Log) (*DBKeeper, error) {
	addr := dsn()
	if addr == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}

	config, err := pgxpool.ParseConfig(addr)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	log.Info("Connected!")

	return &DBKeeper{
		pool: pool,
		log:  log,
	}, nil
}

const upsertResult = `
	INSERT INTO shop_forecasts (forecast_date, shop_id, shop_name, yhat, yhat_lower, yhat_upper)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (forecast_date, shop_id) DO UPDATE SET
		shop_name  = EXCLUDED.shop_name,
		yhat       = EXCLUDED.yhat,
		yhat_lower = EXCLUDED.yhat_lower,
		yhat_upper = EXCLUDED.yhat_upper,
		updated_at = now()`

// InsertResults upserts results in a single transaction, so rerunning a
// forecast for the same month overwrites the previous rows.
func (kp *DBKeeper) InsertResults(ctx context.Context, results []models.Result) (err error) {
	if len(results) == 0 {
		return nil
	}

	if kp.pool == nil {
		return fmt.Errorf("database connection pool is nil")
	}

	tx, err := kp.pool.Begin(ctx)
	if err != nil {
		kp.log.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && rollbackErr != pgx.ErrTxClosed {
				kp.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
			}
		}
	}()

	batch := &pgx.Batch{}
	for _, r := range results {
		batch.Queue(upsertResult, r.Date, r.ShopID, r.ShopName, r.Yhat, r.YhatLower, r.YhatUpper)
	}

	br := tx.SendBatch(ctx, batch)
	for range results {
		if _, execErr := br.Exec(); execErr != nil {
			br.Close()
			err = fmt.Errorf("failed to execute batch query: %w", execErr)
			return err
		}
	}
	if closeErr := br.Close(); closeErr != nil {
		err = fmt.Errorf("failed to close batch: %w", closeErr)
		return err
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		return err
	}

	kp.log.Info("Forecasts stored", zap.Int("count", len(results)))
	return nil
}

func (kp *DBKeeper) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := kp.pool.Ping(ctx); err != nil {
		kp.log.Error("Database ping failed", zap.Error(err))
		return false
	}

	return true
}

func (kp *DBKeeper) Close() bool {
	if kp.pool != nil {
		kp.pool.Close()
		kp.log.Info("Database connection pool closed")
		return true
	}
	kp.log.Info("Attempted to close a nil database connection pool")
	return false
}
