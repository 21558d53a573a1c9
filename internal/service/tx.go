package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/Freeeeeet/slotswap_bot/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// TxBeginner абстрагирует pgxpool.Pool для тестов
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TxConfig параметры транзакций ядра обмена
type TxConfig struct {
	LockTimeout time.Duration // сколько ждать блокировку строки, 0 - без ограничения
	MaxRetries  uint64        // сколько раз повторять транзакцию при конфликте блокировок
	RetryBase   time.Duration // начальная пауза экспоненциального backoff
}

const defaultRetryBase = 50 * time.Millisecond

// errLockSetChanged набор конфликтующих заявок изменился между планированием и захватом блокировок
var errLockSetChanged = errors.New("lock set changed during acquisition")

// TxRunner выполняет функции в транзакциях и повторяет их при временных конфликтах
type TxRunner struct {
	db     TxBeginner
	cfg    TxConfig
	logger *zap.Logger
}

func NewTxRunner(db TxBeginner, cfg TxConfig, logger *zap.Logger) *TxRunner {
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = defaultRetryBase
	}
	return &TxRunner{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

var (
	writeTxOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}
	// Снимок: чтения никогда не видят слот посреди перехода
	readTxOptions = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
)

// Write выполняет изменяющую операцию. Все записи внутри fn применяются целиком или не применяются вовсе.
// Конфликт блокировок повторяется с backoff, после исчерпания попыток возвращается
// временная ConflictError.
func (r *TxRunner) Write(ctx context.Context, op string, fn func(ctx context.Context, tx pgx.Tx) error) error {
	backoff := retry.WithMaxRetries(r.cfg.MaxRetries, retry.WithJitterPercent(20, retry.NewExponential(r.cfg.RetryBase)))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := r.runOnce(ctx, writeTxOptions, r.cfg.LockTimeout, fn)
		if isRetryable(err) {
			r.logger.Debug("Transaction conflict, retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return retry.RetryableError(err)
		}
		return err
	})

	if isRetryable(err) {
		r.logger.Warn("Transaction conflict persisted",
			zap.String("op", op),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		return model.NewTransientConflictError(op, err)
	}

	return err
}

// Read выполняет чтение в снимке REPEATABLE READ READ ONLY
func (r *TxRunner) Read(ctx context.Context, op string, fn func(ctx context.Context, tx pgx.Tx) error) error {
	err := r.runOnce(ctx, readTxOptions, 0, fn)
	if isRetryable(err) {
		return model.NewTransientConflictError(op, err)
	}
	return err
}

func (r *TxRunner) runOnce(ctx context.Context, opts pgx.TxOptions, lockTimeout time.Duration, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if lockTimeout > 0 {
		// SET не принимает параметры, значение формируется из конфига
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func isRetryable(err error) bool {
	return err != nil && (base.IsTransient(err) || errors.Is(err, errLockSetChanged))
}
