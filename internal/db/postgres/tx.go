// Package postgres — tx.go реализует транзакции с передачей через context.
// Репозитории берут исполнителя через Executor: внутри WithinTx это
// текущая pgx.Tx, вне её — пул.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reward-engine/internal/common"
)

type txKey struct{}

// Executor возвращает текущую транзакцию из контекста или пул.
func Executor(ctx context.Context, pool *pgxpool.Pool) DBTX {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// InTx сообщает, выполняется ли код внутри WithinTx.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(pgx.Tx)
	return ok
}

// Transactor открывает транзакции READ COMMITTED и повторяет их
// при serialization failure, deadlock или common.ErrConflict.
type Transactor struct {
	pool       *pgxpool.Pool
	maxRetries int
	baseDelay  time.Duration
}

// NewTransactor создаёт транзактор.
//
// Параметры:
//   - pool: пул соединений
//   - maxRetries: сколько раз повторять после первой попытки
//   - baseDelay: базовая задержка экспоненциального backoff
func NewTransactor(pool *pgxpool.Pool, maxRetries int, baseDelay time.Duration) *Transactor {
	return &Transactor{pool: pool, maxRetries: maxRetries, baseDelay: baseDelay}
}

// WithinTx выполняет fn в транзакции. Вложенный вызов присоединяется
// к внешней транзакции и не повторяется сам по себе.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}
	return retry(ctx, t.maxRetries, t.baseDelay, func() error {
		return t.runOnce(ctx, fn)
	})
}

func (t *Transactor) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	// Откатываем транзакцию, если что-то пошло не так
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// shouldRetry — ошибки, после которых транзакцию повторяем целиком.
func shouldRetry(err error) bool {
	return IsRetryable(err) || errors.Is(err, common.ErrConflict)
}

// retry вызывает fn до maxRetries+1 раз с экспоненциальным backoff и джиттером.
// Исчерпанные повторы возвращаются обёрнутыми в common.ErrConflict.
func retry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func() error) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(backoff(baseDelay, attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err = fn()
		if err == nil || !shouldRetry(err) {
			return err
		}
		log.WithError(err).WithField("attempt", attempt+1).Warn("Конфликт транзакции, повторяем")
	}
	if errors.Is(err, common.ErrConflict) {
		return fmt.Errorf("повторы транзакции исчерпаны: %w", err)
	}
	return fmt.Errorf("повторы транзакции исчерпаны: %w: %w", common.ErrConflict, err)
}

// backoff: base * 2^(attempt-1) плюс до 50% случайного джиттера.
func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base << (attempt - 1)
	return d + time.Duration(rand.Int64N(int64(d)/2+1))
}
