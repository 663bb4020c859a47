// Package economy — repository.go выполняет все записи журнала:
// user_economy, coin_transactions, spin_outcomes, ticket_grants, daily_claim_records.
// Методы не открывают своих транзакций: атомарность обеспечивает вызывающий
// через postgres.Transactor.
package economy

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/db/postgres"
)

const dailyClaimConstraint = "uq_daily_claim_user_date"

// Repository предоставляет методы для работы со счетами и журналами.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий экономики.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// LockAccount создаёт счёт при необходимости и блокирует строку до конца транзакции.
// Все изменения состояния пользователя сериализуются на этой блокировке.
func (r *Repository) LockAccount(ctx context.Context, userID int64) (*Account, error) {
	db := postgres.Executor(ctx, r.db)
	if _, err := db.Exec(ctx, `
		INSERT INTO user_economy (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return nil, fmt.Errorf("ошибка создания счёта: %w", err)
	}

	var a Account
	err := db.QueryRow(ctx, `
		SELECT user_id, coins, total_earned, updated_at
		FROM user_economy WHERE user_id = $1
		FOR UPDATE
	`, userID).Scan(&a.UserID, &a.Coins, &a.TotalEarned, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка блокировки счёта: %w", err)
	}
	return &a, nil
}

// GetAccount возвращает счёт. Отсутствующий счёт — нулевой баланс.
func (r *Repository) GetAccount(ctx context.Context, userID int64) (*Account, error) {
	a := Account{UserID: userID}
	err := postgres.Executor(ctx, r.db).QueryRow(ctx, `
		SELECT coins, total_earned, updated_at FROM user_economy WHERE user_id = $1
	`, userID).Scan(&a.Coins, &a.TotalEarned, &a.UpdatedAt)
	if err != nil && !postgres.IsNoRows(err) {
		return nil, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return &a, nil
}

// CreditCoins начисляет монеты и возвращает обновлённый счёт.
func (r *Repository) CreditCoins(ctx context.Context, userID, amount int64) (*Account, error) {
	a := Account{UserID: userID}
	err := postgres.Executor(ctx, r.db).QueryRow(ctx, `
		INSERT INTO user_economy (user_id, coins, total_earned)
		VALUES ($1, $2, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET coins = user_economy.coins + EXCLUDED.coins,
		    total_earned = user_economy.total_earned + EXCLUDED.coins,
		    updated_at = NOW()
		RETURNING coins, total_earned, updated_at
	`, userID, amount).Scan(&a.Coins, &a.TotalEarned, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка начисления: %w", err)
	}
	return &a, nil
}

// InsertTransaction записывает движение монет.
func (r *Repository) InsertTransaction(ctx context.Context, t *Transaction) error {
	err := postgres.Executor(ctx, r.db).QueryRow(ctx, `
		INSERT INTO coin_transactions
			(user_id, amount, balance_before, balance_after, transaction_type, description, reference_type, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
		RETURNING id, created_at
	`, t.UserID, t.Amount, t.BalanceBefore, t.BalanceAfter, t.TransactionType, t.Description,
		t.ReferenceType, t.ReferenceID,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи транзакции: %w", err)
	}
	return nil
}

// InsertOutcome записывает исход вращения.
func (r *Repository) InsertOutcome(ctx context.Context, o *SpinOutcome) error {
	err := postgres.Executor(ctx, r.db).QueryRow(ctx, `
		INSERT INTO spin_outcomes (user_id, prize_id, prize_name, coins_won, is_force_win)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, o.UserID, o.PrizeID, o.PrizeName, o.CoinsWon, o.IsForceWin).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи исхода: %w", err)
	}
	return nil
}

// IncrementWinCount увеличивает счётчик выигрышей приза.
// Приз, удалённый после снимка каталога, просто пропускается.
func (r *Repository) IncrementWinCount(ctx context.Context, prizeID int64) error {
	_, err := postgres.Executor(ctx, r.db).Exec(ctx, `
		UPDATE prizes SET win_count = win_count + 1 WHERE id = $1
	`, prizeID)
	if err != nil {
		return fmt.Errorf("ошибка обновления счётчика приза: %w", err)
	}
	return nil
}

// InsertTicketGrants выдаёт g.Count билетов одним запросом.
func (r *Repository) InsertTicketGrants(ctx context.Context, g TicketGrant, at time.Time) error {
	_, err := postgres.Executor(ctx, r.db).Exec(ctx, `
		INSERT INTO ticket_grants (user_id, source, expires_at, created_at, bonus_id)
		SELECT $1::bigint, $2::text, $3::timestamptz, $4::timestamptz, $6::bigint
		FROM generate_series(1, $5::int)
	`, g.UserID, g.Source, g.ExpiresAt, at, g.Count, g.BonusID)
	if err != nil {
		return fmt.Errorf("ошибка выдачи билетов: %w", err)
	}
	return nil
}

// InsertDailyClaim записывает ежедневную награду.
// Повтор для той же даты — common.ErrAlreadyClaimed.
func (r *Repository) InsertDailyClaim(ctx context.Context, userID int64, date time.Time, streak int, at time.Time) error {
	_, err := postgres.Executor(ctx, r.db).Exec(ctx, `
		INSERT INTO daily_claim_records (user_id, claim_date, streak, claimed_at)
		VALUES ($1, $2, $3, $4)
	`, userID, date, streak, at)
	if err != nil {
		if postgres.IsUniqueViolation(err, dailyClaimConstraint) {
			return common.ErrAlreadyClaimed
		}
		return fmt.Errorf("ошибка записи ежедневной награды: %w", err)
	}
	return nil
}

// ListOutcomes возвращает последние исходы. userID == 0 — по всем пользователям.
func (r *Repository) ListOutcomes(ctx context.Context, userID int64, limit int) ([]SpinOutcome, error) {
	rows, err := postgres.Executor(ctx, r.db).Query(ctx, `
		SELECT id, user_id, prize_id, prize_name, coins_won, is_force_win, created_at
		FROM spin_outcomes
		WHERE $1::bigint = 0 OR user_id = $1::bigint
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения исходов: %w", err)
	}
	defer rows.Close()

	var out []SpinOutcome
	for rows.Next() {
		var o SpinOutcome
		if err := rows.Scan(&o.ID, &o.UserID, &o.PrizeID, &o.PrizeName, &o.CoinsWon, &o.IsForceWin, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования исхода: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListTransactions возвращает последние транзакции пользователя.
func (r *Repository) ListTransactions(ctx context.Context, userID int64, limit int) ([]Transaction, error) {
	rows, err := postgres.Executor(ctx, r.db).Query(ctx, `
		SELECT id, user_id, amount, balance_before, balance_after, transaction_type,
		       COALESCE(description, ''), COALESCE(reference_type, ''), reference_id, created_at
		FROM coin_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения транзакций: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Amount, &t.BalanceBefore, &t.BalanceAfter, &t.TransactionType,
			&t.Description, &t.ReferenceType, &t.ReferenceID, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования транзакции: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Totals считает агрегаты по исходам; since — начало сегодняшнего дня.
func (r *Repository) Totals(ctx context.Context, since time.Time) (*Totals, error) {
	var t Totals
	err := postgres.Executor(ctx, r.db).QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(coins_won), 0),
		       COUNT(DISTINCT user_id),
		       COUNT(*) FILTER (WHERE created_at >= $1),
		       COALESCE(SUM(coins_won) FILTER (WHERE created_at >= $1), 0)
		FROM spin_outcomes
	`, since).Scan(&t.TotalSpins, &t.TotalCoinsWon, &t.UniqueSpinners, &t.TodaySpins, &t.TodayCoinsWon)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта статистики: %w", err)
	}
	return &t, nil
}

// MostWonPrize возвращает самый частый приз или nil, если вращений не было.
func (r *Repository) MostWonPrize(ctx context.Context) (*PrizeTally, error) {
	var p PrizeTally
	err := postgres.Executor(ctx, r.db).QueryRow(ctx, `
		SELECT prize_id, prize_name, COUNT(*) AS wins
		FROM spin_outcomes
		GROUP BY prize_id, prize_name
		ORDER BY wins DESC, prize_id
		LIMIT 1
	`).Scan(&p.PrizeID, &p.PrizeName, &p.Wins)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка поиска популярного приза: %w", err)
	}
	return &p, nil
}
