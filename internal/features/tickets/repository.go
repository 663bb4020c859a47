// Package tickets — repository.go читает daily_claim_records и ticket_grants,
// списывает билеты и ведёт ticket_bonuses. Выдачу билетов и запись наград
// делает журнал economy.
package tickets

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/db/postgres"
)

// Repository — доступ к билетам в PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий билетов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// FindClaim возвращает запись о награде за date. Нет записи — common.ErrNotFound.
func (r *Repository) FindClaim(ctx context.Context, userID int64, date time.Time) (*ClaimRecord, error) {
	var c ClaimRecord
	err := postgres.Executor(ctx, r.db).QueryRow(ctx, `
		SELECT id, user_id, claim_date, streak, claimed_at
		FROM daily_claim_records
		WHERE user_id = $1 AND claim_date = $2
	`, userID, common.UTCDate(date)).Scan(&c.ID, &c.UserID, &c.ClaimDate, &c.Streak, &c.ClaimedAt)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("награда за %s: %w", common.FormatDate(date), common.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения награды: %w", err)
	}
	c.ClaimDate = common.UTCDate(c.ClaimDate)
	return &c, nil
}

// CountSpendable считает действующие билеты на момент now.
func (r *Repository) CountSpendable(ctx context.Context, userID int64, now time.Time) (int64, error) {
	var n int64
	err := postgres.Executor(ctx, r.db).QueryRow(ctx, `
		SELECT COUNT(*) FROM ticket_grants
		WHERE user_id = $1 AND used_at IS NULL AND expires_at > $2
	`, userID, now).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта билетов: %w", err)
	}
	return n, nil
}

// ConsumeOne помечает использованным билет с ближайшим сроком.
// Нет действующих билетов — common.ErrNoTickets.
func (r *Repository) ConsumeOne(ctx context.Context, userID int64, now time.Time) (int64, error) {
	var id int64
	err := postgres.Executor(ctx, r.db).QueryRow(ctx, `
		UPDATE ticket_grants SET used_at = $2
		WHERE id = (
			SELECT id FROM ticket_grants
			WHERE user_id = $1 AND used_at IS NULL AND expires_at > $2
			ORDER BY expires_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id
	`, userID, now).Scan(&id)
	if err != nil {
		if postgres.IsNoRows(err) {
			return 0, common.ErrNoTickets
		}
		return 0, fmt.Errorf("ошибка списания билета: %w", err)
	}
	return id, nil
}

// PurgeExpired удаляет билеты, которые истекли или использованы до before.
func (r *Repository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := postgres.Executor(ctx, r.db).Exec(ctx, `
		DELETE FROM ticket_grants
		WHERE expires_at < $1 OR (used_at IS NOT NULL AND used_at < $1)
	`, before)
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки билетов: %w", err)
	}
	return tag.RowsAffected(), nil
}

// remaining — действующие билеты пачки на момент $now.
const bonusColumns = `b.id, b.user_id, b.count, b.reason, b.granted_by, b.expires_at, b.revoked_at, b.created_at,
	(SELECT COUNT(*) FROM ticket_grants g
	 WHERE g.bonus_id = b.id AND g.used_at IS NULL AND g.expires_at > $1) AS remaining`

func scanBonus(row pgx.Row) (*Bonus, error) {
	var b Bonus
	if err := row.Scan(
		&b.ID, &b.UserID, &b.Count, &b.Reason, &b.GrantedBy, &b.ExpiresAt, &b.RevokedAt, &b.CreatedAt,
		&b.Remaining,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

// InsertBonus создаёт запись о выдаче. Билеты выдаёт журнал.
func (r *Repository) InsertBonus(ctx context.Context, b *Bonus) error {
	err := postgres.Executor(ctx, r.db).QueryRow(ctx, `
		INSERT INTO ticket_bonuses (user_id, count, reason, granted_by, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, b.UserID, b.Count, b.Reason, b.GrantedBy, b.ExpiresAt).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи выдачи билетов: %w", err)
	}
	return nil
}

// GetBonus возвращает выдачу по ID. Нет записи — common.ErrNotFound.
func (r *Repository) GetBonus(ctx context.Context, id int64, now time.Time) (*Bonus, error) {
	row := postgres.Executor(ctx, r.db).QueryRow(ctx, `
		SELECT `+bonusColumns+` FROM ticket_bonuses b WHERE b.id = $2
	`, now, id)
	b, err := scanBonus(row)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("выдача %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения выдачи: %w", err)
	}
	return b, nil
}

// ListBonuses возвращает выдачи, новые первыми. userID 0 — все.
func (r *Repository) ListBonuses(ctx context.Context, userID int64, now time.Time, limit int) ([]Bonus, error) {
	rows, err := postgres.Executor(ctx, r.db).Query(ctx, `
		SELECT `+bonusColumns+` FROM ticket_bonuses b
		WHERE $2::bigint = 0 OR b.user_id = $2
		ORDER BY b.created_at DESC, b.id DESC
		LIMIT $3
	`, now, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения выдач: %w", err)
	}
	defer rows.Close()

	var out []Bonus
	for rows.Next() {
		b, err := scanBonus(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования выдачи: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// RevokeBonus помечает выдачу отозванной и удаляет её неиспользованные билеты.
// Возвращает, сколько билетов удалено.
func (r *Repository) RevokeBonus(ctx context.Context, id int64, now time.Time) (int64, error) {
	db := postgres.Executor(ctx, r.db)
	tag, err := db.Exec(ctx, `
		UPDATE ticket_bonuses SET revoked_at = COALESCE(revoked_at, $2) WHERE id = $1
	`, id, now)
	if err != nil {
		return 0, fmt.Errorf("ошибка отзыва выдачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("выдача %d: %w", id, common.ErrNotFound)
	}
	tag, err = db.Exec(ctx, `
		DELETE FROM ticket_grants WHERE bonus_id = $1 AND used_at IS NULL
	`, id)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления билетов выдачи: %w", err)
	}
	return tag.RowsAffected(), nil
}
