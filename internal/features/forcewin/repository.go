// Package forcewin — repository.go выполняет операции с таблицей force_win_overrides.
package forcewin

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/db/postgres"
)

const activeUserConstraint = "uq_force_win_active_user"

// Repository — реестр в PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий реестра.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const overrideColumns = `id, user_id, prize_id, max_uses, use_count, expires_at, active,
	COALESCE(reason, ''), COALESCE(created_by, 0), created_at`

func scanOverride(row pgx.Row) (*Override, error) {
	var o Override
	if err := row.Scan(
		&o.ID, &o.UserID, &o.PrizeID, &o.MaxUses, &o.UseCount, &o.ExpiresAt, &o.Active,
		&o.Reason, &o.CreatedBy, &o.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &o, nil
}

// Create вставляет запись. Вторая активная запись пользователя — common.ErrConflict.
func (r *Repository) Create(ctx context.Context, o *Override) error {
	err := postgres.Executor(ctx, r.db).QueryRow(ctx, `
		INSERT INTO force_win_overrides (user_id, prize_id, max_uses, use_count, expires_at, active, reason, created_by)
		VALUES ($1, $2, $3, 0, $4, $5, NULLIF($6, ''), NULLIF($7::bigint, 0))
		RETURNING id, created_at
	`, o.UserID, o.PrizeID, o.MaxUses, o.ExpiresAt, o.Active, o.Reason, o.CreatedBy).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, activeUserConstraint) {
			return fmt.Errorf("активный выигрыш пользователя %d: %w", o.UserID, common.ErrConflict)
		}
		return fmt.Errorf("ошибка создания принудительного выигрыша: %w", err)
	}
	o.UseCount = 0
	return nil
}

// DeactivateForUser снимает флаг active со всех записей пользователя, кроме exceptID.
func (r *Repository) DeactivateForUser(ctx context.Context, userID, exceptID int64) (int64, error) {
	tag, err := postgres.Executor(ctx, r.db).Exec(ctx, `
		UPDATE force_win_overrides SET active = FALSE
		WHERE user_id = $1 AND active AND id <> $2
	`, userID, exceptID)
	if err != nil {
		return 0, fmt.Errorf("ошибка деактивации выигрышей: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FindEligible возвращает применимую запись и блокирует её. Нет записи — nil, nil.
func (r *Repository) FindEligible(ctx context.Context, userID int64, now time.Time) (*Override, error) {
	row := postgres.Executor(ctx, r.db).QueryRow(ctx, `
		SELECT `+overrideColumns+` FROM force_win_overrides
		WHERE user_id = $1 AND active
		  AND (expires_at IS NULL OR expires_at > $2)
		  AND (max_uses IS NULL OR use_count < max_uses)
		ORDER BY created_at DESC, id DESC
		LIMIT 1
		FOR UPDATE
	`, userID, now)
	o, err := scanOverride(row)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка поиска принудительного выигрыша: %w", err)
	}
	return o, nil
}

// Consume условно увеличивает use_count и гасит запись на последнем срабатывании.
// Запись перестала быть применимой — common.ErrConflict, нет записи — common.ErrNotFound.
func (r *Repository) Consume(ctx context.Context, id int64, now time.Time) (*Override, error) {
	db := postgres.Executor(ctx, r.db)
	row := db.QueryRow(ctx, `
		UPDATE force_win_overrides
		SET use_count = use_count + 1,
		    active = CASE WHEN max_uses IS NOT NULL AND use_count + 1 >= max_uses THEN FALSE ELSE active END
		WHERE id = $1 AND active
		  AND (expires_at IS NULL OR expires_at > $2)
		  AND (max_uses IS NULL OR use_count < max_uses)
		RETURNING `+overrideColumns, id, now)
	o, err := scanOverride(row)
	if err == nil {
		return o, nil
	}
	if !postgres.IsNoRows(err) {
		return nil, fmt.Errorf("ошибка применения принудительного выигрыша: %w", err)
	}

	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("принудительный выигрыш %d уже неприменим: %w", id, common.ErrConflict)
}

// Get: если не найден — common.ErrNotFound
func (r *Repository) Get(ctx context.Context, id int64) (*Override, error) {
	row := postgres.Executor(ctx, r.db).QueryRow(ctx,
		`SELECT `+overrideColumns+` FROM force_win_overrides WHERE id = $1`, id)
	o, err := scanOverride(row)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("принудительный выигрыш %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения принудительного выигрыша: %w", err)
	}
	return o, nil
}

// List возвращает все записи, новые первыми.
func (r *Repository) List(ctx context.Context) ([]Override, error) {
	rows, err := postgres.Executor(ctx, r.db).Query(ctx,
		`SELECT `+overrideColumns+` FROM force_win_overrides ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения реестра: %w", err)
	}
	defer rows.Close()

	var out []Override
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи реестра: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// SetActive меняет флаг active.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) (*Override, error) {
	row := postgres.Executor(ctx, r.db).QueryRow(ctx, `
		UPDATE force_win_overrides SET active = $2 WHERE id = $1
		RETURNING `+overrideColumns, id, active)
	o, err := scanOverride(row)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("принудительный выигрыш %d: %w", id, common.ErrNotFound)
		}
		if postgres.IsUniqueViolation(err, activeUserConstraint) {
			return nil, fmt.Errorf("активный выигрыш: %w", common.ErrConflict)
		}
		return nil, fmt.Errorf("ошибка обновления принудительного выигрыша: %w", err)
	}
	return o, nil
}

// Delete удаляет запись.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := postgres.Executor(ctx, r.db).Exec(ctx, `DELETE FROM force_win_overrides WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления принудительного выигрыша: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("принудительный выигрыш %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// CountEligible считает записи, применимые на момент now.
func (r *Repository) CountEligible(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := postgres.Executor(ctx, r.db).QueryRow(ctx, `
		SELECT COUNT(*) FROM force_win_overrides
		WHERE active
		  AND (expires_at IS NULL OR expires_at > $1)
		  AND (max_uses IS NULL OR use_count < max_uses)
	`, now).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта активных выигрышей: %w", err)
	}
	return n, nil
}
