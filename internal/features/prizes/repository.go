// Package prizes — repository.go выполняет все операции с таблицей prizes.
// NUMERIC-вес читается как текст и разбирается в decimal.Decimal,
// чтобы не терять точность на float.
package prizes

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/db/postgres"
)

// Repository предоставляет методы для работы с каталогом призов.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий призов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const prizeColumns = `id, name, coin_value, weight::text, active, sort_order, win_count,
	COALESCE(color, ''), COALESCE(icon, ''), created_at, updated_at`

func scanPrize(row pgx.Row) (*Prize, error) {
	var (
		p      Prize
		weight string
	)
	if err := row.Scan(
		&p.ID, &p.Name, &p.CoinValue, &weight, &p.Active, &p.SortOrder, &p.WinCount,
		&p.Color, &p.Icon, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	w, err := decimal.NewFromString(weight)
	if err != nil {
		return nil, fmt.Errorf("некорректный вес приза %d: %w", p.ID, err)
	}
	p.Weight = w
	return &p, nil
}

func (r *Repository) list(ctx context.Context, where string) ([]Prize, error) {
	query := `SELECT ` + prizeColumns + ` FROM prizes ` + where + ` ORDER BY sort_order, id`
	rows, err := postgres.Executor(ctx, r.db).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения призов: %w", err)
	}
	defer rows.Close()

	var out []Prize
	for rows.Next() {
		p, err := scanPrize(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования приза: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения призов: %w", err)
	}
	return out, nil
}

// ListActive возвращает активные призы одним запросом (один снимок каталога).
func (r *Repository) ListActive(ctx context.Context) ([]Prize, error) {
	return r.list(ctx, `WHERE active`)
}

// ListAll возвращает весь каталог, включая неактивные призы.
func (r *Repository) ListAll(ctx context.Context) ([]Prize, error) {
	return r.list(ctx, ``)
}

// Get: если не найден — common.ErrNotFound
func (r *Repository) Get(ctx context.Context, id int64) (*Prize, error) {
	row := postgres.Executor(ctx, r.db).QueryRow(ctx,
		`SELECT `+prizeColumns+` FROM prizes WHERE id = $1`, id)
	p, err := scanPrize(row)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("приз %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения приза %d: %w", id, err)
	}
	return p, nil
}

// Create добавляет приз. ID и метки времени заполняются из БД.
func (r *Repository) Create(ctx context.Context, p *Prize) error {
	query := `
		INSERT INTO prizes (name, coin_value, weight, active, sort_order, color, icon)
		VALUES ($1, $2, $3::numeric, $4, $5, NULLIF($6, ''), NULLIF($7, ''))
		RETURNING id, win_count, created_at, updated_at
	`
	err := postgres.Executor(ctx, r.db).QueryRow(ctx, query,
		p.Name, p.CoinValue, p.Weight.StringFixed(2), p.Active, p.SortOrder, p.Color, p.Icon,
	).Scan(&p.ID, &p.WinCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания приза: %w", err)
	}
	return nil
}

// Update применяет патч. Незаданные поля не меняются.
func (r *Repository) Update(ctx context.Context, id int64, patch Patch) (*Prize, error) {
	var weight *string
	if patch.Weight != nil {
		w := patch.Weight.StringFixed(2)
		weight = &w
	}
	query := `
		UPDATE prizes SET
			name       = COALESCE($2, name),
			coin_value = COALESCE($3, coin_value),
			weight     = COALESCE($4::numeric, weight),
			active     = COALESCE($5, active),
			sort_order = COALESCE($6, sort_order),
			color      = COALESCE($7, color),
			icon       = COALESCE($8, icon),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + prizeColumns
	row := postgres.Executor(ctx, r.db).QueryRow(ctx, query,
		id, patch.Name, patch.CoinValue, weight, patch.Active, patch.SortOrder, patch.Color, patch.Icon,
	)
	p, err := scanPrize(row)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("приз %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка обновления приза %d: %w", id, err)
	}
	return p, nil
}

// Delete удаляет приз. Исходы в spin_outcomes не трогаются.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := postgres.Executor(ctx, r.db).Exec(ctx, `DELETE FROM prizes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления приза %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("приз %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// SeedIfEmpty вставляет каталог, только если таблица пуста.
// Должен вызываться внутри транзакции: advisory lock снимается на COMMIT.
func (r *Repository) SeedIfEmpty(ctx context.Context, defaults []Prize) (bool, error) {
	db := postgres.Executor(ctx, r.db)
	if _, err := db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('prizes_seed'))`); err != nil {
		return false, fmt.Errorf("ошибка блокировки каталога: %w", err)
	}

	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM prizes)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("ошибка проверки каталога: %w", err)
	}
	if exists {
		return false, nil
	}

	for i := range defaults {
		if err := r.Create(ctx, &defaults[i]); err != nil {
			return false, err
		}
	}
	return true, nil
}
