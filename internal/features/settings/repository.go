// Package settings — repository.go хранит настройки в таблице spin_settings.
package settings

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/db/postgres"
)

// Repository — настройки в PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий настроек.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Load читает запись с id = 1.
func (r *Repository) Load(ctx context.Context) (*Settings, error) {
	var s Settings
	err := postgres.Executor(ctx, r.db).QueryRow(ctx, `
		SELECT spin_enabled, jackpot_threshold, updated_by, updated_at
		FROM spin_settings WHERE id = 1
	`).Scan(&s.SpinEnabled, &s.JackpotThreshold, &s.UpdatedBy, &s.UpdatedAt)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("настройки рулетки: %w", common.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения настроек: %w", err)
	}
	return &s, nil
}

// Save создаёт или перезаписывает запись.
func (r *Repository) Save(ctx context.Context, s *Settings) error {
	_, err := postgres.Executor(ctx, r.db).Exec(ctx, `
		INSERT INTO spin_settings (id, spin_enabled, jackpot_threshold, updated_by, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			spin_enabled = EXCLUDED.spin_enabled,
			jackpot_threshold = EXCLUDED.jackpot_threshold,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
	`, s.SpinEnabled, s.JackpotThreshold, s.UpdatedBy, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения настроек: %w", err)
	}
	return nil
}
