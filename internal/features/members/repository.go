// Package members — repository.go отвечает за все операции с таблицей members в БД.
// Каждая функция выполняет один SQL-запрос и возвращает результат или ошибку.
package members

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/db/postgres"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Ensure добавляет участника, если его ещё нет.
// На конфликте по user_id обновляет только username (не трогает админку/бан).
func (r *Repository) Ensure(ctx context.Context, userID int64, username string) error {
	query := `
		INSERT INTO members (user_id, username)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET username = COALESCE(NULLIF(EXCLUDED.username, ''), members.username),
		    updated_at = NOW()
		WHERE members.username IS DISTINCT FROM COALESCE(NULLIF(EXCLUDED.username, ''), members.username)
	`
	if _, err := postgres.Executor(ctx, r.db).Exec(ctx, query, userID, username); err != nil {
		return fmt.Errorf("ошибка создания/обновления участника: %w", err)
	}
	return nil
}

// Get: если не найден — common.ErrNotFound
func (r *Repository) Get(ctx context.Context, userID int64) (*Member, error) {
	query := `
		SELECT user_id, COALESCE(username, ''), is_admin, is_banned, created_at, updated_at
		FROM members
		WHERE user_id = $1
	`
	var m Member
	err := postgres.Executor(ctx, r.db).QueryRow(ctx, query, userID).Scan(
		&m.UserID, &m.Username, &m.IsAdmin, &m.IsBanned, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("участник не найден (user_id=%d): %w", userID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения участника (user_id=%d): %w", userID, err)
	}
	return &m, nil
}

// Exists проверяет, зарегистрирован ли пользователь.
func (r *Repository) Exists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := postgres.Executor(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM members WHERE user_id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки участника: %w", err)
	}
	return exists, nil
}

// SetAdmin выставляет флаг администратора, создавая участника при необходимости.
func (r *Repository) SetAdmin(ctx context.Context, userID int64, isAdmin bool) error {
	query := `
		INSERT INTO members (user_id, is_admin)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET is_admin = EXCLUDED.is_admin, updated_at = NOW()
	`
	if _, err := postgres.Executor(ctx, r.db).Exec(ctx, query, userID, isAdmin); err != nil {
		return fmt.Errorf("ошибка установки флага админа: %w", err)
	}
	return nil
}
