// Package members — service.go содержит бизнес-логику управления участниками.
// Сервис регистрирует пользователей при первом запросе и отвечает
// на вопрос «администратор ли это».
package members

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reward-engine/internal/common"
)

// Storage — хранилище участников (Postgres или память).
type Storage interface {
	Ensure(ctx context.Context, userID int64, username string) error
	Get(ctx context.Context, userID int64) (*Member, error)
	Exists(ctx context.Context, userID int64) (bool, error)
	SetAdmin(ctx context.Context, userID int64, isAdmin bool) error
}

// Service управляет участниками.
type Service struct {
	repo Storage
}

// NewService создаёт новый сервис участников.
func NewService(repo Storage) *Service {
	return &Service{repo: repo}
}

// Ensure регистрирует пользователя, если его ещё нет.
// Вызывается middleware авторизации на каждом запросе.
func (s *Service) Ensure(ctx context.Context, userID int64, username string) error {
	return s.repo.Ensure(ctx, userID, username)
}

// Exists проверяет, зарегистрирован ли пользователь.
func (s *Service) Exists(ctx context.Context, userID int64) (bool, error) {
	return s.repo.Exists(ctx, userID)
}

// Get возвращает участника по ID.
func (s *Service) Get(ctx context.Context, userID int64) (*Member, error) {
	return s.repo.Get(ctx, userID)
}

// IsAdmin проверяет, является ли пользователь администратором.
// Незарегистрированный пользователь — не админ.
func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	m, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return m.IsAdmin && !m.IsBanned, nil
}

// PromoteAdmins помечает администраторами пользователей из ADMIN_IDS.
func (s *Service) PromoteAdmins(ctx context.Context, userIDs []int64) error {
	for _, id := range userIDs {
		if err := s.repo.SetAdmin(ctx, id, true); err != nil {
			return fmt.Errorf("ошибка назначения админа %d: %w", id, err)
		}
	}
	if len(userIDs) > 0 {
		log.WithField("count", len(userIDs)).Info("Администраторы из ADMIN_IDS назначены")
	}
	return nil
}
