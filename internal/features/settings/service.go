// Package settings — service.go читает и меняет настройки рулетки.
package settings

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reward-engine/internal/common"
)

// Storage — хранилище единственной записи настроек.
type Storage interface {
	// Load возвращает сохранённые настройки или common.ErrNotFound.
	Load(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, s *Settings) error
}

// Transactor выполняет функцию в транзакции хранилища.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service управляет настройками.
type Service struct {
	repo     Storage
	tx       Transactor
	defaults Settings
	clock    common.Clock
}

// NewService создаёт сервис настроек. defaults действуют, пока
// администратор ничего не сохранил.
func NewService(repo Storage, tx Transactor, defaults Settings, clock common.Clock) *Service {
	if clock == nil {
		clock = common.SystemClock
	}
	defaults.UpdatedBy = nil
	defaults.UpdatedAt = nil
	return &Service{repo: repo, tx: tx, defaults: defaults, clock: clock}
}

// Current возвращает действующие настройки.
func (s *Service) Current(ctx context.Context) (*Settings, error) {
	st, err := s.repo.Load(ctx)
	switch {
	case err == nil:
		return st, nil
	case errors.Is(err, common.ErrNotFound):
		d := s.defaults
		return &d, nil
	default:
		return nil, err
	}
}

// Update меняет переданные поля и сохраняет запись целиком.
func (s *Service) Update(ctx context.Context, adminID int64, in UpdateInput) (*Settings, error) {
	if in.SpinEnabled == nil && in.JackpotThreshold == nil {
		return nil, common.NewValidationError("body", "нет полей для изменения")
	}
	if in.JackpotThreshold != nil && *in.JackpotThreshold < 0 {
		return nil, common.NewValidationError("jackpotThreshold", "не может быть отрицательным")
	}

	var out *Settings
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.Current(ctx)
		if err != nil {
			return err
		}
		next := *cur
		if in.SpinEnabled != nil {
			next.SpinEnabled = *in.SpinEnabled
		}
		if in.JackpotThreshold != nil {
			next.JackpotThreshold = *in.JackpotThreshold
		}
		now := s.clock()
		next.UpdatedBy = &adminID
		next.UpdatedAt = &now
		if err := s.repo.Save(ctx, &next); err != nil {
			return err
		}
		out = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"admin_id":          adminID,
		"spin_enabled":      out.SpinEnabled,
		"jackpot_threshold": out.JackpotThreshold,
	}).Info("Настройки рулетки изменены")
	return out, nil
}
