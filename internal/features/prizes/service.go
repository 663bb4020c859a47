// Package prizes — service.go содержит операции каталога призов.
// Изменения каталога доступны только администраторам (проверяет middleware).
package prizes

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Storage — хранилище каталога (Postgres или память).
type Storage interface {
	ListActive(ctx context.Context) ([]Prize, error)
	ListAll(ctx context.Context) ([]Prize, error)
	Get(ctx context.Context, id int64) (*Prize, error)
	Create(ctx context.Context, p *Prize) error
	Update(ctx context.Context, id int64, patch Patch) (*Prize, error)
	Delete(ctx context.Context, id int64) error
	SeedIfEmpty(ctx context.Context, defaults []Prize) (bool, error)
}

// Transactor выполняет функцию в транзакции хранилища.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service управляет каталогом призов.
type Service struct {
	repo Storage
	tx   Transactor
}

// NewService создаёт новый сервис каталога.
func NewService(repo Storage, tx Transactor) *Service {
	return &Service{repo: repo, tx: tx}
}

// ListActive возвращает активные призы в порядке sort_order, id.
func (s *Service) ListActive(ctx context.Context) ([]Prize, error) {
	return s.repo.ListActive(ctx)
}

// ListAll возвращает весь каталог для админки.
func (s *Service) ListAll(ctx context.Context) ([]Prize, error) {
	return s.repo.ListAll(ctx)
}

// Get возвращает приз по ID.
func (s *Service) Get(ctx context.Context, id int64) (*Prize, error) {
	return s.repo.Get(ctx, id)
}

// Create проверяет вход и добавляет приз.
func (s *Service) Create(ctx context.Context, in Input) (*Prize, error) {
	p, err := in.NewPrize()
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"prize_id":   p.ID,
		"name":       p.Name,
		"coin_value": p.CoinValue,
		"weight":     p.Weight.String(),
	}).Info("Приз создан")
	return p, nil
}

// Update применяет частичное обновление приза.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*Prize, error) {
	patch, err := in.Patch()
	if err != nil {
		return nil, err
	}
	p, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"prize_id": p.ID,
		"active":   p.Active,
		"weight":   p.Weight.String(),
	}).Info("Приз обновлён")
	return p, nil
}

// Delete удаляет приз. История исходов сохраняет prize_id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.WithField("prize_id", id).Info("Приз удалён")
	return nil
}

// SeedDefaults заполняет пустой каталог стартовыми призами.
// Если каталог не пуст — ничего не делает и возвращает seeded=false.
func (s *Service) SeedDefaults(ctx context.Context) (bool, error) {
	var seeded bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		seeded, err = s.repo.SeedIfEmpty(ctx, DefaultCatalog())
		return err
	})
	if err != nil {
		return false, fmt.Errorf("ошибка заполнения каталога: %w", err)
	}
	if seeded {
		log.Info("Каталог призов заполнен значениями по умолчанию")
	}
	return seeded, nil
}
