// Package forcewin — service.go содержит операции реестра принудительных выигрышей.
package forcewin

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/features/prizes"
)

// Storage — хранилище реестра (Postgres или память).
type Storage interface {
	Create(ctx context.Context, o *Override) error
	DeactivateForUser(ctx context.Context, userID, exceptID int64) (int64, error)
	FindEligible(ctx context.Context, userID int64, now time.Time) (*Override, error)
	Consume(ctx context.Context, id int64, now time.Time) (*Override, error)
	Get(ctx context.Context, id int64) (*Override, error)
	List(ctx context.Context) ([]Override, error)
	SetActive(ctx context.Context, id int64, active bool) (*Override, error)
	Delete(ctx context.Context, id int64) error
	CountEligible(ctx context.Context, now time.Time) (int64, error)
}

// UserDirectory отвечает, существует ли пользователь.
type UserDirectory interface {
	Exists(ctx context.Context, userID int64) (bool, error)
}

// PrizeLookup ищет приз по ID.
type PrizeLookup interface {
	Get(ctx context.Context, id int64) (*prizes.Prize, error)
}

// Transactor выполняет функцию в транзакции хранилища.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service управляет реестром.
type Service struct {
	repo   Storage
	users  UserDirectory
	prizes PrizeLookup
	tx     Transactor
	clock  common.Clock
}

// NewService создаёт новый сервис реестра.
func NewService(repo Storage, users UserDirectory, prizes PrizeLookup, tx Transactor, clock common.Clock) *Service {
	if clock == nil {
		clock = common.SystemClock
	}
	return &Service{repo: repo, users: users, prizes: prizes, tx: tx, clock: clock}
}

// Create назначает пользователю принудительный выигрыш.
// Все прежние активные записи пользователя гасятся в той же транзакции.
//
// Параметры:
//   - adminID: кто назначил
//   - in: пользователь, приз, лимит срабатываний, срок, причина
func (s *Service) Create(ctx context.Context, adminID int64, in CreateInput) (*Override, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	o := &Override{
		UserID:    in.UserID,
		PrizeID:   in.PrizeID,
		MaxUses:   in.MaxUses,
		ExpiresAt: in.ExpiresAt,
		Active:    true,
		Reason:    in.Reason,
		CreatedBy: adminID,
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := s.users.Exists(ctx, in.UserID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("пользователь %d: %w", in.UserID, common.ErrNotFound)
		}
		if _, err := s.prizes.Get(ctx, in.PrizeID); err != nil {
			return err
		}

		if _, err := s.repo.DeactivateForUser(ctx, in.UserID, 0); err != nil {
			return err
		}
		return s.repo.Create(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"override_id": o.ID,
		"user_id":     o.UserID,
		"prize_id":    o.PrizeID,
		"admin_id":    adminID,
	}).Info("Принудительный выигрыш назначен")
	return o, nil
}

func (s *Service) validate(in CreateInput) error {
	vErr := &common.ValidationError{}
	if in.UserID <= 0 {
		vErr.Add("userId", "обязательное поле")
	}
	if in.PrizeID <= 0 {
		vErr.Add("prizeId", "обязательное поле")
	}
	if in.MaxUses != nil && *in.MaxUses < 1 {
		vErr.Add("maxUses", "должно быть не меньше 1")
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(s.clock()) {
		vErr.Add("expiresAt", "должно быть в будущем")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

// FindEligible возвращает применимую запись пользователя или nil.
// Внутри транзакции запись блокируется до её конца.
func (s *Service) FindEligible(ctx context.Context, userID int64, now time.Time) (*Override, error) {
	return s.repo.FindEligible(ctx, userID, now)
}

// Consume фиксирует одно срабатывание. На последнем срабатывании запись гаснет.
func (s *Service) Consume(ctx context.Context, id int64, now time.Time) (*Override, error) {
	o, err := s.repo.Consume(ctx, id, now)
	if err != nil {
		return nil, err
	}
	if !o.Active {
		log.WithFields(log.Fields{"override_id": o.ID, "user_id": o.UserID}).Info("Принудительный выигрыш исчерпан")
	}
	return o, nil
}

// List возвращает реестр для админки с именами призов.
func (s *Service) List(ctx context.Context) ([]View, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	names := make(map[int64]string)
	out := make([]View, 0, len(list))
	for _, o := range list {
		name, ok := names[o.PrizeID]
		if !ok {
			name = prizes.UnknownPrizeName
			p, err := s.prizes.Get(ctx, o.PrizeID)
			switch {
			case err == nil:
				name = p.Name
			case !errors.Is(err, common.ErrNotFound):
				return nil, err
			}
			names[o.PrizeID] = name
		}
		out = append(out, View{Override: o, PrizeName: name, Eligible: o.Eligible(now)})
	}
	return out, nil
}

// SetActive включает или выключает запись.
// Включение гасит остальные активные записи пользователя.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (*Override, error) {
	var o *Override
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if active {
			current, err := s.repo.Get(ctx, id)
			if err != nil {
				return err
			}
			if _, err := s.repo.DeactivateForUser(ctx, current.UserID, id); err != nil {
				return err
			}
		}
		var err error
		o, err = s.repo.SetActive(ctx, id, active)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"override_id": id, "active": active}).Info("Принудительный выигрыш обновлён")
	return o, nil
}

// Delete удаляет запись.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.WithField("override_id", id).Info("Принудительный выигрыш удалён")
	return nil
}

// CountEligible — сколько записей применимо прямо сейчас.
func (s *Service) CountEligible(ctx context.Context) (int64, error) {
	return s.repo.CountEligible(ctx, s.clock())
}
