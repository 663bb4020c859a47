// Package tickets — bonus.go содержит админскую выдачу билетов:
// начисление пачки с причиной и сроком, список выдач и отзыв.
package tickets

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/features/economy"
)

// Ограничения админской выдачи.
const (
	MaxBonusCount     = 100
	MaxBonusReasonLen = 255
	MaxBonusTTL       = 365 * 24 * time.Hour
	defaultReason     = "Выдано администратором"
)

// BonusStorage — хранилище админских выдач.
type BonusStorage interface {
	InsertBonus(ctx context.Context, b *Bonus) error
	GetBonus(ctx context.Context, id int64, now time.Time) (*Bonus, error)
	ListBonuses(ctx context.Context, userID int64, now time.Time, limit int) ([]Bonus, error)
	RevokeBonus(ctx context.Context, id int64, now time.Time) (int64, error)
}

// UserDirectory отвечает, существует ли пользователь.
type UserDirectory interface {
	Exists(ctx context.Context, userID int64) (bool, error)
}

// BonusService выдаёт и отзывает билеты от имени администратора.
type BonusService struct {
	repo       BonusStorage
	ledger     Ledger
	users      UserDirectory
	tx         Transactor
	clock      common.Clock
	defaultTTL time.Duration
}

// NewBonusService создаёт сервис админской выдачи.
// defaultTTL — срок билетов, если в запросе он не указан.
func NewBonusService(repo BonusStorage, ledger Ledger, users UserDirectory, tx Transactor, clock common.Clock, defaultTTL time.Duration) *BonusService {
	if clock == nil {
		clock = common.SystemClock
	}
	if defaultTTL <= 0 {
		defaultTTL = 30 * 24 * time.Hour
	}
	return &BonusService{repo: repo, ledger: ledger, users: users, tx: tx, clock: clock, defaultTTL: defaultTTL}
}

// Grant начисляет пользователю пачку билетов.
// Запись о выдаче и билеты пишутся в одной транзакции.
func (s *BonusService) Grant(ctx context.Context, adminID int64, in BonusInput) (*Bonus, error) {
	now := s.clock()
	b, err := s.normalize(in, now)
	if err != nil {
		return nil, err
	}
	b.GrantedBy = adminID

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := s.users.Exists(ctx, b.UserID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("пользователь %d: %w", b.UserID, common.ErrNotFound)
		}
		if _, err := s.ledger.LockAccount(ctx, b.UserID); err != nil {
			return err
		}
		if err := s.repo.InsertBonus(ctx, b); err != nil {
			return err
		}
		return s.ledger.ApplyTicketGrant(ctx, economy.TicketGrant{
			UserID:    b.UserID,
			Count:     b.Count,
			ExpiresAt: b.ExpiresAt,
			Source:    economy.TicketSourceAdmin,
			BonusID:   &b.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	b.Remaining = int64(b.Count)

	log.WithFields(log.Fields{
		"bonus_id":   b.ID,
		"user_id":    b.UserID,
		"count":      b.Count,
		"granted_by": adminID,
		"expires_at": b.ExpiresAt.Format(time.RFC3339),
	}).Info("Администратор выдал билеты")
	return b, nil
}

func (s *BonusService) normalize(in BonusInput, now time.Time) (*Bonus, error) {
	vErr := &common.ValidationError{}
	if in.UserID <= 0 {
		vErr.Add("userId", "обязательное поле")
	}
	count := in.Count
	if count == 0 {
		count = 1
	}
	if count < 1 || count > MaxBonusCount {
		vErr.Add("count", fmt.Sprintf("должно быть от 1 до %d", MaxBonusCount))
	}
	reason := in.Reason
	if reason == "" {
		reason = defaultReason
	}
	if utf8.RuneCountInString(reason) > MaxBonusReasonLen {
		vErr.Add("reason", fmt.Sprintf("не длиннее %d символов", MaxBonusReasonLen))
	}
	expiresAt := now.Add(s.defaultTTL)
	if in.ExpiresAt != nil {
		expiresAt = in.ExpiresAt.UTC()
		switch {
		case !expiresAt.After(now):
			vErr.Add("expiresAt", "должно быть в будущем")
		case expiresAt.Sub(now) > MaxBonusTTL:
			vErr.Add("expiresAt", "не дальше чем через год")
		}
	}
	if vErr.HasErrors() {
		return nil, vErr
	}
	return &Bonus{UserID: in.UserID, Count: count, Reason: reason, ExpiresAt: expiresAt}, nil
}

// List возвращает выдачи, новые первыми. userID 0 — все пользователи.
func (s *BonusService) List(ctx context.Context, userID int64, limit int) ([]Bonus, error) {
	if limit <= 0 {
		limit = 50
	}
	list, err := s.repo.ListBonuses(ctx, userID, s.clock(), limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Bonus{}
	}
	return list, nil
}

// Revoke отзывает выдачу: неиспользованные билеты пачки удаляются,
// потраченные остаются в истории. Повторный отзыв ничего не удаляет.
func (s *BonusService) Revoke(ctx context.Context, adminID, id int64) (*Bonus, error) {
	var (
		b       *Bonus
		removed int64
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := s.clock()
		found, err := s.repo.GetBonus(ctx, id, now)
		if err != nil {
			return err
		}
		// Тот же порядок блокировок, что у вращения
		if _, err := s.ledger.LockAccount(ctx, found.UserID); err != nil {
			return err
		}
		removed, err = s.repo.RevokeBonus(ctx, id, now)
		if err != nil {
			return err
		}
		b, err = s.repo.GetBonus(ctx, id, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"bonus_id":   id,
		"user_id":    b.UserID,
		"removed":    removed,
		"revoked_by": adminID,
	}).Info("Выдача билетов отозвана")
	return b, nil
}
