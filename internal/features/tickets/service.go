// Package tickets — service.go содержит основную логику ежедневной награды.
// Сервис проверяет вчерашнюю запись, считает серию, выдаёт билеты
// и фиксирует всё одной транзакцией.
package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/features/economy"
)

// Storage — хранилище билетов (Postgres или память).
type Storage interface {
	FindClaim(ctx context.Context, userID int64, date time.Time) (*ClaimRecord, error)
	CountSpendable(ctx context.Context, userID int64, now time.Time) (int64, error)
	ConsumeOne(ctx context.Context, userID int64, now time.Time) (int64, error)
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// Ledger — журнал, через который выдаются билеты и пишутся награды.
type Ledger interface {
	LockAccount(ctx context.Context, userID int64) (*economy.Account, error)
	ApplyTicketGrant(ctx context.Context, g economy.TicketGrant) error
	RecordDailyClaim(ctx context.Context, userID int64, date time.Time, streak int) error
}

// Transactor выполняет функцию в транзакции хранилища.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service управляет билетами.
type Service struct {
	repo   Storage
	ledger Ledger
	tx     Transactor
	clock  common.Clock
}

// NewService создаёт новый сервис билетов.
func NewService(repo Storage, ledger Ledger, tx Transactor, clock common.Clock) *Service {
	if clock == nil {
		clock = common.SystemClock
	}
	return &Service{repo: repo, ledger: ledger, tx: tx, clock: clock}
}

// ClaimDaily выдаёт ежедневную награду.
//
// Алгоритм:
//  1. today — UTC-полночь. Запись за today уже есть → ErrAlreadyClaimed
//  2. Есть запись за вчера → серия = вчерашняя + 1, иначе 1
//  3. Количество билетов по таблице TicketsForStreak
//  4. Билеты действуют до следующей UTC-полуночи
//  5. Записываем награду
//
// Шаги выполняются в одной транзакции. Конкурентный дубль упирается
// в уникальность (user_id, claim_date) и тоже получает ErrAlreadyClaimed.
func (s *Service) ClaimDaily(ctx context.Context, userID int64) (*ClaimResult, error) {
	var res *ClaimResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := s.clock()
		today := common.UTCDate(now)

		// Сериализуем награды пользователя на строке счёта
		if _, err := s.ledger.LockAccount(ctx, userID); err != nil {
			return err
		}

		// Шаг 1: уже получал сегодня?
		if _, err := s.repo.FindClaim(ctx, userID, today); err == nil {
			return common.ErrAlreadyClaimed
		} else if !errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: %w", common.ErrStreakVerification, err)
		}

		// Шаг 2: серия
		streak, err := s.streakFrom(ctx, userID, today)
		if err != nil {
			return err
		}

		// Шаги 3-4: билеты до следующей полуночи
		count := TicketsForStreak(streak)
		expiresAt := common.NextUTCMidnight(today)
		if err := s.ledger.ApplyTicketGrant(ctx, economy.TicketGrant{
			UserID:    userID,
			Count:     count,
			ExpiresAt: expiresAt,
			Source:    economy.TicketSourceDaily,
		}); err != nil {
			return err
		}

		// Шаг 5
		if err := s.ledger.RecordDailyClaim(ctx, userID, today, streak); err != nil {
			return err
		}

		balance, err := s.repo.CountSpendable(ctx, userID, now)
		if err != nil {
			return err
		}

		res = &ClaimResult{
			TicketsGranted: count,
			NewStreak:      streak,
			TicketBalance:  balance,
			ExpiresAt:      expiresAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"streak":  res.NewStreak,
		"tickets": res.TicketsGranted,
	}).Info("Ежедневная награда выдана")
	return res, nil
}

// streakFrom считает серию для дня today по вчерашней записи.
func (s *Service) streakFrom(ctx context.Context, userID int64, today time.Time) (int, error) {
	prev, err := s.repo.FindClaim(ctx, userID, today.AddDate(0, 0, -1))
	switch {
	case err == nil:
		return prev.Streak + 1, nil
	case errors.Is(err, common.ErrNotFound):
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: %w", common.ErrStreakVerification, err)
	}
}

// Status возвращает состояние ежедневной награды без изменений.
func (s *Service) Status(ctx context.Context, userID int64) (*DailyStatus, error) {
	now := s.clock()
	today := common.UTCDate(now)

	balance, err := s.repo.CountSpendable(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	st := &DailyStatus{TicketBalance: balance}

	todayClaim, err := s.repo.FindClaim(ctx, userID, today)
	switch {
	case err == nil:
		st.ClaimedToday = true
		st.CurrentStreak = todayClaim.Streak
		st.NextStreak = todayClaim.Streak + 1
		st.NextClaimAt = common.NextUTCMidnight(today)
	case errors.Is(err, common.ErrNotFound):
		st.CanClaim = true
		st.NextClaimAt = now
		st.NextStreak, err = s.streakFrom(ctx, userID, today)
		if err != nil {
			return nil, err
		}
		st.CurrentStreak = st.NextStreak - 1
	default:
		return nil, fmt.Errorf("%w: %w", common.ErrStreakVerification, err)
	}
	st.NextTickets = TicketsForStreak(st.NextStreak)
	return st, nil
}

// Balance возвращает количество действующих билетов.
func (s *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	return s.repo.CountSpendable(ctx, userID, s.clock())
}

// BalanceAt — то же на заданный момент (внутри транзакции вращения).
func (s *Service) BalanceAt(ctx context.Context, userID int64, now time.Time) (int64, error) {
	return s.repo.CountSpendable(ctx, userID, now)
}

// ConsumeOne списывает один билет с ближайшим сроком.
// Вызывать внутри транзакции после блокировки счёта.
func (s *Service) ConsumeOne(ctx context.Context, userID int64, now time.Time) error {
	id, err := s.repo.ConsumeOne(ctx, userID, now)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"user_id": userID, "ticket_id": id}).Debug("Билет списан")
	return nil
}

// PurgeExpired удаляет билеты, истёкшие или использованные раньше, чем retention назад.
func (s *Service) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	before := s.clock().Add(-retention)
	n, err := s.repo.PurgeExpired(ctx, before)
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{"deleted": n, "before": before.Format(time.RFC3339)}).Info("Старые билеты удалены")
	return n, nil
}
