// Package economy — service.go содержит операции журнала баланса.
// Каждая операция атомарна: присоединяется к транзакции вызывающего
// или открывает свою.
package economy

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reward-engine/internal/common"
)

// Storage — хранилище журнала (Postgres или память).
type Storage interface {
	LockAccount(ctx context.Context, userID int64) (*Account, error)
	GetAccount(ctx context.Context, userID int64) (*Account, error)
	CreditCoins(ctx context.Context, userID, amount int64) (*Account, error)
	InsertTransaction(ctx context.Context, t *Transaction) error
	InsertOutcome(ctx context.Context, o *SpinOutcome) error
	IncrementWinCount(ctx context.Context, prizeID int64) error
	InsertTicketGrants(ctx context.Context, g TicketGrant, at time.Time) error
	InsertDailyClaim(ctx context.Context, userID int64, date time.Time, streak int, at time.Time) error
	ListOutcomes(ctx context.Context, userID int64, limit int) ([]SpinOutcome, error)
	ListTransactions(ctx context.Context, userID int64, limit int) ([]Transaction, error)
	Totals(ctx context.Context, since time.Time) (*Totals, error)
	MostWonPrize(ctx context.Context) (*PrizeTally, error)
}

// Transactor выполняет функцию в транзакции хранилища.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service — журнал баланса и аудита.
type Service struct {
	repo  Storage
	tx    Transactor
	clock common.Clock
}

// NewService создаёт новый сервис экономики.
func NewService(repo Storage, tx Transactor, clock common.Clock) *Service {
	if clock == nil {
		clock = common.SystemClock
	}
	return &Service{repo: repo, tx: tx, clock: clock}
}

// LockAccount блокирует счёт пользователя до конца текущей транзакции.
// Вызывать только внутри WithinTx.
func (s *Service) LockAccount(ctx context.Context, userID int64) (*Account, error) {
	return s.repo.LockAccount(ctx, userID)
}

// GetAccount возвращает текущий счёт пользователя.
func (s *Service) GetAccount(ctx context.Context, userID int64) (*Account, error) {
	return s.repo.GetAccount(ctx, userID)
}

// ApplySpinResult фиксирует итог вращения:
//  1. начисляет монеты
//  2. пишет исход в spin_outcomes
//  3. пишет транзакцию с балансом до/после (если выигрыш не нулевой)
//  4. увеличивает win_count приза
//
// Списание билета выполняет вызывающий в той же транзакции.
func (s *Service) ApplySpinResult(ctx context.Context, c SpinCommit) (*SpinReceipt, error) {
	var receipt *SpinReceipt
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		account, err := s.repo.CreditCoins(ctx, c.UserID, c.CoinsWon)
		if err != nil {
			return err
		}

		outcome := &SpinOutcome{
			UserID:     c.UserID,
			PrizeID:    c.PrizeID,
			PrizeName:  c.PrizeName,
			CoinsWon:   c.CoinsWon,
			IsForceWin: c.IsForceWin,
		}
		if err := s.repo.InsertOutcome(ctx, outcome); err != nil {
			return err
		}

		if c.CoinsWon > 0 {
			ref := outcome.ID
			if err := s.repo.InsertTransaction(ctx, &Transaction{
				UserID:          c.UserID,
				Amount:          c.CoinsWon,
				BalanceBefore:   account.Coins - c.CoinsWon,
				BalanceAfter:    account.Coins,
				TransactionType: TxTypeSpinWin,
				Description:     fmt.Sprintf("Рулетка: %s", c.PrizeName),
				ReferenceType:   "spin_outcome",
				ReferenceID:     &ref,
			}); err != nil {
				return err
			}
		}

		if err := s.repo.IncrementWinCount(ctx, c.PrizeID); err != nil {
			return err
		}

		receipt = &SpinReceipt{Account: account, Outcome: outcome}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ApplyTicketGrant выдаёт g.Count билетов со сроком действия g.ExpiresAt.
func (s *Service) ApplyTicketGrant(ctx context.Context, g TicketGrant) error {
	if g.Count <= 0 {
		return common.NewValidationError("count", "должно быть больше нуля")
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repo.InsertTicketGrants(ctx, g, s.clock())
	})
}

// RecordDailyClaim записывает ежедневную награду за дату date (UTC-полночь).
func (s *Service) RecordDailyClaim(ctx context.Context, userID int64, date time.Time, streak int) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repo.InsertDailyClaim(ctx, userID, common.UTCDate(date), streak, s.clock())
	})
}

// Outcomes возвращает последние исходы пользователя.
func (s *Service) Outcomes(ctx context.Context, userID int64, limit int) ([]SpinOutcome, error) {
	return s.repo.ListOutcomes(ctx, userID, limit)
}

// Transactions возвращает последние движения монет пользователя.
func (s *Service) Transactions(ctx context.Context, userID int64, limit int) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, userID, limit)
}

// Stats собирает сводку по всем вращениям. «Сегодня» — с UTC-полуночи.
func (s *Service) Stats(ctx context.Context, recent int) (*Stats, error) {
	totals, err := s.repo.Totals(ctx, common.UTCDate(s.clock()))
	if err != nil {
		return nil, err
	}
	top, err := s.repo.MostWonPrize(ctx)
	if err != nil {
		return nil, err
	}
	recentSpins, err := s.repo.ListOutcomes(ctx, 0, recent)
	if err != nil {
		return nil, err
	}
	if recentSpins == nil {
		recentSpins = []SpinOutcome{}
	}

	avg := decimal.Zero
	if totals.TotalSpins > 0 {
		avg = decimal.NewFromInt(totals.TotalCoinsWon).Div(decimal.NewFromInt(totals.TotalSpins)).Round(2)
	}

	stats := &Stats{
		TotalSpins:      totals.TotalSpins,
		TotalCoinsWon:   totals.TotalCoinsWon,
		UniqueSpinners:  totals.UniqueSpinners,
		TodaySpins:      totals.TodaySpins,
		TodayCoinsWon:   totals.TodayCoinsWon,
		AvgCoinsPerSpin: avg,
		MostWonPrize:    top,
		RecentSpins:     recentSpins,
	}

	log.WithFields(log.Fields{
		"total_spins": stats.TotalSpins,
		"today_spins": stats.TodaySpins,
	}).Debug("Статистика рулетки собрана")
	return stats, nil
}
