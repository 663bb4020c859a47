// Package spin — service.go координирует вращение от начала до конца.
package spin

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/features/economy"
	"serotonyl.ru/reward-engine/internal/features/forcewin"
	"serotonyl.ru/reward-engine/internal/features/prizes"
	"serotonyl.ru/reward-engine/internal/features/settings"
)

const notifyTimeout = 10 * time.Second

// TicketSpender списывает и считает билеты.
type TicketSpender interface {
	ConsumeOne(ctx context.Context, userID int64, now time.Time) error
	BalanceAt(ctx context.Context, userID int64, now time.Time) (int64, error)
}

// OverrideRegistry — реестр принудительных выигрышей.
type OverrideRegistry interface {
	FindEligible(ctx context.Context, userID int64, now time.Time) (*forcewin.Override, error)
	Consume(ctx context.Context, id int64, now time.Time) (*forcewin.Override, error)
}

// Catalog — каталог призов.
type Catalog interface {
	ListActive(ctx context.Context) ([]prizes.Prize, error)
	Get(ctx context.Context, id int64) (*prizes.Prize, error)
}

// Ledger — журнал баланса и аудита.
type Ledger interface {
	LockAccount(ctx context.Context, userID int64) (*economy.Account, error)
	GetAccount(ctx context.Context, userID int64) (*economy.Account, error)
	ApplySpinResult(ctx context.Context, c economy.SpinCommit) (*economy.SpinReceipt, error)
	Outcomes(ctx context.Context, userID int64, limit int) ([]economy.SpinOutcome, error)
}

// WinNotifier объявляет крупные выигрыши.
type WinNotifier interface {
	NotifyWin(ctx context.Context, w Win) error
}

// SettingsSource отдаёт настройки, действующие на момент запроса.
type SettingsSource interface {
	Current(ctx context.Context) (*settings.Settings, error)
}

// Transactor выполняет функцию в транзакции хранилища.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service — движок вращения.
type Service struct {
	tx        Transactor
	tickets   TicketSpender
	overrides OverrideRegistry
	catalog   Catalog
	ledger    Ledger
	notifier  WinNotifier
	settings  SettingsSource
	random    RandomSource
	clock     common.Clock
	opts      Options
}

// Deps — зависимости движка.
type Deps struct {
	Tx        Transactor
	Tickets   TicketSpender
	Overrides OverrideRegistry
	Catalog   Catalog
	Ledger    Ledger
	Notifier  WinNotifier    // nil — без объявлений
	Settings  SettingsSource // nil — только Options
	Random    RandomSource   // nil — CryptoRandom
	Clock     common.Clock   // nil — SystemClock
}

// NewService создаёт движок вращения.
func NewService(deps Deps, opts Options) *Service {
	s := &Service{
		tx:        deps.Tx,
		tickets:   deps.Tickets,
		overrides: deps.Overrides,
		catalog:   deps.Catalog,
		ledger:    deps.Ledger,
		notifier:  deps.Notifier,
		settings:  deps.Settings,
		random:    deps.Random,
		clock:     deps.Clock,
		opts:      opts,
	}
	if s.random == nil {
		s.random = CryptoRandom
	}
	if s.clock == nil {
		s.clock = common.SystemClock
	}
	if s.opts.HistoryLimit <= 0 {
		s.opts.HistoryLimit = 20
	}
	return s
}

// Spin выполняет одно вращение. Всё ниже — одна транзакция:
//  1. блокируем счёт и списываем билет (нет билетов → ErrNoTickets)
//  2. применимый принудительный выигрыш → его приз, срабатывание фиксируется
//  3. иначе взвешенный розыгрыш по одному снимку активного каталога
//  4. начисление монет, транзакция, исход, win_count
//
// Любая ошибка откатывает всё, включая списание билета.
func (s *Service) Spin(ctx context.Context, userID int64) (*Result, error) {
	cfg, err := s.runtime(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.SpinEnabled {
		return nil, common.ErrSpinDisabled
	}

	var res *Result
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := s.clock()

		// Шаг 1
		if _, err := s.ledger.LockAccount(ctx, userID); err != nil {
			return err
		}
		if err := s.tickets.ConsumeOne(ctx, userID, now); err != nil {
			return err
		}

		// Шаги 2-3
		prize, forced, err := s.resolve(ctx, userID, now)
		if err != nil {
			return err
		}

		// Шаг 4
		receipt, err := s.ledger.ApplySpinResult(ctx, economy.SpinCommit{
			UserID:     userID,
			PrizeID:    prize.ID,
			PrizeName:  prize.Name,
			CoinsWon:   prize.CoinValue,
			IsForceWin: forced,
		})
		if err != nil {
			return err
		}

		tickets, err := s.tickets.BalanceAt(ctx, userID, now)
		if err != nil {
			return err
		}

		res = &Result{
			OutcomeID:        receipt.Outcome.ID,
			Prize:            *prize,
			PrizeID:          prize.ID,
			PrizeName:        prize.Name,
			CoinsWon:         prize.CoinValue,
			IsForceWin:       forced,
			NewCoinBalance:   receipt.Account.Coins,
			NewTicketBalance: tickets,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":      userID,
		"prize_id":     res.PrizeID,
		"coins_won":    res.CoinsWon,
		"is_force_win": res.IsForceWin,
	}).Info("Вращение выполнено")

	s.announce(ctx, userID, res, cfg.JackpotThreshold)
	return res, nil
}

// runtime возвращает настройки на этот запрос. Без источника — из Options.
func (s *Service) runtime(ctx context.Context) (*settings.Settings, error) {
	if s.settings == nil {
		return &settings.Settings{SpinEnabled: s.opts.Enabled, JackpotThreshold: s.opts.JackpotThreshold}, nil
	}
	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения настроек рулетки: %w", err)
	}
	return cfg, nil
}

// resolve возвращает приз и признак принудительного выигрыша.
func (s *Service) resolve(ctx context.Context, userID int64, now time.Time) (*prizes.Prize, bool, error) {
	override, err := s.overrides.FindEligible(ctx, userID, now)
	if err != nil {
		return nil, false, err
	}
	if override != nil {
		prize, err := s.catalog.Get(ctx, override.PrizeID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				// Наружу это внутренняя ошибка, а не 404
				return nil, false, fmt.Errorf("приз %d принудительного выигрыша %d отсутствует: %v",
					override.PrizeID, override.ID, err)
			}
			return nil, false, err
		}
		if _, err := s.overrides.Consume(ctx, override.ID, now); err != nil {
			return nil, false, err
		}
		return prize, true, nil
	}

	list, err := s.catalog.ListActive(ctx)
	if err != nil {
		return nil, false, err
	}
	u, err := s.random()
	if err != nil {
		return nil, false, err
	}
	prize, err := Pick(list, u)
	if err != nil {
		return nil, false, err
	}
	return prize, false, nil
}

// announce объявляет крупный честный выигрыш в фоне.
// Ошибка доставки только логируется.
func (s *Service) announce(ctx context.Context, userID int64, res *Result, threshold int64) {
	if s.notifier == nil || res.IsForceWin || threshold <= 0 || res.CoinsWon < threshold {
		return
	}
	win := Win{UserID: userID, PrizeName: res.PrizeName, CoinsWon: res.CoinsWon, At: s.clock()}
	go func() {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyWin(nctx, win); err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("Не удалось объявить выигрыш")
		}
	}()
}

// Wheel возвращает активные призы с шансами и балансы пользователя.
func (s *Service) Wheel(ctx context.Context, userID int64) (*Wheel, error) {
	cfg, err := s.runtime(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.catalog.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	tickets, err := s.tickets.BalanceAt(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	account, err := s.ledger.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Wheel{
		Prizes:        prizes.Chances(list),
		TicketBalance: tickets,
		CoinBalance:   account.Coins,
		Enabled:       cfg.SpinEnabled,
	}, nil
}

// History возвращает последние вращения пользователя. limit <= 0 — значение по умолчанию.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = s.opts.HistoryLimit
	}
	outcomes, err := s.ledger.Outcomes(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, 0, len(outcomes))
	for _, o := range outcomes {
		name := o.PrizeName
		if name == "" {
			name = prizes.UnknownPrizeName
		}
		out = append(out, HistoryEntry{
			ID:         o.ID,
			PrizeID:    o.PrizeID,
			PrizeName:  name,
			CoinsWon:   o.CoinsWon,
			IsForceWin: o.IsForceWin,
			CreatedAt:  o.CreatedAt,
		})
	}
	return out, nil
}
