// Package memory — хранилище в памяти процесса для тестов и локальной разработки.
// Реализует интерфейсы Storage всех фич и транзактор: транзакция держит
// общий мьютекс, при ошибке состояние восстанавливается из снимка.
// Подходит только для одного процесса.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/features/economy"
	"serotonyl.ru/reward-engine/internal/features/forcewin"
	"serotonyl.ru/reward-engine/internal/features/members"
	"serotonyl.ru/reward-engine/internal/features/prizes"
	"serotonyl.ru/reward-engine/internal/features/settings"
	"serotonyl.ru/reward-engine/internal/features/tickets"
)

type claimKey struct {
	userID int64
	date   time.Time
}

type state struct {
	nextID       int64
	members      map[int64]members.Member
	prizes       map[int64]prizes.Prize
	accounts     map[int64]economy.Account
	transactions []economy.Transaction
	outcomes     []economy.SpinOutcome
	grants       []tickets.Grant
	bonuses      map[int64]tickets.Bonus
	claims       map[claimKey]tickets.ClaimRecord
	overrides    map[int64]forcewin.Override
	settings     *settings.Settings // nil — не сохранены
}

func newState() *state {
	return &state{
		members:   make(map[int64]members.Member),
		prizes:    make(map[int64]prizes.Prize),
		accounts:  make(map[int64]economy.Account),
		bonuses:   make(map[int64]tickets.Bonus),
		claims:    make(map[claimKey]tickets.ClaimRecord),
		overrides: make(map[int64]forcewin.Override),
	}
}

// clone копирует состояние. Указатели внутри записей не меняются на месте,
// поэтому поверхностной копии значений достаточно.
func (st *state) clone() *state {
	return &state{
		nextID:       st.nextID,
		members:      maps.Clone(st.members),
		prizes:       maps.Clone(st.prizes),
		accounts:     maps.Clone(st.accounts),
		transactions: slices.Clone(st.transactions),
		outcomes:     slices.Clone(st.outcomes),
		grants:       slices.Clone(st.grants),
		bonuses:      maps.Clone(st.bonuses),
		claims:       maps.Clone(st.claims),
		overrides:    maps.Clone(st.overrides),
		settings:     st.settings,
	}
}

func (st *state) id() int64 {
	st.nextID++
	return st.nextID
}

type txKey struct{}

// Store — хранилище в памяти.
type Store struct {
	mu    sync.Mutex
	st    *state
	clock common.Clock
}

// New создаёт пустое хранилище. clock задаёт метки created_at.
func New(clock common.Clock) *Store {
	if clock == nil {
		clock = common.SystemClock
	}
	return &Store{st: newState(), clock: clock}
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// WithinTx выполняет fn атомарно. Вложенный вызов присоединяется к внешнему.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// run выполняет одиночную операцию: внутри транзакции без повторной блокировки.
func (s *Store) run(ctx context.Context, fn func(st *state) error) error {
	if s.inTx(ctx) {
		return fn(s.st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// Members возвращает хранилище участников.
func (s *Store) Members() *MemberRepository { return &MemberRepository{s: s} }

// Prizes возвращает хранилище каталога.
func (s *Store) Prizes() *PrizeRepository { return &PrizeRepository{s: s} }

// Economy возвращает хранилище журнала.
func (s *Store) Economy() *EconomyRepository { return &EconomyRepository{s: s} }

// Tickets возвращает хранилище билетов.
func (s *Store) Tickets() *TicketRepository { return &TicketRepository{s: s} }

// ForceWins возвращает хранилище реестра.
func (s *Store) ForceWins() *ForceWinRepository { return &ForceWinRepository{s: s} }

// Settings возвращает хранилище настроек рулетки.
func (s *Store) Settings() *SettingsRepository { return &SettingsRepository{s: s} }
