package spin_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/features/economy"
	"serotonyl.ru/reward-engine/internal/features/forcewin"
	"serotonyl.ru/reward-engine/internal/features/members"
	"serotonyl.ru/reward-engine/internal/features/prizes"
	"serotonyl.ru/reward-engine/internal/features/settings"
	"serotonyl.ru/reward-engine/internal/features/spin"
	"serotonyl.ru/reward-engine/internal/features/tickets"
	"serotonyl.ru/reward-engine/internal/store/memory"
)

const userID int64 = 1001

var monday = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// scripted возвращает заданные числа по кругу.
func scripted(values ...float64) spin.RandomSource {
	var (
		mu sync.Mutex
		i  int
	)
	return func() (float64, error) {
		mu.Lock()
		defer mu.Unlock()
		v := values[i%len(values)]
		i++
		return v, nil
	}
}

type recordingNotifier struct {
	wins chan spin.Win
}

func (n *recordingNotifier) NotifyWin(_ context.Context, w spin.Win) error {
	n.wins <- w
	return nil
}

// failingOutcomes ломает запись исхода, когда билет уже списан и монеты начислены.
type failingOutcomes struct {
	economy.Storage
}

func (failingOutcomes) InsertOutcome(context.Context, *economy.SpinOutcome) error {
	return errors.New("диск переполнен")
}

type fixture struct {
	store     *memory.Store
	clock     *fakeClock
	prizes    *prizes.Service
	economy   *economy.Service
	tickets   *tickets.Service
	forceWins *forcewin.Service
	spin      *spin.Service
	settings  *settings.Service // nil без withRuntimeSettings
	notifier  *recordingNotifier
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	opts       spin.Options
	random     spin.RandomSource
	wrapLedger func(economy.Storage) economy.Storage
	runtime    bool
}

func withRandom(r spin.RandomSource) fixtureOption {
	return func(c *fixtureConfig) { c.random = r }
}

func withOptions(o spin.Options) fixtureOption {
	return func(c *fixtureConfig) { c.opts = o }
}

// withRuntimeSettings подключает настройки из хранилища поверх Options.
func withRuntimeSettings() fixtureOption {
	return func(c *fixtureConfig) { c.runtime = true }
}

func withLedger(wrap func(economy.Storage) economy.Storage) fixtureOption {
	return func(c *fixtureConfig) { c.wrapLedger = wrap }
}

func newFixture(t *testing.T, options ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{
		opts:   spin.Options{Enabled: true, JackpotThreshold: 500, HistoryLimit: 20},
		random: scripted(0.5),
	}
	for _, o := range options {
		o(&cfg)
	}

	clk := &fakeClock{now: monday}
	store := memory.New(clk.Now)

	var economyStorage economy.Storage = store.Economy()
	if cfg.wrapLedger != nil {
		economyStorage = cfg.wrapLedger(economyStorage)
	}

	memberService := members.NewService(store.Members())
	prizeService := prizes.NewService(store.Prizes(), store)
	economyService := economy.NewService(economyStorage, store, clk.Now)
	ticketService := tickets.NewService(store.Tickets(), economyService, store, clk.Now)
	forceWinService := forcewin.NewService(store.ForceWins(), memberService, prizeService, store, clk.Now)
	notifier := &recordingNotifier{wins: make(chan spin.Win, 16)}

	var (
		settingsService *settings.Service
		source          spin.SettingsSource
	)
	if cfg.runtime {
		settingsService = settings.NewService(store.Settings(), store, settings.Settings{
			SpinEnabled:      cfg.opts.Enabled,
			JackpotThreshold: cfg.opts.JackpotThreshold,
		}, clk.Now)
		source = settingsService
	}

	spinService := spin.NewService(spin.Deps{
		Tx:        store,
		Tickets:   ticketService,
		Overrides: forceWinService,
		Catalog:   prizeService,
		Ledger:    economyService,
		Notifier:  notifier,
		Settings:  source,
		Random:    cfg.random,
		Clock:     clk.Now,
	}, cfg.opts)

	if err := memberService.Ensure(context.Background(), userID, "player"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	return &fixture{
		store:     store,
		clock:     clk,
		prizes:    prizeService,
		economy:   economyService,
		tickets:   ticketService,
		forceWins: forceWinService,
		spin:      spinService,
		settings:  settingsService,
		notifier:  notifier,
	}
}

func (f *fixture) addPrize(t *testing.T, name string, coins int64, weight string, order int) *prizes.Prize {
	t.Helper()
	w := decimal.RequireFromString(weight)
	active := true
	p := &prizes.Prize{Name: name, CoinValue: coins, Weight: w, Active: active, SortOrder: order}
	if err := f.store.Prizes().Create(context.Background(), p); err != nil {
		t.Fatalf("Create prize: %v", err)
	}
	return p
}

func (f *fixture) grantTickets(t *testing.T, n int) {
	t.Helper()
	expires := common.NextUTCMidnight(f.clock.Now())
	if err := f.economy.ApplyTicketGrant(context.Background(), economy.TicketGrant{UserID: userID, Count: n, ExpiresAt: expires, Source: "test"}); err != nil {
		t.Fatalf("ApplyTicketGrant: %v", err)
	}
}

func (f *fixture) ticketBalance(t *testing.T) int64 {
	t.Helper()
	n, err := f.tickets.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	return n
}

func (f *fixture) coins(t *testing.T) int64 {
	t.Helper()
	a, err := f.economy.GetAccount(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	return a.Coins
}

func TestSpinRequiresTicket(t *testing.T) {
	f := newFixture(t)
	f.addPrize(t, "10 монет", 10, "100", 1)

	_, err := f.spin.Spin(context.Background(), userID)
	if !errors.Is(err, common.ErrNoTickets) {
		t.Fatalf("ожидали ErrNoTickets, получили %v", err)
	}

	history, err := f.spin.History(context.Background(), userID, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("без билета исход не пишется, получили %d", len(history))
	}
}

func TestSpinCommitsOutcome(t *testing.T) {
	f := newFixture(t)
	p := f.addPrize(t, "100 монет", 100, "10", 1)

	claim, err := f.tickets.ClaimDaily(context.Background(), userID)
	if err != nil {
		t.Fatalf("ClaimDaily: %v", err)
	}
	if claim.TicketBalance != 1 {
		t.Fatalf("после награды ожидали 1 билет, получили %d", claim.TicketBalance)
	}

	res, err := f.spin.Spin(context.Background(), userID)
	if err != nil {
		t.Fatalf("Spin: %v", err)
	}
	if res.PrizeID != p.ID || res.CoinsWon != 100 || res.IsForceWin {
		t.Fatalf("неожиданный результат: %+v", res)
	}
	if res.NewCoinBalance != 100 || res.NewTicketBalance != 0 {
		t.Fatalf("балансы после вращения: монеты %d, билеты %d", res.NewCoinBalance, res.NewTicketBalance)
	}

	txs, err := f.economy.Transactions(context.Background(), userID, 10)
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("ожидали 1 транзакцию, получили %d", len(txs))
	}
	tx := txs[0]
	if tx.BalanceBefore != 0 || tx.BalanceAfter != 100 || tx.Amount != 100 || tx.TransactionType != economy.TxTypeSpinWin {
		t.Fatalf("неверная транзакция: %+v", tx)
	}
	if tx.ReferenceID == nil || *tx.ReferenceID != res.OutcomeID {
		t.Fatalf("транзакция должна ссылаться на исход %d: %+v", res.OutcomeID, tx.ReferenceID)
	}

	stored, err := f.prizes.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Get prize: %v", err)
	}
	if stored.WinCount != 1 {
		t.Fatalf("win_count = %d, ожидали 1", stored.WinCount)
	}
}

func TestSpinZeroCoinsWritesNoTransaction(t *testing.T) {
	f := newFixture(t)
	f.addPrize(t, "Ничего", 0, "100", 1)
	f.grantTickets(t, 1)

	res, err := f.spin.Spin(context.Background(), userID)
	if err != nil {
		t.Fatalf("Spin: %v", err)
	}
	if res.CoinsWon != 0 {
		t.Fatalf("CoinsWon = %d", res.CoinsWon)
	}

	txs, _ := f.economy.Transactions(context.Background(), userID, 10)
	if len(txs) != 0 {
		t.Fatalf("нулевой выигрыш не должен писать транзакцию, получили %d", len(txs))
	}
	history, _ := f.spin.History(context.Background(), userID, 0)
	if len(history) != 1 {
		t.Fatalf("исход всё равно пишется, получили %d", len(history))
	}
}

func TestSpinFollowsWeights(t *testing.T) {
	f := newFixture(t, withRandom(scripted(0.5, 0.85, 0.1, 0.95)))
	common80 := f.addPrize(t, "Частый", 10, "80", 1)
	rare20 := f.addPrize(t, "Редкий", 50, "20", 2)
	f.grantTickets(t, 4)

	want := []int64{common80.ID, rare20.ID, common80.ID, rare20.ID}
	for i, id := range want {
		res, err := f.spin.Spin(context.Background(), userID)
		if err != nil {
			t.Fatalf("Spin %d: %v", i, err)
		}
		if res.PrizeID != id {
			t.Fatalf("вращение %d: приз %d, ожидали %d", i, res.PrizeID, id)
		}
	}
	if got := f.coins(t); got != 120 {
		t.Fatalf("монеты = %d, ожидали 120", got)
	}
}

func TestForceWinTakesPrecedence(t *testing.T) {
	f := newFixture(t)
	f.addPrize(t, "Ничего", 0, "100", 1)
	// Приз принудительного выигрыша может не участвовать в розыгрыше
	jackpot := f.addPrize(t, "Джекпот", 250, "0", 2)
	f.grantTickets(t, 3)

	maxUses := 2
	o, err := f.forceWins.Create(context.Background(), 1, forcewin.CreateInput{
		UserID: userID, PrizeID: jackpot.ID, MaxUses: &maxUses, Reason: "тест",
	})
	if err != nil {
		t.Fatalf("Create override: %v", err)
	}

	for i := range 2 {
		res, err := f.spin.Spin(context.Background(), userID)
		if err != nil {
			t.Fatalf("Spin %d: %v", i, err)
		}
		if !res.IsForceWin || res.PrizeID != jackpot.ID {
			t.Fatalf("вращение %d должно быть принудительным: %+v", i, res)
		}
	}

	res, err := f.spin.Spin(context.Background(), userID)
	if err != nil {
		t.Fatalf("Spin 3: %v", err)
	}
	if res.IsForceWin || res.PrizeID == jackpot.ID {
		t.Fatalf("после исчерпания лимита розыгрыш честный: %+v", res)
	}

	stored, err := f.store.ForceWins().Get(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("Get override: %v", err)
	}
	if stored.UseCount != 2 || stored.Active {
		t.Fatalf("запись должна быть исчерпана и погашена: %+v", stored)
	}
	if got := f.coins(t); got != 500 {
		t.Fatalf("монеты = %d, ожидали 500", got)
	}

	select {
	case w := <-f.notifier.wins:
		t.Fatalf("принудительный выигрыш не объявляется: %+v", w)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConcurrentSpinsSpendSingleTicket(t *testing.T) {
	f := newFixture(t)
	f.addPrize(t, "10 монет", 10, "100", 1)
	f.grantTickets(t, 1)

	const workers = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		noTickets int
		other     []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.spin.Spin(context.Background(), userID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, common.ErrNoTickets):
				noTickets++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("неожиданные ошибки: %v", other)
	}
	if successes != 1 || noTickets != workers-1 {
		t.Fatalf("успехов %d, отказов %d; ожидали 1 и %d", successes, noTickets, workers-1)
	}
	if got := f.coins(t); got != 10 {
		t.Fatalf("монеты = %d, ожидали 10", got)
	}
}

func TestSpinRollsBackOnFailure(t *testing.T) {
	f := newFixture(t, withLedger(func(s economy.Storage) economy.Storage {
		return failingOutcomes{Storage: s}
	}))
	p := f.addPrize(t, "Джекпот", 500, "0", 1)
	f.grantTickets(t, 1)

	o, err := f.forceWins.Create(context.Background(), 1, forcewin.CreateInput{UserID: userID, PrizeID: p.ID})
	if err != nil {
		t.Fatalf("Create override: %v", err)
	}

	_, err = f.spin.Spin(context.Background(), userID)
	if err == nil {
		t.Fatal("ожидали ошибку записи исхода")
	}
	if cl := common.Classify(err); cl.Code != common.CodeInternal {
		t.Fatalf("сбой хранилища — INTERNAL_ERROR, получили %s", cl.Code)
	}

	if got := f.ticketBalance(t); got != 1 {
		t.Fatalf("билет должен вернуться, баланс %d", got)
	}
	if got := f.coins(t); got != 0 {
		t.Fatalf("монеты должны откатиться, баланс %d", got)
	}
	txs, _ := f.economy.Transactions(context.Background(), userID, 10)
	if len(txs) != 0 {
		t.Fatalf("транзакций не должно быть, получили %d", len(txs))
	}
	stored, _ := f.store.ForceWins().Get(context.Background(), o.ID)
	if stored.UseCount != 0 || !stored.Active {
		t.Fatalf("срабатывание должно откатиться: %+v", stored)
	}
	storedPrize, _ := f.prizes.Get(context.Background(), p.ID)
	if storedPrize.WinCount != 0 {
		t.Fatalf("win_count должен откатиться: %d", storedPrize.WinCount)
	}
}

func TestSpinWithoutPrizesKeepsTicket(t *testing.T) {
	f := newFixture(t)
	f.addPrize(t, "Нулевой", 10, "0", 1)
	f.grantTickets(t, 1)

	_, err := f.spin.Spin(context.Background(), userID)
	if !errors.Is(err, common.ErrNoPrizesConfigured) {
		t.Fatalf("ожидали ErrNoPrizesConfigured, получили %v", err)
	}
	if got := f.ticketBalance(t); got != 1 {
		t.Fatalf("билет не должен сгорать, баланс %d", got)
	}
}

func TestSpinDisabled(t *testing.T) {
	f := newFixture(t, withOptions(spin.Options{Enabled: false}))
	f.addPrize(t, "10 монет", 10, "100", 1)
	f.grantTickets(t, 1)

	if _, err := f.spin.Spin(context.Background(), userID); !errors.Is(err, common.ErrSpinDisabled) {
		t.Fatalf("ожидали ErrSpinDisabled, получили %v", err)
	}
	if got := f.ticketBalance(t); got != 1 {
		t.Fatalf("билет не должен списываться, баланс %d", got)
	}
}

func TestRuntimeSettingsApplyPerRequest(t *testing.T) {
	f := newFixture(t, withRuntimeSettings())
	ctx := context.Background()
	f.addPrize(t, "Джекпот 500", 500, "100", 1)
	f.grantTickets(t, 2)

	off := false
	if _, err := f.settings.Update(ctx, 1, settings.UpdateInput{SpinEnabled: &off}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := f.spin.Spin(ctx, userID); !errors.Is(err, common.ErrSpinDisabled) {
		t.Fatalf("ожидали ErrSpinDisabled, получили %v", err)
	}
	wheel, err := f.spin.Wheel(ctx, userID)
	if err != nil || wheel.Enabled {
		t.Fatalf("колесо должно быть выключено: %+v, %v", wheel, err)
	}

	// Снова включаем и поднимаем порог выше выигрыша
	on := true
	threshold := int64(1000)
	if _, err := f.settings.Update(ctx, 1, settings.UpdateInput{SpinEnabled: &on, JackpotThreshold: &threshold}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := f.spin.Spin(ctx, userID); err != nil {
		t.Fatalf("Spin: %v", err)
	}
	select {
	case w := <-f.notifier.wins:
		t.Fatalf("выигрыш ниже порога объявлен: %+v", w)
	case <-time.After(100 * time.Millisecond):
	}
	if got := f.ticketBalance(t); got != 1 {
		t.Fatalf("списан один билет, баланс %d", got)
	}
}

// brokenSettings не может прочитать настройки.
type brokenSettings struct{}

func (brokenSettings) Current(context.Context) (*settings.Settings, error) {
	return nil, errors.New("нет соединения")
}

func TestSpinFailsWhenSettingsUnavailable(t *testing.T) {
	f := newFixture(t)
	f.addPrize(t, "10 монет", 10, "100", 1)
	f.grantTickets(t, 1)

	svc := spin.NewService(spin.Deps{
		Tx:        f.store,
		Tickets:   f.tickets,
		Overrides: f.forceWins,
		Catalog:   f.prizes,
		Ledger:    f.economy,
		Settings:  brokenSettings{},
		Clock:     f.clock.Now,
	}, spin.Options{Enabled: true})

	if _, err := svc.Spin(context.Background(), userID); err == nil {
		t.Fatal("ожидали ошибку чтения настроек")
	}
	if got := f.ticketBalance(t); got != 1 {
		t.Fatalf("билет не должен списываться, баланс %d", got)
	}
}

func TestJackpotIsAnnounced(t *testing.T) {
	f := newFixture(t)
	f.addPrize(t, "Джекпот 500", 500, "100", 1)
	f.grantTickets(t, 1)

	if _, err := f.spin.Spin(context.Background(), userID); err != nil {
		t.Fatalf("Spin: %v", err)
	}

	select {
	case w := <-f.notifier.wins:
		if w.UserID != userID || w.CoinsWon != 500 || w.PrizeName != "Джекпот 500" {
			t.Fatalf("неверное объявление: %+v", w)
		}
	case <-time.After(time.Second):
		t.Fatal("джекпот не объявлен")
	}
}

func TestExpiredTicketsCannotSpin(t *testing.T) {
	f := newFixture(t)
	f.addPrize(t, "10 монет", 10, "100", 1)
	f.grantTickets(t, 1)

	// Билет действует до полуночи UTC
	f.clock.mu.Lock()
	f.clock.now = common.NextUTCMidnight(monday)
	f.clock.mu.Unlock()

	if _, err := f.spin.Spin(context.Background(), userID); !errors.Is(err, common.ErrNoTickets) {
		t.Fatalf("истёкший билет не тратится, получили %v", err)
	}
}

func TestWheelAndHistory(t *testing.T) {
	f := newFixture(t)
	f.addPrize(t, "a", 10, "75", 1)
	f.addPrize(t, "b", 20, "25", 2)
	f.grantTickets(t, 2)

	for range 2 {
		if _, err := f.spin.Spin(context.Background(), userID); err != nil {
			t.Fatalf("Spin: %v", err)
		}
	}

	w, err := f.spin.Wheel(context.Background(), userID)
	if err != nil {
		t.Fatalf("Wheel: %v", err)
	}
	if len(w.Prizes) != 2 || !w.Prizes[0].Chance.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("неверное колесо: %+v", w.Prizes)
	}
	if w.TicketBalance != 0 || w.CoinBalance != 20 || !w.Enabled {
		t.Fatalf("неверные балансы колеса: %+v", w)
	}

	history, err := f.spin.History(context.Background(), userID, 1)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("limit=1, получили %d", len(history))
	}
}
