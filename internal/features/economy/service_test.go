package economy_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/features/economy"
	"serotonyl.ru/reward-engine/internal/store/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newService() (*economy.Service, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}
	store := memory.New(clk.Now)
	return economy.NewService(store.Economy(), store, clk.Now), clk
}

func commit(t *testing.T, svc *economy.Service, userID, prizeID int64, name string, coins int64) *economy.SpinReceipt {
	t.Helper()
	r, err := svc.ApplySpinResult(context.Background(), economy.SpinCommit{
		UserID: userID, PrizeID: prizeID, PrizeName: name, CoinsWon: coins,
	})
	if err != nil {
		t.Fatalf("ApplySpinResult: %v", err)
	}
	return r
}

func TestApplySpinResultTracksBalance(t *testing.T) {
	svc, _ := newService()

	commit(t, svc, 1, 10, "10 монет", 10)
	r := commit(t, svc, 1, 20, "25 монет", 25)
	if r.Account.Coins != 35 || r.Account.TotalEarned != 35 {
		t.Fatalf("счёт после двух выигрышей: %+v", r.Account)
	}

	txs, err := svc.Transactions(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("ожидали 2 транзакции, получили %d", len(txs))
	}
	// Новые первыми
	if txs[0].BalanceBefore != 10 || txs[0].BalanceAfter != 35 {
		t.Fatalf("последняя транзакция: %+v", txs[0])
	}
}

func TestStats(t *testing.T) {
	svc, clk := newService()

	// Вчерашние вращения не входят в «сегодня»
	clk.Set(time.Date(2026, 3, 31, 20, 0, 0, 0, time.UTC))
	commit(t, svc, 1, 10, "10 монет", 10)
	commit(t, svc, 2, 10, "10 монет", 10)

	clk.Set(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))
	commit(t, svc, 1, 30, "Ничего", 0)
	commit(t, svc, 3, 20, "25 монет", 25)

	st, err := svc.Stats(context.Background(), 3)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalSpins != 4 || st.TotalCoinsWon != 45 || st.UniqueSpinners != 3 {
		t.Fatalf("итоги: %+v", st)
	}
	if st.TodaySpins != 2 || st.TodayCoinsWon != 25 {
		t.Fatalf("сегодня: %d вращений, %d монет", st.TodaySpins, st.TodayCoinsWon)
	}
	if !st.AvgCoinsPerSpin.Equal(decimal.RequireFromString("11.25")) {
		t.Fatalf("средний выигрыш = %s", st.AvgCoinsPerSpin)
	}
	if st.MostWonPrize == nil || st.MostWonPrize.PrizeID != 10 || st.MostWonPrize.Wins != 2 {
		t.Fatalf("самый частый приз: %+v", st.MostWonPrize)
	}
	if len(st.RecentSpins) != 3 || st.RecentSpins[0].UserID != 3 {
		t.Fatalf("последние вращения: %+v", st.RecentSpins)
	}
}

func TestStatsEmpty(t *testing.T) {
	svc, _ := newService()

	st, err := svc.Stats(context.Background(), 20)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalSpins != 0 || !st.AvgCoinsPerSpin.IsZero() || st.MostWonPrize != nil {
		t.Fatalf("пустая статистика: %+v", st)
	}
	if st.RecentSpins == nil {
		t.Fatal("RecentSpins должен быть пустым срезом, а не nil")
	}
}

func TestApplyTicketGrantRejectsEmpty(t *testing.T) {
	svc, clk := newService()
	err := svc.ApplyTicketGrant(context.Background(), economy.TicketGrant{UserID: 1, ExpiresAt: clk.Now().Add(time.Hour), Source: economy.TicketSourceDaily})
	var vErr *common.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("ожидали ValidationError, получили %v", err)
	}
}

func TestRecordDailyClaimIsUnique(t *testing.T) {
	svc, clk := newService()
	ctx := context.Background()
	today := common.UTCDate(clk.Now())

	if err := svc.RecordDailyClaim(ctx, 1, today, 1); err != nil {
		t.Fatalf("RecordDailyClaim: %v", err)
	}
	if err := svc.RecordDailyClaim(ctx, 1, today.Add(5*time.Hour), 1); !errors.Is(err, common.ErrAlreadyClaimed) {
		t.Fatalf("ожидали ErrAlreadyClaimed, получили %v", err)
	}
}
