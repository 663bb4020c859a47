package tickets_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/features/economy"
	"serotonyl.ru/reward-engine/internal/features/members"
	"serotonyl.ru/reward-engine/internal/features/tickets"
	"serotonyl.ru/reward-engine/internal/store/memory"
)

const adminID int64 = 1

type bonusFixture struct {
	svc   *tickets.BonusService
	store *memory.Store
	clk   *fakeClock
}

func newBonusFixture(t *testing.T, wrap func(economy.Storage) economy.Storage) *bonusFixture {
	t.Helper()
	clk := &fakeClock{now: monday}
	store := memory.New(clk.Now)
	var econ economy.Storage = store.Economy()
	if wrap != nil {
		econ = wrap(econ)
	}
	users := members.NewService(store.Members())
	if err := users.Ensure(context.Background(), userID, "player"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	ledger := economy.NewService(econ, store, clk.Now)
	svc := tickets.NewBonusService(store.Tickets(), ledger, users, store, clk.Now, 48*time.Hour)
	return &bonusFixture{svc: svc, store: store, clk: clk}
}

func (f *bonusFixture) balance(t *testing.T) int64 {
	t.Helper()
	n, err := f.store.Tickets().CountSpendable(context.Background(), userID, f.clk.Now())
	if err != nil {
		t.Fatalf("CountSpendable: %v", err)
	}
	return n
}

func TestGrantBonusDefaults(t *testing.T) {
	f := newBonusFixture(t, nil)

	b, err := f.svc.Grant(context.Background(), adminID, tickets.BonusInput{UserID: userID})
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if b.Count != 1 || b.Remaining != 1 || b.GrantedBy != adminID {
		t.Fatalf("выдача = %+v", b)
	}
	if b.Reason != "Выдано администратором" {
		t.Fatalf("причина = %q", b.Reason)
	}
	if !b.ExpiresAt.Equal(monday.Add(48 * time.Hour)) {
		t.Fatalf("срок = %s", b.ExpiresAt)
	}
	if got := f.balance(t); got != 1 {
		t.Fatalf("билетов %d, ожидали 1", got)
	}
}

func TestGrantBonusValidation(t *testing.T) {
	f := newBonusFixture(t, nil)
	past := monday.Add(-time.Minute)
	tooFar := monday.Add(400 * 24 * time.Hour)

	tests := []struct {
		name  string
		in    tickets.BonusInput
		field string
	}{
		{"без пользователя", tickets.BonusInput{Count: 1}, "userId"},
		{"слишком много", tickets.BonusInput{UserID: userID, Count: tickets.MaxBonusCount + 1}, "count"},
		{"отрицательное", tickets.BonusInput{UserID: userID, Count: -2}, "count"},
		{"срок в прошлом", tickets.BonusInput{UserID: userID, ExpiresAt: &past}, "expiresAt"},
		{"срок дальше года", tickets.BonusInput{UserID: userID, ExpiresAt: &tooFar}, "expiresAt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Grant(context.Background(), adminID, tt.in)
			var vErr *common.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("ожидали ValidationError, получили %v", err)
			}
			if _, ok := vErr.Fields[tt.field]; !ok {
				t.Fatalf("нет ошибки поля %s: %v", tt.field, vErr.Fields)
			}
		})
	}
	if got := f.balance(t); got != 0 {
		t.Fatalf("после отказов билетов %d", got)
	}
}

func TestGrantBonusUnknownUser(t *testing.T) {
	f := newBonusFixture(t, nil)
	_, err := f.svc.Grant(context.Background(), adminID, tickets.BonusInput{UserID: 999, Count: 2})
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}
}

// failingGrants роняет выдачу билетов после записи о бонусе.
type failingGrants struct {
	economy.Storage
}

func (failingGrants) InsertTicketGrants(context.Context, economy.TicketGrant, time.Time) error {
	return errors.New("таблица заблокирована")
}

func TestGrantBonusRollsBackRecord(t *testing.T) {
	f := newBonusFixture(t, func(s economy.Storage) economy.Storage { return failingGrants{s} })

	if _, err := f.svc.Grant(context.Background(), adminID, tickets.BonusInput{UserID: userID, Count: 3}); err == nil {
		t.Fatal("ожидали ошибку выдачи")
	}
	list, err := f.svc.List(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("запись о выдаче должна откатиться: %+v", list)
	}
}

func TestRevokeBonusKeepsSpentTickets(t *testing.T) {
	f := newBonusFixture(t, nil)
	ctx := context.Background()

	b, err := f.svc.Grant(ctx, adminID, tickets.BonusInput{UserID: userID, Count: 3, Reason: "турнир"})
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if _, err := f.store.Tickets().ConsumeOne(ctx, userID, f.clk.Now()); err != nil {
		t.Fatalf("ConsumeOne: %v", err)
	}

	revoked, err := f.svc.Revoke(ctx, adminID, b.ID)
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if revoked.RevokedAt == nil || revoked.Remaining != 0 {
		t.Fatalf("после отзыва: %+v", revoked)
	}
	if got := f.balance(t); got != 0 {
		t.Fatalf("неиспользованные билеты должны исчезнуть, осталось %d", got)
	}

	// Повторный отзыв не меняет время отзыва
	f.clk.Set(monday.Add(time.Hour))
	again, err := f.svc.Revoke(ctx, adminID, b.ID)
	if err != nil {
		t.Fatalf("повторный Revoke: %v", err)
	}
	if !again.RevokedAt.Equal(*revoked.RevokedAt) {
		t.Fatalf("время отзыва сменилось: %s → %s", revoked.RevokedAt, again.RevokedAt)
	}

	if _, err := f.svc.Revoke(ctx, adminID, 12345); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("неизвестная выдача: %v", err)
	}
}

func TestListBonusesNewestFirst(t *testing.T) {
	f := newBonusFixture(t, nil)
	ctx := context.Background()
	users := members.NewService(f.store.Members())
	if err := users.Ensure(ctx, 8, "other"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	first, _ := f.svc.Grant(ctx, adminID, tickets.BonusInput{UserID: userID, Count: 1})
	f.clk.Set(monday.Add(time.Minute))
	second, _ := f.svc.Grant(ctx, adminID, tickets.BonusInput{UserID: userID, Count: 2})
	f.clk.Set(monday.Add(2 * time.Minute))
	if _, err := f.svc.Grant(ctx, adminID, tickets.BonusInput{UserID: 8, Count: 1}); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	all, err := f.svc.List(ctx, 0, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("все выдачи: %d, %v", len(all), err)
	}

	mine, err := f.svc.List(ctx, userID, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != second.ID || mine[1].ID != first.ID {
		t.Fatalf("выдачи пользователя: %+v", mine)
	}
	if mine[0].Remaining != 2 {
		t.Fatalf("остаток = %d", mine[0].Remaining)
	}

	if limited, _ := f.svc.List(ctx, 0, 1); len(limited) != 1 {
		t.Fatalf("limit 1: %d", len(limited))
	}
}
