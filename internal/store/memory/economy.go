package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/features/economy"
	"serotonyl.ru/reward-engine/internal/features/tickets"
)

// EconomyRepository реализует economy.Storage.
type EconomyRepository struct {
	s *Store
}

func (r *EconomyRepository) LockAccount(ctx context.Context, userID int64) (*economy.Account, error) {
	var out economy.Account
	err := r.s.run(ctx, func(st *state) error {
		a, ok := st.accounts[userID]
		if !ok {
			a = economy.Account{UserID: userID, UpdatedAt: r.s.clock()}
			st.accounts[userID] = a
		}
		out = a
		return nil
	})
	return &out, err
}

func (r *EconomyRepository) GetAccount(ctx context.Context, userID int64) (*economy.Account, error) {
	out := economy.Account{UserID: userID}
	err := r.s.run(ctx, func(st *state) error {
		if a, ok := st.accounts[userID]; ok {
			out = a
		}
		return nil
	})
	return &out, err
}

func (r *EconomyRepository) CreditCoins(ctx context.Context, userID, amount int64) (*economy.Account, error) {
	var out economy.Account
	err := r.s.run(ctx, func(st *state) error {
		a, ok := st.accounts[userID]
		if !ok {
			a = economy.Account{UserID: userID}
		}
		a.Coins += amount
		a.TotalEarned += amount
		a.UpdatedAt = r.s.clock()
		st.accounts[userID] = a
		out = a
		return nil
	})
	return &out, err
}

func (r *EconomyRepository) InsertTransaction(ctx context.Context, t *economy.Transaction) error {
	return r.s.run(ctx, func(st *state) error {
		t.ID = st.id()
		t.CreatedAt = r.s.clock()
		st.transactions = append(st.transactions, *t)
		return nil
	})
}

func (r *EconomyRepository) InsertOutcome(ctx context.Context, o *economy.SpinOutcome) error {
	return r.s.run(ctx, func(st *state) error {
		o.ID = st.id()
		o.CreatedAt = r.s.clock()
		st.outcomes = append(st.outcomes, *o)
		return nil
	})
}

func (r *EconomyRepository) IncrementWinCount(ctx context.Context, prizeID int64) error {
	return r.s.run(ctx, func(st *state) error {
		if p, ok := st.prizes[prizeID]; ok {
			p.WinCount++
			st.prizes[prizeID] = p
		}
		return nil
	})
}

func (r *EconomyRepository) InsertTicketGrants(ctx context.Context, g economy.TicketGrant, at time.Time) error {
	return r.s.run(ctx, func(st *state) error {
		for range g.Count {
			st.grants = append(st.grants, tickets.Grant{
				ID:        st.id(),
				UserID:    g.UserID,
				Source:    g.Source,
				ExpiresAt: g.ExpiresAt,
				BonusID:   g.BonusID,
				CreatedAt: at,
			})
		}
		return nil
	})
}

func (r *EconomyRepository) InsertDailyClaim(ctx context.Context, userID int64, date time.Time, streak int, at time.Time) error {
	return r.s.run(ctx, func(st *state) error {
		key := claimKey{userID: userID, date: common.UTCDate(date)}
		if _, ok := st.claims[key]; ok {
			return common.ErrAlreadyClaimed
		}
		st.claims[key] = tickets.ClaimRecord{
			ID:        st.id(),
			UserID:    userID,
			ClaimDate: key.date,
			Streak:    streak,
			ClaimedAt: at,
		}
		return nil
	})
}

// newestFirst упорядочивает как ORDER BY created_at DESC, id DESC.
func newestFirst[T any](list []T, at func(T) (time.Time, int64)) {
	sort.Slice(list, func(i, j int) bool {
		ti, idi := at(list[i])
		tj, idj := at(list[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi > idj
	})
}

func (r *EconomyRepository) ListOutcomes(ctx context.Context, userID int64, limit int) ([]economy.SpinOutcome, error) {
	var out []economy.SpinOutcome
	err := r.s.run(ctx, func(st *state) error {
		for _, o := range st.outcomes {
			if userID == 0 || o.UserID == userID {
				out = append(out, o)
			}
		}
		return nil
	})
	newestFirst(out, func(o economy.SpinOutcome) (time.Time, int64) { return o.CreatedAt, o.ID })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r *EconomyRepository) ListTransactions(ctx context.Context, userID int64, limit int) ([]economy.Transaction, error) {
	var out []economy.Transaction
	err := r.s.run(ctx, func(st *state) error {
		for _, t := range st.transactions {
			if t.UserID == userID {
				out = append(out, t)
			}
		}
		return nil
	})
	newestFirst(out, func(t economy.Transaction) (time.Time, int64) { return t.CreatedAt, t.ID })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r *EconomyRepository) Totals(ctx context.Context, since time.Time) (*economy.Totals, error) {
	var t economy.Totals
	err := r.s.run(ctx, func(st *state) error {
		users := make(map[int64]struct{})
		for _, o := range st.outcomes {
			t.TotalSpins++
			t.TotalCoinsWon += o.CoinsWon
			users[o.UserID] = struct{}{}
			if !o.CreatedAt.Before(since) {
				t.TodaySpins++
				t.TodayCoinsWon += o.CoinsWon
			}
		}
		t.UniqueSpinners = int64(len(users))
		return nil
	})
	return &t, err
}

func (r *EconomyRepository) MostWonPrize(ctx context.Context) (*economy.PrizeTally, error) {
	type key struct {
		id   int64
		name string
	}
	var best *economy.PrizeTally
	err := r.s.run(ctx, func(st *state) error {
		counts := make(map[key]int64)
		for _, o := range st.outcomes {
			counts[key{o.PrizeID, o.PrizeName}]++
		}
		for k, n := range counts {
			if best == nil || n > best.Wins || (n == best.Wins && k.id < best.PrizeID) {
				best = &economy.PrizeTally{PrizeID: k.id, PrizeName: k.name, Wins: n}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска популярного приза: %w", err)
	}
	return best, nil
}
