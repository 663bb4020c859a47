package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/features/tickets"
)

// TicketRepository реализует tickets.Storage.
type TicketRepository struct {
	s *Store
}

func (r *TicketRepository) FindClaim(ctx context.Context, userID int64, date time.Time) (*tickets.ClaimRecord, error) {
	var out *tickets.ClaimRecord
	err := r.s.run(ctx, func(st *state) error {
		c, ok := st.claims[claimKey{userID: userID, date: common.UTCDate(date)}]
		if !ok {
			return fmt.Errorf("награда за %s: %w", common.FormatDate(date), common.ErrNotFound)
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *TicketRepository) CountSpendable(ctx context.Context, userID int64, now time.Time) (int64, error) {
	var n int64
	err := r.s.run(ctx, func(st *state) error {
		for i := range st.grants {
			if st.grants[i].UserID == userID && st.grants[i].Spendable(now) {
				n++
			}
		}
		return nil
	})
	return n, err
}

// ConsumeOne гасит билет с ближайшим сроком, при равенстве — с меньшим id.
func (r *TicketRepository) ConsumeOne(ctx context.Context, userID int64, now time.Time) (int64, error) {
	var id int64
	err := r.s.run(ctx, func(st *state) error {
		pick := -1
		for i := range st.grants {
			g := &st.grants[i]
			if g.UserID != userID || !g.Spendable(now) {
				continue
			}
			if pick < 0 {
				pick = i
				continue
			}
			p := &st.grants[pick]
			if g.ExpiresAt.Before(p.ExpiresAt) || (g.ExpiresAt.Equal(p.ExpiresAt) && g.ID < p.ID) {
				pick = i
			}
		}
		if pick < 0 {
			return common.ErrNoTickets
		}
		used := now
		st.grants[pick].UsedAt = &used
		id = st.grants[pick].ID
		return nil
	})
	return id, err
}

func (r *TicketRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.s.run(ctx, func(st *state) error {
		kept := st.grants[:0:0]
		for _, g := range st.grants {
			if g.ExpiresAt.Before(before) || (g.UsedAt != nil && g.UsedAt.Before(before)) {
				n++
				continue
			}
			kept = append(kept, g)
		}
		st.grants = kept
		return nil
	})
	return n, err
}

func (st *state) remaining(bonusID int64, now time.Time) int64 {
	var n int64
	for i := range st.grants {
		g := &st.grants[i]
		if g.BonusID != nil && *g.BonusID == bonusID && g.Spendable(now) {
			n++
		}
	}
	return n
}

func (r *TicketRepository) InsertBonus(ctx context.Context, b *tickets.Bonus) error {
	return r.s.run(ctx, func(st *state) error {
		b.ID = st.id()
		b.CreatedAt = r.s.clock()
		st.bonuses[b.ID] = *b
		return nil
	})
}

func (r *TicketRepository) GetBonus(ctx context.Context, id int64, now time.Time) (*tickets.Bonus, error) {
	var out *tickets.Bonus
	err := r.s.run(ctx, func(st *state) error {
		b, ok := st.bonuses[id]
		if !ok {
			return fmt.Errorf("выдача %d: %w", id, common.ErrNotFound)
		}
		b.Remaining = st.remaining(id, now)
		out = &b
		return nil
	})
	return out, err
}

func (r *TicketRepository) ListBonuses(ctx context.Context, userID int64, now time.Time, limit int) ([]tickets.Bonus, error) {
	var out []tickets.Bonus
	err := r.s.run(ctx, func(st *state) error {
		for _, b := range st.bonuses {
			if userID != 0 && b.UserID != userID {
				continue
			}
			b.Remaining = st.remaining(b.ID, now)
			out = append(out, b)
		}
		return nil
	})
	// Новые первыми, как ORDER BY created_at DESC, id DESC
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r *TicketRepository) RevokeBonus(ctx context.Context, id int64, now time.Time) (int64, error) {
	var n int64
	err := r.s.run(ctx, func(st *state) error {
		b, ok := st.bonuses[id]
		if !ok {
			return fmt.Errorf("выдача %d: %w", id, common.ErrNotFound)
		}
		if b.RevokedAt == nil {
			at := now
			b.RevokedAt = &at
			st.bonuses[id] = b
		}
		kept := st.grants[:0:0]
		for _, g := range st.grants {
			if g.BonusID != nil && *g.BonusID == id && g.UsedAt == nil {
				n++
				continue
			}
			kept = append(kept, g)
		}
		st.grants = kept
		return nil
	})
	return n, err
}
