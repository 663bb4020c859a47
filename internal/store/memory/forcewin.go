package memory

import (
	"context"
	"fmt"
	"time"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/features/forcewin"
)

// ForceWinRepository реализует forcewin.Storage.
// Ограничение «одна активная запись на пользователя» проверяется как уникальный индекс.
type ForceWinRepository struct {
	s *Store
}

func hasOtherActive(st *state, userID, exceptID int64) bool {
	for id, o := range st.overrides {
		if id != exceptID && o.UserID == userID && o.Active {
			return true
		}
	}
	return false
}

func (r *ForceWinRepository) Create(ctx context.Context, o *forcewin.Override) error {
	return r.s.run(ctx, func(st *state) error {
		if o.Active && hasOtherActive(st, o.UserID, 0) {
			return fmt.Errorf("активный выигрыш пользователя %d: %w", o.UserID, common.ErrConflict)
		}
		o.ID = st.id()
		o.UseCount = 0
		o.CreatedAt = r.s.clock()
		st.overrides[o.ID] = *o
		return nil
	})
}

func (r *ForceWinRepository) DeactivateForUser(ctx context.Context, userID, exceptID int64) (int64, error) {
	var n int64
	err := r.s.run(ctx, func(st *state) error {
		for id, o := range st.overrides {
			if id != exceptID && o.UserID == userID && o.Active {
				o.Active = false
				st.overrides[id] = o
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *ForceWinRepository) FindEligible(ctx context.Context, userID int64, now time.Time) (*forcewin.Override, error) {
	var best *forcewin.Override
	err := r.s.run(ctx, func(st *state) error {
		for _, o := range st.overrides {
			if o.UserID != userID || !o.Eligible(now) {
				continue
			}
			if best == nil || o.CreatedAt.After(best.CreatedAt) ||
				(o.CreatedAt.Equal(best.CreatedAt) && o.ID > best.ID) {
				found := o
				best = &found
			}
		}
		return nil
	})
	return best, err
}

func (r *ForceWinRepository) Consume(ctx context.Context, id int64, now time.Time) (*forcewin.Override, error) {
	var out *forcewin.Override
	err := r.s.run(ctx, func(st *state) error {
		o, ok := st.overrides[id]
		if !ok {
			return fmt.Errorf("принудительный выигрыш %d: %w", id, common.ErrNotFound)
		}
		if !o.Eligible(now) {
			return fmt.Errorf("принудительный выигрыш %d уже неприменим: %w", id, common.ErrConflict)
		}
		o.UseCount++
		if o.Exhausted() {
			o.Active = false
		}
		st.overrides[id] = o
		out = &o
		return nil
	})
	return out, err
}

func (r *ForceWinRepository) Get(ctx context.Context, id int64) (*forcewin.Override, error) {
	var out *forcewin.Override
	err := r.s.run(ctx, func(st *state) error {
		o, ok := st.overrides[id]
		if !ok {
			return fmt.Errorf("принудительный выигрыш %d: %w", id, common.ErrNotFound)
		}
		out = &o
		return nil
	})
	return out, err
}

func (r *ForceWinRepository) List(ctx context.Context) ([]forcewin.Override, error) {
	var out []forcewin.Override
	err := r.s.run(ctx, func(st *state) error {
		for _, o := range st.overrides {
			out = append(out, o)
		}
		return nil
	})
	newestFirst(out, func(o forcewin.Override) (time.Time, int64) { return o.CreatedAt, o.ID })
	return out, err
}

func (r *ForceWinRepository) SetActive(ctx context.Context, id int64, active bool) (*forcewin.Override, error) {
	var out *forcewin.Override
	err := r.s.run(ctx, func(st *state) error {
		o, ok := st.overrides[id]
		if !ok {
			return fmt.Errorf("принудительный выигрыш %d: %w", id, common.ErrNotFound)
		}
		if active && hasOtherActive(st, o.UserID, id) {
			return fmt.Errorf("активный выигрыш: %w", common.ErrConflict)
		}
		o.Active = active
		st.overrides[id] = o
		out = &o
		return nil
	})
	return out, err
}

func (r *ForceWinRepository) Delete(ctx context.Context, id int64) error {
	return r.s.run(ctx, func(st *state) error {
		if _, ok := st.overrides[id]; !ok {
			return fmt.Errorf("принудительный выигрыш %d: %w", id, common.ErrNotFound)
		}
		delete(st.overrides, id)
		return nil
	})
}

func (r *ForceWinRepository) CountEligible(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.s.run(ctx, func(st *state) error {
		for _, o := range st.overrides {
			if o.Eligible(now) {
				n++
			}
		}
		return nil
	})
	return n, err
}
