package memory

import (
	"context"
	"fmt"
	"sort"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/features/prizes"
)

// PrizeRepository реализует prizes.Storage.
type PrizeRepository struct {
	s *Store
}

func sortedPrizes(st *state, onlyActive bool) []prizes.Prize {
	out := make([]prizes.Prize, 0, len(st.prizes))
	for _, p := range st.prizes {
		if onlyActive && !p.Active {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *PrizeRepository) ListActive(ctx context.Context) ([]prizes.Prize, error) {
	var out []prizes.Prize
	err := r.s.run(ctx, func(st *state) error {
		out = sortedPrizes(st, true)
		return nil
	})
	return out, err
}

func (r *PrizeRepository) ListAll(ctx context.Context) ([]prizes.Prize, error) {
	var out []prizes.Prize
	err := r.s.run(ctx, func(st *state) error {
		out = sortedPrizes(st, false)
		return nil
	})
	return out, err
}

func (r *PrizeRepository) Get(ctx context.Context, id int64) (*prizes.Prize, error) {
	var out *prizes.Prize
	err := r.s.run(ctx, func(st *state) error {
		p, ok := st.prizes[id]
		if !ok {
			return fmt.Errorf("приз %d: %w", id, common.ErrNotFound)
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *PrizeRepository) Create(ctx context.Context, p *prizes.Prize) error {
	return r.s.run(ctx, func(st *state) error {
		insertPrize(st, p, r.s.clock)
		return nil
	})
}

func insertPrize(st *state, p *prizes.Prize, clock common.Clock) {
	now := clock()
	p.ID = st.id()
	p.WinCount = 0
	p.Weight = p.Weight.Round(2)
	p.CreatedAt = now
	p.UpdatedAt = now
	st.prizes[p.ID] = *p
}

func (r *PrizeRepository) Update(ctx context.Context, id int64, patch prizes.Patch) (*prizes.Prize, error) {
	var out *prizes.Prize
	err := r.s.run(ctx, func(st *state) error {
		p, ok := st.prizes[id]
		if !ok {
			return fmt.Errorf("приз %d: %w", id, common.ErrNotFound)
		}
		patch.Apply(&p)
		p.Weight = p.Weight.Round(2)
		p.UpdatedAt = r.s.clock()
		st.prizes[id] = p
		out = &p
		return nil
	})
	return out, err
}

// Delete удаляет приз и его принудительные выигрыши (как ON DELETE CASCADE).
func (r *PrizeRepository) Delete(ctx context.Context, id int64) error {
	return r.s.run(ctx, func(st *state) error {
		if _, ok := st.prizes[id]; !ok {
			return fmt.Errorf("приз %d: %w", id, common.ErrNotFound)
		}
		delete(st.prizes, id)
		for oid, o := range st.overrides {
			if o.PrizeID == id {
				delete(st.overrides, oid)
			}
		}
		return nil
	})
}

func (r *PrizeRepository) SeedIfEmpty(ctx context.Context, defaults []prizes.Prize) (bool, error) {
	var seeded bool
	err := r.s.run(ctx, func(st *state) error {
		if len(st.prizes) > 0 {
			return nil
		}
		for i := range defaults {
			insertPrize(st, &defaults[i], r.s.clock)
		}
		seeded = true
		return nil
	})
	return seeded, err
}
