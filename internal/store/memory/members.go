package memory

import (
	"context"
	"fmt"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/features/members"
)

// MemberRepository реализует members.Storage.
type MemberRepository struct {
	s *Store
}

func (r *MemberRepository) Ensure(ctx context.Context, userID int64, username string) error {
	return r.s.run(ctx, func(st *state) error {
		now := r.s.clock()
		m, ok := st.members[userID]
		if !ok {
			st.members[userID] = members.Member{UserID: userID, Username: username, CreatedAt: now, UpdatedAt: now}
			return nil
		}
		if username != "" && username != m.Username {
			m.Username = username
			m.UpdatedAt = now
			st.members[userID] = m
		}
		return nil
	})
}

func (r *MemberRepository) Get(ctx context.Context, userID int64) (*members.Member, error) {
	var out *members.Member
	err := r.s.run(ctx, func(st *state) error {
		m, ok := st.members[userID]
		if !ok {
			return fmt.Errorf("участник не найден (user_id=%d): %w", userID, common.ErrNotFound)
		}
		out = &m
		return nil
	})
	return out, err
}

func (r *MemberRepository) Exists(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	err := r.s.run(ctx, func(st *state) error {
		_, ok = st.members[userID]
		return nil
	})
	return ok, err
}

func (r *MemberRepository) SetAdmin(ctx context.Context, userID int64, isAdmin bool) error {
	return r.s.run(ctx, func(st *state) error {
		now := r.s.clock()
		m, ok := st.members[userID]
		if !ok {
			m = members.Member{UserID: userID, CreatedAt: now}
		}
		m.IsAdmin = isAdmin
		m.UpdatedAt = now
		st.members[userID] = m
		return nil
	})
}
