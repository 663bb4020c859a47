package memory

import (
	"context"
	"fmt"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/features/settings"
)

// SettingsRepository реализует settings.Storage.
type SettingsRepository struct {
	s *Store
}

func (r *SettingsRepository) Load(ctx context.Context) (*settings.Settings, error) {
	var out *settings.Settings
	err := r.s.run(ctx, func(st *state) error {
		if st.settings == nil {
			return fmt.Errorf("настройки рулетки: %w", common.ErrNotFound)
		}
		cp := *st.settings
		out = &cp
		return nil
	})
	return out, err
}

func (r *SettingsRepository) Save(ctx context.Context, s *settings.Settings) error {
	return r.s.run(ctx, func(st *state) error {
		cp := *s
		st.settings = &cp
		return nil
	})
}
