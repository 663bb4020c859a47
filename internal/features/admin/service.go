// Package admin — сводка рулетки для админ-панели.
// Собирает статистику журнала, число применимых принудительных выигрышей
// и действующие настройки.
package admin

import (
	"context"

	"serotonyl.ru/reward-engine/internal/features/economy"
	"serotonyl.ru/reward-engine/internal/features/settings"
)

const recentSpinsLimit = 20

// SpinStats — ответ /admin/spin/stats.
type SpinStats struct {
	*economy.Stats
	ActiveForceWins int64              `json:"activeForceWins"`
	Settings        *settings.Settings `json:"settings"`
}

// StatsSource — откуда берётся статистика вращений.
type StatsSource interface {
	Stats(ctx context.Context, recent int) (*economy.Stats, error)
}

// OverrideCounter считает применимые принудительные выигрыши.
type OverrideCounter interface {
	CountEligible(ctx context.Context) (int64, error)
}

// SettingsReader отдаёт действующие настройки рулетки.
type SettingsReader interface {
	Current(ctx context.Context) (*settings.Settings, error)
}

// Service собирает сводку.
type Service struct {
	stats     StatsSource
	overrides OverrideCounter
	settings  SettingsReader
}

// NewService создаёт сервис админ-панели.
func NewService(stats StatsSource, overrides OverrideCounter, cfg SettingsReader) *Service {
	return &Service{stats: stats, overrides: overrides, settings: cfg}
}

// SpinStats возвращает сводку по рулетке.
func (s *Service) SpinStats(ctx context.Context) (*SpinStats, error) {
	st, err := s.stats.Stats(ctx, recentSpinsLimit)
	if err != nil {
		return nil, err
	}
	active, err := s.overrides.CountEligible(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	return &SpinStats{Stats: st, ActiveForceWins: active, Settings: cfg}, nil
}
