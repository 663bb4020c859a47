// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ночная очистка старых билетов
// и ежедневная сводка рулетки в лог.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reward-engine/internal/features/economy"
)

const jobTimeout = 5 * time.Minute

// TicketPurger удаляет использованные и истёкшие билеты старше retention.
type TicketPurger interface {
	PurgeExpired(ctx context.Context, retention time.Duration) (int64, error)
}

// StatsSource отдаёт сводку вращений.
type StatsSource interface {
	Stats(ctx context.Context, recent int) (*economy.Stats, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron      *cron.Cron
	tickets   TicketPurger
	stats     StatsSource
	retention time.Duration
}

// NewScheduler создаёт планировщик задач в UTC: сутки наград считаются по UTC.
func NewScheduler(tickets TicketPurger, stats StatsSource, retention time.Duration) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		tickets:   tickets,
		stats:     stats,
		retention: retention,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) error {
	// Очистка билетов в 00:10 UTC, после смены суток
	if _, err := s.cron.AddFunc("10 0 * * *", func() { s.PurgeTickets(ctx) }); err != nil {
		return err
	}

	// Сводка за прошедшие сутки в 23:55 UTC
	if _, err := s.cron.AddFunc("55 23 * * *", func() { s.LogStats(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	log.Info("Планировщик задач запущен (UTC)")
	return nil
}

// PurgeTickets — одна итерация очистки билетов.
func (s *Scheduler) PurgeTickets(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	n, err := s.tickets.PurgeExpired(ctx, s.retention)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка очистки билетов")
		return
	}
	log.WithField("deleted", n).Info("[CRON] Старые билеты удалены")
}

// LogStats пишет сводку рулетки в лог.
func (s *Scheduler) LogStats(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	st, err := s.stats.Stats(ctx, 0)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка сводки")
		return
	}
	log.WithFields(log.Fields{
		"today_spins":        st.TodaySpins,
		"today_coins_won":    st.TodayCoinsWon,
		"total_spins":        st.TotalSpins,
		"unique_spinners":    st.UniqueSpinners,
		"avg_coins_per_spin": st.AvgCoinsPerSpin.String(),
	}).Info("[CRON] Сводка рулетки")
}

// Stop останавливает планировщик и ждёт текущие задачи.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
