package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"serotonyl.ru/reward-engine/internal/features/economy"
)

type fakePurger struct {
	calls     atomic.Int32
	retention time.Duration
	err       error
}

func (f *fakePurger) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	f.calls.Add(1)
	f.retention = retention
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("у задачи должен быть таймаут")
	}
	return 3, f.err
}

type fakeStats struct {
	calls atomic.Int32
}

func (f *fakeStats) Stats(context.Context, int) (*economy.Stats, error) {
	f.calls.Add(1)
	return &economy.Stats{TotalSpins: 10}, nil
}

func TestPurgeTicketsPassesRetention(t *testing.T) {
	purger := &fakePurger{}
	s := NewScheduler(purger, &fakeStats{}, 72*time.Hour)

	s.PurgeTickets(context.Background())
	if purger.calls.Load() != 1 || purger.retention != 72*time.Hour {
		t.Fatalf("вызовов %d, retention %s", purger.calls.Load(), purger.retention)
	}

	// Ошибка только логируется
	purger.err = errors.New("db down")
	s.PurgeTickets(context.Background())
	if purger.calls.Load() != 2 {
		t.Fatalf("вызовов %d", purger.calls.Load())
	}
}

func TestLogStats(t *testing.T) {
	stats := &fakeStats{}
	s := NewScheduler(&fakePurger{}, stats, time.Hour)
	s.LogStats(context.Background())
	if stats.calls.Load() != 1 {
		t.Fatalf("вызовов %d", stats.calls.Load())
	}
}

func TestStartRegistersJobs(t *testing.T) {
	s := NewScheduler(&fakePurger{}, &fakeStats{}, time.Hour)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if n := len(s.cron.Entries()); n != 2 {
		t.Fatalf("зарегистрировано %d задач, ожидали 2", n)
	}
}
