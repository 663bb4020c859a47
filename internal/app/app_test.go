package app

import (
	"context"
	"testing"
	"time"

	"serotonyl.ru/reward-engine/internal/config"
)

func memoryConfig() *config.Config {
	return &config.Config{
		HTTPAddr:             "127.0.0.1:0",
		HTTPRequestTimeout:   time.Second,
		JWTSecret:            "app-test-secret-0123456789",
		AdminIDs:             []int64{1},
		StoreDriver:          config.StoreDriverMemory,
		RateLimitRequests:    10,
		RateLimitWindow:      time.Minute,
		SpinJackpotThreshold: 500,
		SpinHistoryLimit:     20,
		TicketRetentionDays:  30,
		FeatureSpinEnabled:   true,
	}
}

func TestNewWithMemoryDriver(t *testing.T) {
	a, err := New(context.Background(), memoryConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Server == nil || a.Limiter == nil {
		t.Fatal("сервер и лимитер должны быть собраны")
	}
	if a.DB != nil {
		t.Fatal("для memory пул БД не создаётся")
	}
	if a.Scheduler != nil {
		t.Fatal("JOBS_ENABLED=false: планировщика нет")
	}
}

func TestNewWithJobs(t *testing.T) {
	cfg := memoryConfig()
	cfg.JobsEnabled = true

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Scheduler == nil {
		t.Fatal("планировщик должен быть собран")
	}
}

func TestMigrationsAreOrdered(t *testing.T) {
	for i, m := range migrations {
		if m.Version != i+1 {
			t.Fatalf("миграция #%d имеет версию %d", i, m.Version)
		}
		if m.SQL == "" {
			t.Fatalf("миграция %d пустая", m.Version)
		}
	}
}
