// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: выбирает хранилище, создаёт репозитории, сервисы,
// обработчики и собирает HTTP-сервер и планировщик.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reward-engine/internal/api"
	"serotonyl.ru/reward-engine/internal/api/middleware"
	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/config"
	"serotonyl.ru/reward-engine/internal/db/postgres"
	"serotonyl.ru/reward-engine/internal/features/admin"
	"serotonyl.ru/reward-engine/internal/features/economy"
	"serotonyl.ru/reward-engine/internal/features/forcewin"
	"serotonyl.ru/reward-engine/internal/features/members"
	"serotonyl.ru/reward-engine/internal/features/prizes"
	"serotonyl.ru/reward-engine/internal/features/settings"
	"serotonyl.ru/reward-engine/internal/features/spin"
	"serotonyl.ru/reward-engine/internal/features/tickets"
	"serotonyl.ru/reward-engine/internal/jobs"
	"serotonyl.ru/reward-engine/internal/notify"
	"serotonyl.ru/reward-engine/internal/store/memory"
)

// App содержит все компоненты приложения.
type App struct {
	Server    *api.Server
	Scheduler *jobs.Scheduler // nil, если задачи выключены
	Limiter   *middleware.RateLimiter
	DB        *pgxpool.Pool // nil для STORE_DRIVER=memory
}

// transactor — общий интерфейс транзакций обоих хранилищ.
type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// storage — репозитории выбранного драйвера.
type storage struct {
	tx        transactor
	members   members.Storage
	prizes    prizes.Storage
	economy   economy.Storage
	tickets   tickets.Storage
	bonuses   tickets.BonusStorage
	forceWins forcewin.Storage
	settings  settings.Storage
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	clock := common.SystemClock

	// === 1. Хранилище ===
	var (
		st   storage
		pool *pgxpool.Pool
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("STORE_DRIVER=memory: данные живут только в памяти процесса")
		st = memoryStorage(memory.New(clock))
	default:
		var err error
		pool, err = postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
		}
		if err := postgres.RunMigrations(ctx, pool, migrations); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ошибка миграций: %w", err)
		}
		st = postgresStorage(pool, cfg)
	}

	// === 2. Сервисы ===
	memberService := members.NewService(st.members)
	prizeService := prizes.NewService(st.prizes, st.tx)
	economyService := economy.NewService(st.economy, st.tx, clock)
	ticketService := tickets.NewService(st.tickets, economyService, st.tx, clock)
	forceWinService := forcewin.NewService(st.forceWins, memberService, prizeService, st.tx, clock)
	bonusService := tickets.NewBonusService(st.bonuses, economyService, memberService, st.tx, clock, cfg.TicketBonusTTL)
	// Пока админ не сохранил настройки, действуют значения из окружения
	settingsService := settings.NewService(st.settings, st.tx, settings.Settings{
		SpinEnabled:      cfg.FeatureSpinEnabled,
		JackpotThreshold: cfg.SpinJackpotThreshold,
	}, clock)
	adminService := admin.NewService(economyService, forceWinService, settingsService)

	if err := memberService.PromoteAdmins(ctx, cfg.AdminIDs); err != nil {
		closePool(pool)
		return nil, fmt.Errorf("ошибка назначения администраторов: %w", err)
	}

	deps := spin.Deps{
		Tx:        st.tx,
		Tickets:   ticketService,
		Overrides: forceWinService,
		Catalog:   prizeService,
		Ledger:    economyService,
		Settings:  settingsService,
		Clock:     clock,
	}
	if cfg.TelegramEnabled() {
		notifier, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramAnnounceChatID)
		if err != nil {
			closePool(pool)
			return nil, err
		}
		deps.Notifier = notifier
		log.WithField("chat_id", cfg.TelegramAnnounceChatID).Info("Объявления о выигрышах включены")
	}
	spinService := spin.NewService(deps, spin.Options{
		Enabled:          cfg.FeatureSpinEnabled,
		JackpotThreshold: cfg.SpinJackpotThreshold,
		HistoryLimit:     cfg.SpinHistoryLimit,
	})

	// === 3. HTTP ===
	limiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	router := api.NewRouter(api.Routes{
		JWTSecret:       []byte(cfg.JWTSecret),
		RequestTimeout:  cfg.HTTPRequestTimeout,
		Users:           memberService,
		Limiter:         limiter,
		AdminKeyHash:    cfg.AdminKeyHash,
		AdminKeyActorID: cfg.AdminKeyActorID,
		Spin:            spin.NewHandler(spinService),
		Tickets:         tickets.NewHandler(ticketService),
		Economy:         economy.NewHandler(economyService),
		Prizes:          prizes.NewHandler(prizeService),
		ForceWin:        forcewin.NewHandler(forceWinService),
		Bonus:           tickets.NewBonusHandler(bonusService),
		Settings:        settings.NewHandler(settingsService),
		Admin:           admin.NewHandler(adminService),
	})

	// === 4. Планировщик задач ===
	var scheduler *jobs.Scheduler
	if cfg.JobsEnabled {
		retention := time.Duration(cfg.TicketRetentionDays) * 24 * time.Hour
		scheduler = jobs.NewScheduler(ticketService, economyService, retention)
	}

	return &App{
		Server:    api.NewServer(cfg.HTTPAddr, router),
		Scheduler: scheduler,
		Limiter:   limiter,
		DB:        pool,
	}, nil
}

func postgresStorage(pool *pgxpool.Pool, cfg *config.Config) storage {
	ticketRepo := tickets.NewRepository(pool)
	return storage{
		tx:        postgres.NewTransactor(pool, cfg.DBTxMaxRetries, cfg.DBTxRetryBaseDelay),
		members:   members.NewRepository(pool),
		prizes:    prizes.NewRepository(pool),
		economy:   economy.NewRepository(pool),
		tickets:   ticketRepo,
		bonuses:   ticketRepo,
		forceWins: forcewin.NewRepository(pool),
		settings:  settings.NewRepository(pool),
	}
}

func memoryStorage(s *memory.Store) storage {
	return storage{
		tx:        s,
		members:   s.Members(),
		prizes:    s.Prizes(),
		economy:   s.Economy(),
		tickets:   s.Tickets(),
		bonuses:   s.Tickets(),
		forceWins: s.ForceWins(),
		settings:  s.Settings(),
	}
}

func closePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}

// Close освобождает ресурсы после остановки сервера.
func (a *App) Close() {
	a.Limiter.Close()
	closePool(a.DB)
}
