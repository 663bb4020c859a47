// Package config загружает конфигурацию движка наград из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры,
// а godotenv подхватывает локальный .env файл при разработке.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Драйверы хранилища.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- HTTP ---
	HTTPAddr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPRequestTimeout  time.Duration `envconfig:"HTTP_REQUEST_TIMEOUT" default:"10s"`
	HTTPShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"15s"`

	// --- Auth ---
	// Секрет для проверки HS256 токенов. Токены выпускает внешний сервис идентификации.
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	// Администраторы, которых помечаем при старте (через запятую).
	AdminIDsRaw string  `envconfig:"ADMIN_IDS"`
	AdminIDs    []int64 `envconfig:"-"` // заполним вручную
	// Argon2id-хеш служебного ключа для X-Admin-Key (scripts/hash_admin_key.go).
	AdminKeyHash    string `envconfig:"ADMIN_KEY_HASH"`
	AdminKeyActorID int64  `envconfig:"ADMIN_KEY_ACTOR_ID" default:"0"` // Кем записываются действия по ключу

	// --- Storage ---
	// postgres — боевой режим, memory — локальная разработка и тесты
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"rewards"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"reward_engine"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// Повторы транзакций при serialization failure / deadlock
	DBTxMaxRetries     int           `envconfig:"DB_TX_MAX_RETRIES" default:"3"`
	DBTxRetryBaseDelay time.Duration `envconfig:"DB_TX_RETRY_BASE_DELAY" default:"20ms"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"30"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Spin ---
	SpinJackpotThreshold int64 `envconfig:"SPIN_JACKPOT_THRESHOLD" default:"500"`
	SpinHistoryLimit     int   `envconfig:"SPIN_HISTORY_LIMIT" default:"20"`

	// --- Tickets ---
	// Сколько дней храним использованные и истёкшие билеты
	TicketRetentionDays int `envconfig:"TICKET_RETENTION_DAYS" default:"30"`

	// Срок админских билетов, если в запросе он не указан
	TicketBonusTTL time.Duration `envconfig:"TICKET_BONUS_TTL" default:"720h"`

	// --- Jobs ---
	JobsEnabled bool `envconfig:"JOBS_ENABLED" default:"true"`

	// --- Telegram (объявления о джекпотах, необязательно) ---
	TelegramBotToken       string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramAnnounceChatID int64  `envconfig:"TELEGRAM_ANNOUNCE_CHAT_ID"`

	// --- Feature Flags ---
	FeatureSpinEnabled bool `envconfig:"FEATURE_SPIN_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// TelegramEnabled сообщает, настроены ли объявления в Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramAnnounceChatID != 0
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD обязателен для STORE_DRIVER=postgres")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("неизвестный STORE_DRIVER %q", c.StoreDriver)
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET должен быть не короче 16 символов")
	}
	if c.AdminKeyHash != "" && !strings.HasPrefix(c.AdminKeyHash, "$argon2id$") {
		return fmt.Errorf("ADMIN_KEY_HASH должен быть хешем Argon2id")
	}
	if c.DBTxMaxRetries < 0 {
		return fmt.Errorf("DB_TX_MAX_RETRIES должен быть >= 0")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS и RATE_LIMIT_WINDOW должны быть > 0")
	}
	if c.SpinHistoryLimit <= 0 {
		return fmt.Errorf("SPIN_HISTORY_LIMIT должен быть > 0")
	}
	if c.TicketRetentionDays <= 0 {
		return fmt.Errorf("TICKET_RETENTION_DAYS должен быть > 0")
	}
	if c.TicketBonusTTL < 0 || c.TicketBonusTTL > 365*24*time.Hour {
		return fmt.Errorf("TICKET_BONUS_TTL должен быть от 0 до 8760h")
	}
	if c.HTTPRequestTimeout <= 0 {
		return fmt.Errorf("HTTP_REQUEST_TIMEOUT должен быть > 0")
	}
	return nil
}

// Load читает .env (если есть) и переменные окружения, заполняет структуру Config.
func Load() (*Config, error) {
	// .env нужен только локально, его отсутствие не ошибка
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
