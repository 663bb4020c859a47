package config

import (
	"testing"
	"time"
)

func TestParseInt64CSV(t *testing.T) {
	ids, err := parseInt64CSV(" 1, 42 ,, 7")
	if err != nil {
		t.Fatalf("parseInt64CSV: %v", err)
	}
	want := []int64{1, 42, 7}
	if len(ids) != len(want) {
		t.Fatalf("ожидали %v, получили %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ожидали %v, получили %v", want, ids)
		}
	}

	if _, err := parseInt64CSV("1,abc"); err == nil {
		t.Fatal("ожидали ошибку для нечислового id")
	}
	if ids, _ := parseInt64CSV(""); ids != nil {
		t.Fatalf("пустая строка должна давать nil, получили %v", ids)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("STORE_DRIVER", StoreDriverMemory)
	t.Setenv("ADMIN_IDS", "5,6")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreDriver != StoreDriverMemory {
		t.Fatalf("StoreDriver = %q", cfg.StoreDriver)
	}
	if len(cfg.AdminIDs) != 2 || cfg.AdminIDs[1] != 6 {
		t.Fatalf("AdminIDs = %v", cfg.AdminIDs)
	}
	if cfg.RateLimitWindow != 30*time.Second {
		t.Fatalf("RateLimitWindow = %v", cfg.RateLimitWindow)
	}
	if cfg.DBTxMaxRetries != 3 {
		t.Fatalf("DBTxMaxRetries по умолчанию = %d, ожидали 3", cfg.DBTxMaxRetries)
	}
	if !cfg.FeatureSpinEnabled {
		t.Fatal("FEATURE_SPIN_ENABLED по умолчанию должен быть true")
	}
	if cfg.TicketBonusTTL != 30*24*time.Hour {
		t.Fatalf("TicketBonusTTL по умолчанию = %v", cfg.TicketBonusTTL)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			StoreDriver:         StoreDriverPostgres,
			DBPassword:          "secret",
			DBMaxConns:          10,
			DBMinConns:          1,
			JWTSecret:           "0123456789abcdef",
			RateLimitRequests:   10,
			RateLimitWindow:     time.Minute,
			SpinHistoryLimit:    20,
			TicketRetentionDays: 30,
			HTTPRequestTimeout:  time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "ok", mutate: func(c *Config) {}},
		{name: "postgres без пароля", mutate: func(c *Config) { c.DBPassword = "" }, wantErr: true},
		{name: "отрицательный TICKET_BONUS_TTL", mutate: func(c *Config) { c.TicketBonusTTL = -time.Hour }, wantErr: true},
		{name: "TICKET_BONUS_TTL больше года", mutate: func(c *Config) { c.TicketBonusTTL = 400 * 24 * time.Hour }, wantErr: true},
		{name: "memory без пароля", mutate: func(c *Config) { c.StoreDriver = StoreDriverMemory; c.DBPassword = "" }},
		{name: "неизвестный драйвер", mutate: func(c *Config) { c.StoreDriver = "mongo" }, wantErr: true},
		{name: "короткий секрет", mutate: func(c *Config) { c.JWTSecret = "short" }, wantErr: true},
		{name: "пул наоборот", mutate: func(c *Config) { c.DBMinConns = 20 }, wantErr: true},
		{name: "отрицательные повторы", mutate: func(c *Config) { c.DBTxMaxRetries = -1 }, wantErr: true},
		{name: "ключ не argon2id", mutate: func(c *Config) { c.AdminKeyHash = "plain-text" }, wantErr: true},
		{name: "ключ argon2id", mutate: func(c *Config) { c.AdminKeyHash = "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
