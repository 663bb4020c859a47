package app

import "serotonyl.ru/reward-engine/internal/db/postgres"

// SQL-миграции встроены в код для упрощения деплоя.
var migrations = []postgres.Migration{
	{Version: 1, SQL: migration001Members},
	{Version: 2, SQL: migration002Prizes},
	{Version: 3, SQL: migration003Economy},
	{Version: 4, SQL: migration004Tickets},
	{Version: 5, SQL: migration005ForceWins},
	{Version: 6, SQL: migration006TicketBonuses},
	{Version: 7, SQL: migration007SpinSettings},
}

var migration001Members = `
CREATE TABLE IF NOT EXISTS members (
    user_id BIGINT PRIMARY KEY,
    username VARCHAR(255),
    is_admin BOOLEAN NOT NULL DEFAULT FALSE,
    is_banned BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

var migration002Prizes = `
CREATE TABLE IF NOT EXISTS prizes (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    coin_value BIGINT NOT NULL DEFAULT 0 CHECK (coin_value >= 0),
    weight NUMERIC(5,2) NOT NULL DEFAULT 0 CHECK (weight >= 0 AND weight <= 100),
    active BOOLEAN NOT NULL DEFAULT TRUE,
    sort_order INTEGER NOT NULL DEFAULT 0,
    win_count BIGINT NOT NULL DEFAULT 0,
    color VARCHAR(32),
    icon VARCHAR(32),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_prizes_active_order ON prizes(active, sort_order, id);
`

var migration003Economy = `
CREATE TABLE IF NOT EXISTS user_economy (
    user_id BIGINT PRIMARY KEY,
    coins BIGINT NOT NULL DEFAULT 0 CHECK (coins >= 0),
    total_earned BIGINT NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS coin_transactions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    amount BIGINT NOT NULL,
    balance_before BIGINT NOT NULL,
    balance_after BIGINT NOT NULL,
    transaction_type VARCHAR(50) NOT NULL,
    description TEXT,
    reference_type VARCHAR(50),
    reference_id BIGINT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_coin_transactions_user ON coin_transactions(user_id, created_at DESC);
CREATE TABLE IF NOT EXISTS spin_outcomes (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    prize_id BIGINT NOT NULL,
    prize_name VARCHAR(100) NOT NULL,
    coins_won BIGINT NOT NULL DEFAULT 0,
    is_force_win BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_spin_outcomes_user ON spin_outcomes(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_spin_outcomes_created_at ON spin_outcomes(created_at DESC);
`

var migration004Tickets = `
CREATE TABLE IF NOT EXISTS ticket_grants (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    source VARCHAR(50) NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL,
    used_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_ticket_grants_spendable ON ticket_grants(user_id, expires_at) WHERE used_at IS NULL;
CREATE TABLE IF NOT EXISTS daily_claim_records (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    claim_date DATE NOT NULL,
    streak INTEGER NOT NULL CHECK (streak >= 1),
    claimed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT uq_daily_claim_user_date UNIQUE (user_id, claim_date)
);
`

var migration005ForceWins = `
CREATE TABLE IF NOT EXISTS force_win_overrides (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    prize_id BIGINT NOT NULL REFERENCES prizes(id) ON DELETE CASCADE,
    max_uses INTEGER CHECK (max_uses IS NULL OR max_uses >= 1),
    use_count INTEGER NOT NULL DEFAULT 0,
    expires_at TIMESTAMPTZ,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    reason TEXT,
    created_by BIGINT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_force_win_active_user ON force_win_overrides(user_id) WHERE active;
`

var migration006TicketBonuses = `
CREATE TABLE IF NOT EXISTS ticket_bonuses (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    count INTEGER NOT NULL CHECK (count >= 1),
    reason TEXT NOT NULL DEFAULT '',
    granted_by BIGINT NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL,
    revoked_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_ticket_bonuses_user ON ticket_bonuses(user_id, created_at DESC);
ALTER TABLE ticket_grants ADD COLUMN IF NOT EXISTS bonus_id BIGINT REFERENCES ticket_bonuses(id) ON DELETE SET NULL;
CREATE INDEX IF NOT EXISTS idx_ticket_grants_bonus ON ticket_grants(bonus_id) WHERE bonus_id IS NOT NULL;
`

var migration007SpinSettings = `
CREATE TABLE IF NOT EXISTS spin_settings (
    id SMALLINT PRIMARY KEY CHECK (id = 1),
    spin_enabled BOOLEAN NOT NULL,
    jackpot_threshold BIGINT NOT NULL CHECK (jackpot_threshold >= 0),
    updated_by BIGINT,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
