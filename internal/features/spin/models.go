// Package spin — движок вращения рулетки: списание билета, принудительный
// выигрыш или взвешенный розыгрыш, фиксация итога в журнале.
// models.go описывает результаты и данные колеса.
package spin

import (
	"time"

	"serotonyl.ru/reward-engine/internal/features/prizes"
)

// Result — итог одного вращения.
type Result struct {
	OutcomeID        int64        `json:"outcomeId"`
	Prize            prizes.Prize `json:"prize"`
	PrizeID          int64        `json:"prizeId"`
	PrizeName        string       `json:"prizeName"`
	CoinsWon         int64        `json:"coinsWon"`
	IsForceWin       bool         `json:"isForceWin"`
	NewCoinBalance   int64        `json:"newCoinBalance"`
	NewTicketBalance int64        `json:"newTicketBalance"`
}

// Wheel — колесо для клиента: призы с шансами и балансы.
type Wheel struct {
	Prizes        []prizes.Chance `json:"prizes"`
	TicketBalance int64           `json:"ticketBalance"`
	CoinBalance   int64           `json:"coinBalance"`
	Enabled       bool            `json:"enabled"`
}

// HistoryEntry — одна строка истории вращений.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	PrizeID    int64     `json:"prizeId"`
	PrizeName  string    `json:"prizeName"`
	CoinsWon   int64     `json:"coinsWon"`
	IsForceWin bool      `json:"isForceWin"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Win — крупный выигрыш для объявления.
type Win struct {
	UserID    int64
	PrizeName string
	CoinsWon  int64
	At        time.Time
}

// Options — настройки движка.
type Options struct {
	Enabled          bool  // FEATURE_SPIN_ENABLED, если нет Deps.Settings
	JackpotThreshold int64 // С какого выигрыша объявлять, если нет Deps.Settings
	HistoryLimit     int   // Размер истории по умолчанию
}
