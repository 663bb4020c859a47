// Package economy — журнал баланса и аудита: монеты пользователя,
// история транзакций, исходы вращений, выдача билетов и записи о ежедневных наградах.
// models.go описывает структуры для балансов и транзакций.
package economy

import (
	"time"

	"github.com/shopspring/decimal"

	"serotonyl.ru/reward-engine/internal/common"
)

// Account представляет монетный счёт пользователя.
// Каждый пользователь имеет ровно одну запись в таблице user_economy.
type Account struct {
	UserID      int64     `db:"user_id" json:"userId"`
	Coins       int64     `db:"coins" json:"coins"`              // Текущий баланс (никогда не отрицательный)
	TotalEarned int64     `db:"total_earned" json:"totalEarned"` // Сколько всего заработано
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Transaction представляет одно движение монет.
type Transaction struct {
	ID              int64     `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"userId"`
	Amount          int64     `db:"amount" json:"amount"` // Со знаком: + начисление, - списание
	BalanceBefore   int64     `db:"balance_before" json:"balanceBefore"`
	BalanceAfter    int64     `db:"balance_after" json:"balanceAfter"`
	TransactionType string    `db:"transaction_type" json:"type"`
	Description     string    `db:"description" json:"description"`
	ReferenceType   string    `db:"reference_type" json:"referenceType,omitempty"`
	ReferenceID     *int64    `db:"reference_id" json:"referenceId,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// Типы транзакций
const (
	TxTypeSpinWin = "spin_win" // Выигрыш в рулетке
)

// Источники билетов
const (
	TicketSourceDaily = "daily_claim"
	TicketSourceAdmin = "admin" // Бонус от администратора
)

// TicketGrant — пачка одинаковых билетов для выдачи через журнал.
type TicketGrant struct {
	UserID    int64
	Count     int
	ExpiresAt time.Time
	Source    string
	BonusID   *int64 // Админская выдача, к которой относятся билеты
}

// TransactionView — транзакция для ответа API со знаковой суммой текстом.
type TransactionView struct {
	Transaction
	Formatted string `json:"formatted"` // "+25 монет"
}

// NewTransactionView подписывает сумму транзакции.
func NewTransactionView(t Transaction) TransactionView {
	return TransactionView{Transaction: t, Formatted: common.FormatCoinsAmount(t.Amount)}
}

// SpinOutcome — неизменяемая запись аудита одного вращения.
// prize_id не ссылается на prizes: приз может быть удалён позже.
type SpinOutcome struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"userId"`
	PrizeID    int64     `db:"prize_id" json:"prizeId"`
	PrizeName  string    `db:"prize_name" json:"prizeName"`
	CoinsWon   int64     `db:"coins_won" json:"coinsWon"`
	IsForceWin bool      `db:"is_force_win" json:"isForceWin"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// SpinCommit — всё, что нужно зафиксировать по итогам вращения.
type SpinCommit struct {
	UserID     int64
	PrizeID    int64
	PrizeName  string
	CoinsWon   int64
	IsForceWin bool
}

// SpinReceipt — результат фиксации вращения.
type SpinReceipt struct {
	Account *Account
	Outcome *SpinOutcome
}

// Totals — агрегаты по spin_outcomes.
type Totals struct {
	TotalSpins     int64
	TotalCoinsWon  int64
	UniqueSpinners int64
	TodaySpins     int64
	TodayCoinsWon  int64
}

// PrizeTally — сколько раз выпадал приз.
type PrizeTally struct {
	PrizeID   int64  `json:"prizeId"`
	PrizeName string `json:"prizeName"`
	Wins      int64  `json:"wins"`
}

// Stats — сводка для админ-панели.
type Stats struct {
	TotalSpins      int64           `json:"totalSpins"`
	TotalCoinsWon   int64           `json:"totalCoinsWon"`
	UniqueSpinners  int64           `json:"uniqueSpinners"`
	TodaySpins      int64           `json:"todaySpins"`
	TodayCoinsWon   int64           `json:"todayCoinsWon"`
	AvgCoinsPerSpin decimal.Decimal `json:"avgCoinsPerSpin"`
	MostWonPrize    *PrizeTally     `json:"mostWonPrize"`
	RecentSpins     []SpinOutcome   `json:"recentSpins"`
}
