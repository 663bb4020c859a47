// Package tickets управляет билетами рулетки: ежедневная награда с серией,
// баланс действующих билетов и их списание.
// models.go описывает записи о наградах и ответы сервиса.
package tickets

import "time"

// ClaimRecord — запись о ежедневной награде. Не больше одной на (user_id, claim_date).
type ClaimRecord struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	ClaimDate time.Time `db:"claim_date"` // UTC-полночь дня награды
	Streak    int       `db:"streak"`     // Серия на этот день, >= 1
	ClaimedAt time.Time `db:"claimed_at"`
}

// Grant — один билет из журнала ticket_grants.
// Билет действует, пока used_at пуст и expires_at в будущем.
type Grant struct {
	ID        int64      `db:"id"`
	UserID    int64      `db:"user_id"`
	Source    string     `db:"source"`
	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
	BonusID   *int64     `db:"bonus_id"` // Админская выдача, nil для ежедневных
	CreatedAt time.Time  `db:"created_at"`
}

// Spendable реализует правило «не использован и не истёк».
func (g *Grant) Spendable(now time.Time) bool {
	return g.UsedAt == nil && now.Before(g.ExpiresAt)
}

// ClaimResult — итог получения ежедневной награды.
type ClaimResult struct {
	TicketsGranted int       `json:"ticketsGranted"`
	NewStreak      int       `json:"newStreak"`
	TicketBalance  int64     `json:"ticketBalance"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// DailyStatus — состояние ежедневной награды для клиента.
type DailyStatus struct {
	CanClaim      bool      `json:"canClaim"`
	ClaimedToday  bool      `json:"claimedToday"`
	CurrentStreak int       `json:"currentStreak"`
	NextStreak    int       `json:"nextStreak"`
	NextTickets   int       `json:"nextTickets"` // Сколько билетов даст следующая награда
	TicketBalance int64     `json:"ticketBalance"`
	NextClaimAt   time.Time `json:"nextClaimAt"`
}

// Bonus — админская выдача билетов одной пачкой.
// Сами билеты лежат в ticket_grants с bonus_id этой записи.
type Bonus struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"userId"`
	Count     int        `db:"count" json:"count"`
	Remaining int64      `db:"-" json:"remaining"` // Ещё не использовано и не истекло
	Reason    string     `db:"reason" json:"reason"`
	GrantedBy int64      `db:"granted_by" json:"grantedBy"`
	ExpiresAt time.Time  `db:"expires_at" json:"expiresAt"`
	RevokedAt *time.Time `db:"revoked_at" json:"revokedAt"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}

// BonusInput — тело запроса POST /admin/tickets.
type BonusInput struct {
	UserID    int64      `json:"userId"`
	Count     int        `json:"count"`     // 0 — один билет
	Reason    string     `json:"reason"`    // Пусто — «Выдано администратором»
	ExpiresAt *time.Time `json:"expiresAt"` // nil — срок по умолчанию
}
