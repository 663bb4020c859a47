// Package forcewin — реестр принудительных выигрышей: админ назначает
// пользователю приз, который выпадет на ближайших вращениях вместо розыгрыша.
// models.go описывает запись реестра и правило её применимости.
package forcewin

import "time"

// Override — принудительный выигрыш.
// У пользователя не больше одной активной записи.
type Override struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"userId"`
	PrizeID   int64      `db:"prize_id" json:"prizeId"`
	MaxUses   *int       `db:"max_uses" json:"maxUses"`     // nil — без ограничения
	UseCount  int        `db:"use_count" json:"useCount"`   // Сколько раз уже сработал
	ExpiresAt *time.Time `db:"expires_at" json:"expiresAt"` // nil — бессрочно
	Active    bool       `db:"active" json:"active"`
	Reason    string     `db:"reason" json:"reason"`
	CreatedBy int64      `db:"created_by" json:"createdBy"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}

// Eligible — active И (нет срока ИЛИ now < срока) И (нет лимита ИЛИ useCount < лимита).
func (o *Override) Eligible(now time.Time) bool {
	if !o.Active {
		return false
	}
	if o.ExpiresAt != nil && !now.Before(*o.ExpiresAt) {
		return false
	}
	if o.MaxUses != nil && o.UseCount >= *o.MaxUses {
		return false
	}
	return true
}

// Exhausted сообщает, что лимит срабатываний выбран.
func (o *Override) Exhausted() bool {
	return o.MaxUses != nil && o.UseCount >= *o.MaxUses
}

// CreateInput — тело запроса создания принудительного выигрыша.
type CreateInput struct {
	UserID    int64      `json:"userId"`
	PrizeID   int64      `json:"prizeId"`
	MaxUses   *int       `json:"maxUses"`
	ExpiresAt *time.Time `json:"expiresAt"`
	Reason    string     `json:"reason"`
}

// View — запись реестра с именем приза для админки.
type View struct {
	Override
	PrizeName string `json:"prizeName"`
	Eligible  bool   `json:"eligible"`
}
