// Package settings — настройки рулетки, которые администратор меняет
// без перезапуска: включена ли рулетка и порог объявления выигрыша.
// Пока запись не сохранена, действуют значения из окружения.
package settings

import "time"

// Settings — текущие настройки рулетки. Одна запись на всю систему.
type Settings struct {
	SpinEnabled      bool       `db:"spin_enabled" json:"spinEnabled"`
	JackpotThreshold int64      `db:"jackpot_threshold" json:"jackpotThreshold"` // 0 — не объявлять
	UpdatedBy        *int64     `db:"updated_by" json:"updatedBy"`               // nil — значения по умолчанию
	UpdatedAt        *time.Time `db:"updated_at" json:"updatedAt"`
}

// UpdateInput — тело PUT /admin/spin/settings. Пустое поле не меняется.
type UpdateInput struct {
	SpinEnabled      *bool  `json:"spinEnabled"`
	JackpotThreshold *int64 `json:"jackpotThreshold"`
}
