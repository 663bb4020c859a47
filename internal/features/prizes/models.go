// Package prizes управляет каталогом призов рулетки.
// models.go описывает приз, его шанс выпадения и частичное обновление.
package prizes

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnknownPrizeName — подпись для исходов, чей приз уже удалён.
const UnknownPrizeName = "неизвестный приз"

// Prize — строка каталога призов.
type Prize struct {
	ID        int64           `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	CoinValue int64           `db:"coin_value" json:"coinValue"` // Сколько монет начисляется при выигрыше
	Weight    decimal.Decimal `db:"weight" json:"weight"`        // Относительный вес, [0, 100], 2 знака
	Active    bool            `db:"active" json:"active"`
	SortOrder int             `db:"sort_order" json:"sortOrder"` // Порядок на колесе и при розыгрыше
	WinCount  int64           `db:"win_count" json:"winCount"`   // Пишет только журнал баланса
	Color     string          `db:"color" json:"color"`
	Icon      string          `db:"icon" json:"icon"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// Drawable сообщает, участвует ли приз в честном розыгрыше.
func (p *Prize) Drawable() bool {
	return p.Active && p.Weight.IsPositive()
}

// Patch — частичное обновление приза. nil означает «не менять».
type Patch struct {
	Name      *string
	CoinValue *int64
	Weight    *decimal.Decimal
	Active    *bool
	SortOrder *int
	Color     *string
	Icon      *string
}

// Apply переносит заданные поля патча в приз.
func (p Patch) Apply(dst *Prize) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.CoinValue != nil {
		dst.CoinValue = *p.CoinValue
	}
	if p.Weight != nil {
		dst.Weight = *p.Weight
	}
	if p.Active != nil {
		dst.Active = *p.Active
	}
	if p.SortOrder != nil {
		dst.SortOrder = *p.SortOrder
	}
	if p.Color != nil {
		dst.Color = *p.Color
	}
	if p.Icon != nil {
		dst.Icon = *p.Icon
	}
}

// Chance — приз вместе с нормированным шансом в процентах.
type Chance struct {
	Prize
	Chance decimal.Decimal `json:"chance"`
}

var hundred = decimal.NewFromInt(100)

// Chances нормирует веса розыгрываемых призов: w / Σw * 100, округление до 2 знаков.
// Призы с нулевым весом получают шанс 0.
func Chances(list []Prize) []Chance {
	total := decimal.Zero
	for i := range list {
		if list[i].Drawable() {
			total = total.Add(list[i].Weight)
		}
	}

	out := make([]Chance, 0, len(list))
	for _, p := range list {
		c := Chance{Prize: p, Chance: decimal.Zero}
		if p.Drawable() && total.IsPositive() {
			c.Chance = p.Weight.Div(total).Mul(hundred).Round(2)
		}
		out = append(out, c)
	}
	return out
}
