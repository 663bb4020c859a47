// Package prizes — validation.go разбирает входные данные админки.
// Числовые поля приводятся мягко: нечисло превращается в 0.
// Исключение — вес: отрицательный, больше 100 или нечисловой отклоняется.
package prizes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"serotonyl.ru/reward-engine/internal/common"
)

const maxNameLength = 100

// Input — тело запроса создания/обновления приза.
// Числа принимаются и как JSON-числа, и как строки.
type Input struct {
	Name      *string         `json:"name"`
	CoinValue json.RawMessage `json:"coinValue"`
	Weight    json.RawMessage `json:"weight"`
	Active    *bool           `json:"active"`
	SortOrder json.RawMessage `json:"sortOrder"`
	Color     *string         `json:"color"`
	Icon      *string         `json:"icon"`
}

// NewPrize проверяет вход для создания. Отсутствующие числа становятся 0,
// active по умолчанию true.
func (in Input) NewPrize() (*Prize, error) {
	patch, err := in.patch(true)
	if err != nil {
		return nil, err
	}
	p := &Prize{Active: true, Weight: decimal.Zero}
	patch.Apply(p)
	return p, nil
}

// Patch проверяет вход для частичного обновления.
func (in Input) Patch() (Patch, error) {
	return in.patch(false)
}

func (in Input) patch(create bool) (Patch, error) {
	var (
		out  Patch
		vErr = &common.ValidationError{}
	)

	if in.Name != nil || create {
		name := ""
		if in.Name != nil {
			name = strings.TrimSpace(*in.Name)
		}
		switch {
		case name == "":
			vErr.Add("name", "обязательное поле")
		case utf8.RuneCountInString(name) > maxNameLength:
			vErr.Add("name", "не длиннее 100 символов")
		default:
			out.Name = &name
		}
	}

	if v, present, err := coerceInt(in.CoinValue, 0, math.MaxInt64); err != nil {
		vErr.Add("coinValue", err.Error())
	} else if present || create {
		out.CoinValue = &v
	}

	if w, present, err := parseWeight(in.Weight); err != nil {
		vErr.Add("weight", err.Error())
	} else if present || create {
		out.Weight = &w
	}

	// sort_order в базе INTEGER
	if v, present, err := coerceInt(in.SortOrder, math.MinInt32, math.MaxInt32); err != nil {
		vErr.Add("sortOrder", err.Error())
	} else if present || create {
		order := int(v)
		out.SortOrder = &order
	}

	out.Active = in.Active
	if in.Color != nil {
		color := strings.TrimSpace(*in.Color)
		out.Color = &color
	}
	if in.Icon != nil {
		icon := strings.TrimSpace(*in.Icon)
		out.Icon = &icon
	}

	if vErr.HasErrors() {
		return Patch{}, vErr
	}
	return out, nil
}

// isMissing — поле не передано или null.
func isMissing(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// parseNumber принимает JSON-число или строку с числом.
func parseNumber(raw json.RawMessage) (decimal.Decimal, bool) {
	s := strings.TrimSpace(string(raw))
	if unquoted, err := unquote(raw); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func unquote(raw json.RawMessage) (string, error) {
	var s string
	err := json.Unmarshal(raw, &s)
	return s, err
}

// coerceInt: нечисло → 0, дробная часть отбрасывается.
// Значение вне [lo, hi] отклоняется, а не обрезается.
func coerceInt(raw json.RawMessage, lo, hi int64) (value int64, present bool, err error) {
	if isMissing(raw) {
		return 0, false, nil
	}
	d, ok := parseNumber(raw)
	if !ok {
		return 0, true, nil
	}
	d = d.Truncate(0)
	switch {
	case d.LessThan(decimal.NewFromInt(lo)):
		if lo == 0 {
			return 0, true, fieldError("не может быть отрицательным")
		}
		return 0, true, fieldError(fmt.Sprintf("не меньше %d", lo))
	case d.GreaterThan(decimal.NewFromInt(hi)):
		return 0, true, fieldError(fmt.Sprintf("не больше %d", hi))
	}
	return d.IntPart(), true, nil
}

type fieldError string

func (e fieldError) Error() string { return string(e) }

// parseWeight: отсутствует → 0; нечисло, < 0 или > 100 → ошибка; округление до 2 знаков.
func parseWeight(raw json.RawMessage) (decimal.Decimal, bool, error) {
	if isMissing(raw) {
		return decimal.Zero, false, nil
	}
	d, ok := parseNumber(raw)
	if !ok {
		return decimal.Zero, true, fieldError("должен быть числом")
	}
	d = d.Round(2)
	if d.IsNegative() {
		return decimal.Zero, true, fieldError("не может быть отрицательным")
	}
	if d.GreaterThan(hundred) {
		return decimal.Zero, true, fieldError("не больше 100")
	}
	return d, true, nil
}
