// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: работа с UTC-датами, русская плюрализация, форматирование чисел.
package common

import (
	"math"
	"time"
)

// Clock возвращает текущее время. Сервисы получают его снаружи,
// чтобы тесты могли «перематывать» дни.
type Clock func() time.Time

// SystemClock — реальные часы в UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// UTCDate отбрасывает время и возвращает полночь того же UTC-дня.
//
// Пример:
//
//	UTCDate(2024-03-05 23:59:59 +03:00) → 2024-03-05 00:00:00 UTC
func UTCDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// NextUTCMidnight возвращает начало следующего UTC-дня после t.
func NextUTCMidnight(t time.Time) time.Time {
	return UTCDate(t).AddDate(0, 0, 1)
}

// FormatDate форматирует дату как YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// pluralForm выбирает одну из трёх форм слова для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → one (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → few (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → many (0, 5-20, 25-30, 100, ...)
func pluralForm(n int64, one, few, many string) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizeCoins возвращает правильную форму слова «монета» для числа n.
//
// Примеры:
//
//	PluralizeCoins(1)  → "монета"
//	PluralizeCoins(3)  → "монеты"
//	PluralizeCoins(5)  → "монет"
//	PluralizeCoins(11) → "монет"
//	PluralizeCoins(21) → "монета"
func PluralizeCoins(n int64) string {
	return pluralForm(n, "монета", "монеты", "монет")
}

// PluralizeTickets возвращает правильную форму слова «билет».
func PluralizeTickets(n int64) string {
	return pluralForm(n, "билет", "билета", "билетов")
}

// PluralizeDays возвращает правильную форму слова «день».
//
// Правила:
//   - 1, 21, 31 → "день"
//   - 2-4, 22-24 → "дня"
//   - 5-20, 25-30 → "дней"
func PluralizeDays(n int) string {
	return pluralForm(int64(n), "день", "дня", "дней")
}
