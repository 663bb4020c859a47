// Package common — pluralize.go содержит функции форматирования
// сумм для сообщений и объявлений.
// Основная логика плюрализации реализована в helpers.go.
package common

import "fmt"

// FormatCoins форматирует сумму в читабельную строку.
// Пример: FormatCoins(2500) → "2 500 монет"
func FormatCoins(amount int64) string {
	return fmt.Sprintf("%s %s", FormatNumber(amount), PluralizeCoins(amount))
}

// FormatCoinsAmount создаёт строку вида "+100 монет" или "-50 монет".
// Знак «+» или «-» добавляется автоматически.
//
// Примеры:
//
//	FormatCoinsAmount(100)  → "+100 монет"
//	FormatCoinsAmount(-50)  → "-50 монет"
//	FormatCoinsAmount(1)    → "+1 монета"
func FormatCoinsAmount(amount int64) string {
	if amount >= 0 {
		return "+" + FormatCoins(amount)
	}
	return FormatCoins(amount)
}

// FormatTickets создаёт строку вида "3 билета".
func FormatTickets(n int64) string {
	return fmt.Sprintf("%d %s", n, PluralizeTickets(n))
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}
