// Package tickets — rewards.go содержит таблицу наград за серию.
package tickets

// streakTiers — пороги серии и количество билетов.
// Проверяются сверху вниз, первый подходящий порог выигрывает.
var streakTiers = []struct {
	minStreak int
	tickets   int
}{
	{minStreak: 7, tickets: 3},
	{minStreak: 3, tickets: 2},
	{minStreak: 1, tickets: 1},
}

// TicketsForStreak вычисляет, сколько билетов даёт награда на день серии.
//
// Таблица наград:
//
//	День 1-2: 1 билет
//	День 3-6: 2 билета
//	День 7+:  3 билета
//
// Серия < 1 трактуется как первый день.
func TicketsForStreak(streak int) int {
	for _, tier := range streakTiers {
		if streak >= tier.minStreak {
			return tier.tickets
		}
	}
	return streakTiers[len(streakTiers)-1].tickets
}
