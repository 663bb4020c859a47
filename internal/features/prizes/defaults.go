package prizes

import "github.com/shopspring/decimal"

// DefaultCatalog — стартовый каталог для пустой базы.
// Сумма весов — 99.5, шансы нормируются при розыгрыше.
func DefaultCatalog() []Prize {
	return []Prize{
		{Name: "Ничего", CoinValue: 0, Weight: decimal.RequireFromString("30"), Active: true, SortOrder: 1, Color: "#6B7280", Icon: "💨"},
		{Name: "10 монет", CoinValue: 10, Weight: decimal.RequireFromString("25"), Active: true, SortOrder: 2, Color: "#3B82F6", Icon: "🪙"},
		{Name: "25 монет", CoinValue: 25, Weight: decimal.RequireFromString("20"), Active: true, SortOrder: 3, Color: "#10B981", Icon: "🪙"},
		{Name: "50 монет", CoinValue: 50, Weight: decimal.RequireFromString("15"), Active: true, SortOrder: 4, Color: "#F59E0B", Icon: "💰"},
		{Name: "100 монет", CoinValue: 100, Weight: decimal.RequireFromString("7"), Active: true, SortOrder: 5, Color: "#EF4444", Icon: "💰"},
		{Name: "250 монет", CoinValue: 250, Weight: decimal.RequireFromString("2"), Active: true, SortOrder: 6, Color: "#8B5CF6", Icon: "💎"},
		{Name: "Джекпот 500", CoinValue: 500, Weight: decimal.RequireFromString("0.5"), Active: true, SortOrder: 7, Color: "#EC4899", Icon: "🎰"},
	}
}
