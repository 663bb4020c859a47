// Package spin — picker.go реализует взвешенный розыгрыш приза.
//
// Веса нормируются в проценты (w / Σw * 100), случайное r ∈ [0, 100)
// сравнивается с накопленной суммой в порядке sort_order, id.
// Если из-за округления накопление не дотянуло до r, выигрывает последний приз.
package spin

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/features/prizes"
)

// RandomSource возвращает равномерное число в [0, 1).
type RandomSource func() (float64, error)

const randomBits = 53

// CryptoRandom — источник на crypto/rand с 53 битами точности.
func CryptoRandom() (float64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<randomBits))
	if err != nil {
		return 0, fmt.Errorf("ошибка генерации случайного числа: %w", err)
	}
	return float64(n.Int64()) / (1 << randomBits), nil
}

// drawable отбирает призы с положительным весом и сортирует их по sort_order, id.
func drawable(list []prizes.Prize) []prizes.Prize {
	out := make([]prizes.Prize, 0, len(list))
	for _, p := range list {
		if p.Drawable() {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Pick выбирает приз по равномерному u ∈ [0, 1).
// Нет призов с положительным весом — common.ErrNoPrizesConfigured.
func Pick(list []prizes.Prize, u float64) (*prizes.Prize, error) {
	candidates := drawable(list)
	if len(candidates) == 0 {
		return nil, common.ErrNoPrizesConfigured
	}

	var total float64
	for _, p := range candidates {
		total += p.Weight.InexactFloat64()
	}
	if total <= 0 {
		return nil, common.ErrNoPrizesConfigured
	}

	r := u * 100
	var cumulative float64
	for i := range candidates {
		cumulative += candidates[i].Weight.InexactFloat64() / total * 100
		if r <= cumulative {
			return &candidates[i], nil
		}
	}
	return &candidates[len(candidates)-1], nil
}
