// Package common — pluralize.go содержит вспомогательные функции
// для правильного склонения русских числительных.
package common

import (
	"fmt"
	"math"
)

// PluralizeMerits возвращает правильную форму слова «мерит» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "мерит" (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "мерита" (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → "меритов" (0, 5-20, 25-30, 100, ...)
//
// Примеры:
//
//	PluralizeMerits(1)  → "мерит"
//	PluralizeMerits(3)  → "мерита"
//	PluralizeMerits(11) → "меритов"
//	PluralizeMerits(21) → "мерит"
func PluralizeMerits(n int64) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "мерит"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "мерита"
	}
	return "меритов"
}

// FormatMerits форматирует сумму в читабельную строку.
// Пример: FormatMerits(150) → "150 меритов"
func FormatMerits(amount int64) string {
	return fmt.Sprintf("%d %s", amount, PluralizeMerits(amount))
}

// FormatMeritsSigned создаёт строку вида "+100 меритов" или "-50 меритов".
// Знак «+» добавляется автоматически для неотрицательных сумм.
func FormatMeritsSigned(amount int64) string {
	if amount >= 0 {
		return fmt.Sprintf("+%d %s", amount, PluralizeMerits(amount))
	}
	return fmt.Sprintf("%d %s", amount, PluralizeMerits(amount))
}
