// Package investment — shares.go содержит чистую математику долей.
// Все вычисления идут через decimal, целочисленные выплаты округляются
// вниз, а остаток округления достаётся автору: сумма выплат всегда
// в точности равна распределяемому остатку пула.
package investment

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ShareOfPool возвращает долю инвестора в пуле: invested / poolTotal.
func ShareOfPool(invested, poolTotal int64) decimal.Decimal {
	if poolTotal <= 0 || invested <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(invested).Div(decimal.NewFromInt(poolTotal))
}

// EffectiveSharePercent возвращает эффективную долю инвестора в процентах:
// shareOfPool * contractPercent.
func EffectiveSharePercent(invested, poolTotal int64, contractPercent int) decimal.Decimal {
	return ShareOfPool(invested, poolTotal).Mul(decimal.NewFromInt(int64(contractPercent)))
}

// InvestorPayout возвращает выплату инвестора с остатка пула:
// floor(poolBalance * contractPercent/100 * invested/poolTotal).
func InvestorPayout(poolBalance, invested, poolTotal int64, contractPercent int) int64 {
	if poolBalance <= 0 {
		return 0
	}
	return decimal.NewFromInt(poolBalance).
		Mul(decimal.NewFromInt(int64(contractPercent))).Div(hundred).
		Mul(ShareOfPool(invested, poolTotal)).
		Floor().IntPart()
}

// AuthorPayout возвращает долю автора с остатка пула:
// floor(poolBalance * (100-contractPercent)/100).
func AuthorPayout(poolBalance int64, contractPercent int) int64 {
	if poolBalance <= 0 {
		return 0
	}
	return decimal.NewFromInt(poolBalance).
		Mul(hundred.Sub(decimal.NewFromInt(int64(contractPercent)))).Div(hundred).
		Floor().IntPart()
}

// PayableNow возвращает, сколько участник может вывести прямо сейчас:
// причитающееся за всю жизнь пула минус уже выведенное, но не больше
// текущего остатка. Повторный вывод без новых поступлений даёт ноль.
func PayableNow(entitlement, withdrawn, poolBalance int64) int64 {
	payable := entitlement - withdrawn
	if payable > poolBalance {
		payable = poolBalance
	}
	if payable < 0 {
		return 0
	}
	return payable
}

// SettlementPlan раскладывает остаток пула при закрытии с учётом уже
// выведенных долей. Причитающееся каждому считается от пожизненного
// притока poolEarned, из него вычитается выведенное, недовыбранный
// остаток достаётся автору. Сумма выплат равна poolBalance.
func SettlementPlan(poolBalance, poolEarned, poolTotal int64, contractPercent int, authorID int64, stakes, withdrawn map[int64]int64) []Payout {
	if poolBalance <= 0 {
		return nil
	}

	left := poolBalance
	var payouts []Payout
	for _, p := range DistributionPlan(poolEarned, poolTotal, contractPercent, authorID, stakes) {
		due := p.Amount - withdrawn[p.UserID]
		if due <= 0 {
			continue
		}
		if due > left {
			due = left
		}
		payouts = append(payouts, Payout{UserID: p.UserID, Amount: due})
		left -= due
	}

	if left > 0 {
		// Автор идёт в плане последним; добираем в его выплату
		if n := len(payouts); n > 0 && payouts[n-1].UserID == authorID {
			payouts[n-1].Amount += left
		} else {
			payouts = append(payouts, Payout{UserID: authorID, Amount: left})
		}
	}
	return payouts
}

// DistributionPlan раскладывает остаток пула по получателям при расчёте:
// автору (100-s)%, инвесторам s% пропорционально их долям. Остаток
// округлений достаётся автору, поэтому сумма выплат равна poolBalance.
// Порядок выплат детерминирован (по возрастанию ID инвестора).
func DistributionPlan(poolBalance, poolTotal int64, contractPercent int, authorID int64, stakes map[int64]int64) []Payout {
	if poolBalance <= 0 {
		return nil
	}

	investorIDs := make([]int64, 0, len(stakes))
	for id := range stakes {
		investorIDs = append(investorIDs, id)
	}
	sort.Slice(investorIDs, func(i, j int) bool { return investorIDs[i] < investorIDs[j] })

	payouts := make([]Payout, 0, len(stakes)+1)
	var distributed int64
	for _, id := range investorIDs {
		amount := InvestorPayout(poolBalance, stakes[id], poolTotal, contractPercent)
		if amount <= 0 {
			continue
		}
		payouts = append(payouts, Payout{UserID: id, Amount: amount})
		distributed += amount
	}

	// Автор забирает свою долю и весь остаток округлений
	if rest := poolBalance - distributed; rest > 0 {
		payouts = append(payouts, Payout{UserID: authorID, Amount: rest})
	}
	return payouts
}
