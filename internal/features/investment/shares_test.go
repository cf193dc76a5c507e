package investment

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEffectiveSharePercent(t *testing.T) {
	// Контракт 20%: А вложил 80, Б вложил 20, пул 100.
	// Эффективные доли: А = 80/100*20 = 16%, Б = 4%.
	t.Run("пропорциональные доли", func(t *testing.T) {
		a := EffectiveSharePercent(80, 100, 20)
		if !a.Equal(decimal.NewFromInt(16)) {
			t.Errorf("доля А = %s, ожидали 16", a)
		}
		b := EffectiveSharePercent(20, 100, 20)
		if !b.Equal(decimal.NewFromInt(4)) {
			t.Errorf("доля Б = %s, ожидали 4", b)
		}
	})

	t.Run("пустой пул", func(t *testing.T) {
		if s := EffectiveSharePercent(50, 0, 20); !s.IsZero() {
			t.Errorf("доля при пустом пуле = %s", s)
		}
	})

	t.Run("сумма долей не превышает контракт", func(t *testing.T) {
		stakes := []int64{33, 33, 34}
		total := decimal.Zero
		for _, s := range stakes {
			total = total.Add(EffectiveSharePercent(s, 100, 20))
		}
		if !total.Equal(decimal.NewFromInt(20)) {
			t.Errorf("сумма эффективных долей = %s, ожидали 20", total)
		}
	})
}

func TestAuthorPayout(t *testing.T) {
	if got := AuthorPayout(100, 20); got != 80 {
		t.Errorf("AuthorPayout(100, 20) = %d, ожидали 80", got)
	}
	// Дробная доля округляется вниз
	if got := AuthorPayout(99, 20); got != 79 {
		t.Errorf("AuthorPayout(99, 20) = %d, ожидали 79", got)
	}
	if got := AuthorPayout(0, 20); got != 0 {
		t.Errorf("AuthorPayout(0, 20) = %d", got)
	}
}

func TestInvestorPayout(t *testing.T) {
	// Пул 100, контракт 20%, вложено 80 из 100 → floor(100*0.2*0.8) = 16
	if got := InvestorPayout(100, 80, 100, 20); got != 16 {
		t.Errorf("InvestorPayout = %d, ожидали 16", got)
	}
	if got := InvestorPayout(100, 20, 100, 20); got != 4 {
		t.Errorf("InvestorPayout = %d, ожидали 4", got)
	}
	// Вложений нет — выплаты нет
	if got := InvestorPayout(100, 0, 100, 20); got != 0 {
		t.Errorf("InvestorPayout без вложений = %d", got)
	}
}

func TestDistributionPlan(t *testing.T) {
	t.Run("базовый сценарий", func(t *testing.T) {
		stakes := map[int64]int64{101: 80, 102: 20}
		payouts := DistributionPlan(100, 100, 20, 1, stakes)

		want := map[int64]int64{101: 16, 102: 4, 1: 80}
		if len(payouts) != 3 {
			t.Fatalf("выплат %d, ожидали 3: %v", len(payouts), payouts)
		}
		for _, p := range payouts {
			if want[p.UserID] != p.Amount {
				t.Errorf("выплата %d = %d, ожидали %d", p.UserID, p.Amount, want[p.UserID])
			}
		}
	})

	t.Run("сумма выплат равна остатку пула", func(t *testing.T) {
		// Числа подобраны так, чтобы округления давали остаток
		stakes := map[int64]int64{7: 1, 8: 2, 9: 4}
		poolBalance := int64(97)
		payouts := DistributionPlan(poolBalance, 7, 33, 1, stakes)

		var sum int64
		for _, p := range payouts {
			sum += p.Amount
		}
		if sum != poolBalance {
			t.Errorf("сумма выплат %d != остаток пула %d: %v", sum, poolBalance, payouts)
		}
	})

	t.Run("остаток округления достаётся автору", func(t *testing.T) {
		stakes := map[int64]int64{5: 100}
		payouts := DistributionPlan(99, 100, 20, 1, stakes)

		// Инвестор: floor(99*0.2) = 19; автор: 99-19 = 80
		var investor, author int64
		for _, p := range payouts {
			switch p.UserID {
			case 5:
				investor = p.Amount
			case 1:
				author = p.Amount
			}
		}
		if investor != 19 || author != 80 {
			t.Errorf("инвестор=%d автор=%d, ожидали 19/80", investor, author)
		}
	})

	t.Run("пустой пул", func(t *testing.T) {
		if payouts := DistributionPlan(0, 100, 20, 1, map[int64]int64{5: 100}); payouts != nil {
			t.Errorf("выплаты из пустого пула: %v", payouts)
		}
	})

	t.Run("без инвесторов всё автору", func(t *testing.T) {
		payouts := DistributionPlan(50, 0, 20, 1, nil)
		if len(payouts) != 1 || payouts[0].UserID != 1 || payouts[0].Amount != 50 {
			t.Errorf("выплаты без инвесторов: %v", payouts)
		}
	})

	t.Run("детерминированный порядок", func(t *testing.T) {
		stakes := map[int64]int64{30: 100, 10: 100, 20: 100}
		payouts := DistributionPlan(300, 300, 30, 1, stakes)

		var prev int64
		for i, p := range payouts[:3] {
			if i > 0 && p.UserID < prev {
				t.Errorf("инвесторы не по возрастанию ID: %v", payouts)
			}
			prev = p.UserID
		}
	})
}

func TestPayableNow(t *testing.T) {
	t.Run("повторный вывод без новых поступлений ничего не платит", func(t *testing.T) {
		// Автор с контрактом 80/20 на пуле в 100: первый вывод даёт
		// ровно 80, дальнейшие — ноль, инвесторам остаётся их 20.
		earned, balance := int64(100), int64(100)
		var withdrawn int64

		for i := 0; i < 5; i++ {
			payable := PayableNow(AuthorPayout(earned, 20), withdrawn, balance)
			switch {
			case i == 0 && payable != 80:
				t.Fatalf("первый вывод %d, ожидалось 80", payable)
			case i > 0 && payable != 0:
				t.Fatalf("вывод №%d дал %d, ожидался 0", i+1, payable)
			}
			withdrawn += payable
			balance -= payable
		}

		if withdrawn != 80 {
			t.Errorf("всего выведено %d, ожидалось 80", withdrawn)
		}
		if balance != 20 {
			t.Errorf("инвесторам осталось %d, ожидалось 20", balance)
		}
	})

	t.Run("новые поступления открывают новую долю", func(t *testing.T) {
		// После полного вывода с 100 приток ещё 50: доступно 80% от 50.
		payable := PayableNow(AuthorPayout(150, 20), 80, 70)
		if payable != 40 {
			t.Errorf("доступно %d, ожидалось 40", payable)
		}
	})

	t.Run("ограничение остатком пула", func(t *testing.T) {
		if got := PayableNow(80, 0, 30); got != 30 {
			t.Errorf("получено %d, ожидалось 30", got)
		}
	})

	t.Run("перебор выведенного не уходит в минус", func(t *testing.T) {
		if got := PayableNow(80, 95, 100); got != 0 {
			t.Errorf("получено %d, ожидался 0", got)
		}
	})
}

func TestSettlementPlan(t *testing.T) {
	t.Run("вывод автора не уменьшает долю инвесторов", func(t *testing.T) {
		// Приток 100, автор уже снял свои 80: при закрытии инвестор
		// получает полные 20, автору ничего не остаётся.
		stakes := map[int64]int64{7: 100}
		withdrawn := map[int64]int64{1: 80}

		payouts := SettlementPlan(20, 100, 100, 20, 1, stakes, withdrawn)
		if len(payouts) != 1 {
			t.Fatalf("выплат %d, ожидалась 1: %+v", len(payouts), payouts)
		}
		if payouts[0].UserID != 7 || payouts[0].Amount != 20 {
			t.Errorf("выплата %+v, ожидалось {7 20}", payouts[0])
		}
	})

	t.Run("вывод инвестора не уменьшает долю автора", func(t *testing.T) {
		stakes := map[int64]int64{7: 100}
		withdrawn := map[int64]int64{7: 20}

		payouts := SettlementPlan(80, 100, 100, 20, 1, stakes, withdrawn)
		if len(payouts) != 1 || payouts[0].UserID != 1 || payouts[0].Amount != 80 {
			t.Fatalf("выплаты %+v, ожидалось [{1 80}]", payouts)
		}
	})

	t.Run("сумма выплат равна остатку пула", func(t *testing.T) {
		stakes := map[int64]int64{7: 1, 8: 2, 9: 4}
		withdrawn := map[int64]int64{8: 3}

		payouts := SettlementPlan(94, 97, 7, 33, 1, stakes, withdrawn)
		var total int64
		for _, p := range payouts {
			total += p.Amount
		}
		if total != 94 {
			t.Errorf("распределено %d, ожидалось 94: %+v", total, payouts)
		}
	})

	t.Run("пустой пул", func(t *testing.T) {
		if payouts := SettlementPlan(0, 100, 100, 20, 1, nil, nil); payouts != nil {
			t.Errorf("ожидался nil, получено %+v", payouts)
		}
	})
}
