package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"meritburo.ru/merit-engine/internal/common"
	"meritburo.ru/merit-engine/internal/features/wallet"
)

type fakeLedger struct {
	balance   int64
	lastType  string
	lastDesc  string
	credited  int64
	debited   int64
	debitErr  error
}

func (f *fakeLedger) Credit(_ context.Context, _, _ int64, amount int64, entryType, description string, _ *uuid.UUID) (int64, error) {
	f.balance += amount
	f.credited += amount
	f.lastType, f.lastDesc = entryType, description
	return f.balance, nil
}

func (f *fakeLedger) Debit(_ context.Context, _, _ int64, amount int64, entryType, description string, _ *uuid.UUID) (int64, error) {
	if f.debitErr != nil {
		return 0, f.debitErr
	}
	f.balance -= amount
	f.debited += amount
	f.lastType, f.lastDesc = entryType, description
	return f.balance, nil
}

func TestAdjustWallet(t *testing.T) {
	t.Run("зачисление", func(t *testing.T) {
		ledger := &fakeLedger{balance: 10}
		svc := NewService(nil, nil, ledger, nil)

		balance, err := svc.AdjustWallet(context.Background(), 1, 7, 1, 15, "компенсация сбоя")
		if err != nil {
			t.Fatalf("AdjustWallet: %v", err)
		}
		if balance != 25 || ledger.credited != 15 {
			t.Errorf("баланс %d, зачислено %d; ожидалось 25 и 15", balance, ledger.credited)
		}
		if ledger.lastType != wallet.EntryAdminAdjust {
			t.Errorf("тип записи %q, ожидался %q", ledger.lastType, wallet.EntryAdminAdjust)
		}
		if ledger.lastDesc != "Корректировка администратором: компенсация сбоя" {
			t.Errorf("описание записи: %q", ledger.lastDesc)
		}
	})

	t.Run("списание", func(t *testing.T) {
		ledger := &fakeLedger{balance: 10}
		svc := NewService(nil, nil, ledger, nil)

		balance, err := svc.AdjustWallet(context.Background(), 1, 7, 1, -4, "")
		if err != nil {
			t.Fatalf("AdjustWallet: %v", err)
		}
		if balance != 6 || ledger.debited != 4 {
			t.Errorf("баланс %d, списано %d; ожидалось 6 и 4", balance, ledger.debited)
		}
		if ledger.lastType != wallet.EntryAdminAdjust {
			t.Errorf("тип записи %q, ожидался %q", ledger.lastType, wallet.EntryAdminAdjust)
		}
	})

	t.Run("нулевая дельта", func(t *testing.T) {
		svc := NewService(nil, nil, &fakeLedger{}, nil)
		if _, err := svc.AdjustWallet(context.Background(), 1, 7, 1, 0, ""); !errors.Is(err, common.ErrInvalidAmount) {
			t.Fatalf("ожидалась ErrInvalidAmount, получено %v", err)
		}
	})

	t.Run("недостаточно средств", func(t *testing.T) {
		ledger := &fakeLedger{debitErr: common.ErrInsufficientFunds}
		svc := NewService(nil, nil, ledger, nil)
		if _, err := svc.AdjustWallet(context.Background(), 1, 7, 1, -100, ""); !errors.Is(err, common.ErrInsufficientFunds) {
			t.Fatalf("ожидалась ErrInsufficientFunds, получено %v", err)
		}
	})
}
