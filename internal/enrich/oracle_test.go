package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

type fakeOracle struct {
	hint  *Hint
	err   error
	panic bool
	delay time.Duration
}

func (f *fakeOracle) Extract(ctx context.Context, _, _ string, _ int64) (*Hint, error) {
	if f.panic {
		panic("model exploded")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.hint, f.err
}

func minor(v int64) *int64 { return &v }

func TestSafeExtract(t *testing.T) {
	msg := models.RawMessage{Sender: "VM-HDFCBK", Body: "Rs 100 debited", TimestampMillis: 1}
	want := &Hint{IsTransaction: true, Merchant: "SHOP"}

	tests := []struct {
		name   string
		oracle Oracle
		want   *Hint
	}{
		{"nil oracle", nil, nil},
		{"hint", &fakeOracle{hint: want}, want},
		{"error", &fakeOracle{err: errors.New("quota")}, nil},
		{"panic", &fakeOracle{panic: true}, nil},
		{"timeout", &fakeOracle{hint: want, delay: time.Second}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeExtract(context.Background(), tt.oracle, 20*time.Millisecond, msg, zerolog.Nop())
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func baseTxn() *models.ParsedTransaction {
	return &models.ParsedTransaction{
		Amount:    decimal.RequireFromString("500.00"),
		Direction: models.Debit,
		Type:      models.TypeDebit,
		Channel:   models.ChannelOther,
		BankName:  "HDFC Bank",
	}
}

func TestMerge(t *testing.T) {
	t.Run("nil hint keeps transaction", func(t *testing.T) {
		txn := baseTxn()
		if got := Merge(txn, nil, zerolog.Nop()); got != txn {
			t.Error("expected the same transaction back")
		}
	})

	t.Run("not a transaction is ignored", func(t *testing.T) {
		txn := baseTxn()
		got := Merge(txn, &Hint{IsTransaction: false, Merchant: "X"}, zerolog.Nop())
		if got != txn || got.Merchant != "" {
			t.Errorf("hint should be ignored, got %+v", got)
		}
	})

	t.Run("amount disagreement keeps regex amount", func(t *testing.T) {
		got := Merge(baseTxn(), &Hint{IsTransaction: true, AmountMinor: minor(99900)}, zerolog.Nop())
		if !got.Amount.Equal(decimal.NewFromInt(500)) {
			t.Errorf("amount: got %s, want 500", got.Amount)
		}
	})

	t.Run("type channel merchant override", func(t *testing.T) {
		got := Merge(baseTxn(), &Hint{
			IsTransaction: true,
			Type:          "credit",
			Channel:       "upi",
			Merchant:      "ACME Pvt Ltd",
		}, zerolog.Nop())
		if got.Type != models.TypeCredit || got.Direction != models.Credit {
			t.Errorf("type/direction: got %q/%q", got.Type, got.Direction)
		}
		if got.Channel != models.ChannelUPI {
			t.Errorf("channel: got %q, want UPI", got.Channel)
		}
		if got.Merchant != "ACME" {
			t.Errorf("merchant: got %q, want ACME", got.Merchant)
		}
	})

	t.Run("tail and bank only fill gaps", func(t *testing.T) {
		txn := baseTxn()
		txn.AccountTail = "1234"
		got := Merge(txn, &Hint{IsTransaction: true, AccountTail: "9999", Bank: "Other Bank"}, zerolog.Nop())
		if got.AccountTail != "1234" {
			t.Errorf("tail: got %q, want 1234", got.AccountTail)
		}
		if got.BankName != "HDFC Bank" {
			t.Errorf("bank: got %q, want HDFC Bank", got.BankName)
		}

		txn = baseTxn()
		txn.BankName = ""
		got = Merge(txn, &Hint{IsTransaction: true, AccountTail: "9999", Bank: "Other Bank"}, zerolog.Nop())
		if got.AccountTail != "9999" || got.BankName != "Other Bank" {
			t.Errorf("gaps not filled: %+v", got)
		}
	})

	t.Run("unknown values ignored", func(t *testing.T) {
		got := Merge(baseTxn(), &Hint{IsTransaction: true, Type: "REFUND", Channel: "WIRE"}, zerolog.Nop())
		if got.Type != models.TypeDebit || got.Channel != models.ChannelOther {
			t.Errorf("got type %q channel %q", got.Type, got.Channel)
		}
	})
}

func TestSetDefault(t *testing.T) {
	defer defaultSlot.Store(nil)

	if Default() != nil {
		t.Fatal("expected no default oracle")
	}
	first := &fakeOracle{}
	if err := SetDefault(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := SetDefault(&fakeOracle{}); !errors.Is(err, ErrProviderAlreadySet) {
		t.Errorf("got %v, want ErrProviderAlreadySet", err)
	}
	if Default() != Oracle(first) {
		t.Error("default oracle was replaced")
	}
	if err := SetDefault(nil); err == nil {
		t.Error("expected error for nil oracle")
	}
}
