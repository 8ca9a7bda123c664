package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

func newRecord(id, body string, ts int64) models.TransactionRecord {
	bal := decimal.RequireFromString("10000.50")
	return models.TransactionRecord{
		ID:              id,
		Type:            models.TypeDebit,
		Source:          models.SourceSMS,
		Amount:          decimal.RequireFromString("500.25"),
		Merchant:        "SWIGGY",
		Channel:         models.ChannelUPI,
		AccountTail:     "1234",
		BankName:        "HDFC Bank",
		ReferenceID:     "423456789012",
		BalanceAfter:    &bal,
		Sender:          "VM-HDFCBK",
		Body:            body,
		TimestampMillis: ts,
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "transactions.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestStore_InsertIsIdempotent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ok, err := s.Insert(ctx, newRecord("a", "Rs 500 debited", 1000))
			if err != nil || !ok {
				t.Fatalf("first insert: got (%v, %v)", ok, err)
			}
			ok, err = s.Insert(ctx, newRecord("b", "Rs 500 debited", 1000))
			if err != nil {
				t.Fatalf("second insert: %v", err)
			}
			if ok {
				t.Error("duplicate message inserted twice")
			}

			recs, err := s.Range(ctx, 0, 0)
			if err != nil {
				t.Fatalf("range: %v", err)
			}
			if len(recs) != 1 {
				t.Fatalf("records: got %d, want 1", len(recs))
			}
			if recs[0].ID != "a" {
				t.Errorf("id: got %q, want %q", recs[0].ID, "a")
			}

			// same body at another time is a new message
			if ok, _ := s.Insert(ctx, newRecord("c", "Rs 500 debited", 2000)); !ok {
				t.Error("distinct timestamp should insert")
			}
		})
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := newRecord("a", "Rs 500.25 debited", 1000)
			if _, err := s.Insert(ctx, want); err != nil {
				t.Fatalf("insert: %v", err)
			}
			got, err := s.Get(ctx, "a")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if !got.Amount.Equal(want.Amount) {
				t.Errorf("amount: got %s, want %s", got.Amount, want.Amount)
			}
			if got.BalanceAfter == nil || !got.BalanceAfter.Equal(*want.BalanceAfter) {
				t.Errorf("balance: got %v, want %s", got.BalanceAfter, want.BalanceAfter)
			}
			if got.Merchant != want.Merchant || got.Channel != want.Channel || got.AccountTail != want.AccountTail ||
				got.BankName != want.BankName || got.ReferenceID != want.ReferenceID || got.Sender != want.Sender ||
				got.Body != want.Body || got.TimestampMillis != want.TimestampMillis || got.Type != want.Type ||
				got.Source != want.Source || got.Excluded {
				t.Errorf("got %+v, want %+v", got, want)
			}

			if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("missing: got %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_RangeAndExclude(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i, ts := range []int64{3000, 1000, 2000} {
				rec := newRecord(string(rune('a'+i)), "msg", ts)
				rec.BalanceAfter = nil
				if _, err := s.Insert(ctx, rec); err != nil {
					t.Fatalf("insert: %v", err)
				}
			}

			recs, err := s.Range(ctx, 1500, 3000)
			if err != nil {
				t.Fatalf("range: %v", err)
			}
			if len(recs) != 2 || recs[0].TimestampMillis != 2000 || recs[1].TimestampMillis != 3000 {
				t.Fatalf("range: got %+v", recs)
			}
			if recs[0].BalanceAfter != nil {
				t.Errorf("balance: got %v, want nil", recs[0].BalanceAfter)
			}

			if err := s.MarkExcluded(ctx, "b", "c", "unknown"); err != nil {
				t.Fatalf("mark excluded: %v", err)
			}
			recs, _ = s.Range(ctx, 0, 0)
			excluded := 0
			for _, r := range recs {
				if r.Excluded {
					excluded++
				}
			}
			if excluded != 2 {
				t.Errorf("excluded: got %d, want 2", excluded)
			}
		})
	}
}

func TestStore_RequiresID(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Insert(context.Background(), newRecord("", "x", 1)); err == nil {
				t.Error("expected error for empty ID")
			}
		})
	}
}

func TestStore_ConcurrentDuplicates(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				inserted int
			)
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					ok, err := s.Insert(context.Background(), newRecord(string(rune('A'+i)), "same", 42))
					if err != nil {
						t.Errorf("insert: %v", err)
						return
					}
					if ok {
						mu.Lock()
						inserted++
						mu.Unlock()
					}
				}(i)
			}
			wg.Wait()
			if inserted != 1 {
				t.Errorf("inserted: got %d, want 1", inserted)
			}
		})
	}
}
