package parser

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"25.99", "25.99", false},
		{"1,234.56", "1234.56", false},
		{"5,00,000", "500000", false},
		{"500/-", "500", false},
		{"250.", "250", false},
		{" 99.50 ", "99.5", false},
		{"abc", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestNormalizeBody(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Rs. 500  debited", "Rs. 500 debited"},
		{"Rs.５００ paid", "Rs.500 paid"},
		{"  spent​ Rs 20\n\nat  SHOP ", "spent Rs 20 at SHOP"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := normalizeBody(tt.input); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDetectChannel(t *testing.T) {
	tests := []struct {
		body     string
		expected models.Channel
	}{
		{"Rs 500 paid via UPI to SHOP", models.ChannelUPI},
		{"Rs 500 sent to shop@ybl", models.ChannelUPI},
		{"Rs 2000 withdrawn at ATM using Card XX1234", models.ChannelATM},
		{"Rs 500 spent on Card XX1234", models.ChannelCard},
		{"POS txn of Rs 300", models.ChannelPOS},
		{"Rs 500 credited by IMPS", models.ChannelIMPS},
		{"NEFT credit of Rs 500", models.ChannelNEFT},
		{"RTGS credit of Rs 5,00,000", models.ChannelRTGS},
		{"Rs 500 paid using net banking", models.ChannelNetBanking},
		{"Cash deposited Rs 500", models.ChannelCash},
		{"Rs 500 debited", ""},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			if got := DetectChannel(tt.body); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDetectDirection(t *testing.T) {
	tests := []struct {
		body     string
		expected models.Direction
	}{
		{"Rs.500 debited from A/c XX1234", models.Debit},
		{"Rs.500 credited to A/c XX1234", models.Credit},
		{"Refund of Rs 100 processed", models.Credit},
		{"Rs 100 debited from A/c XX1 and credited to A/c XX2", models.Debit},
		{"Rs 100 credited to A/c XX1 and debited from A/c XX2", models.Credit},
		{"Payment of Rs.5000 towards credit card XX9876 received", models.Debit},
		{"Earn cashback of Rs 50 today", ""},
		{"Your Debit Card is now active", ""},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			if got := DetectDirection(tt.body); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFindAccountTails(t *testing.T) {
	tests := []struct {
		body     string
		expected []string
	}{
		{"debited from A/c XX1234 and credited to A/c XX5678", []string{"1234", "5678"}},
		{"Card ending 4321 used", []string{"4321"}},
		{"A/C XXXXX12345 debited", []string{"2345"}},
		{"Acct XX123 debited", []string{"123"}},
		{"Rs 500 debited", nil},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			got := FindAccountTails(tt.body)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFindReference(t *testing.T) {
	tests := []struct {
		body     string
		expected string
	}{
		{"Rs 500 debited. UPI Ref 423456789012", "423456789012"},
		{"Rs 500 debited. Ref No 123456", "123456"},
		{"Txn ID: ab12cd done", "AB12CD"},
		{"trf to SWIGGY Refno 423456789012.", "423456789012"},
		{"UTR: SBIN0123456789", "SBIN0123456789"},
		{"Ref 123", ""},
		{"no reference here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			if got := FindReference(tt.body); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
