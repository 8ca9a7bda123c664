package transfer

import (
	"testing"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

func TestIsInternal(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		channel models.Channel
		want    bool
		wantCue string
	}{
		{"self transfer", "Rs.5,000 debited from A/c XX1234 for Self Transfer. Ref 123456789", models.ChannelIMPS, true, CueStrong},
		{"internal transfer", "Internal transfer of Rs 2,000 completed", models.ChannelOther, true, CueStrong},
		{"between accounts", "Rs 1,000 moved between your accounts XX12 and XX34", models.ChannelOther, true, CueStrong},
		{"own account", "Rs 500 transferred to own account XX9876", models.ChannelNEFT, true, CueOwn},
		{"to and from your account", "Rs 500 debited from your A/c XX1234 and sent to your A/c XX5678", models.ChannelIMPS, true, CueBothSide},
		{"dual tail", "Your a/c no. XX1234 is debited for Rs.250.00 and credited to a/c no. XX5678 (UPI Ref no 423456789012)", models.ChannelUPI, true, CueDualTail},
		{"pos with own account wording", "Rs 500 spent at POS terminal from own account XX1234", models.ChannelPOS, false, ""},
		{"p2m upi", "Rs 500 debited from A/c XX1234 and credited to A/c XX5678 UPI/P2M/4234/SWIGGY", models.ChannelUPI, false, ""},
		{"ordinary debit", "Rs.200 debited from A/c XX1234 to Merchant via UPI. Ref 123456789", models.ChannelUPI, false, ""},
		{"single tail credited and debited", "A/c XX1234 debited Rs 100; SHOP credited", models.ChannelUPI, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := &models.ParsedTransaction{Channel: tt.channel}
			got, cue := IsInternal(tt.body, txn)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if cue != tt.wantCue {
				t.Errorf("cue: got %q, want %q", cue, tt.wantCue)
			}
		})
	}
}
