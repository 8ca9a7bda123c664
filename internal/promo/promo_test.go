package promo

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantReject bool
		wantReason string
	}{
		{
			name:       "pre-approved loan",
			body:       "Congratulations! You are eligible for a pre-approved loan up to Rs.5,00,000. Apply now!",
			wantReject: true,
			wantReason: ReasonLoanOffer,
		},
		{
			name:       "otp",
			body:       "123456 is your OTP for txn of Rs.500 at AMAZON. Do not share.",
			wantReject: true,
			wantReason: ReasonOTP,
		},
		{
			name:       "one time password with debit wording",
			body:       "Use One Time Password 4321 to confirm Rs 2,000 debited from A/c XX1234 Ref 998877665544",
			wantReject: true,
			wantReason: ReasonOTP,
		},
		{
			name:       "collect request",
			body:       "rahul@okaxis has requested Rs.500 from you on Google Pay. Approve the request in the app.",
			wantReject: true,
			wantReason: ReasonRequest,
		},
		{
			name:       "loan emi debited",
			body:       "Rs.4,500 debited from A/c XX1234 towards personal loan EMI. Ref No 123456789",
			wantReject: false,
		},
		{
			name:       "card statement",
			body:       "Your ICICI Bank Credit Card XX1234 statement is generated. Total Amt Due Rs.12,000. Min Amt Due Rs.600 by 05-Sep.",
			wantReject: true,
			wantReason: ReasonStatement,
		},
		{
			name:       "statement with payment received",
			body:       "Payment of Rs.12,000 received towards your card. Total Amt Due now Rs.0",
			wantReject: false,
		},
		{
			name:       "marketing sale",
			body:       "Big Sale! Flat 50% discount when you pay with your card. Rs.500 off.",
			wantReject: true,
			wantReason: ReasonMarketing,
		},
		{
			name:       "cashback offer credited with structural evidence",
			body:       "Cashback offer: Rs.50 credited to A/c XX1234. Ref No 998877665544",
			wantReject: false,
		},
		{
			name:       "short link spam",
			body:       "Your account will be blocked. Update details at bit.ly/x1y2 to avoid Rs.5000 penalty",
			wantReject: true,
			wantReason: ReasonSpam,
		},
		{
			name:       "plain debit",
			body:       "Rs.200 debited from A/c XX1234 to Merchant via UPI. Ref 123456789",
			wantReject: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.body)
			if got.Reject != tt.wantReject {
				t.Fatalf("reject: got %v, want %v (reason %q)", got.Reject, tt.wantReject, got.Reason)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("reason: got %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}
