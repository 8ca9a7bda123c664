package parser

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

// State Bank of India alerts. SBI often prints the amount without a currency
// marker.
//
// Typical layouts:
//
//	Dear UPI user A/C X1234 debited by 150.0 on date 12Aug24 trf to SWIGGY Refno 423456789012. If not u? call 1800111109. -SBI
//	Your A/C XXXXX12345 Credited INR 2,000.00 on 12/08/24 -Deposit by transfer from RAHUL KUMAR. Avl Bal INR 12,000.00-SBI
//	Your a/c no. XX1234 is credited by Rs.750.00 on 12-08-24 by a/c linked to VPA rahul@oksbi (UPI Ref no 423456789012).
var (
	sbiAmountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:debited|credited)\s+(?:by|for|with)\s+(?:(?:rs|inr)\.?\s*|₹\s*)?` + numberGroup),
		regexp.MustCompile(`(?i)\b(?:debit|credit)\s+by\s+transfer\s+of\s+(?:(?:rs|inr)\.?\s*|₹\s*)?` + numberGroup),
	}

	sbiMerchantPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\btrf\s+to\s+(.+?)\s+ref`),
		regexp.MustCompile(`(?i)\btransfer\s+(?:to|from)\s+(.+?)(?:\s+ref|\.\s|\.$|$)`),
	}
)

func sbiAmount(body string) (decimal.Decimal, bool) {
	raw := firstSubmatch(body, sbiAmountPatterns)
	if raw == "" {
		return decimal.Decimal{}, false
	}
	v, err := parseAmount(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return v, true
}

func sbiRules() *Rules {
	return &Rules{
		Bank:     "State Bank of India",
		Method:   "sbi",
		Suppress: preNotificationPatterns,
		Amount:   sbiAmount,
		Merchant: func(body string, _ models.Direction) string {
			return merchantFrom(body, sbiMerchantPatterns)
		},
	}
}
