package parser

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

// Paytm wallet and Paytm Payments Bank. Paytm is UPI-first, so messages
// without a recognisable rail default to UPI.
//
//	Paid Rs.150 to Swiggy from Paytm Balance. Updated Balance: Paytm Wallet- Rs 850. Txn ID: 12345678901
//	Rs.500 sent to Rahul Kumar from Paytm Payments Bank a/c XX1234 UPI Ref:423456789012
var (
	paytmBalance = regexp.MustCompile(`(?i)\bupdated\s+balance\s*:?\s*paytm\s+wallet\s*-?\s*(?:(?:rs|inr)\.?|₹)\s*` + numberGroup)

	paytmMerchantPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:paid|sent)\s+(?:(?:rs|inr)\.?|₹)\s*[0-9][0-9,.]*\s+to\s+(.+?)\s+(?:from|on|via|using)\b`),
		regexp.MustCompile(`(?i)(?:(?:rs|inr)\.?|₹)\s*[0-9][0-9,.]*\s+(?:paid|sent)\s+to\s+(.+?)\s+(?:from|on|via|using)\b`),
	}
)

func paytmRules() *Rules {
	return &Rules{
		Bank:           "Paytm",
		Method:         "paytm",
		Suppress:       preNotificationPatterns,
		DefaultChannel: models.ChannelUPI,
		Merchant: func(body string, _ models.Direction) string {
			return merchantFrom(body, paytmMerchantPatterns)
		},
		Balance: func(body string) (decimal.Decimal, bool) {
			m := paytmBalance.FindStringSubmatch(body)
			if m == nil {
				return decimal.Decimal{}, false
			}
			v, err := parseAmount(m[1])
			return v, err == nil
		},
	}
}
