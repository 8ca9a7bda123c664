package parser

import (
	"regexp"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

// ICICI Bank alerts.
//
// Typical layouts:
//
//	ICICI Bank Acct XX123 debited for Rs 1,000.00 on 12-Aug-24; AMAZON credited. UPI:423456789012.
//	INR 5,000.00 spent using ICICI Bank Card XX4321 on 12-Aug-24 on FLIPKART. Avl Limit: INR 1,20,000.00
//	ICICI Bank Account XX123 credited:Rs. 10,000.00 on 12-Aug-24. Info NEFT-HDFC0000001-ACME CORP. Available Balance is Rs. 50,000.00.
//
// Only "spent on/using ICICI Bank Credit Card" marks a credit card spend; a
// plain "ICICI Bank Card" is the debit card on the account.
var (
	iciciCreditCard = regexp.MustCompile(`(?i)\bspent\s+(?:on|using)\s+(?:your\s+)?icici\s+bank\s+credit\s+card\b`)

	iciciMerchantPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i);\s*([^;.]+?)\s+credited\b`),
		regexp.MustCompile(`(?i)\binfo\s*[:\-]?\s*(?:neft|imps|rtgs|upi)[-/][A-Z0-9]*[-/]([^.]+?)(?:\.|$)`),
		regexp.MustCompile(`(?i)\bon\s+\d{1,2}-[a-z]{3}-\d{2,4}\s+(?:on|at)\s+(.+?)(?:\.\s|\.$|\s+avl\b|$)`),
	}
)

func iciciRules() *Rules {
	return &Rules{
		Bank:   "ICICI Bank",
		Method: "icici",
		Suppress: append(append([]*regexp.Regexp{}, preNotificationPatterns...),
			cardBillReceivedPatterns...),
		Merchant: func(body string, _ models.Direction) string {
			return merchantFrom(body, iciciMerchantPatterns)
		},
		CreditCard:       iciciCreditCard.MatchString,
		DetectInvestment: true,
	}
}
