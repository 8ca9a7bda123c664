package parser

import (
	"regexp"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

// Kotak Mahindra Bank alerts name the counterparty by UPI handle.
//
//	Sent Rs.250.00 from Kotak Bank AC X1234 to swiggy@ybl on 12-08-24.UPI Ref 423456789012.
//	Received Rs.1000.00 in your Kotak Bank AC X1234 from rahul@okaxis on 12-08-24.UPI Ref:423456789012.
var kotakCounterparty = regexp.MustCompile(`(?i)\b(?:to|from)\s+([a-z0-9._\-]+)@[a-z0-9]+\b`)

func kotakMerchant(body string, _ models.Direction) string {
	for _, m := range kotakCounterparty.FindAllStringSubmatch(body, -1) {
		if validMerchant(m[1]) {
			return m[1]
		}
	}
	return ""
}

func kotakRules() *Rules {
	return &Rules{
		Bank:     "Kotak Mahindra Bank",
		Method:   "kotak",
		Suppress: preNotificationPatterns,
		Merchant: kotakMerchant,
	}
}
